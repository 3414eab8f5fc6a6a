package contacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Load parses CSV text with a header row into a Table.
//
// A leading UTF-8 BOM is stripped and UTF-16 input with a BOM is decoded;
// anything else must already be UTF-8. Blank lines are skipped and records
// shorter than the header are padded with empty values. Malformed quoting,
// records wider than the header, invalid UTF-8 and repeated header names all
// fail with a *ParseError and no table.
func Load(r io.Reader) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	// Strict quoting: a stray quote in an unquoted field is a ParseError.
	cr.LazyQuotes = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Reason: "no header row"}
	}
	if err != nil {
		return nil, toParseError(err)
	}

	columns, err := normalizeHeader(header)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, 64)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}

		line, _ := cr.FieldPos(0)
		if len(record) > len(columns) {
			return nil, &ParseError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, saw %d", len(columns), len(record)),
			}
		}
		for _, v := range record {
			if !utf8.ValidString(v) {
				return nil, &ParseError{Line: line, Reason: "invalid UTF-8 text"}
			}
		}

		row := make(Row, len(columns))
		copy(row, record)
		rows = append(rows, row)
	}

	return newTable(columns, rows), nil
}

// normalizeHeader validates header names. Empty cells (typically from a
// trailing delimiter) are named by position.
func normalizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		if !utf8.ValidString(name) {
			return nil, &ParseError{Line: 1, Reason: "invalid UTF-8 text in header"}
		}
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, &ParseError{Line: 1, Reason: fmt.Sprintf("duplicate column %q", name)}
		}
		seen[name] = struct{}{}
		columns[i] = name
	}
	return columns, nil
}

func toParseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Reason: csvErr.Err.Error()}
	}
	return &ParseError{Reason: err.Error()}
}
