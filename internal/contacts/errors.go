package contacts

import (
	"fmt"
	"strings"
)

// ParseError reports input that is not well-formed delimited text.
// No partial table is produced when it is returned.
type ParseError struct {
	Line   int    // 1-based line in the input, 0 when unknown
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %s", e.Line, e.Reason)
	}
	return "parse error: " + e.Reason
}

// SchemaError reports columns a query needs that the table does not declare.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	if len(quoted) == 1 {
		return "missing required column " + quoted[0]
	}
	return "missing required columns " + strings.Join(quoted, ", ")
}
