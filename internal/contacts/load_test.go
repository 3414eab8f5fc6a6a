package contacts

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/recruit-dashboard/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func loadString(t *testing.T, s string) *Table {
	t.Helper()
	table, err := Load(strings.NewReader(s))
	require.NoError(t, err)
	return table
}

func requireParseError(t *testing.T, err error) *ParseError {
	t.Helper()
	var pe *ParseError
	require.Error(t, err)
	require.True(t, errors.As(err, &pe), "expected *ParseError, got %T: %v", err, err)
	return pe
}

func TestLoad(t *testing.T) {
	t.Run("parses header and rows in order", func(t *testing.T) {
		table, err := Load(bytes.NewReader(testutil.SampleContactsCSV()))
		require.NoError(t, err)

		assert.Equal(t, testutil.ContactsHeader, table.Columns())
		assert.Equal(t, 8, table.Len())
		assert.Equal(t, Row{"Ana", "0811", "Rina", "Jakarta Jobs"}, table.row(0))
		assert.Equal(t, Row{"Dewi, Jr.", "0814", "Sari", "Jakarta Jobs"}, table.row(4))
		assert.Equal(t, Row{`Gita "G"`, "0815", "Rina", "Bandung Kerja"}, table.row(7))
	})

	t.Run("header only gives empty table", func(t *testing.T) {
		table := loadString(t, "phone number,recruiter,group name\n")
		assert.Equal(t, 0, table.Len())
		assert.Equal(t, []string{"phone number", "recruiter", "group name"}, table.Columns())
	})

	t.Run("empty input has no header", func(t *testing.T) {
		_, err := Load(strings.NewReader(""))
		pe := requireParseError(t, err)
		assert.Equal(t, "no header row", pe.Reason)
	})

	t.Run("strips UTF-8 BOM", func(t *testing.T) {
		table := loadString(t, "\xEF\xBB\xBFphone number,recruiter\n1,a\n")
		assert.True(t, table.HasColumn("phone number"))
	})

	t.Run("decodes UTF-16 with BOM", func(t *testing.T) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		data, err := enc.Bytes([]byte("phone number,recruiter\n1,Añа\n"))
		require.NoError(t, err)

		table, err := Load(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"phone number", "recruiter"}, table.Columns())
		v, err := table.Value(0, "recruiter")
		require.NoError(t, err)
		assert.Equal(t, "Añа", v)
	})

	t.Run("skips blank lines", func(t *testing.T) {
		table := loadString(t, "a\n\n1\n\n2\n")
		assert.Equal(t, 2, table.Len())
	})

	t.Run("pads short records", func(t *testing.T) {
		table := loadString(t, "a,b,c\n1\n")
		assert.Equal(t, Row{"1", "", ""}, table.row(0))
	})

	t.Run("names empty header cells by position", func(t *testing.T) {
		table := loadString(t, "a,,c\n1,2,3\n")
		assert.Equal(t, []string{"a", "column_2", "c"}, table.Columns())
	})

	t.Run("keeps values literally", func(t *testing.T) {
		table := loadString(t, "a,b\n\" x \",\"multi\nline\"\n")
		assert.Equal(t, Row{" x ", "multi\nline"}, table.row(0))
	})
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		contains string
	}{
		{name: "bare quote", input: "a,b\n1,\"x\"y\n", wantLine: 2},
		{name: "unterminated quote", input: "a,b\n1,\"open\n"},
		{name: "quote inside unquoted field", input: "name,phone\nGita \"G\",0815\n", wantLine: 2, contains: "bare \""},
		{name: "too many fields", input: "a,b\n1,2\n1,2,3\n", wantLine: 3, contains: "expected 2 fields, saw 3"},
		{name: "invalid utf-8", input: "a\nok\n\xff\xfe\xfd\n", wantLine: 3, contains: "UTF-8"},
		{name: "duplicate column", input: "a,b,a\n1,2,3\n", wantLine: 1, contains: `duplicate column "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Load(strings.NewReader(tt.input))
			assert.Nil(t, table)
			pe := requireParseError(t, err)
			if tt.wantLine > 0 {
				assert.Equal(t, tt.wantLine, pe.Line)
			}
			if tt.contains != "" {
				assert.Contains(t, pe.Reason, tt.contains)
			}
		})
	}
}

func TestTable_Require(t *testing.T) {
	table := loadString(t, "phone number,name\n1,x\n")

	assert.NoError(t, table.Require("phone number"))

	err := table.Require(DefaultSchema().Required()...)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"recruiter", "group name"}, se.Missing)
	assert.Equal(t, `missing required columns "recruiter", "group name"`, se.Error())
}

func TestTable_CheckedAccessors(t *testing.T) {
	table := loadString(t, "phone number,recruiter\n1,a\n")

	v, err := table.Value(0, "recruiter")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	_, err = table.Value(0, "group name")
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"group name"}, se.Missing)
	assert.Equal(t, `missing required column "group name"`, se.Error())

	row := table.row(0)
	row[0] = "mutated"
	assert.Equal(t, Row{"1", "a"}, table.row(0), "row must return a copy")
}
