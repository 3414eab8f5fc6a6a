package contacts

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/recruit-dashboard/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, table *Table) *Table {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	back, err := Load(&buf)
	require.NoError(t, err)
	return back
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	t.Run("deduplicated sample", func(t *testing.T) {
		deduped, err := Deduplicate(sampleTable(t), phoneCol)
		require.NoError(t, err)

		back := roundTrip(t, deduped)
		assert.Equal(t, deduped.Columns(), back.Columns())
		if diff := cmp.Diff(deduped.Records(), back.Records()); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("awkward values", func(t *testing.T) {
		table := NewTable([]string{"phone number", "note"}, [][]string{
			{"1", "comma, inside"},
			{"2", "\"quoted\""},
			{"3", "line\nbreak"},
			{"4", "  leading spaces"},
			{"5", ""},
			{"", "ünïcødé ✓"},
		})
		back := roundTrip(t, table)
		if diff := cmp.Diff(table.Records(), back.Records()); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("single column with empty values", func(t *testing.T) {
		table := NewTable([]string{"phone number"}, [][]string{{"1"}, {""}, {"2"}})
		back := roundTrip(t, table)
		assert.Equal(t, table.Records(), back.Records())
	})

	t.Run("random tables", func(t *testing.T) {
		for seed := int64(1); seed <= 10; seed++ {
			deduped, err := Deduplicate(randomTable(seed, 40), phoneCol)
			require.NoError(t, err)
			back := roundTrip(t, deduped)
			assert.Equal(t, deduped.Records(), back.Records())
		}
	})
}

func TestWriteCSV_Format(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		var buf bytes.Buffer
		table := NewTable([]string{"phone number", "recruiter", "group name"}, nil)
		require.NoError(t, table.WriteCSV(&buf))
		assert.Equal(t, "phone number,recruiter,group name\n", buf.String())
	})

	t.Run("no BOM and quoted where needed", func(t *testing.T) {
		var buf bytes.Buffer
		table, err := Load(bytes.NewReader(testutil.CSV([]string{"a", "b"}, []string{"x,y", "z"})))
		require.NoError(t, err)
		require.NoError(t, table.WriteCSV(&buf))
		assert.Equal(t, "a,b\n\"x,y\",z\n", buf.String())
	})
}
