// duckstore_test.go - Tests for the DuckDB-backed row store
package contacts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore loads table into a fresh RowStore closed at test end.
func createTestStore(t *testing.T, table *Table) *RowStore {
	t.Helper()
	store, err := NewRowStore(context.Background(), table, phoneCol, StoreOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewRowStore(t *testing.T) {
	t.Run("loads every original row", func(t *testing.T) {
		store := createTestStore(t, sampleTable(t))
		assert.Equal(t, 8, store.Len())
	})

	t.Run("missing key column", func(t *testing.T) {
		table := NewTable([]string{"recruiter"}, [][]string{{"a"}})
		_, err := NewRowStore(context.Background(), table, phoneCol, StoreOptions{})
		var se *SchemaError
		assert.True(t, errors.As(err, &se))
	})

	t.Run("empty table", func(t *testing.T) {
		store := createTestStore(t, NewTable([]string{"phone number", "recruiter", "group name"}, nil))
		page, err := store.QueryRows(context.Background(), RowQuery{}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
		assert.Empty(t, page.Rows)
	})

	t.Run("custom spill directory", func(t *testing.T) {
		store, err := NewRowStore(context.Background(), sampleTable(t), phoneCol, StoreOptions{
			Threads:       1,
			MemoryLimit:   "64MB",
			TempDirectory: t.TempDir(),
		})
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, 8, store.Len())
	})
}

func TestRowStore_QueryRows(t *testing.T) {
	table := sampleTable(t)
	store := createTestStore(t, table)
	ctx := context.Background()

	t.Run("pages in original order", func(t *testing.T) {
		page, err := store.QueryRows(ctx, RowQuery{View: ViewOriginal}, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, 8, page.Total)
		assert.Equal(t, table.Columns(), page.Columns)
		assert.Equal(t, []Row{table.row(0), table.row(1), table.row(2)}, page.Rows)

		last, err := store.QueryRows(ctx, RowQuery{View: ViewOriginal}, 3, 3)
		require.NoError(t, err)
		assert.Equal(t, []Row{table.row(6), table.row(7)}, last.Rows)

		beyond, err := store.QueryRows(ctx, RowQuery{View: ViewOriginal}, 9, 3)
		require.NoError(t, err)
		assert.Equal(t, 8, beyond.Total)
		assert.Empty(t, beyond.Rows)
	})

	t.Run("deduped view matches Deduplicate", func(t *testing.T) {
		deduped, err := Deduplicate(table, phoneCol)
		require.NoError(t, err)

		page, err := store.QueryRows(ctx, RowQuery{View: ViewDeduped}, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, deduped.Len(), page.Total)
		got := make([][]string, len(page.Rows))
		for i, r := range page.Rows {
			got[i] = r
		}
		assert.Equal(t, deduped.Records(), got)
	})

	t.Run("filters by exact column value", func(t *testing.T) {
		page, err := store.QueryRows(ctx, RowQuery{Filters: map[string]string{recruiterCol: "Rina"}}, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)

		page, err = store.QueryRows(ctx, RowQuery{
			View:    ViewDeduped,
			Filters: map[string]string{recruiterCol: "Rina", groupCol: "Jakarta Jobs"},
		}, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("search is case-insensitive substring", func(t *testing.T) {
		page, err := store.QueryRows(ctx, RowQuery{Search: "JR."}, 1, 100)
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		assert.Equal(t, "Dewi, Jr.", page.Rows[0][0])

		page, err = store.QueryRows(ctx, RowQuery{Search: "jakarta"}, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)

		page, err = store.QueryRows(ctx, RowQuery{Search: "%"}, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total, "search text is not a pattern")
	})

	t.Run("unknown filter column", func(t *testing.T) {
		_, err := store.QueryRows(ctx, RowQuery{Filters: map[string]string{"source": "x"}}, 1, 10)
		var se *SchemaError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, []string{"source"}, se.Missing)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.QueryRows(cctx, RowQuery{}, 1, 10)
		assert.Error(t, err)
	})
}

func TestRowStore_CountByMatchesTable(t *testing.T) {
	ctx := context.Background()
	for seed := int64(1); seed <= 5; seed++ {
		table := randomTable(seed, 120)
		deduped, err := Deduplicate(table, phoneCol)
		require.NoError(t, err)
		store := createTestStore(t, table)

		for _, col := range []string{recruiterCol, groupCol, phoneCol} {
			want, err := CountBy(table, col)
			require.NoError(t, err)
			got, err := store.CountBy(ctx, RowQuery{View: ViewOriginal}, col)
			require.NoError(t, err)
			assert.Equal(t, want, got, "original %s (seed %d)", col, seed)

			want, err = CountBy(deduped, col)
			require.NoError(t, err)
			got, err = store.CountBy(ctx, RowQuery{View: ViewDeduped}, col)
			require.NoError(t, err)
			assert.Equal(t, want, got, "deduped %s (seed %d)", col, seed)
		}
	}

	_, err := createTestStore(t, sampleTable(t)).CountBy(ctx, RowQuery{}, "source")
	assert.Error(t, err)
}

func TestRowStore_CountByFiltered(t *testing.T) {
	ctx := context.Background()
	table := sampleTable(t)
	store := createTestStore(t, table)

	rina, err := FilterBy(table, recruiterCol, "Rina")
	require.NoError(t, err)
	want, err := CountBy(rina, groupCol)
	require.NoError(t, err)

	got, err := store.CountBy(ctx, RowQuery{Filters: map[string]string{recruiterCol: "Rina"}}, groupCol)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = store.CountBy(ctx, RowQuery{View: ViewDeduped, Search: "bandung"}, recruiterCol)
	require.NoError(t, err)
	assert.Equal(t, GroupCount{{Key: "Tono", Count: 1}, {Key: "Rina", Count: 1}}, got)

	_, err = store.CountBy(ctx, RowQuery{Filters: map[string]string{"source": "x"}}, groupCol)
	var se *SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestRowStore_CountCacheKeepsFiltersApart(t *testing.T) {
	ctx := context.Background()
	table := NewTable([]string{phoneCol, recruiterCol, groupCol}, [][]string{
		{"1", "a b", "c"},
		{"2", "a", "b c"},
		{"3", "a", "b c"},
	})
	store := createTestStore(t, table)

	first, err := store.QueryRows(ctx, RowQuery{Filters: map[string]string{recruiterCol: "a b", groupCol: "c"}}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)
	assert.Len(t, first.Rows, first.Total)

	second, err := store.QueryRows(ctx, RowQuery{Filters: map[string]string{recruiterCol: "a", groupCol: "b c"}}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Total)
	assert.Len(t, second.Rows, second.Total)
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewOriginal, v)

	v, err = ParseView("Deduped")
	require.NoError(t, err)
	assert.Equal(t, ViewDeduped, v)

	_, err = ParseView("merged")
	assert.Error(t, err)
}
