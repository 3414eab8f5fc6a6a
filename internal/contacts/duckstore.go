package contacts

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// View selects which rows of an upload a store query runs against.
type View string

const (
	ViewOriginal View = "original"
	ViewDeduped  View = "deduped"
)

// ParseView maps a query parameter to a View; "" means original.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(s)) {
	case "", ViewOriginal:
		return ViewOriginal, nil
	case ViewDeduped:
		return ViewDeduped, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// StoreOptions tunes the DuckDB instance behind a RowStore.
type StoreOptions struct {
	Threads       int
	MemoryLimit   string
	MaxConcurrent int
	TempDirectory string // where DuckDB spills past MemoryLimit; empty keeps its default
	Logger        *zap.Logger
}

func (o StoreOptions) withDefaults() StoreOptions {
	if o.Threads <= 0 {
		o.Threads = 2
	}
	if o.MemoryLimit == "" {
		o.MemoryLimit = "256MB"
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 3
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// RowStore mirrors one upload in an in-memory DuckDB database so the row
// tables can be paged, searched and filtered without copying them around.
// Every original row is stored once with a flag marking dedup survivors.
type RowStore struct {
	db      *sql.DB
	columns []string
	index   map[string]int
	rows    int
	logger  *zap.Logger

	countCache   map[string]int
	countCacheMu sync.RWMutex

	// limits concurrent queries per session
	querySem chan struct{}
}

// RowQuery selects rows for QueryRows.
type RowQuery struct {
	View    View
	Search  string            // case-insensitive substring over all columns
	Filters map[string]string // exact match per column
}

// RowPage is one page of QueryRows, rows in original order.
type RowPage struct {
	Columns  []string `json:"columns" msgpack:"columns"`
	Rows     []Row    `json:"rows" msgpack:"rows"`
	Total    int      `json:"total" msgpack:"total"`
	Page     int      `json:"page" msgpack:"page"`
	PageSize int      `json:"pageSize" msgpack:"pageSize"`
}

// NewRowStore loads original into a fresh in-memory database. keyColumn is
// the dedup key used to flag first occurrences.
func NewRowStore(ctx context.Context, original *Table, keyColumn string, opts StoreOptions) (*RowStore, error) {
	opts = opts.withDefaults()

	first, err := firstOccurrences(original, keyColumn)
	if err != nil {
		return nil, err
	}

	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		if opts.TempDirectory != "" {
			pragmas = append(pragmas, fmt.Sprintf("SET temp_directory='%s'",
				strings.ReplaceAll(opts.TempDirectory, "'", "''")))
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	colDefs := make([]string, len(original.columns))
	for i := range original.columns {
		colDefs[i] = fmt.Sprintf("c%d VARCHAR NOT NULL", i)
	}
	ddl := fmt.Sprintf("CREATE TABLE contacts (row_id BIGINT PRIMARY KEY, is_first BOOLEAN NOT NULL, %s)",
		strings.Join(colDefs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	rs := &RowStore{
		db:         db,
		columns:    original.columns,
		index:      original.index,
		rows:       original.Len(),
		logger:     opts.Logger,
		countCache: make(map[string]int),
		querySem:   make(chan struct{}, opts.MaxConcurrent),
	}

	start := time.Now()
	if err := rs.appendRows(ctx, original, first); err != nil {
		db.Close()
		return nil, err
	}
	rs.logger.Debug("row store loaded",
		zap.Int("rows", rs.rows),
		zap.Int("columns", len(rs.columns)),
		zap.Duration("elapsed", time.Since(start)))

	return rs, nil
}

// appendRows bulk-loads the table through the native Appender API.
func (rs *RowStore) appendRows(ctx context.Context, t *Table, first []bool) error {
	conn, err := rs.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "contacts")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		values := make([]driver.Value, len(t.columns)+2)
		for i, row := range t.rows {
			values[0] = int64(i)
			values[1] = first[i]
			for j, v := range row {
				values[j+2] = v
			}
			if err := appender.AppendRow(values...); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}
	return nil
}

// Len returns the number of original rows.
func (rs *RowStore) Len() int {
	return rs.rows
}

func (rs *RowStore) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case rs.querySem <- struct{}{}:
		return func() { <-rs.querySem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (rs *RowStore) buildWhereClause(q RowQuery) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	if q.View == ViewDeduped {
		clauses = append(clauses, "is_first")
	}

	// Deterministic order keeps count-cache keys stable.
	for _, col := range rs.columns {
		value, ok := q.Filters[col]
		if !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("c%d = ?", rs.index[col]))
		args = append(args, value)
	}
	var missing []string
	for col := range q.Filters {
		if _, ok := rs.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", nil, &SchemaError{Missing: missing}
	}

	if search := strings.TrimSpace(q.Search); search != "" && len(rs.columns) > 0 {
		needle := strings.ToLower(search)
		ors := make([]string, len(rs.columns))
		for i := range rs.columns {
			ors[i] = fmt.Sprintf("contains(lower(c%d), ?)", i)
			args = append(args, needle)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	return strings.Join(clauses, " AND "), args, nil
}

// QueryRows returns one page of matching rows and the total match count.
// page is 1-based.
func (rs *RowStore) QueryRows(ctx context.Context, q RowQuery, page, pageSize int) (RowPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	release, err := rs.acquire(ctx)
	if err != nil {
		return RowPage{}, err
	}
	defer release()

	where, args, err := rs.buildWhereClause(q)
	if err != nil {
		return RowPage{}, err
	}

	result := RowPage{
		Columns:  append([]string(nil), rs.columns...),
		Rows:     []Row{},
		Page:     page,
		PageSize: pageSize,
	}

	total, err := rs.count(ctx, where, args)
	if err != nil {
		return RowPage{}, err
	}
	result.Total = total
	if total == 0 || len(rs.columns) == 0 {
		return result, nil
	}

	cols := make([]string, len(rs.columns))
	for i := range rs.columns {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	query := "SELECT " + strings.Join(cols, ", ") + " FROM contacts"
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" ORDER BY row_id LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	rows, err := rs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return RowPage{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row := make(Row, len(rs.columns))
		dest := make([]interface{}, len(row))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return RowPage{}, err
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func (rs *RowStore) count(ctx context.Context, where string, args []interface{}) (int, error) {
	// %q keeps values containing spaces from running together.
	cacheKey := fmt.Sprintf("%s|%q", where, args)

	rs.countCacheMu.RLock()
	total, found := rs.countCache[cacheKey]
	rs.countCacheMu.RUnlock()
	if found {
		return total, nil
	}

	query := "SELECT COUNT(*) FROM contacts"
	if where != "" {
		query += " WHERE " + where
	}
	if err := rs.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}

	rs.countCacheMu.Lock()
	rs.countCache[cacheKey] = total
	rs.countCacheMu.Unlock()
	return total, nil
}

// CountBy groups the rows matching q by column. Ordering matches the
// in-memory CountBy: count descending, then first appearance.
func (rs *RowStore) CountBy(ctx context.Context, q RowQuery, column string) (GroupCount, error) {
	col, ok := rs.index[column]
	if !ok {
		return nil, &SchemaError{Missing: []string{column}}
	}

	release, err := rs.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	where, args, err := rs.buildWhereClause(q)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT c%d, COUNT(*) AS n, MIN(row_id) AS first_seen FROM contacts", col)
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" GROUP BY c%d ORDER BY n DESC, first_seen ASC", col)

	rows, err := rs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group query failed: %w", err)
	}
	defer rows.Close()

	gc := GroupCount{}
	for rows.Next() {
		var e GroupCountEntry
		var firstSeen int64
		if err := rows.Scan(&e.Key, &e.Count, &firstSeen); err != nil {
			return nil, err
		}
		gc = append(gc, e)
	}
	return gc, rows.Err()
}

// Close releases the database.
func (rs *RowStore) Close() error {
	if rs.db == nil {
		return nil
	}
	return rs.db.Close()
}
