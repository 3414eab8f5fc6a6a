package contacts

import "sort"

// GroupCountEntry is the number of rows sharing one grouping-key value.
type GroupCountEntry struct {
	Key   string `json:"key" msgpack:"key"`
	Count int    `json:"count" msgpack:"count"`
}

// GroupCount is ordered by descending count; equal counts keep the order in
// which their keys first appeared in the counted table.
type GroupCount []GroupCountEntry

// Get returns the count for key, 0 when absent.
func (gc GroupCount) Get(key string) int {
	for _, e := range gc {
		if e.Key == key {
			return e.Count
		}
	}
	return 0
}

// Total sums all counts.
func (gc GroupCount) Total() int {
	n := 0
	for _, e := range gc {
		n += e.Count
	}
	return n
}

// Keys returns the keys in order.
func (gc GroupCount) Keys() []string {
	keys := make([]string, len(gc))
	for i, e := range gc {
		keys[i] = e.Key
	}
	return keys
}

// Counts returns the counts in order.
func (gc GroupCount) Counts() []int {
	counts := make([]int, len(gc))
	for i, e := range gc {
		counts[i] = e.Count
	}
	return counts
}

// firstOccurrences marks the rows whose keyColumn value is seen for the
// first time. Empty values form one group like any other value.
func firstOccurrences(t *Table, keyColumn string) ([]bool, error) {
	col, err := t.ColumnIndex(keyColumn)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(t.rows))
	first := make([]bool, len(t.rows))
	for i, row := range t.rows {
		key := row[col]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		first[i] = true
	}
	return first, nil
}

// Deduplicate keeps the earliest row for every distinct keyColumn value,
// preserving the original row order.
func Deduplicate(t *Table, keyColumn string) (*Table, error) {
	first, err := firstOccurrences(t, keyColumn)
	if err != nil {
		return nil, err
	}
	kept := make([]Row, 0, len(t.rows))
	for i, row := range t.rows {
		if first[i] {
			kept = append(kept, row)
		}
	}
	return t.derive(kept), nil
}

// CountBy counts rows per distinct keyColumn value across the whole table.
func CountBy(t *Table, keyColumn string) (GroupCount, error) {
	col, err := t.ColumnIndex(keyColumn)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int)
	gc := GroupCount{}
	for _, row := range t.rows {
		key := row[col]
		if i, ok := pos[key]; ok {
			gc[i].Count++
			continue
		}
		pos[key] = len(gc)
		gc = append(gc, GroupCountEntry{Key: key, Count: 1})
	}

	sort.SliceStable(gc, func(i, j int) bool {
		return gc[i].Count > gc[j].Count
	})
	return gc, nil
}

// TopN returns the first n entries of gc. n <= 0 yields an empty result.
func TopN(gc GroupCount, n int) GroupCount {
	if n <= 0 {
		return GroupCount{}
	}
	if n > len(gc) {
		n = len(gc)
	}
	return append(GroupCount{}, gc[:n]...)
}

// UniqueValues returns the distinct keyColumn values in first-appearance order.
func UniqueValues(t *Table, keyColumn string) ([]string, error) {
	col, err := t.ColumnIndex(keyColumn)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	values := []string{}
	for _, row := range t.rows {
		v := row[col]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values, nil
}

// FilterBy returns the rows whose keyColumn equals value exactly.
func FilterBy(t *Table, keyColumn, value string) (*Table, error) {
	col, err := t.ColumnIndex(keyColumn)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, row := range t.rows {
		if row[col] == value {
			rows = append(rows, row)
		}
	}
	return t.derive(rows), nil
}
