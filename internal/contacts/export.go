package contacts

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
)

// DedupedFileName is the download name of the deduplicated export.
const DedupedFileName = "deduplicated_data.csv"

// WriteCSV writes the header and every row as UTF-8 CSV without a BOM.
// Output fed back through Load yields the same table.
func (t *Table) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	if err := t.writeRecord(cw, bw, t.columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range t.rows {
		if err := t.writeRecord(cw, bw, row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// writeRecord quotes a lone empty field explicitly: csv.Writer would emit a
// blank line, which readers skip.
func (t *Table) writeRecord(cw *csv.Writer, bw *bufio.Writer, record []string) error {
	if len(record) == 1 && record[0] == "" {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		_, err := bw.WriteString("\"\"\n")
		return err
	}
	return cw.Write(record)
}
