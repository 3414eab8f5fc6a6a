// fixtures.go - CSV fixtures shared by package tests
package testutil

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"math/rand"
)

// ContactsHeader is the header of the recruitment export.
var ContactsHeader = []string{"name", "phone number", "recruiter", "group name"}

// CSV renders a header and rows as CSV text.
func CSV(header []string, rows ...[]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(header)
	for _, r := range rows {
		w.Write(r)
	}
	w.Flush()
	return buf.Bytes()
}

// ScenarioCSV is the three-row example: 111 appears twice, first for Alice.
func ScenarioCSV() []byte {
	return CSV([]string{"phone number", "recruiter", "group name"},
		[]string{"111", "Alice", "G1"},
		[]string{"111", "Bob", "G1"},
		[]string{"222", "Alice", "G2"},
	)
}

// SampleContactsCSV is a small upload with duplicates, blanks and quoting.
func SampleContactsCSV() []byte {
	return CSV(ContactsHeader,
		[]string{"Ana", "0811", "Rina", "Jakarta Jobs"},
		[]string{"Budi", "0812", "Rina", "Jakarta Jobs"},
		[]string{"Citra", "0813", "Tono", "Bandung Kerja"},
		[]string{"Ana S.", "0811", "Tono", "Bandung Kerja"},
		[]string{"Dewi, Jr.", "0814", "Sari", "Jakarta Jobs"},
		[]string{"Eko", "", "Sari", "Surabaya Loker"},
		[]string{"Fajar", "", "Rina", "Jakarta Jobs"},
		[]string{"Gita \"G\"", "0815", "Rina", "Bandung Kerja"},
	)
}

// RandomContacts generates n rows over a small key space so duplicates and
// ties are common. The same seed yields the same rows.
func RandomContacts(seed int64, n int) [][]string {
	rng := rand.New(rand.NewSource(seed))
	recruiters := []string{"Alice", "Bob", "Chandra", "Dian", ""}
	groups := []string{"G1", "G2", "G3"}
	rows := make([][]string, n)
	for i := range rows {
		phone := ""
		if rng.Intn(10) > 0 {
			phone = fmt.Sprintf("08%02d", rng.Intn(n/2+1))
		}
		rows[i] = []string{
			fmt.Sprintf("contact-%d", i),
			phone,
			recruiters[rng.Intn(len(recruiters))],
			groups[rng.Intn(len(groups))],
		}
	}
	return rows
}

// Gzip compresses data.
func Gzip(data []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}
