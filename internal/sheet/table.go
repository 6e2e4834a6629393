// Package sheet fetches and parses the published spreadsheet export that backs
// certificate lookups.
//
// The package is deliberately schema-free: a Table is a header row plus raw rows,
// and a Record is one row keyed by header name. Deciding which column means what
// belongs to the certificate package.
package sheet

import (
	"strconv"
	"strings"
)

// Table is a parsed export: the header row and every row after it, as read.
// Rows may be shorter than Headers; absent cells are treated as empty.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Record maps a column name to its cell value for one row.
type Record map[string]string

// Get returns the cell for column, or "" if the record has no such column.
func (r Record) Get(column string) string {
	return r[column]
}

// Records zips every row against the headers. Cells past the end of a short row
// resolve to "". Cells past the last header are dropped.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(Record, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// newTable splits raw rows into header and data rows.
func newTable(rows [][]string) *Table {
	if len(rows) == 0 {
		return &Table{}
	}
	return &Table{
		Headers: cleanHeaders(rows[0]),
		Rows:    rows[1:],
	}
}

// cleanHeaders trims header cells and renames duplicates with a _N suffix so that
// column names stay unique within a table.
func cleanHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))

	for i, h := range raw {
		name := strings.TrimSpace(h)
		if seen[name] {
			for n := 2; ; n++ {
				candidate := name + "_" + strconv.Itoa(n)
				if !seen[candidate] {
					name = candidate
					break
				}
			}
		}
		seen[name] = true
		headers[i] = name
	}
	return headers
}
