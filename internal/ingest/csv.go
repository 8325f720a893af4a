// Package ingest implements the CSV import pipeline: parsing bank exports,
// resolving column mappings with the classifier, and writing transactions
// row by row with per-row error accounting.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// sampleRowLimit caps how many data rows go to the model when resolving
// column mappings.
const sampleRowLimit = 10

// ParseCSV reads an RFC 4180 CSV export. Bank exports are sloppy, so quoting
// is lax and rows may have ragged field counts. The first record is the
// header row; headers come back trimmed.
func ParseCSV(r io.Reader) (headers []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("ParseCSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("ParseCSV: file has no header row")
	}

	headers = make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	return headers, records[1:], nil
}

// sampleRows returns up to sampleRowLimit data rows for the mapping prompt.
func sampleRows(rows [][]string) [][]string {
	if len(rows) <= sampleRowLimit {
		return rows
	}
	return rows[:sampleRowLimit]
}
