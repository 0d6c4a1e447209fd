package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrMissingColumns = errors.New("batch: missing required columns")

// RequiredColumns must be present (case and surrounding space ignored).
var RequiredColumns = []string{"address", "city", "state", "zip"}

// EnrichedColumns are appended to every output row.
var EnrichedColumns = []string{
	"EstimatedValue", "ValuationRangeLow", "ValuationRangeHigh", "ConfidenceScore",
	"CompCount", "AvgCompPrice", "Error",
}

// Table is an uploaded address sheet with normalized header names.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadCSV parses an address sheet. Header names are trimmed and lower-cased;
// short rows are padded so every row has one cell per column.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("batch: read header: %w", err)
	}

	t := &Table{Header: make([]string, len(header)), index: make(map[string]int, len(header))}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ToLower(strings.TrimSpace(h))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("batch: read line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		for len(rec) < len(t.Header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Get returns the cell of a row by normalized column name.
func (t *Table) Get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes the table followed by one enrichment per row. Rows without
// an outcome (a cancelled run) are left out.
func WriteCSV(w io.Writer, t *Table, outcomes []Outcome) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, t.Header...), EnrichedColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("batch: write header: %w", err)
	}
	for i, o := range outcomes {
		if i >= len(t.Rows) {
			break
		}
		row := append(append([]string{}, t.Rows[i]...), o.cells()...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("batch: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
