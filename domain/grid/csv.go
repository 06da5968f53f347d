package grid

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// ContentTypeCSV is stored alongside every grid written to object storage.
const ContentTypeCSV = "text/csv"

// EncodeCSV serialises g with standard CSV quoting: a cell containing a
// comma, a double quote or a line break is quoted and its quotes doubled.
func EncodeCSV(g Grid) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(g); err != nil {
		return nil, fmt.Errorf("failed to encode CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses CSV content into a Grid. Rows of differing length are
// kept as they are.
func DecodeCSV(data []byte) (Grid, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return Grid(rows), nil
}
