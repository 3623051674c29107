package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer writes datasets as RFC 4180 CSV with a header row.
type CSVRenderer struct{}

// NewCSVRenderer builds a CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Extension implements Renderer.
func (r *CSVRenderer) Extension() string { return ".csv" }

// ContentType implements Renderer.
func (r *CSVRenderer) ContentType() string { return "text/csv" }

// Render implements Renderer.
func (r *CSVRenderer) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.labels()); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(data.Columns))
	for _, row := range data.Rows {
		for i, col := range data.Columns {
			record[i] = row[col.Key]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
