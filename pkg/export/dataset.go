package export

import "fmt"

// Column names a dataset field and the label printed in headers.
type Column struct {
	Key   string
	Label string
	// Width is a relative weight used by the PDF renderer. Zero means 1.
	Width float64
}

// Dataset is an ordered tabular roster ready for rendering.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// AddRow appends a row keyed by column key.
func (d *Dataset) AddRow(values map[string]string) {
	d.Rows = append(d.Rows, values)
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	return nil
}

func (d Dataset) labels() []string {
	labels := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		labels[i] = col.Label
		if labels[i] == "" {
			labels[i] = col.Key
		}
	}
	return labels
}

// Renderer converts a dataset into a file body.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	Extension() string
	ContentType() string
}
