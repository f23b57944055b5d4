package models

// Table is the raw text grid of one HTML table after span expansion.
// Headers has one entry per column; Rows may be ragged.
type Table struct {
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows"`
}

// Width returns the number of columns spanned by the widest row or the header.
func (t *Table) Width() int {
	w := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// IsBlank reports whether neither the header nor any row holds text.
func (t *Table) IsBlank() bool {
	for _, h := range t.Headers {
		if h != "" {
			return false
		}
	}
	for _, row := range t.Rows {
		for _, cell := range row {
			if cell != "" {
				return false
			}
		}
	}
	return true
}
