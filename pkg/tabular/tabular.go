// Package tabular turns extracted HTML table grids into typed datasets and
// cleans them for export.
package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dtnitsch/soil-health-extractor/models"
)

// naValues are cell texts read as missing, in addition to the empty string.
var naValues = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true,
	"-1.#IND": true, "-1.#QNAN": true, "-NaN": true, "-nan": true,
	"1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// boolValues are the texts read as booleans when a whole column is made of them.
var boolValues = map[string]bool{
	"True": true, "TRUE": true, "true": true,
	"False": false, "FALSE": false, "false": false,
}

// IsMissingText reports whether a raw cell text stands for no value.
func IsMissingText(s string) bool {
	return s == "" || naValues[s]
}

// FromTable builds a Dataset from a text grid. Columns are padded to the
// widest row, unnamed columns get "Unnamed: i", duplicate names are
// suffixed ".1", ".2", and each column is typed as bool, int, float or
// text depending on what all of its present cells parse as.
func FromTable(t *models.Table) *models.Dataset {
	width := t.Width()

	kinds := make([]models.CellKind, width)
	for c := range kinds {
		kinds[c] = inferColumn(t.Rows, c)
	}

	ds := &models.Dataset{
		Columns: columnNames(t.Headers, width),
		Rows:    make([][]models.Cell, len(t.Rows)),
	}
	for r, row := range t.Rows {
		cells := make([]models.Cell, width)
		for c := range cells {
			text := ""
			if c < len(row) {
				text = row[c]
			}
			cells[c] = typedCell(text, kinds[c])
		}
		ds.Rows[r] = cells
	}

	return ds
}

func columnNames(headers []string, width int) []string {
	names := make([]string, width)
	counts := make(map[string]int, width)

	for i := range names {
		col := ""
		if i < len(headers) {
			col = headers[i]
		}
		if col == "" {
			col = fmt.Sprintf("Unnamed: %d", i)
		}

		cur := counts[col]
		for cur > 0 {
			counts[col] = cur + 1
			col = fmt.Sprintf("%s.%d", col, cur)
			cur = counts[col]
		}
		names[i] = col
		counts[col] = cur + 1
	}
	return names
}

func inferColumn(rows [][]string, c int) models.CellKind {
	kind := models.CellMissing
	for _, row := range rows {
		if c >= len(row) || IsMissingText(row[c]) {
			continue
		}
		text := row[c]
		_, boolean := boolValues[text]
		switch {
		case boolean && (kind == models.CellMissing || kind == models.CellBool):
			kind = models.CellBool
		case kind <= models.CellInt && isInt(text):
			kind = models.CellInt
		case kind <= models.CellFloat && isFloat(text):
			kind = models.CellFloat
		default:
			return models.CellText
		}
	}
	return kind
}

func typedCell(text string, kind models.CellKind) models.Cell {
	if IsMissingText(text) {
		return models.Missing()
	}
	switch kind {
	case models.CellInt:
		v, _ := strconv.ParseInt(stripThousands(text), 10, 64)
		return models.IntCell(v)
	case models.CellFloat:
		v, _ := strconv.ParseFloat(stripThousands(text), 64)
		return models.FloatCell(v)
	case models.CellBool:
		return models.BoolCell(boolValues[text])
	default:
		return models.TextCell(text)
	}
}

func stripThousands(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

func isInt(s string) bool {
	if strings.HasPrefix(s, ",") || strings.HasSuffix(s, ",") {
		return false
	}
	_, err := strconv.ParseInt(stripThousands(s), 10, 64)
	return err == nil
}

// isFloat accepts decimal notation only: no hex floats, no infinities.
func isFloat(s string) bool {
	if strings.HasPrefix(s, ",") || strings.HasSuffix(s, ",") || strings.ContainsAny(s, "xX_") {
		return false
	}
	v, err := strconv.ParseFloat(stripThousands(s), 64)
	return err == nil && !math.IsInf(v, 0) && !math.IsNaN(v)
}
