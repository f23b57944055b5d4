package tabular

import (
	"strings"

	"github.com/dtnitsch/soil-health-extractor/models"
)

// Clean trims the column names and drops every row whose cells are all
// missing. It returns the number of rows dropped. Cell values are untouched.
func Clean(ds *models.Dataset) int {
	TrimColumnNames(ds)
	return DropEmptyRows(ds)
}

func TrimColumnNames(ds *models.Dataset) {
	for i, name := range ds.Columns {
		ds.Columns[i] = strings.TrimSpace(name)
	}
}

// DropEmptyRows removes rows with no present cell, keeping the order of the rest.
func DropEmptyRows(ds *models.Dataset) int {
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		if !isEmptyRow(row) {
			kept = append(kept, row)
		}
	}
	dropped := len(ds.Rows) - len(kept)
	ds.Rows = kept
	return dropped
}

func isEmptyRow(row []models.Cell) bool {
	for _, cell := range row {
		if !cell.IsMissing() {
			return false
		}
	}
	return true
}
