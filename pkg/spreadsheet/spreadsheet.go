// Package spreadsheet writes datasets to xlsx workbooks and reads them back.
package spreadsheet

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dtnitsch/soil-health-extractor/models"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// Write saves ds as a single-sheet workbook at path, replacing any existing
// file. Column names go in row 1, data from row 2; there is no index column
// and missing cells are left blank.
func Write(path, sheet string, ds *models.Dataset) error {
	if sheet == "" {
		sheet = defaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for c, name := range ds.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header %q: %w", name, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header %q: %w", name, err)
		}
	}

	for r, row := range ds.Rows {
		for c, value := range row {
			if value.IsMissing() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value.Value()); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// Read loads a workbook written by Write. Row 1 gives the column names; every
// later row becomes a dataset row, with numeric texts parsed back to numbers.
func Read(path, sheet string) (*models.Dataset, error) {
	if sheet == "" {
		sheet = defaultSheet
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	ds := &models.Dataset{}
	if len(rows) == 0 {
		return ds, nil
	}

	ds.Columns = rows[0]
	width := len(ds.Columns)
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(ds.Columns) < width {
		ds.Columns = append(ds.Columns, "")
	}

	for _, row := range rows[1:] {
		cells := make([]models.Cell, width)
		for c := range cells {
			if c < len(row) {
				cells[c] = parseValue(row[c])
			}
		}
		ds.Rows = append(ds.Rows, cells)
	}
	return ds, nil
}

// parseValue reads a cell's display text as bool, int64, float64 or text.
func parseValue(s string) models.Cell {
	switch s {
	case "":
		return models.Missing()
	case "TRUE":
		return models.BoolCell(true)
	case "FALSE":
		return models.BoolCell(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return models.IntCell(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return models.FloatCell(f)
	}
	return models.TextCell(s)
}
