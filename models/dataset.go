package models

import "strconv"

// CellKind is the inferred type of a dataset cell.
type CellKind int

const (
	CellMissing CellKind = iota
	CellInt
	CellFloat
	CellText
	CellBool
)

// Cell is one loosely typed value of a Dataset.
type Cell struct {
	Kind  CellKind
	Int   int64
	Float float64
	Text  string
	Bool  bool
}

// Missing returns the empty cell.
func Missing() Cell { return Cell{Kind: CellMissing} }

// IntCell, FloatCell, TextCell and BoolCell build present cells.
func IntCell(v int64) Cell     { return Cell{Kind: CellInt, Int: v} }
func FloatCell(v float64) Cell { return Cell{Kind: CellFloat, Float: v} }
func TextCell(v string) Cell   { return Cell{Kind: CellText, Text: v} }
func BoolCell(v bool) Cell     { return Cell{Kind: CellBool, Bool: v} }

func (c Cell) IsMissing() bool {
	return c.Kind == CellMissing
}

// Value returns the cell as int64, float64, string, bool, or nil when missing.
func (c Cell) Value() interface{} {
	switch c.Kind {
	case CellInt:
		return c.Int
	case CellFloat:
		return c.Float
	case CellText:
		return c.Text
	case CellBool:
		return c.Bool
	default:
		return nil
	}
}

func (c Cell) String() string {
	switch c.Kind {
	case CellInt:
		return strconv.FormatInt(c.Int, 10)
	case CellFloat:
		return strconv.FormatFloat(c.Float, 'f', -1, 64)
	case CellText:
		return c.Text
	case CellBool:
		if c.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

// Dataset is a rows x named-columns structure. Every row has len(Columns) cells.
type Dataset struct {
	Columns []string
	Rows    [][]Cell
}

func (d *Dataset) RowCount() int {
	return len(d.Rows)
}
