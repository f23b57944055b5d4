package extract

import (
	"fmt"

	"github.com/dtnitsch/soil-health-extractor/pkg/spreadsheet"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
)

const previewRows = 5

// InspectAction reads a written workbook back and prints its columns, row
// count and first rows.
func InspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: %s inspect <file.xlsx>", c.App.Name)
	}
	path := c.Args().First()

	ds, err := spreadsheet.Read(path, c.String("sheet"))
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)

	header := table.Row{}
	for _, name := range ds.Columns {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i, row := range ds.Rows {
		if i == previewRows {
			break
		}
		cells := table.Row{}
		for _, cell := range row {
			cells = append(cells, cell.String())
		}
		t.AppendRow(cells)
	}
	t.Render()

	fmt.Fprintf(c.App.Writer, "\n%s: %d columns, %d rows\n", path, len(ds.Columns), ds.RowCount())
	return nil
}
