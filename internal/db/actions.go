package db

import (
	"errors"
	"fmt"

	"github.com/dtnitsch/soil-health-extractor/internal/common"
	"github.com/dtnitsch/soil-health-extractor/models"
	dbpkg "github.com/dtnitsch/soil-health-extractor/pkg/db"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
)

// HistoryAction lists recorded extraction runs, newest first, and the last
// fetch attempt of --url, which shows failed fetches that never reached a table.
func HistoryAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("history-db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	out := c.App.Writer

	extractions, err := database.ListExtractions(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list extractions: %w", err)
	}

	if len(extractions) == 0 {
		fmt.Fprintln(out, "No extractions recorded")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.AppendHeader(table.Row{"ID", "Created", "Status", "HTTP", "Tables", "Columns", "Rows", "Dropped", "Output"})
		for _, e := range extractions {
			t.AppendRow(table.Row{
				e.ExtractionID,
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Status,
				e.StatusCode,
				e.TableCount,
				e.ColumnCount,
				e.RowCount,
				e.DroppedRows,
				e.OutputPath,
			})
		}
		t.Render()
		fmt.Fprintf(out, "\nTotal: %d extractions\n", len(extractions))
	}

	sourceURL := common.SanitizeURL(c.String("url"))
	urlID, err := database.GetURLID(sourceURL)
	if errors.Is(err, dbpkg.ErrURLNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	last, err := database.GetLastAccess(urlID)
	if err != nil {
		return err
	}
	if last != nil {
		status := "ok"
		if !last.Success {
			status = "failed (" + last.ErrorType + ")"
		}
		fmt.Fprintf(out, "\nLast fetch of %s: %s, HTTP %d at %s\n",
			sourceURL, status, last.StatusCode, last.AccessedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

// HistoryFlags are the flags of the history command.
func HistoryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "history-db", Required: true, Usage: "SQLite database written by extract --history-db"},
		&cli.StringFlag{Name: "url", Value: models.DefaultSourceURL, Usage: "page whose last fetch attempt is shown"},
		&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum number of runs to list"},
	}
}
