package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dtnitsch/soil-health-extractor/internal/common"
	"github.com/dtnitsch/soil-health-extractor/models"
	"github.com/dtnitsch/soil-health-extractor/pkg/artifact_manager"
	"github.com/dtnitsch/soil-health-extractor/pkg/db"
	"github.com/dtnitsch/soil-health-extractor/pkg/fetcher"
	"github.com/dtnitsch/soil-health-extractor/pkg/parser"
	"github.com/dtnitsch/soil-health-extractor/pkg/spreadsheet"
	"github.com/dtnitsch/soil-health-extractor/pkg/tabular"
)

const (
	NoTablesMessage = "❌ No tables found on the page. Try visiting the page manually."
	successFormat   = "✅ Data extracted and saved successfully as '%s'\n"
)

// ErrBlankTable is returned when the first table holds no text at all, as a
// layout table wrapping only an image does.
var ErrBlankTable = errors.New("first table on the page has no text")

const (
	StatusWritten  = "written"
	StatusNoTables = "no_tables"
)

// Result describes a finished run.
type Result struct {
	Status       string
	OutputPath   string
	TableCount   int
	ColumnCount  int
	RowCount     int
	DroppedRows  int
	ContentHash  string
	SnapshotPath string
}

// Extractor runs the fetch, parse, clean and write pipeline once per Run.
// Snapshots and history are optional; nil disables them.
type Extractor struct {
	logger    *slog.Logger
	out       io.Writer
	fetcher   *fetcher.Fetcher
	parser    *parser.Parser
	snapshots *artifact_manager.Manager
	history   *db.DB
}

func NewExtractor(logger *slog.Logger, out io.Writer, f *fetcher.Fetcher, snapshots *artifact_manager.Manager, history *db.DB) *Extractor {
	return &Extractor{
		logger:    logger,
		out:       out,
		fetcher:   f,
		parser:    &parser.Parser{},
		snapshots: snapshots,
		history:   history,
	}
}

// Run fetches the page, writes its first table to cfg.OutputPath and prints
// the outcome. A page without tables is not an error: the notice is printed
// and a Result with StatusNoTables is returned. Fetch, parse and write
// failures are returned as errors and leave the output file untouched.
func (e *Extractor) Run(ctx context.Context, cfg *models.ExtractConfig) (*Result, error) {
	source := cfg.SourceURL
	if cfg.FromFile != "" {
		source = fileURL(cfg.FromFile)
	}

	html, statusCode, err := e.load(ctx, cfg)
	if err != nil {
		e.recordAccess(source, statusCode, errorType(err, cfg.FromFile != ""), false)
		return nil, err
	}
	accessID := e.recordAccess(source, statusCode, "", true)

	result := &Result{ContentHash: common.ContentHash(html)}

	if e.snapshots != nil && cfg.FromFile == "" {
		result.SnapshotPath, err = e.snapshots.SaveRawHTML(cfg.SourceURL, html)
		if err != nil {
			return nil, fmt.Errorf("failed to save snapshot: %w", err)
		}
		e.logger.Info("Saved page snapshot", "path", result.SnapshotPath, "dir", e.snapshots.BaseDir())
	}

	doc, err := e.parser.ParseDocument(html)
	if err != nil {
		return nil, err
	}

	tables := e.parser.FindTables(doc)
	result.TableCount = tables.Length()
	e.logger.Info("Located tables", "source", source, "table_count", result.TableCount)

	if result.TableCount == 0 {
		fmt.Fprintln(e.out, NoTablesMessage)
		result.Status = StatusNoTables
		e.recordExtraction(accessID, result)
		return result, nil
	}
	if result.TableCount > 1 {
		e.logger.Warn("Using the first table, discarding the rest", "discarded", result.TableCount-1)
	}

	table := e.parser.ExtractTable(tables.First())
	if table.IsBlank() {
		return nil, ErrBlankTable
	}

	ds := tabular.FromTable(table)
	result.DroppedRows = tabular.Clean(ds)
	result.ColumnCount = len(ds.Columns)
	result.RowCount = ds.RowCount()
	e.logger.Info("Cleaned table", "columns", ds.Columns, "rows", result.RowCount, "dropped_rows", result.DroppedRows)

	if err := spreadsheet.Write(cfg.OutputPath, cfg.SheetName, ds); err != nil {
		return nil, err
	}

	result.Status = StatusWritten
	result.OutputPath = cfg.OutputPath
	fmt.Fprintf(e.out, successFormat, cfg.OutputPath)
	e.recordExtraction(accessID, result)

	return result, nil
}

// load returns the page body and, for fetched pages, the HTTP status code.
func (e *Extractor) load(ctx context.Context, cfg *models.ExtractConfig) ([]byte, int, error) {
	if cfg.FromFile != "" {
		e.logger.Info("Reading saved page", "path", cfg.FromFile)
		data, err := os.ReadFile(filepath.Clean(cfg.FromFile))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read saved page: %w", err)
		}
		return data, 0, nil
	}

	e.logger.Info("Fetching page", "url", cfg.SourceURL)
	page, err := e.fetcher.GetPage(ctx, cfg.SourceURL)
	if err != nil {
		statusCode := 0
		if page != nil {
			statusCode = page.StatusCode
		}
		return nil, statusCode, err
	}
	return page.Body, page.StatusCode, nil
}

// fileURL names a saved page in history as an absolute file:// URL.
func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func errorType(err error, fromFile bool) string {
	var statusErr *fetcher.StatusError
	switch {
	case fromFile:
		return "read_error"
	case errors.As(err, &statusErr):
		return "status_error"
	default:
		return "fetch_error"
	}
}

// recordAccess logs the attempt to the history database, returning 0 when
// history is off or the insert fails. History problems never fail a run.
func (e *Extractor) recordAccess(source string, statusCode int, errType string, success bool) int64 {
	if e.history == nil {
		return 0
	}

	urlID, err := e.history.InsertURL(source)
	if err != nil {
		e.logger.Warn("Failed to record URL in history", "url", source, "error", err)
		return 0
	}
	accessID, err := e.history.RecordAccess(urlID, statusCode, errType, success)
	if err != nil {
		e.logger.Warn("Failed to record access in history", "url", source, "error", err)
		return 0
	}
	return accessID
}

func (e *Extractor) recordExtraction(accessID int64, r *Result) {
	if e.history == nil || accessID == 0 {
		return
	}

	_, err := e.history.InsertExtraction(db.Extraction{
		AccessID:     accessID,
		Status:       r.Status,
		OutputPath:   r.OutputPath,
		TableCount:   r.TableCount,
		ColumnCount:  r.ColumnCount,
		RowCount:     r.RowCount,
		DroppedRows:  r.DroppedRows,
		ContentHash:  r.ContentHash,
		SnapshotPath: r.SnapshotPath,
	})
	if err != nil {
		e.logger.Warn("Failed to record extraction in history", "error", err)
	}
}
