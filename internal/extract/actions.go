package extract

import (
	"fmt"
	"log/slog"

	"github.com/dtnitsch/soil-health-extractor/internal/common"
	"github.com/dtnitsch/soil-health-extractor/models"
	"github.com/dtnitsch/soil-health-extractor/pkg/artifact_manager"
	"github.com/dtnitsch/soil-health-extractor/pkg/db"
	"github.com/dtnitsch/soil-health-extractor/pkg/fetcher"
	"github.com/urfave/cli/v2"
)

// Flags are shared by the root command and the extract command. Every flag
// defaults to the fixed dashboard run, so no arguments are ever required.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "url", Value: models.DefaultSourceURL, Usage: "page to fetch"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: models.DefaultOutputPath, Usage: "xlsx file to write (overwritten)"},
		&cli.StringFlag{Name: "sheet", Value: models.DefaultSheetName, Usage: "worksheet name"},
		&cli.StringFlag{Name: "from-file", Usage: "parse a saved HTML page instead of fetching"},
		&cli.StringFlag{Name: "raw-dir", Usage: "archive each fetched page under this directory"},
		&cli.StringFlag{Name: "history-db", Usage: "record runs in this SQLite database"},
		&cli.DurationFlag{Name: "timeout", Usage: "HTTP timeout (0 waits indefinitely)"},
		&cli.StringFlag{Name: "config", Usage: "YAML file with extract settings; flags override it"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
	}
}

// ConfigFromFlags starts from the defaults (or --config) and applies every
// flag the user set explicitly.
func ConfigFromFlags(c *cli.Context) (*models.ExtractConfig, error) {
	cfg := models.DefaultExtractConfig()
	if c.IsSet("config") {
		var err error
		cfg, err = models.LoadConfig(c.String("config"))
		if err != nil {
			return nil, err
		}
	}

	if c.IsSet("url") {
		cfg.SourceURL = c.String("url")
	}
	if c.IsSet("output") {
		cfg.OutputPath = c.String("output")
	}
	if c.IsSet("sheet") {
		cfg.SheetName = c.String("sheet")
	}
	if c.IsSet("from-file") {
		cfg.FromFile = c.String("from-file")
	}
	if c.IsSet("raw-dir") {
		cfg.RawDir = c.String("raw-dir")
	}
	if c.IsSet("history-db") {
		cfg.HistoryDB = c.String("history-db")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}

	if cfg.FromFile == "" {
		sourceURL, err := common.ValidateSourceURL(cfg.SourceURL)
		if err != nil {
			return nil, err
		}
		cfg.SourceURL = sourceURL
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("output path is empty")
	}

	return cfg, nil
}

func ExtractAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := ConfigFromFlags(c)
	if err != nil {
		return err
	}

	var snapshots *artifact_manager.Manager
	if cfg.RawDir != "" {
		snapshots, err = artifact_manager.NewManager(cfg.RawDir)
		if err != nil {
			return err
		}
	}

	var history *db.DB
	if cfg.HistoryDB != "" {
		history, err = db.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer history.Close()
		logger.Info("Recording run history", "db", history.Path())
	}

	extractor := NewExtractor(logger, c.App.Writer, fetcher.NewFetcher(cfg.Timeout), snapshots, history)
	result, err := extractor.Run(c.Context, cfg)
	if err != nil {
		return err
	}

	logger.Info("Extraction finished", "status", result.Status, "rows", result.RowCount, "columns", result.ColumnCount)
	return nil
}
