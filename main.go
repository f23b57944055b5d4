package main

import (
	"log"
	"os"

	dbactions "github.com/dtnitsch/soil-health-extractor/internal/db"
	"github.com/dtnitsch/soil-health-extractor/internal/extract"
	"github.com/dtnitsch/soil-health-extractor/models"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "shc-extract",
		Usage: "Save the first table of the Soil Health Card dashboard as an xlsx file",
		Description: `With no arguments, fetches https://soilhealth.dac.gov.in/RKVYSHC.aspx, takes the
first <table> on the page, trims the column names, drops empty rows and writes
../src/data/Karnataka_SoilHealthData.xlsx.`,
		Flags:  extract.Flags(),
		Action: extract.ExtractAction,
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "fetch the page and write its first table (default)",
				Flags:  extract.Flags(),
				Action: extract.ExtractAction,
			},
			{
				Name:   "history",
				Usage:  "list runs recorded with --history-db",
				Flags:  dbactions.HistoryFlags(),
				Action: dbactions.HistoryAction,
			},
			{
				Name:      "inspect",
				Usage:     "print the columns and first rows of a written workbook",
				ArgsUsage: "<file.xlsx>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sheet", Value: models.DefaultSheetName, Usage: "worksheet name"},
				},
				Action: extract.InspectAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
