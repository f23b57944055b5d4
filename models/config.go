// Package models defines data structures for configuration and extracted tables.
package models

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSourceURL is the Soil Health Card RKVY dashboard page.
	DefaultSourceURL = "https://soilhealth.dac.gov.in/RKVYSHC.aspx"
	// DefaultOutputPath is resolved against the working directory.
	DefaultOutputPath = "../src/data/Karnataka_SoilHealthData.xlsx"
	DefaultSheetName  = "Sheet1"
)

// ExtractConfig holds runtime configuration for a single extraction run.
// The zero values of the optional fields leave the corresponding feature off.
type ExtractConfig struct {
	SourceURL  string `yaml:"source_url"`
	OutputPath string `yaml:"output_path"`
	SheetName  string `yaml:"sheet_name"`

	// Optional
	FromFile  string        `yaml:"from_file,omitempty"`  // parse a saved page instead of fetching
	RawDir    string        `yaml:"raw_dir,omitempty"`    // archive fetched HTML here
	HistoryDB string        `yaml:"history_db,omitempty"` // sqlite run log
	Timeout   time.Duration `yaml:"timeout,omitempty"`    // 0 means no timeout
}

// DefaultExtractConfig returns the fixed source and destination.
func DefaultExtractConfig() *ExtractConfig {
	return &ExtractConfig{
		SourceURL:  DefaultSourceURL,
		OutputPath: DefaultOutputPath,
		SheetName:  DefaultSheetName,
	}
}

// LoadConfig reads a YAML file over the defaults. Keys absent from the file
// keep their default values.
func LoadConfig(path string) (*ExtractConfig, error) {
	cfg := DefaultExtractConfig()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.SourceURL == "" && cfg.FromFile == "" {
		return nil, fmt.Errorf("config %s: source_url is empty", path)
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("config %s: output_path is empty", path)
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	return cfg, nil
}
