package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// InsertURL parses and inserts a URL, returning the url_id.
// If the URL already exists, returns the existing url_id.
func (db *DB) InsertURL(rawURL string) (int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}

	// Check if URL already exists
	var existingID int64
	err = db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", rawURL).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing URL: %w", err)
	}

	// Canonical URL is scheme + host + path, no query/fragment
	canonicalURL := fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, parsed.Path)

	result, err := db.Exec(`
		INSERT INTO urls (original_url, canonical_url, scheme, domain, path)
		VALUES (?, ?, ?, ?, ?)
	`, rawURL, canonicalURL, parsed.Scheme, parsed.Host, parsed.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to insert URL: %w", err)
	}

	urlID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// ErrURLNotFound is returned by GetURLID for a URL that was never recorded.
var ErrURLNotFound = errors.New("URL not found")

// GetURLID returns the url_id for a given original URL.
func (db *DB) GetURLID(originalURL string) (int64, error) {
	var urlID int64
	err := db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", originalURL).Scan(&urlID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrURLNotFound, originalURL)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// RecordAccess records a fetch attempt in url_accesses and returns its access_id.
func (db *DB) RecordAccess(urlID int64, statusCode int, errorType string, success bool) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO url_accesses (url_id, status_code, error_type, success)
		VALUES (?, ?, ?, ?)
	`, urlID, statusCode, errorType, success)
	if err != nil {
		return 0, fmt.Errorf("failed to record access: %w", err)
	}

	accessID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get access ID: %w", err)
	}
	return accessID, nil
}

// GetLastAccess returns the most recent access record for a URL.
func (db *DB) GetLastAccess(urlID int64) (*AccessRecord, error) {
	var record AccessRecord
	err := db.QueryRow(`
		SELECT access_id, accessed_at, status_code, error_type, success
		FROM url_accesses
		WHERE url_id = ?
		ORDER BY access_id DESC
		LIMIT 1
	`, urlID).Scan(&record.AccessID, &record.AccessedAt, &record.StatusCode, &record.ErrorType, &record.Success)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last access: %w", err)
	}
	return &record, nil
}

// AccessRecord represents a URL access attempt.
type AccessRecord struct {
	AccessID   int64
	AccessedAt time.Time
	StatusCode int
	ErrorType  string
	Success    bool
}

// Extraction is the outcome of one run past the parse step.
type Extraction struct {
	ExtractionID int64
	AccessID     int64
	Status       string
	OutputPath   string
	TableCount   int
	ColumnCount  int
	RowCount     int
	DroppedRows  int
	ContentHash  string
	SnapshotPath string
	CreatedAt    time.Time

	// Filled by ListExtractions
	URL        string
	StatusCode int
}

// InsertExtraction stores e and returns its extraction_id.
func (db *DB) InsertExtraction(e Extraction) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO extractions (access_id, status, output_path, table_count, column_count,
			row_count, dropped_rows, content_hash, snapshot_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.AccessID, e.Status, NewNullString(e.OutputPath), e.TableCount, e.ColumnCount,
		e.RowCount, e.DroppedRows, NewNullString(e.ContentHash), NewNullString(e.SnapshotPath))
	if err != nil {
		return 0, fmt.Errorf("failed to insert extraction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get extraction ID: %w", err)
	}
	return id, nil
}

// ListExtractions returns the newest extractions first, joined with the
// access and URL they came from.
func (db *DB) ListExtractions(limit int) ([]Extraction, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT e.extraction_id, e.access_id, e.status, e.output_path, e.table_count,
			e.column_count, e.row_count, e.dropped_rows, e.content_hash, e.snapshot_path,
			e.created_at, u.original_url, a.status_code
		FROM extractions e
		JOIN url_accesses a ON e.access_id = a.access_id
		JOIN urls u ON a.url_id = u.url_id
		ORDER BY e.extraction_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	defer rows.Close()

	var extractions []Extraction
	for rows.Next() {
		var e Extraction
		var outputPath, contentHash, snapshotPath sql.NullString
		var statusCode sql.NullInt64
		err := rows.Scan(&e.ExtractionID, &e.AccessID, &e.Status, &outputPath, &e.TableCount,
			&e.ColumnCount, &e.RowCount, &e.DroppedRows, &contentHash, &snapshotPath,
			&e.CreatedAt, &e.URL, &statusCode)
		if err != nil {
			return nil, fmt.Errorf("failed to scan extraction: %w", err)
		}
		e.OutputPath = outputPath.String
		e.ContentHash = contentHash.String
		e.SnapshotPath = snapshotPath.String
		e.StatusCode = int(statusCode.Int64)
		extractions = append(extractions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate extractions: %w", err)
	}

	return extractions, nil
}

// NewNullString converts empty strings to SQL NULL.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
