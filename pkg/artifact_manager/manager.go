package artifact_manager

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	DefaultBaseDir = "shc-snapshots"
	RawHTMLDir     = "raw"
)

// Manager archives fetched pages on disk. Snapshots are write-once and are
// never read back as a cache; each fetch gets its own timestamped file.
type Manager struct {
	baseDir string
	now     func() time.Time
}

// NewManager creates a new Artifact Manager instance.
// It ensures the base directory and its raw HTML subdirectory exist.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if err := os.MkdirAll(filepath.Join(baseDir, RawHTMLDir), 0750); err != nil {
		return nil, fmt.Errorf("failed to create raw HTML directory: %w", err)
	}

	return &Manager{baseDir: baseDir, now: time.Now}, nil
}

// normalizeURL creates a canonical representation of a URL for consistent hashing.
func normalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)

	// Sort query parameters alphabetically
	if u.RawQuery != "" {
		params := u.Query()
		var keys []string
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sortedQuery := url.Values{}
		for _, k := range keys {
			for _, v := range params[k] {
				sortedQuery.Add(k, v)
			}
		}
		u.RawQuery = sortedQuery.Encode()
	}

	u.Fragment = ""

	return u.String(), nil
}

// getShortHash generates a short, stable hash from a normalized URL.
func getShortHash(normalizedURL string) string {
	hash := sha256.Sum256([]byte(normalizedURL))
	return fmt.Sprintf("%x", hash[:6]) // Use first 6 bytes for a 12-char hex string
}

// sanitizeSlug creates a filesystem-safe slug from a URL path.
var invalidFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)

func sanitizeSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		// Fallback for invalid URLs or local files
		safe := invalidFilenameChar.ReplaceAllString(rawURL, "_")
		return strings.Trim(safe, "_")
	}

	hostPart := strings.ReplaceAll(u.Host, ".", "_")
	pathPart := strings.TrimPrefix(u.Path, "/")
	pathPart = invalidFilenameChar.ReplaceAllString(pathPart, "_")
	pathPart = strings.Trim(pathPart, "_")

	if pathPart == "" {
		return hostPart
	}
	return fmt.Sprintf("%s_%s", hostPart, pathPart)
}

// GetArtifactPath builds <base>/<dir>/<slug>-<hash>-<timestamp><ext>.
func (m *Manager) GetArtifactPath(artifactDir, url string, at time.Time, ext string) (string, error) {
	normalizedURL, err := normalizeURL(url)
	if err != nil {
		return "", err
	}
	slug := sanitizeSlug(url) // Use original URL for slug for human readability
	shortHash := getShortHash(normalizedURL)

	filename := fmt.Sprintf("%s-%s-%s%s", slug, shortHash, at.UTC().Format("20060102T150405Z"), ext)
	return filepath.Join(m.baseDir, artifactDir, filename), nil
}

// SaveRawHTML stores one fetched page and returns the path written.
func (m *Manager) SaveRawHTML(url string, data []byte) (string, error) {
	filePath, err := m.GetArtifactPath(RawHTMLDir, url, m.now(), ".html")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write raw HTML: %w", err)
	}
	return filePath, nil
}

// BaseDir returns the snapshot root.
func (m *Manager) BaseDir() string {
	return m.baseDir
}
