package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dtnitsch/soil-health-extractor/models"
	"github.com/dtnitsch/soil-health-extractor/pkg/artifact_manager"
	"github.com/dtnitsch/soil-health-extractor/pkg/db"
	"github.com/dtnitsch/soil-health-extractor/pkg/fetcher"
	"github.com/dtnitsch/soil-health-extractor/pkg/spreadsheet"
	"github.com/stretchr/testify/require"
)

const soilTable = `<html><body>
<h1>RKVY Soil Health Card</h1>
<table id="nutrients">
	<thead><tr><th> District </th><th> Nitrogen </th><th>pH</th></tr></thead>
	<tbody>
		<tr><td>Mysuru</td><td>240</td><td>7.1</td></tr>
		<tr><td></td><td></td><td></td></tr>
		<tr><td>Hassan</td><td>198</td><td>6.4</td></tr>
		<tr><td>&nbsp;</td><td>N/A</td><td></td></tr>
		<tr><td>Mandya</td><td></td><td>6.9</td></tr>
	</tbody>
</table>
</body></html>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestExtractor(out io.Writer, snapshots *artifact_manager.Manager, history *db.DB) *Extractor {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewExtractor(logger, out, fetcher.NewFetcher(0), snapshots, history)
}

func testConfig(t *testing.T, url string) *models.ExtractConfig {
	t.Helper()
	cfg := models.DefaultExtractConfig()
	cfg.SourceURL = url
	cfg.OutputPath = filepath.Join(t.TempDir(), "src", "data", "Karnataka_SoilHealthData.xlsx")
	return cfg
}

func TestRun_NoTables(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><body><p>Dashboard under maintenance</p></body></html>`)
	cfg := testConfig(t, srv.URL)
	var out bytes.Buffer

	result, err := newTestExtractor(&out, nil, nil).Run(context.Background(), cfg)

	require.NoError(t, err)
	require.Equal(t, StatusNoTables, result.Status)
	require.Equal(t, NoTablesMessage+"\n", out.String())
	_, statErr := os.Stat(cfg.OutputPath)
	require.True(t, errors.Is(statErr, os.ErrNotExist), "no file may be written")
}

func TestRun_DropsEmptyRowsAndTrimsHeaders(t *testing.T) {
	srv := serve(t, http.StatusOK, soilTable)
	cfg := testConfig(t, srv.URL)
	var out bytes.Buffer

	result, err := newTestExtractor(&out, nil, nil).Run(context.Background(), cfg)

	require.NoError(t, err)
	require.Equal(t, StatusWritten, result.Status)
	require.Equal(t, 2, result.DroppedRows)
	require.Equal(t, 3, result.RowCount)
	require.Equal(t, "✅ Data extracted and saved successfully as '"+cfg.OutputPath+"'\n", out.String())

	ds, err := spreadsheet.Read(cfg.OutputPath, "")
	require.NoError(t, err)
	require.Equal(t, []string{"District", "Nitrogen", "pH"}, ds.Columns)
	require.Equal(t, 3, ds.RowCount())
	require.Equal(t, models.TextCell("Mysuru"), ds.Rows[0][0])
	require.Equal(t, models.IntCell(198), ds.Rows[1][1])
	require.True(t, ds.Rows[2][1].IsMissing())
	require.Equal(t, models.FloatCell(6.9), ds.Rows[2][2])
}

func TestRun_Non2xxIsFatal(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		srv := serve(t, status, soilTable)
		cfg := testConfig(t, srv.URL)
		var out bytes.Buffer

		result, err := newTestExtractor(&out, nil, nil).Run(context.Background(), cfg)

		require.Error(t, err)
		require.Nil(t, result)
		var statusErr *fetcher.StatusError
		require.True(t, errors.As(err, &statusErr))
		require.Equal(t, status, statusErr.StatusCode)
		require.Empty(t, out.String())
		_, statErr := os.Stat(cfg.OutputPath)
		require.True(t, errors.Is(statErr, os.ErrNotExist), "no file may be written")
	}
}

func TestRun_OnlyFirstTable(t *testing.T) {
	page := `<table><tr><th>Parameter</th><th>Value</th></tr><tr><td>Zinc</td><td>0.6</td></tr></table>
	<table><tr><th>Other</th></tr><tr><td>SECOND_TABLE_ONLY</td></tr></table>`
	srv := serve(t, http.StatusOK, page)
	cfg := testConfig(t, srv.URL)

	result, err := newTestExtractor(io.Discard, nil, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 2, result.TableCount)

	ds, err := spreadsheet.Read(cfg.OutputPath, "")
	require.NoError(t, err)
	require.Equal(t, []string{"Parameter", "Value"}, ds.Columns)
	for _, row := range ds.Rows {
		for _, cell := range row {
			require.NotContains(t, cell.String(), "SECOND_TABLE_ONLY")
		}
	}
}

func TestRun_BlankFirstTableIsFatal(t *testing.T) {
	pages := map[string]string{
		"image only": `<table><tr><td><img src="logo.png"></td></tr></table>
			<table><tr><th>N</th></tr><tr><td>1</td></tr></table>`,
		"empty element": `<table></table><table><tr><th>N</th></tr><tr><td>1</td></tr></table>`,
		"whitespace":    "<table>\n  <tr><td>&nbsp;</td><td> </td></tr>\n</table>",
	}

	for name, page := range pages {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, page)
			cfg := testConfig(t, srv.URL)
			require.NoError(t, os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755))
			require.NoError(t, os.WriteFile(cfg.OutputPath, []byte("previous workbook"), 0644))
			var out bytes.Buffer

			result, err := newTestExtractor(&out, nil, nil).Run(context.Background(), cfg)

			require.ErrorIs(t, err, ErrBlankTable)
			require.Nil(t, result)
			require.Empty(t, out.String())
			previous, err := os.ReadFile(cfg.OutputPath)
			require.NoError(t, err)
			require.Equal(t, "previous workbook", string(previous))
		})
	}
}

func TestRun_OverwritesExistingFile(t *testing.T) {
	srv := serve(t, http.StatusOK, soilTable)
	cfg := testConfig(t, srv.URL)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755))
	require.NoError(t, os.WriteFile(cfg.OutputPath, []byte("stale"), 0644))

	_, err := newTestExtractor(io.Discard, nil, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	ds, err := spreadsheet.Read(cfg.OutputPath, "")
	require.NoError(t, err)
	require.Equal(t, 3, ds.RowCount())
}

func TestRun_FromFile(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "RKVYSHC.html")
	require.NoError(t, os.WriteFile(saved, []byte(soilTable), 0644))

	cfg := testConfig(t, "")
	cfg.FromFile = saved

	result, err := newTestExtractor(io.Discard, nil, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, StatusWritten, result.Status)
	require.Equal(t, 3, result.RowCount)

	cfg.FromFile = filepath.Join(dir, "missing.html")
	_, err = newTestExtractor(io.Discard, nil, nil).Run(context.Background(), cfg)
	require.Error(t, err)
}

func TestRun_FromFileHistoryUsesFileURL(t *testing.T) {
	saved := filepath.Join(t.TempDir(), "RKVYSHC.html")
	require.NoError(t, os.WriteFile(saved, []byte(soilTable), 0644))

	cfg := testConfig(t, "")
	cfg.FromFile = saved

	history, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	_, err = newTestExtractor(io.Discard, nil, history).Run(context.Background(), cfg)
	require.NoError(t, err)

	extractions, err := history.ListExtractions(10)
	require.NoError(t, err)
	require.Len(t, extractions, 1)
	require.Equal(t, "file://"+filepath.ToSlash(saved), extractions[0].URL)

	var scheme, path string
	err = history.QueryRow("SELECT scheme, path FROM urls").Scan(&scheme, &path)
	require.NoError(t, err)
	require.Equal(t, "file", scheme)
	require.Equal(t, filepath.ToSlash(saved), path)
}

func TestRun_SnapshotAndHistory(t *testing.T) {
	srv := serve(t, http.StatusOK, soilTable)
	cfg := testConfig(t, srv.URL)

	snapshots, err := artifact_manager.NewManager(t.TempDir())
	require.NoError(t, err)
	history, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	result, err := newTestExtractor(io.Discard, snapshots, history).Run(context.Background(), cfg)
	require.NoError(t, err)

	raw, err := os.ReadFile(result.SnapshotPath)
	require.NoError(t, err)
	require.Equal(t, soilTable, string(raw))

	extractions, err := history.ListExtractions(10)
	require.NoError(t, err)
	require.Len(t, extractions, 1)
	require.Equal(t, StatusWritten, extractions[0].Status)
	require.Equal(t, srv.URL, extractions[0].URL)
	require.Equal(t, http.StatusOK, extractions[0].StatusCode)
	require.Equal(t, 3, extractions[0].RowCount)
	require.Equal(t, 2, extractions[0].DroppedRows)
	require.Equal(t, result.ContentHash, extractions[0].ContentHash)
	require.Equal(t, result.SnapshotPath, extractions[0].SnapshotPath)
}

func TestRun_HistoryRecordsFailedFetch(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, "")
	cfg := testConfig(t, srv.URL)

	history, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	_, err = newTestExtractor(io.Discard, nil, history).Run(context.Background(), cfg)
	require.Error(t, err)

	urlID, err := history.GetURLID(srv.URL)
	require.NoError(t, err)
	last, err := history.GetLastAccess(urlID)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.False(t, last.Success)
	require.Equal(t, http.StatusBadGateway, last.StatusCode)
	require.Equal(t, "status_error", last.ErrorType)

	extractions, err := history.ListExtractions(10)
	require.NoError(t, err)
	require.Empty(t, extractions)
}

func TestRun_WriteFailureIsFatal(t *testing.T) {
	srv := serve(t, http.StatusOK, soilTable)
	cfg := testConfig(t, srv.URL)

	// A regular file where the output directory should be
	blocker := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.OutputPath = filepath.Join(blocker, "data", "out.xlsx")

	var out bytes.Buffer
	_, err := newTestExtractor(&out, nil, nil).Run(context.Background(), cfg)
	require.Error(t, err)
	require.False(t, strings.Contains(out.String(), "✅"))
}
