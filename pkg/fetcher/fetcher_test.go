package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<table><tr><td>N</td></tr></table>"))
	}))
	defer srv.Close()

	page, err := NewFetcher(0).GetPage(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, "<table><tr><td>N</td></tr></table>", string(page.Body))
}

func TestGetPage_DecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "pH é" in Latin-1
		_, _ = w.Write([]byte{'p', 'H', ' ', 0xe9})
	}))
	defer srv.Close()

	page, err := NewFetcher(0).GetPage(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "pH é", string(page.Body))
}

func TestGetPage_Non2xx(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"forbidden", http.StatusForbidden},
		{"not modified", http.StatusNotModified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			page, err := NewFetcher(0).GetPage(context.Background(), srv.URL)
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr), "want *StatusError, got %T", err)
			require.Equal(t, tt.status, statusErr.StatusCode)
			require.Equal(t, tt.status, page.StatusCode)
			require.Nil(t, page.Body)
		})
	}
}

func TestGetPage_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	page, err := NewFetcher(0).GetPage(context.Background(), url)
	require.Error(t, err)
	require.Nil(t, page)
}
