package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treeprimer/internal/config"
)

const locations = `AcademaPUJS.set({ mid:"arsoloc", points:{ _1828:{ name:"LJUBLJANA", lon:14.51, lat:46.06, alt:299, type:%s } }})`

const observations = `AcademaPUJS.set({ params:{ p0:{ pid:"12", l:"T" } }, points:{ _1828:{ _100:{ p0:"1.5" }, _130:{ p0:"2" } } }})`

func archive(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/locations.xml":
			fmt.Fprintf(w, locations, r.URL.Query().Get("type"))
		case "/data.xml":
			fmt.Fprint(w, observations)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) config.ScrapeConfig {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.DefaultScrape()
	cfg.BaseURL = baseURL
	cfg.Years = nil
	cfg.PeriodFrom, cfg.PeriodTo = "2020-01-01", "2020-01-31"
	cfg.PeriodTypes = []int{1, 2}
	cfg.OutputDir = t.TempDir()
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 10
	return cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t, archive(t, http.StatusOK).URL)
	var stderr bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, &stderr))

	for _, name := range []string{
		"padavinske_postaje_datefrom_2020-01-01_dateto_2020-01-31.csv",
		"klimatoloske_postaje_datefrom_2020-01-01_dateto_2020-01-31.csv",
	} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
		assert.NoError(t, err, name)
	}
	assert.Contains(t, stderr.String(), "Download finished")
}

func TestRunFailure(t *testing.T) {
	cfg := testConfig(t, archive(t, http.StatusInternalServerError).URL)
	var stderr bytes.Buffer

	err := run(context.Background(), cfg, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, stderr.String(), "Download failed")

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
