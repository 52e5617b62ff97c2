package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

func TestLoadScrapeDefaults(t *testing.T) {
	cfg, err := LoadScrape()
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultScrape(), *cfg); diff != "" {
		t.Errorf("defaults changed (-want +got):\n%s", diff)
	}

	from, to, err := cfg.Period()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), to)
}

func TestLoadScrapeEnv(t *testing.T) {
	t.Setenv("ARSO_YEARS", "2021,2022")
	t.Setenv("ARSO_PERIOD_FROM", "2021-03-01")
	t.Setenv("ARSO_PERIOD_TO", "2021-03-31")
	t.Setenv("ARSO_PERIOD_TYPES", "2")
	t.Setenv("ARSO_OUTPUT_DIR", "raw")
	t.Setenv("ARSO_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("ARSO_TIMEOUT", "10s")

	cfg, err := LoadScrape()
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2022}, cfg.Years)
	assert.Equal(t, []int{2}, cfg.PeriodTypes)
	assert.Equal(t, "raw", cfg.OutputDir)
	assert.Equal(t, 0.5, cfg.RequestsPerSecond)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Concurrency)
}

func TestScrapeValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScrapeConfig)
		field  string
	}{
		{"base url", func(c *ScrapeConfig) { c.BaseURL = "not a url" }, "ScrapeConfig.BaseURL"},
		{"period type", func(c *ScrapeConfig) { c.PeriodTypes = []int{1, 5} }, "ScrapeConfig.PeriodTypes[1]"},
		{"period format", func(c *ScrapeConfig) { c.PeriodFrom = "01.01.2020" }, "ScrapeConfig.PeriodFrom"},
		{"reversed period", func(c *ScrapeConfig) { c.PeriodTo = "2019-12-31" }, "ScrapeConfig.PeriodTo"},
		{"rate", func(c *ScrapeConfig) { c.RequestsPerSecond = 0 }, "ScrapeConfig.RequestsPerSecond"},
		{"concurrency", func(c *ScrapeConfig) { c.Concurrency = 0 }, "ScrapeConfig.Concurrency"},
		{"year", func(c *ScrapeConfig) { c.Years = []int{20} }, "ScrapeConfig.Years[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScrape()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.ParamName)
		})
	}

	t.Setenv("ARSO_BURST", "0")
	_, err := LoadScrape()
	assert.Error(t, err)
}
