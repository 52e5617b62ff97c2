package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// ScrapeEnvPrefix is the prefix of the archive downloader's variables.
const ScrapeEnvPrefix = "ARSO"

// ScrapeConfig configures cmd/arsoscrape. Only defaults and ARSO_*
// environment variables apply.
type ScrapeConfig struct {
	BaseURL string `envconfig:"BASE_URL" validate:"required,url"`

	// 自動観測所: 年ごとに半月単位でダウンロードする
	Years []int `envconfig:"YEARS" validate:"dive,gte=1990,lte=2100"`

	// その他の観測所: 期間全体を種類ごとに1ファイル
	PeriodFrom  string `envconfig:"PERIOD_FROM" validate:"required,datetime=2006-01-02"`
	PeriodTo    string `envconfig:"PERIOD_TO" validate:"required,datetime=2006-01-02"`
	PeriodTypes []int  `envconfig:"PERIOD_TYPES" validate:"dive,oneof=1 2 3 4"`

	OutputDir         string        `envconfig:"OUTPUT_DIR" validate:"required"`
	RequestsPerSecond float64       `envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int           `envconfig:"BURST" validate:"gte=1"`
	Concurrency       int           `envconfig:"CONCURRENCY" validate:"gte=1"`
	Timeout           time.Duration `envconfig:"TIMEOUT" validate:"gt=0"`

	LogLevel string `envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// DefaultScrape returns the download plan of the reference data set:
// automatic stations for 2020 and 2023, the other three categories for
// 2020-01-01..2023-12-31.
func DefaultScrape() ScrapeConfig {
	return ScrapeConfig{
		BaseURL:           "https://meteo.arso.gov.si/webmet/archive",
		Years:             []int{2020, 2023},
		PeriodFrom:        "2020-01-01",
		PeriodTo:          "2023-12-31",
		PeriodTypes:       []int{1, 2, 3},
		OutputDir:         "data",
		RequestsPerSecond: 2,
		Burst:             1,
		Concurrency:       2,
		Timeout:           60 * time.Second,
		LogLevel:          "info",
	}
}

// LoadScrape applies ARSO_* variables over DefaultScrape and validates.
func LoadScrape() (*ScrapeConfig, error) {
	cfg := DefaultScrape()
	if err := envconfig.Process(ScrapeEnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load scrape config from env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that the period is not reversed.
func (c *ScrapeConfig) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	_, _, err := c.Period()
	return err
}

// Period parses PeriodFrom and PeriodTo as UTC dates.
func (c *ScrapeConfig) Period() (from, to time.Time, err error) {
	from, err = time.Parse(time.DateOnly, c.PeriodFrom)
	if err != nil {
		return from, to, errors.NewValidationError("ScrapeConfig.PeriodFrom", "not a date", c.PeriodFrom)
	}
	to, err = time.Parse(time.DateOnly, c.PeriodTo)
	if err != nil {
		return from, to, errors.NewValidationError("ScrapeConfig.PeriodTo", "not a date", c.PeriodTo)
	}
	if to.Before(from) {
		return from, to, errors.NewValidationError("ScrapeConfig.PeriodTo", "before PeriodFrom", c.PeriodTo)
	}
	return from, to, nil
}
