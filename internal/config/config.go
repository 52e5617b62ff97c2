// Package config loads the run configuration.
//
// Values are resolved in three layers: built-in defaults, then an optional
// YAML file, then PRIMER_* environment variables. The defaults reproduce the
// reference experiment: data/data60.csv, 1000 resampled rows with seed 42, a
// 70/30 positional split and an unpruned gain-ratio tree.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// EnvPrefix is the prefix of every environment variable.
const EnvPrefix = "PRIMER"

// FileEnv names the variable pointing at an optional YAML file.
const FileEnv = "PRIMER_CONFIG_FILE"

// Config is the complete run configuration.
type Config struct {
	DataPath      string   `yaml:"data_path" envconfig:"DATA_PATH" validate:"required"`
	Delimiter     string   `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`
	Header        bool     `yaml:"header" envconfig:"HEADER"`
	MissingValues []string `yaml:"missing_values" envconfig:"MISSING_VALUES"`

	SampleSize   int   `yaml:"sample_size" envconfig:"SAMPLE_SIZE" validate:"gte=1"`
	Seed         int64 `yaml:"seed" envconfig:"SEED"`
	Replacement  bool  `yaml:"replacement" envconfig:"REPLACEMENT"`
	UseResampled bool  `yaml:"use_resampled" envconfig:"USE_RESAMPLED"`

	TrainRatio     float64 `yaml:"train_ratio" envconfig:"TRAIN_RATIO" validate:"gt=0,lt=1"`
	ClassIndex     int     `yaml:"class_index" envconfig:"CLASS_INDEX" validate:"gte=-1"`
	// false にすると数値クラスで失敗する (変換せずに ValidationError)
	ClassToNominal bool    `yaml:"class_to_nominal" envconfig:"CLASS_TO_NOMINAL"`
	Normalization  string  `yaml:"normalization" envconfig:"NORMALIZATION" validate:"oneof=minmax standardize none"`

	Tree   TreeConfig   `yaml:"tree" envconfig:"TREE"`
	Output OutputConfig `yaml:"output" envconfig:"OUTPUT"`

	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// TreeConfig holds the classifier hyperparameters.
type TreeConfig struct {
	Criterion       string `yaml:"criterion" envconfig:"CRITERION" validate:"oneof=gini entropy gain_ratio"`
	MaxDepth        int    `yaml:"max_depth" envconfig:"MAX_DEPTH" validate:"gte=-1"`
	MinSamplesSplit int    `yaml:"min_samples_split" envconfig:"MIN_SAMPLES_SPLIT" validate:"gte=2"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf" envconfig:"MIN_SAMPLES_LEAF" validate:"gte=1"`
}

// OutputConfig controls what is written besides the prediction listing.
type OutputConfig struct {
	PrintLabels bool   `yaml:"print_labels" envconfig:"PRINT_LABELS"`
	ModelPath   string `yaml:"model_path" envconfig:"MODEL_PATH"`
	ExportPath  string `yaml:"export_path" envconfig:"EXPORT_PATH"`
	PlotPath    string `yaml:"plot_path" envconfig:"PLOT_PATH"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		DataPath:       "data/data60.csv",
		Delimiter:      ",",
		Header:         true,
		MissingValues:  []string{"?", "", "NA", "NaN"},
		SampleSize:     1000,
		Seed:           42,
		Replacement:    true,
		TrainRatio:     0.70,
		ClassIndex:     -1,
		ClassToNominal: true,
		Normalization:  "minmax",
		Tree: TreeConfig{
			Criterion:       "gain_ratio",
			MaxDepth:        -1,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  2,
		},
		LogLevel: "info",
	}
}

// Load resolves the configuration. path names a YAML file; when empty,
// PRIMER_CONFIG_FILE is consulted, and with neither only defaults and the
// environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// 環境変数が設定されている項目だけを上書きする
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config from env")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and reports the first violation as a
// ValidationError.
func (c *Config) Validate() error {
	return validateStruct(c)
}

func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.NewValidationError(fe.Namespace(), "failed '"+fe.Tag()+"' constraint", fe.Value())
	}
	return errors.Wrap(err, "config validation failed")
}

// Delim returns the delimiter as a rune.
func (c *Config) Delim() rune {
	return []rune(c.Delimiter)[0]
}
