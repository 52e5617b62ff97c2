package dataset

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DefaultMissingValues are the cell tokens read as missing.
var DefaultMissingValues = []string{"?", "", "NA", "NaN"}

type loadConfig struct {
	name      string
	delimiter rune
	header    bool
	missing   []string
}

// LoadOption configures CSV loading.
type LoadOption func(*loadConfig)

// WithDelimiter sets the field delimiter (default ',').
func WithDelimiter(r rune) LoadOption {
	return func(c *loadConfig) { c.delimiter = r }
}

// WithHeader controls whether the first record holds column names.
// Without a header, columns are named att1, att2, ...
func WithHeader(b bool) LoadOption {
	return func(c *loadConfig) { c.header = b }
}

// WithMissingValues replaces the set of tokens read as missing.
func WithMissingValues(tokens ...string) LoadOption {
	return func(c *loadConfig) { c.missing = append([]string(nil), tokens...) }
}

// WithName sets the dataset name.
func WithName(name string) LoadOption {
	return func(c *loadConfig) { c.name = name }
}

// LoadCSV reads the CSV file at path.
func LoadCSV(path string, opts ...LoadOption) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError(path, -1, "", err)
	}
	defer f.Close()

	opts = append([]LoadOption{WithName(filepath.Base(path))}, opts...)
	ds, err := ReadCSV(bufio.NewReader(f), opts...)
	if err != nil {
		var de *errors.DataError
		if errors.As(err, &de) {
			de.Source = path
			return nil, err
		}
		return nil, errors.NewDataError(path, -1, "", err)
	}
	return ds, nil
}

// ReadCSV parses CSV from r.
//
// 列の型判定は gota に任せる: 整数/浮動小数点の列は Numeric、それ以外は String
// として読み込む。欠損トークンのセルは NaN になる。
func ReadCSV(r io.Reader, opts ...LoadOption) (*Dataset, error) {
	cfg := &loadConfig{
		name:      "data",
		delimiter: ',',
		header:    true,
		missing:   DefaultMissingValues,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter(cfg.delimiter),
		dataframe.HasHeader(cfg.header),
		dataframe.NaNValues(cfg.missing),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, errors.NewDataError(cfg.name, -1, "", df.Err)
	}
	nrow, ncol := df.Dims()
	if nrow == 0 || ncol == 0 {
		return nil, errors.NewDataError(cfg.name, -1, "", errors.ErrEmptyData)
	}

	names := df.Names()
	types := df.Types()
	attrs := make([]*Attribute, ncol)
	for j, name := range names {
		if !cfg.header {
			name = defaultColumnName(j)
		}
		switch types[j] {
		case series.Int, series.Float:
			attrs[j] = NewNumericAttribute(name)
		default:
			attrs[j] = NewStringAttribute(name)
		}
	}

	ds := New(cfg.name, attrs)
	ds.rows = make([][]float64, nrow)
	for i := range ds.rows {
		ds.rows[i] = make([]float64, ncol)
	}
	for j := 0; j < ncol; j++ {
		col := df.Col(names[j])
		for i := 0; i < nrow; i++ {
			e := col.Elem(i)
			if e.IsNA() {
				ds.rows[i][j] = Missing
				continue
			}
			if attrs[j].IsNumeric() {
				ds.rows[i][j] = e.Float()
			} else {
				ds.rows[i][j] = float64(attrs[j].AddValue(e.String()))
			}
		}
	}
	return ds, nil
}

func defaultColumnName(j int) string {
	return "att" + strconv.Itoa(j+1)
}
