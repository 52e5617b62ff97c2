package preprocessing

import (
	"math"

	"github.com/YuminosukeSato/treeprimer/core/model"
	"github.com/YuminosukeSato/treeprimer/dataset"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// columnScaler applies a matrix transformer to the numeric, non-class
// columns of a dataset. Nominal columns and the class pass through.
type columnScaler struct {
	name   string
	scaler model.InverseTransformer

	width   int
	columns []int
}

func (c *columnScaler) extract(ds *dataset.Dataset) *mat.Dense {
	X := mat.NewDense(ds.NumInstances(), len(c.columns), nil)
	for i := 0; i < ds.NumInstances(); i++ {
		for k, j := range c.columns {
			X.Set(i, k, ds.Value(i, j))
		}
	}
	return X
}

// Fit fits the scaler on the numeric columns of ds.
func (c *columnScaler) Fit(ds *dataset.Dataset) error {
	if ds.NumInstances() == 0 {
		return errors.NewModelError(c.name+".Fit", "empty data", errors.ErrEmptyData)
	}
	c.width = ds.NumAttributes()
	c.columns = ds.NumericIndices()
	if len(c.columns) == 0 {
		return nil
	}
	return c.scaler.Fit(c.extract(ds))
}

// Apply returns a copy of ds with the numeric columns rescaled.
func (c *columnScaler) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if c.width == 0 {
		return nil, errors.NewNotFittedError(c.name, "Apply")
	}
	if err := checkSameSchema(c.name+".Apply", c.width, ds); err != nil {
		return nil, err
	}
	out := ds.Copy()
	if len(c.columns) == 0 || ds.NumInstances() == 0 {
		return out, nil
	}
	for _, j := range c.columns {
		if !ds.Attribute(j).IsNumeric() {
			return nil, errors.NewValidationError(ds.Attribute(j).Name, "not a numeric attribute", ds.Attribute(j).Type.String())
		}
	}

	X := c.extract(ds)
	scaled, err := c.scaler.Transform(X)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.Apply", c.name)
	}
	r, k := X.Dims()
	if err := errors.CheckMatrix(c.name+".Apply", knownCells{out: scaled, in: X}, r, k); err != nil {
		return nil, err
	}
	c.write(out, scaled)
	return out, nil
}

// Invert returns a copy of ds with the numeric columns mapped back to the
// scale seen during Fit.
func (c *columnScaler) Invert(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if c.width == 0 {
		return nil, errors.NewNotFittedError(c.name, "Invert")
	}
	if err := checkSameSchema(c.name+".Invert", c.width, ds); err != nil {
		return nil, err
	}
	out := ds.Copy()
	if len(c.columns) == 0 || ds.NumInstances() == 0 {
		return out, nil
	}
	restored, err := c.scaler.InverseTransform(c.extract(ds))
	if err != nil {
		return nil, errors.Wrapf(err, "%s.Invert", c.name)
	}
	c.write(out, restored)
	return out, nil
}

func (c *columnScaler) write(out *dataset.Dataset, m mat.Matrix) {
	for i := 0; i < out.NumInstances(); i++ {
		for k, j := range c.columns {
			out.SetValue(i, j, m.At(i, k))
		}
	}
}

// knownCells は入力が欠損しているセルを 0 として見せる
type knownCells struct {
	out, in mat.Matrix
}

func (k knownCells) At(i, j int) float64 {
	if math.IsNaN(k.in.At(i, j)) {
		return 0
	}
	return k.out.At(i, j)
}

// Normalize rescales every numeric, non-class attribute with the minimum and
// maximum seen during Fit. Fitted on a training partition, it maps training
// values into the configured range (default [0, 1]); values of other
// partitions outside the training range are not clipped. Columns that were
// constant during Fit map to the lower bound. Missing cells stay missing.
type Normalize struct {
	columnScaler
	*MinMaxScaler
}

// NewNormalize creates a [0, 1] normalization filter.
func NewNormalize() *Normalize {
	return NewNormalizeRange(0, 1)
}

// NewNormalizeRange creates a normalization filter onto [lo, hi].
func NewNormalizeRange(lo, hi float64) *Normalize {
	s := NewMinMaxScaler([2]float64{lo, hi})
	return &Normalize{
		columnScaler: columnScaler{name: "Normalize", scaler: s},
		MinMaxScaler: s,
	}
}

// Fit learns the per-column range.
func (n *Normalize) Fit(ds *dataset.Dataset) error { return n.columnScaler.Fit(ds) }

// Apply rescales ds.
func (n *Normalize) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	return n.columnScaler.Apply(ds)
}

// Columns returns the dataset columns the filter rescales.
func (n *Normalize) Columns() []int { return n.columns }

// Standardize centers every numeric, non-class attribute on the training
// mean and divides by the training standard deviation.
type Standardize struct {
	columnScaler
	*StandardScaler
}

// NewStandardize creates the filter.
func NewStandardize() *Standardize {
	s := NewStandardScalerDefault()
	return &Standardize{
		columnScaler:   columnScaler{name: "Standardize", scaler: s},
		StandardScaler: s,
	}
}

// Fit learns the per-column mean and deviation.
func (s *Standardize) Fit(ds *dataset.Dataset) error { return s.columnScaler.Fit(ds) }

// Apply rescales ds.
func (s *Standardize) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	return s.columnScaler.Apply(ds)
}

// Columns returns the dataset columns the filter rescales.
func (s *Standardize) Columns() []int { return s.columns }
