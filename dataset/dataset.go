// Package dataset holds the in-memory tabular data model: an ordered list of
// rows over a shared attribute schema, with numeric, nominal and string cells.
//
// Every cell is stored as a float64. Numeric cells hold the value, nominal
// and string cells hold the index of their label in the attribute. Missing
// cells are NaN.
package dataset

import (
	"math"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Missing is the stored representation of a missing cell.
var Missing = math.NaN()

// IsMissing reports whether a stored cell value is missing.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Dataset is an ordered collection of rows sharing one schema.
type Dataset struct {
	name       string
	attrs      []*Attribute
	rows       [][]float64
	classIndex int
}

// New creates an empty dataset with the given schema. No class is set.
func New(name string, attrs []*Attribute) *Dataset {
	return &Dataset{name: name, attrs: attrs, classIndex: -1}
}

// Name returns the relation name (usually the source file).
func (d *Dataset) Name() string { return d.name }

// NumInstances returns the number of rows.
func (d *Dataset) NumInstances() int { return len(d.rows) }

// NumAttributes returns the number of columns.
func (d *Dataset) NumAttributes() int { return len(d.attrs) }

// Attribute returns column j.
func (d *Dataset) Attribute(j int) *Attribute { return d.attrs[j] }

// Attributes returns the schema. The slice must not be modified.
func (d *Dataset) Attributes() []*Attribute { return d.attrs }

// AttributeIndex returns the column index of name, or -1.
func (d *Dataset) AttributeIndex(name string) int {
	for j, a := range d.attrs {
		if a.Name == name {
			return j
		}
	}
	return -1
}

// Value returns the stored value of cell (i, j).
func (d *Dataset) Value(i, j int) float64 { return d.rows[i][j] }

// SetValue overwrites cell (i, j).
func (d *Dataset) SetValue(i, j int, v float64) { d.rows[i][j] = v }

// StringValue renders cell (i, j) through its attribute.
func (d *Dataset) StringValue(i, j int) string { return d.attrs[j].Label(d.rows[i][j]) }

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []float64 { return append([]float64(nil), d.rows[i]...) }

// IsMissing reports whether cell (i, j) is missing.
func (d *Dataset) IsMissing(i, j int) bool { return IsMissing(d.rows[i][j]) }

// HasMissing reports whether row i has any missing cell.
func (d *Dataset) HasMissing(i int) bool {
	for _, v := range d.rows[i] {
		if IsMissing(v) {
			return true
		}
	}
	return false
}

// Add appends a row. The row is copied.
func (d *Dataset) Add(row []float64) error {
	if len(row) != len(d.attrs) {
		return errors.NewDimensionError("Dataset.Add", len(d.attrs), len(row), 1)
	}
	d.rows = append(d.rows, append([]float64(nil), row...))
	return nil
}

// RemoveIf deletes, in place, every row for which pred returns true and
// reports how many rows were removed. Row order is preserved.
func (d *Dataset) RemoveIf(pred func(d *Dataset, i int) bool) int {
	kept := d.rows[:0]
	removed := 0
	for i := range d.rows {
		if pred(d, i) {
			removed++
			continue
		}
		kept = append(kept, d.rows[i])
	}
	// 参照を残さない
	for i := len(kept); i < len(d.rows); i++ {
		d.rows[i] = nil
	}
	d.rows = kept
	return removed
}

// SetClassIndex marks column j as the class attribute. -1 unsets it.
func (d *Dataset) SetClassIndex(j int) error {
	if j < -1 || j >= len(d.attrs) {
		return errors.NewValidationError("class_index", "out of range", j)
	}
	d.classIndex = j
	return nil
}

// ClassIndex returns the class column, or -1.
func (d *Dataset) ClassIndex() int { return d.classIndex }

// ClassAttribute returns the class attribute, or nil when unset.
func (d *Dataset) ClassAttribute() *Attribute {
	if d.classIndex < 0 {
		return nil
	}
	return d.attrs[d.classIndex]
}

// EmptyCopy returns a dataset with a copy of the schema and no rows.
func (d *Dataset) EmptyCopy() *Dataset {
	attrs := make([]*Attribute, len(d.attrs))
	for j, a := range d.attrs {
		attrs[j] = a.Copy()
	}
	return &Dataset{name: d.name, attrs: attrs, classIndex: d.classIndex}
}

// Copy returns a deep copy.
func (d *Dataset) Copy() *Dataset {
	c := d.EmptyCopy()
	c.rows = make([][]float64, len(d.rows))
	for i, r := range d.rows {
		c.rows[i] = append([]float64(nil), r...)
	}
	return c
}

// Subset returns a deep copy of rows [from, from+n).
func (d *Dataset) Subset(from, n int) (*Dataset, error) {
	if from < 0 || n < 0 || from+n > len(d.rows) {
		return nil, errors.NewValueError("Dataset.Subset", "row range out of bounds")
	}
	c := d.EmptyCopy()
	c.rows = make([][]float64, n)
	for i := 0; i < n; i++ {
		c.rows[i] = append([]float64(nil), d.rows[from+i]...)
	}
	return c, nil
}

// ReplaceAttribute swaps the schema entry of column j. Callers are
// responsible for rewriting the stored values to match.
func (d *Dataset) ReplaceAttribute(j int, a *Attribute) {
	d.attrs[j] = a
}

// FeatureIndices returns every column index except the class.
func (d *Dataset) FeatureIndices() []int {
	idx := make([]int, 0, len(d.attrs))
	for j := range d.attrs {
		if j != d.classIndex {
			idx = append(idx, j)
		}
	}
	return idx
}

// FeatureNames returns the names of FeatureIndices in order.
func (d *Dataset) FeatureNames() []string {
	idx := d.FeatureIndices()
	names := make([]string, len(idx))
	for k, j := range idx {
		names[k] = d.attrs[j].Name
	}
	return names
}

// CategoricalFeatures maps feature-matrix columns holding nominal attributes
// to their number of labels.
func (d *Dataset) CategoricalFeatures() map[int]int {
	cats := make(map[int]int)
	for k, j := range d.FeatureIndices() {
		if d.attrs[j].IsNominal() {
			cats[k] = d.attrs[j].NumValues()
		}
	}
	return cats
}

// FeatureMatrix returns the non-class columns as an n × p matrix.
// String attributes are rejected; convert them to nominal first.
func (d *Dataset) FeatureMatrix() (*mat.Dense, error) {
	if len(d.rows) == 0 {
		return nil, errors.NewModelError("Dataset.FeatureMatrix", "empty data", errors.ErrEmptyData)
	}
	idx := d.FeatureIndices()
	for _, j := range idx {
		if d.attrs[j].IsString() {
			return nil, errors.NewValidationError(d.attrs[j].Name, "string attribute cannot be used as a feature", d.attrs[j].Type.String())
		}
	}
	X := mat.NewDense(len(d.rows), len(idx), nil)
	for i, r := range d.rows {
		for k, j := range idx {
			X.Set(i, k, r[j])
		}
	}
	return X, nil
}

// ClassVector returns the class column as a vector of label indices.
func (d *Dataset) ClassVector() (*mat.VecDense, error) {
	if d.classIndex < 0 {
		return nil, errors.WithStack(errors.ErrNoClass)
	}
	if len(d.rows) == 0 {
		return nil, errors.NewModelError("Dataset.ClassVector", "empty data", errors.ErrEmptyData)
	}
	y := mat.NewVecDense(len(d.rows), nil)
	for i, r := range d.rows {
		y.SetVec(i, r[d.classIndex])
	}
	return y, nil
}

// Append adds every row of other to d. Both must share the same width.
func (d *Dataset) Append(other *Dataset) error {
	if other.NumAttributes() != len(d.attrs) {
		return errors.NewDimensionError("Dataset.Append", len(d.attrs), other.NumAttributes(), 1)
	}
	for _, r := range other.rows {
		d.rows = append(d.rows, append([]float64(nil), r...))
	}
	return nil
}

// NumericIndices returns the numeric columns, class excluded.
func (d *Dataset) NumericIndices() []int {
	var idx []int
	for j, a := range d.attrs {
		if j != d.classIndex && a.IsNumeric() {
			idx = append(idx, j)
		}
	}
	return idx
}
