package preprocessing

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/treeprimer/dataset"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// StringToNominal converts string attributes to nominal ones.
//
// Fit collects each attribute's labels in order of first appearance among the
// non-missing cells. Apply maps every cell onto that label set; a label not
// seen during Fit becomes missing.
type StringToNominal struct {
	indices []int

	width   int
	targets []int
	nominal map[int]*dataset.Attribute
}

// NewStringToNominal converts the given attributes, or every string
// attribute when no index is given.
func NewStringToNominal(indices ...int) *StringToNominal {
	return &StringToNominal{indices: indices}
}

// Fit learns the label set of each target attribute.
func (f *StringToNominal) Fit(ds *dataset.Dataset) error {
	targets, err := resolveIndices("string_to_nominal.indices", ds, f.indices, (*dataset.Attribute).IsString)
	if err != nil {
		return err
	}
	for _, j := range targets {
		if !ds.Attribute(j).IsString() {
			return errors.NewValidationError(ds.Attribute(j).Name, "not a string attribute", ds.Attribute(j).Type.String())
		}
	}

	f.width = ds.NumAttributes()
	f.targets = targets
	f.nominal = make(map[int]*dataset.Attribute, len(targets))
	for _, j := range targets {
		src := ds.Attribute(j)
		attr := dataset.NewNominalAttribute(src.Name, nil)
		for i := 0; i < ds.NumInstances(); i++ {
			if !ds.IsMissing(i, j) {
				attr.AddValue(src.Label(ds.Value(i, j)))
			}
		}
		f.nominal[j] = attr
		errors.Warn(errors.NewDataConversionWarning(src.Name, "string", "nominal",
			fmt.Sprintf("%d distinct labels", attr.NumValues())))
	}
	return nil
}

// Apply rewrites the target columns as nominal indices.
func (f *StringToNominal) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if f.nominal == nil {
		return nil, errors.NewNotFittedError("StringToNominal", "Apply")
	}
	if err := checkSameSchema("StringToNominal.Apply", f.width, ds); err != nil {
		return nil, err
	}
	out := ds.Copy()
	for _, j := range f.targets {
		src := ds.Attribute(j)
		if !src.IsString() {
			return nil, errors.NewValidationError(src.Name, "not a string attribute", src.Type.String())
		}
		attr := f.nominal[j].Copy()
		for i := 0; i < out.NumInstances(); i++ {
			out.SetValue(i, j, lookup(attr, src.Label(ds.Value(i, j)), ds.IsMissing(i, j)))
		}
		out.ReplaceAttribute(j, attr)
	}
	return out, nil
}

// NumericToNominal converts numeric attributes to nominal ones whose labels
// are the distinct values seen during Fit, in ascending order.
type NumericToNominal struct {
	indices []int

	width   int
	targets []int
	nominal map[int]*dataset.Attribute
}

// NewNumericToNominal converts the given attributes, or every numeric
// attribute when no index is given.
func NewNumericToNominal(indices ...int) *NumericToNominal {
	return &NumericToNominal{indices: indices}
}

func formatNumericLabel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Fit learns the distinct values of each target attribute.
func (f *NumericToNominal) Fit(ds *dataset.Dataset) error {
	targets, err := resolveIndices("numeric_to_nominal.indices", ds, f.indices, (*dataset.Attribute).IsNumeric)
	if err != nil {
		return err
	}

	f.width = ds.NumAttributes()
	f.targets = nil
	f.nominal = make(map[int]*dataset.Attribute, len(targets))
	for _, j := range targets {
		src := ds.Attribute(j)
		if !src.IsNumeric() {
			// 既に nominal の列はそのまま
			continue
		}
		seen := make(map[float64]struct{})
		for i := 0; i < ds.NumInstances(); i++ {
			if !ds.IsMissing(i, j) {
				seen[ds.Value(i, j)] = struct{}{}
			}
		}
		vals := make([]float64, 0, len(seen))
		for v := range seen {
			vals = append(vals, v)
		}
		sort.Float64s(vals)

		labels := make([]string, len(vals))
		for k, v := range vals {
			labels[k] = formatNumericLabel(v)
		}
		f.targets = append(f.targets, j)
		f.nominal[j] = dataset.NewNominalAttribute(src.Name, labels)
		errors.Warn(errors.NewDataConversionWarning(src.Name, "numeric", "nominal",
			fmt.Sprintf("%d distinct values", len(labels))))
	}
	return nil
}

// Apply rewrites the target columns as nominal indices.
func (f *NumericToNominal) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if f.nominal == nil {
		return nil, errors.NewNotFittedError("NumericToNominal", "Apply")
	}
	if err := checkSameSchema("NumericToNominal.Apply", f.width, ds); err != nil {
		return nil, err
	}
	out := ds.Copy()
	for _, j := range f.targets {
		if !ds.Attribute(j).IsNumeric() {
			return nil, errors.NewValidationError(ds.Attribute(j).Name, "not a numeric attribute", ds.Attribute(j).Type.String())
		}
		attr := f.nominal[j].Copy()
		for i := 0; i < out.NumInstances(); i++ {
			out.SetValue(i, j, lookup(attr, formatNumericLabel(ds.Value(i, j)), ds.IsMissing(i, j)))
		}
		out.ReplaceAttribute(j, attr)
	}
	return out, nil
}

// lookup returns the stored index of label in attr, or Missing.
func lookup(attr *dataset.Attribute, label string, missing bool) float64 {
	if missing {
		return dataset.Missing
	}
	if k := attr.IndexOf(label); k >= 0 {
		return float64(k)
	}
	return dataset.Missing
}
