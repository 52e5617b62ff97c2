// Package preprocessing provides dataset filters and matrix scalers.
//
// Filters follow a two-phase contract: Fit learns whatever the filter needs
// from a reference dataset (its schema, label sets, value ranges), and Apply
// produces a new dataset from any input with the same schema. Apply never
// modifies its argument.
package preprocessing

import (
	"github.com/YuminosukeSato/treeprimer/dataset"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// Filter transforms datasets.
type Filter interface {
	// Fit learns the filter's parameters from ds.
	Fit(ds *dataset.Dataset) error

	// Apply returns the filtered copy of ds.
	Apply(ds *dataset.Dataset) (*dataset.Dataset, error)
}

// UseFilter fits f on ds and applies it to ds.
func UseFilter(ds *dataset.Dataset, f Filter) (*dataset.Dataset, error) {
	if err := f.Fit(ds); err != nil {
		return nil, err
	}
	return f.Apply(ds)
}

// checkSameSchema verifies that ds has the width of the dataset f was fitted on.
func checkSameSchema(op string, want int, ds *dataset.Dataset) error {
	if ds.NumAttributes() != want {
		return errors.NewDimensionError(op, want, ds.NumAttributes(), 1)
	}
	return nil
}

// resolveIndices returns indices if given, otherwise every column accepted
// by keep. Every index is validated against ds.
func resolveIndices(param string, ds *dataset.Dataset, indices []int, keep func(*dataset.Attribute) bool) ([]int, error) {
	if len(indices) == 0 {
		var all []int
		for j, a := range ds.Attributes() {
			if keep(a) {
				all = append(all, j)
			}
		}
		return all, nil
	}
	for _, j := range indices {
		if j < 0 || j >= ds.NumAttributes() {
			return nil, errors.NewValidationError(param, "attribute index out of range", j)
		}
	}
	return append([]int(nil), indices...), nil
}
