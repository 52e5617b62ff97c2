package preprocessing

import (
	"github.com/YuminosukeSato/treeprimer/dataset"
)

// RemoveMissing drops every row that has at least one missing cell.
// Applying it twice yields the same dataset as applying it once.
type RemoveMissing struct {
	// Removed is the number of rows dropped by the last Apply.
	Removed int
}

// NewRemoveMissing creates the filter.
func NewRemoveMissing() *RemoveMissing {
	return &RemoveMissing{}
}

// Fit is a no-op; the filter has no parameters.
func (f *RemoveMissing) Fit(*dataset.Dataset) error { return nil }

// Apply returns ds without its incomplete rows, order preserved.
func (f *RemoveMissing) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := ds.Copy()
	f.Removed = out.RemoveIf(func(d *dataset.Dataset, i int) bool {
		return d.HasMissing(i)
	})
	return out, nil
}
