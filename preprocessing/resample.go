package preprocessing

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/treeprimer/dataset"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// Resample draws a random sample of rows.
//
// With replacement, each output row is an independent uniform draw from the
// input. Without replacement the sample size is capped at the input size and
// the sampled rows keep their input order. The same seed and input always
// produce the same output.
type Resample struct {
	seed          uint64
	sampleSize    int
	samplePercent float64
	replacement   bool
}

// ResampleOption configures Resample.
type ResampleOption func(*Resample)

// WithSeed sets the random seed (default 1).
func WithSeed(seed int64) ResampleOption {
	return func(r *Resample) { r.seed = uint64(seed) }
}

// WithSampleSize sets an absolute output size and overrides any percentage.
func WithSampleSize(n int) ResampleOption {
	return func(r *Resample) {
		r.sampleSize = n
		r.samplePercent = 0
	}
}

// WithSampleSizePercent sets the output size as a percentage of the input.
// The resulting row count is truncated toward zero.
func WithSampleSizePercent(p float64) ResampleOption {
	return func(r *Resample) {
		r.samplePercent = p
		r.sampleSize = 0
	}
}

// WithReplacement selects sampling with (true, default) or without replacement.
func WithReplacement(b bool) ResampleOption {
	return func(r *Resample) { r.replacement = b }
}

// NewResample creates the filter. Without options it draws a 100% sample
// with replacement and seed 1.
func NewResample(opts ...ResampleOption) *Resample {
	r := &Resample{
		seed:          1,
		samplePercent: 100,
		replacement:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fit validates the configuration.
func (r *Resample) Fit(ds *dataset.Dataset) error {
	if r.sampleSize < 0 {
		return errors.NewValidationError("sample_size", "must be non-negative", r.sampleSize)
	}
	if r.samplePercent < 0 {
		return errors.NewValidationError("sample_size_percent", "must be non-negative", r.samplePercent)
	}
	if ds.NumInstances() == 0 {
		return errors.NewModelError("Resample.Fit", "empty data", errors.ErrEmptyData)
	}
	return nil
}

// targetSize returns the number of rows to draw from n.
func (r *Resample) targetSize(n int) int {
	if r.sampleSize > 0 {
		return r.sampleSize
	}
	return int(float64(n) * r.samplePercent / 100)
}

// Apply returns the sample. The input is left untouched.
func (r *Resample) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	n := ds.NumInstances()
	if n == 0 {
		return nil, errors.NewModelError("Resample.Apply", "empty data", errors.ErrEmptyData)
	}
	k := r.targetSize(n)
	rng := rand.New(rand.NewPCG(r.seed, r.seed))
	out := ds.EmptyCopy()

	if r.replacement {
		for i := 0; i < k; i++ {
			if err := out.Add(ds.Row(rng.IntN(n))); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	if k > n {
		errors.Warn(errors.NewParameterAdjustedWarning("sample_size", k, n,
			"sampling without replacement cannot exceed the input size"))
		k = n
	}
	picked := rng.Perm(n)[:k]
	sort.Ints(picked)
	for _, i := range picked {
		if err := out.Add(ds.Row(i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// String describes the configuration.
func (r *Resample) String() string {
	size := fmt.Sprintf("%g%%", r.samplePercent)
	if r.sampleSize > 0 {
		size = fmt.Sprintf("%d rows", r.sampleSize)
	}
	return fmt.Sprintf("Resample(seed=%d, size=%s, replacement=%t)", r.seed, size, r.replacement)
}
