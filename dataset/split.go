package dataset

import (
	"math"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// TrainTestSplit partitions ds by position: the first round(ratio×n) rows
// form train and the remainder forms test. Rows are not shuffled.
func TrainTestSplit(ds *Dataset, ratio float64) (train, test *Dataset, err error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, nil, errors.NewValidationError("train_ratio", "must be within [0, 1]", ratio)
	}
	n := ds.NumInstances()
	nTrain := int(math.Round(float64(n) * ratio))

	train, err = ds.Subset(0, nTrain)
	if err != nil {
		return nil, nil, errors.Wrap(err, "train partition")
	}
	test, err = ds.Subset(nTrain, n-nTrain)
	if err != nil {
		return nil, nil, errors.Wrap(err, "test partition")
	}
	return train, test, nil
}
