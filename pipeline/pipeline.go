// Package pipeline runs the experiment end to end: load a CSV, drop
// incomplete rows, resample, convert strings to nominal, split by position,
// normalize on the training partition, fit a decision tree and print the
// test predictions.
package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeprimer/core/model"
	"github.com/YuminosukeSato/treeprimer/dataset"
	"github.com/YuminosukeSato/treeprimer/internal/config"
	"github.com/YuminosukeSato/treeprimer/metrics"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/YuminosukeSato/treeprimer/pkg/log"
	"github.com/YuminosukeSato/treeprimer/preprocessing"
	"github.com/YuminosukeSato/treeprimer/report"
	"github.com/YuminosukeSato/treeprimer/sklearn/tree"
)

// Step names used in logs and errors.
const (
	StepLoad          = "load"
	StepRemoveMissing = "remove_missing"
	StepResample      = "resample"
	StepToNominal     = "string_to_nominal"
	StepSplit         = "split"
	StepNormalize     = "normalize"
	StepTrain         = "train"
	StepPredict       = "predict"
	StepOutput        = "output"
)

// Result holds every intermediate dataset and the fitted model of a run.
type Result struct {
	RunID string

	Loaded    *dataset.Dataset
	Cleaned   *dataset.Dataset
	Resampled *dataset.Dataset
	Converted *dataset.Dataset
	Train     *dataset.Dataset
	Test      *dataset.Dataset

	Model       *tree.DecisionTreeClassifier
	Predictions []report.Prediction
	Accuracy    float64
	Confusion   *mat.Dense
}

// Pipeline executes one run for a configuration.
type Pipeline struct {
	cfg    config.Config
	logger log.Logger
	out    io.Writer
	runID  string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger (default: the "pipeline" slog logger).
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithOutput sets where the prediction listing goes (default: stdout).
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// New creates a pipeline.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("pipeline")
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	p.logger = p.logger.With(log.EstimatorIDKey, p.runID)
	return p
}

// RunID returns the identifier attached to every log record of the run.
func (p *Pipeline) RunID() string { return p.runID }

type stepFunc func(ctx context.Context, res *Result) error

// Run executes every step in order. It stops at the first failing step or
// when ctx is done.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	defer errors.Recover(&err, "Pipeline.Run")

	res = &Result{RunID: p.runID}
	steps := []struct {
		name string
		fn   stepFunc
	}{
		{StepLoad, p.load},
		{StepRemoveMissing, p.removeMissing},
		{StepResample, p.resample},
		{StepToNominal, p.toNominal},
		{StepSplit, p.split},
		{StepNormalize, p.normalize},
		{StepTrain, p.train},
		{StepPredict, p.predict},
		{StepOutput, p.output},
	}

	p.logger.Info("Run started", log.SourceKey, p.cfg.DataPath)
	started := time.Now()
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "run cancelled before %s", s.name)
		}
		t0 := time.Now()
		if err := s.fn(ctx, res); err != nil {
			return nil, errors.Wrapf(err, "step %s", s.name)
		}
		p.logger.Debug("Step finished",
			log.StepKey, s.name,
			log.DurationMsKey, time.Since(t0).Milliseconds())
	}
	p.logger.Info("Run finished",
		log.AccuracyKey, res.Accuracy,
		log.PredsKey, len(res.Predictions),
		log.DurationMsKey, time.Since(started).Milliseconds())
	return res, nil
}

func (p *Pipeline) load(_ context.Context, res *Result) error {
	ds, err := dataset.LoadCSV(p.cfg.DataPath,
		dataset.WithDelimiter(p.cfg.Delim()),
		dataset.WithHeader(p.cfg.Header),
		dataset.WithMissingValues(p.cfg.MissingValues...),
	)
	if err != nil {
		return err
	}
	res.Loaded = ds
	p.logger.Info("Dataset loaded",
		log.StepKey, StepLoad,
		log.SourceKey, p.cfg.DataPath,
		log.SamplesKey, ds.NumInstances(),
		log.FeaturesKey, ds.NumAttributes())
	return nil
}

func (p *Pipeline) removeMissing(_ context.Context, res *Result) error {
	f := preprocessing.NewRemoveMissing()
	ds, err := preprocessing.UseFilter(res.Loaded, f)
	if err != nil {
		return err
	}
	if ds.NumInstances() == 0 {
		return errors.NewDataError(p.cfg.DataPath, -1, "", errors.Wrap(errors.ErrEmptyData, "every row has a missing value"))
	}
	res.Cleaned = ds
	p.logger.Info("Incomplete rows removed",
		log.StepKey, StepRemoveMissing,
		log.DroppedKey, f.Removed,
		log.SamplesKey, ds.NumInstances())
	return nil
}

func (p *Pipeline) resample(_ context.Context, res *Result) error {
	f := preprocessing.NewResample(
		preprocessing.WithSeed(p.cfg.Seed),
		preprocessing.WithSampleSize(p.cfg.SampleSize),
		preprocessing.WithReplacement(p.cfg.Replacement),
	)
	ds, err := preprocessing.UseFilter(res.Cleaned, f)
	if err != nil {
		return err
	}
	res.Resampled = ds
	p.logger.Info("Dataset resampled",
		log.StepKey, StepResample,
		log.RandomSeedKey, p.cfg.Seed,
		log.SamplesKey, ds.NumInstances())

	if !p.cfg.UseResampled {
		errors.Warn(errors.NewDiscardedResultWarning(StepResample, ds.NumInstances(),
			"later steps use the cleaned dataset; set use_resampled to train on the sample"))
	}
	return nil
}

// base returns the dataset the conversion step starts from.
func (p *Pipeline) base(res *Result) *dataset.Dataset {
	if p.cfg.UseResampled {
		return res.Resampled
	}
	return res.Cleaned
}

func (p *Pipeline) toNominal(_ context.Context, res *Result) error {
	ds, err := preprocessing.UseFilter(p.base(res), preprocessing.NewStringToNominal())
	if err != nil {
		return err
	}

	classIdx := p.cfg.ClassIndex
	if classIdx < 0 {
		classIdx = ds.NumAttributes() - 1
	}
	if err := ds.SetClassIndex(classIdx); err != nil {
		return err
	}

	if ds.ClassAttribute().IsNumeric() {
		if !p.cfg.ClassToNominal {
			return errors.NewValidationError("class_index", "class attribute must be nominal", ds.ClassAttribute().Name)
		}
		ds, err = preprocessing.UseFilter(ds, preprocessing.NewNumericToNominal(classIdx))
		if err != nil {
			return err
		}
	}

	res.Converted = ds
	p.logger.Info("Attributes converted",
		log.StepKey, StepToNominal,
		log.FeaturesKey, ds.NumAttributes(),
		log.ClassesKey, ds.ClassAttribute().NumValues())
	return nil
}

func (p *Pipeline) split(_ context.Context, res *Result) error {
	train, test, err := dataset.TrainTestSplit(res.Converted, p.cfg.TrainRatio)
	if err != nil {
		return err
	}
	if train.NumInstances() == 0 {
		return errors.NewModelError("Pipeline.split", "empty training partition", errors.ErrEmptyData)
	}
	res.Train, res.Test = train, test
	p.logger.Info("Dataset split",
		log.StepKey, StepSplit,
		"train_rows", train.NumInstances(),
		"test_rows", test.NumInstances())
	return nil
}

func (p *Pipeline) normalize(_ context.Context, res *Result) error {
	var f preprocessing.Filter
	switch p.cfg.Normalization {
	case "minmax":
		f = preprocessing.NewNormalize()
	case "standardize":
		f = preprocessing.NewStandardize()
	default:
		return nil
	}

	// 学習用データだけで fit する
	if err := f.Fit(res.Train); err != nil {
		return err
	}
	train, err := f.Apply(res.Train)
	if err != nil {
		return err
	}
	test, err := f.Apply(res.Test)
	if err != nil {
		return err
	}
	res.Train, res.Test = train, test
	p.logger.Info("Numeric attributes rescaled",
		log.StepKey, StepNormalize,
		log.ModelNameKey, p.cfg.Normalization)
	return nil
}

func (p *Pipeline) train(_ context.Context, res *Result) error {
	X, err := res.Train.FeatureMatrix()
	if err != nil {
		return err
	}
	y, err := res.Train.ClassVector()
	if err != nil {
		return err
	}

	tc := p.cfg.Tree
	clf := tree.NewDecisionTreeClassifier(
		tree.WithCriterion(tc.Criterion),
		tree.WithMaxDepth(tc.MaxDepth),
		tree.WithMinSamplesSplit(tc.MinSamplesSplit),
		tree.WithMinSamplesLeaf(tc.MinSamplesLeaf),
		tree.WithCategoricalFeatures(res.Train.CategoricalFeatures()),
		tree.WithClassLabels(res.Train.ClassAttribute().Values),
		tree.WithFeatureNames(res.Train.FeatureNames()),
	)
	if err := clf.Fit(X, y); err != nil {
		return err
	}
	res.Model = clf
	p.logger.Info("Classifier trained",
		log.StepKey, StepTrain,
		log.ModelNameKey, "DecisionTreeClassifier",
		log.SamplesKey, res.Train.NumInstances(),
		log.DepthKey, clf.GetDepth(),
		log.LeavesKey, clf.GetNLeaves())
	p.logger.Debug("Tree structure", "tree", clf.String())
	return nil
}

func (p *Pipeline) predict(_ context.Context, res *Result) error {
	test := res.Test
	n := test.NumInstances()
	if n == 0 {
		p.logger.Warn("Test partition is empty", log.StepKey, StepPredict)
		return nil
	}

	X, err := test.FeatureMatrix()
	if err != nil {
		return err
	}
	pred, err := res.Model.Predict(X)
	if err != nil {
		return err
	}

	class := test.ClassAttribute()
	classIdx := test.ClassIndex()
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	res.Predictions = make([]report.Prediction, n)
	for i := 0; i < n; i++ {
		actual := test.Value(i, classIdx)
		predicted := pred.At(i, 0)
		res.Predictions[i] = report.Prediction{
			Row:            i,
			Actual:         actual,
			Predicted:      predicted,
			ActualLabel:    class.Label(actual),
			PredictedLabel: class.Label(predicted),
		}
		yTrue.SetVec(i, actual)
		yPred.SetVec(i, predicted)
	}

	if res.Accuracy, err = metrics.Accuracy(yTrue, yPred); err != nil {
		return err
	}
	if res.Confusion, err = metrics.ConfusionMatrix(yTrue, yPred, class.NumValues()); err != nil {
		return err
	}
	p.logger.Info("Test partition predicted",
		log.StepKey, StepPredict,
		log.PredsKey, n,
		log.AccuracyKey, res.Accuracy)
	return nil
}

func (p *Pipeline) output(_ context.Context, res *Result) error {
	w := report.NewPredictionWriter(p.out, p.cfg.Output.PrintLabels)
	if err := w.WriteAll(res.Predictions); err != nil {
		return err
	}

	out := p.cfg.Output
	if out.ModelPath != "" {
		if err := model.SaveModel(res.Model, out.ModelPath); err != nil {
			return err
		}
		p.logger.Info("Model saved", log.StepKey, StepOutput, "path", out.ModelPath)
	}
	if out.ExportPath != "" {
		summary := &report.Summary{
			RunID:       res.RunID,
			Source:      p.cfg.DataPath,
			TrainRows:   res.Train.NumInstances(),
			TestRows:    res.Test.NumInstances(),
			Accuracy:    res.Accuracy,
			ClassLabels: res.Converted.ClassAttribute().Values,
			Confusion:   res.Confusion,
		}
		if err := report.Export(out.ExportPath, res.Predictions, summary); err != nil {
			return err
		}
		p.logger.Info("Predictions exported", log.StepKey, StepOutput, "path", out.ExportPath)
	}
	if out.PlotPath != "" {
		if err := report.SaveImportancePlot(out.PlotPath, res.Train.FeatureNames(), res.Model.GetFeatureImportances()); err != nil {
			return err
		}
		p.logger.Info("Importance plot saved", log.StepKey, StepOutput, "path", out.PlotPath)
	}
	return nil
}
