package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treeprimer/core/model"
	"github.com/YuminosukeSato/treeprimer/internal/config"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/YuminosukeSato/treeprimer/pkg/log"
	"github.com/YuminosukeSato/treeprimer/report"
	"github.com/YuminosukeSato/treeprimer/sklearn/tree"
)

var colors = []string{"red", "green", "blue"}

// writeData は 60 行の CSV を書き出す。i%11==5 の行は x2 が欠損。
func writeData(t *testing.T, numericClass bool) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("x1,color,x2,class\n")
	for i := 0; i < 60; i++ {
		x1 := float64((i*7)%23) + 0.5
		x2 := fmt.Sprintf("%d", (i*13)%17)
		if i%11 == 5 {
			x2 = "?"
		}
		class := "no"
		if x1 > 11 {
			class = "yes"
		}
		if numericClass {
			class = "0"
			if x1 > 11 {
				class = "1"
			}
		}
		fmt.Fprintf(&sb, "%.1f,%s,%s,%s\n", x1, colors[i%3], x2, class)
	}
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func testConfig(path string) config.Config {
	cfg := config.Default()
	cfg.DataPath = path
	cfg.SampleSize = 200
	return cfg
}

func captureWarnings(t *testing.T) func() []error {
	t.Helper()
	var mu sync.Mutex
	var got []error
	errors.SetZerologWarnFunc(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, w)
	})
	t.Cleanup(func() { errors.SetZerologWarnFunc(nil) })
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), got...)
	}
}

func run(t *testing.T, cfg config.Config) (*Result, string) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelError)
	var out bytes.Buffer
	res, err := New(cfg, WithLogger(logger), WithOutput(&out), WithRunID("test-run")).Run(context.Background())
	require.NoError(t, err)
	return res, out.String()
}

func TestRunReference(t *testing.T) {
	warnings := captureWarnings(t)
	cfg := testConfig(writeData(t, false))

	res, out := run(t, cfg)

	assert.Equal(t, 60, res.Loaded.NumInstances())
	assert.Equal(t, 55, res.Cleaned.NumInstances())
	assert.Equal(t, 200, res.Resampled.NumInstances())

	// 再標本は使われず、クリーニング後のデータが分割される
	assert.Equal(t, 39, res.Train.NumInstances())
	assert.Equal(t, 16, res.Test.NumInstances())
	assert.Equal(t, res.Cleaned.NumInstances(), res.Train.NumInstances()+res.Test.NumInstances())

	var discarded *errors.DiscardedResultWarning
	found := false
	for _, w := range warnings() {
		if errors.As(w, &discarded) {
			found = true
		}
	}
	assert.True(t, found, "expected a DiscardedResultWarning")

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2+res.Test.NumInstances())
	assert.Equal(t, report.HeaderRule, lines[0])
	assert.Equal(t, report.HeaderTitle, lines[1])
	for i, line := range lines[2:] {
		want := report.FormatClassValue(res.Predictions[i].Actual) + " , " + report.FormatClassValue(res.Predictions[i].Predicted)
		assert.Equal(t, want, line)
	}

	// 位置による分割: テストの先頭はクリーニング後の 40 行目
	assert.Equal(t, res.Converted.Value(39, 1), res.Test.Value(0, 1))

	for _, j := range res.Train.NumericIndices() {
		for i := 0; i < res.Train.NumInstances(); i++ {
			v := res.Train.Value(i, j)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	assert.Equal(t, []string{"no", "yes"}, res.Converted.ClassAttribute().Values)
	assert.True(t, res.Converted.Attribute(1).IsNominal())
	assert.Equal(t, colors, res.Converted.Attribute(1).Values)

	correct := 0
	for _, p := range res.Predictions {
		if p.Correct() {
			correct++
		}
	}
	assert.InDelta(t, float64(correct)/float64(len(res.Predictions)), res.Accuracy, 1e-12)
	require.NotNil(t, res.Confusion)
	r, c := res.Confusion.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	var total float64
	for i := 0; i < r; i++ {
		for k := 0; k < c; k++ {
			total += res.Confusion.At(i, k)
		}
	}
	assert.Equal(t, float64(res.Test.NumInstances()), total)
}

func TestRunDeterministic(t *testing.T) {
	cfg := testConfig(writeData(t, false))
	cfg.UseResampled = true

	first, out1 := run(t, cfg)
	second, out2 := run(t, cfg)

	assert.Equal(t, out1, out2)
	assert.Equal(t, first.Model.String(), second.Model.String())
}

func TestRunUseResampled(t *testing.T) {
	warnings := captureWarnings(t)
	cfg := testConfig(writeData(t, false))
	cfg.UseResampled = true

	res, _ := run(t, cfg)

	assert.Equal(t, cfg.SampleSize, res.Train.NumInstances()+res.Test.NumInstances())
	assert.Equal(t, 140, res.Train.NumInstances())
	assert.Equal(t, 60, res.Test.NumInstances())
	assert.Len(t, res.Predictions, 60)

	var discarded *errors.DiscardedResultWarning
	for _, w := range warnings() {
		assert.False(t, errors.As(w, &discarded), "unexpected warning %v", w)
	}
}

func TestRunNumericClass(t *testing.T) {
	cfg := testConfig(writeData(t, true))

	res, out := run(t, cfg)

	class := res.Converted.ClassAttribute()
	assert.True(t, class.IsNominal())
	assert.Equal(t, []string{"0", "1"}, class.Values)
	assert.Contains(t, out, report.HeaderTitle)

	cfg.ClassToNominal = false
	_, err := New(cfg, WithOutput(&bytes.Buffer{})).Run(context.Background())
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve), "got %v", err)
}

func TestRunPrintLabels(t *testing.T) {
	cfg := testConfig(writeData(t, false))
	cfg.Output.PrintLabels = true

	res, out := run(t, cfg)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2+len(res.Predictions))
	for i, line := range lines[2:] {
		p := res.Predictions[i]
		assert.Equal(t, p.ActualLabel+" , "+p.PredictedLabel, line)
	}
}

func TestRunNoNormalization(t *testing.T) {
	cfg := testConfig(writeData(t, false))
	cfg.Normalization = "none"

	res, _ := run(t, cfg)

	assert.Equal(t, res.Converted.Value(0, 0), res.Train.Value(0, 0))
}

func TestRunOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(writeData(t, false))
	cfg.Output.ModelPath = filepath.Join(dir, "model.gob")
	cfg.Output.ExportPath = filepath.Join(dir, "preds.xlsx")
	cfg.Output.PlotPath = filepath.Join(dir, "importance.png")

	res, _ := run(t, cfg)

	for _, p := range []string{cfg.Output.ModelPath, cfg.Output.ExportPath, cfg.Output.PlotPath} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}

	loaded := tree.NewDecisionTreeClassifier()
	require.NoError(t, model.LoadModel(loaded, cfg.Output.ModelPath))
	X, err := res.Test.FeatureMatrix()
	require.NoError(t, err)
	want, err := res.Model.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	r, _ := want.Dims()
	for i := 0; i < r; i++ {
		assert.Equal(t, want.At(i, 0), got.At(i, 0))
	}
}

func TestRunLogs(t *testing.T) {
	cfg := testConfig(writeData(t, false))
	logger, buf := log.NewTestLogger(log.LevelInfo)

	p := New(cfg, WithLogger(logger), WithOutput(&bytes.Buffer{}))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	logs := buf.String()
	assert.NotEmpty(t, p.RunID())
	assert.Contains(t, logs, p.RunID())
	assert.True(t, logger.ContainsMessage("Classifier trained"))
	assert.True(t, logger.ContainsField(log.DroppedKey, 5.0))
	assert.True(t, logger.ContainsField(log.EstimatorIDKey, p.RunID()))

	assert.Equal(t, []interface{}{
		StepLoad, StepRemoveMissing, StepResample, StepToNominal,
		StepSplit, StepNormalize, StepTrain, StepPredict,
	}, logger.Values(log.StepKey))
}

func TestRunErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := testConfig(filepath.Join(t.TempDir(), "nope.csv"))
		_, err := New(cfg, WithOutput(&bytes.Buffer{})).Run(context.Background())
		var de *errors.DataError
		assert.True(t, errors.As(err, &de), "got %v", err)
	})

	t.Run("all rows incomplete", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "holes.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b,class\n1,?,x\n?,2,y\n"), 0o600))
		_, err := New(testConfig(path), WithOutput(&bytes.Buffer{})).Run(context.Background())
		assert.True(t, errors.Is(err, errors.ErrEmptyData), "got %v", err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var out bytes.Buffer
		_, err := New(testConfig(writeData(t, false)), WithOutput(&out)).Run(ctx)
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
		assert.Empty(t, out.String())
	})
}
