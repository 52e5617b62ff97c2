package preprocessing

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(4, 3, []float64{
		1, 10, 5,
		2, 20, 5,
		3, math.NaN(), 5,
		5, 40, 5,
	})

	scaler := NewMinMaxScalerDefault()
	got, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	want := [][]float64{
		{0, 0, 0},
		{0.25, 1.0 / 3, 0},
		{0.5, math.NaN(), 0},
		{1, 1, 0},
	}
	for i := range want {
		for j := range want[i] {
			g := got.At(i, j)
			if math.IsNaN(want[i][j]) {
				if !math.IsNaN(g) {
					t.Errorf("At(%d,%d) = %v, want NaN", i, j, g)
				}
				continue
			}
			if math.Abs(g-want[i][j]) > 1e-12 {
				t.Errorf("At(%d,%d) = %v, want %v", i, j, g, want[i][j])
			}
		}
	}

	if scaler.DataMin[1] != 10 || scaler.DataMax[1] != 40 {
		t.Errorf("NaN must be ignored when fitting: min=%v max=%v", scaler.DataMin[1], scaler.DataMax[1])
	}
}

func TestMinMaxScalerNoClipping(t *testing.T) {
	train := mat.NewDense(2, 1, []float64{10, 20})
	test := mat.NewDense(3, 1, []float64{5, 15, 30})

	scaler := NewMinMaxScalerDefault()
	if err := scaler.Fit(train); err != nil {
		t.Fatal(err)
	}
	got, err := scaler.Transform(test)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-0.5, 0.5, 2}
	for i, w := range want {
		if g := got.At(i, 0); math.Abs(g-w) > 1e-12 {
			t.Errorf("row %d: got %v, want %v", i, g, w)
		}
	}

	back, err := scaler.InverseTransform(got)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back, test, 1e-12) {
		t.Errorf("InverseTransform did not restore input: %v", mat.Formatted(back))
	}
}

func TestMinMaxScalerErrors(t *testing.T) {
	scaler := NewMinMaxScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	if err := scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatal(err)
	}
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	bad := NewMinMaxScaler([2]float64{1, 0})
	if err := bad.Fit(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("expected error for inverted feature range")
	}
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
	})

	scaler := NewStandardScalerDefault()
	got, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	if math.Abs(scaler.Mean[0]-2.5) > 1e-12 {
		t.Errorf("Mean[0] = %v, want 2.5", scaler.Mean[0])
	}
	// 母標準偏差 sqrt(1.25)
	if math.Abs(scaler.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("Scale[0] = %v, want %v", scaler.Scale[0], math.Sqrt(1.25))
	}
	// 定数列はスケール1
	if scaler.Scale[1] != 1 {
		t.Errorf("Scale[1] = %v, want 1", scaler.Scale[1])
	}

	sum := 0.0
	for i := 0; i < 4; i++ {
		sum += got.At(i, 0)
		if got.At(i, 1) != 0 {
			t.Errorf("constant column row %d = %v, want 0", i, got.At(i, 1))
		}
	}
	if math.Abs(sum) > 1e-12 {
		t.Errorf("standardized column should have zero mean, sum = %v", sum)
	}

	back, err := scaler.InverseTransform(got)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("InverseTransform did not restore input")
	}
}

func TestScalerString(t *testing.T) {
	m := NewMinMaxScalerDefault()
	if got := m.String(); got != "MinMaxScaler(feature_range=[0.0, 1.0])" {
		t.Errorf("String() = %q", got)
	}
	s := NewStandardScaler(true, false)
	if got := s.GetParams()["with_std"]; got != false {
		t.Errorf("with_std = %v", got)
	}
}
