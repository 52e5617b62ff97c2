package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

func TestBaseEstimatorState(t *testing.T) {
	var e BaseEstimator

	if e.IsFitted() {
		t.Fatal("zero value should not be fitted")
	}
	err := e.CheckFitted("Normalize", "Apply")
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
	if nf.ModelName != "Normalize" || nf.Method != "Apply" {
		t.Errorf("unexpected error fields: %+v", nf)
	}

	e.SetFitted()
	if err := e.CheckFitted("Normalize", "Apply"); err != nil {
		t.Errorf("unexpected error after SetFitted: %v", err)
	}

	e.Reset()
	if e.IsFitted() {
		t.Error("Reset should clear the fitted state")
	}
}

type snapshot struct {
	Name   string
	Values []float64
}

func TestSaveLoadModel(t *testing.T) {
	in := &snapshot{Name: "tree", Values: []float64{0.25, 1}}

	var buf bytes.Buffer
	if err := SaveModelToWriter(in, &buf); err != nil {
		t.Fatalf("SaveModelToWriter: %v", err)
	}
	var out snapshot
	if err := LoadModelFromReader(&out, &buf); err != nil {
		t.Fatalf("LoadModelFromReader: %v", err)
	}
	if out.Name != in.Name || len(out.Values) != 2 || out.Values[0] != 0.25 {
		t.Errorf("round trip mismatch: %+v", out)
	}

	path := filepath.Join(t.TempDir(), "model.gob")
	if err := SaveModel(in, path); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	var fromFile snapshot
	if err := LoadModel(&fromFile, path); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if fromFile.Name != "tree" {
		t.Errorf("unexpected name %q", fromFile.Name)
	}

	if err := LoadModel(&fromFile, filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("expected error for missing file")
	}
}
