// Package report renders the outcome of a run: the prediction listing on
// stdout, optional CSV/XLSX exports and a feature-importance chart.
package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// Header lines printed before the prediction listing.
const (
	HeaderRule  = "========================"
	HeaderTitle = "Predicting test:"
)

// Prediction is one test row with its true and predicted class.
type Prediction struct {
	Row            int
	Actual         float64
	Predicted      float64
	ActualLabel    string
	PredictedLabel string
}

// Correct reports whether the prediction matches the true class.
func (p Prediction) Correct() bool { return p.Actual == p.Predicted }

// FormatClassValue renders a class index the way the listing prints it:
// whole numbers keep one decimal ("1.0"), missing prints as "NaN".
func FormatClassValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case v == math.Trunc(v) && math.Abs(v) < 1e7:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// PredictionWriter writes the prediction listing.
type PredictionWriter struct {
	w      *bufio.Writer
	labels bool
}

// NewPredictionWriter creates a writer. With labels set, rows print class
// labels instead of class indices.
func NewPredictionWriter(w io.Writer, labels bool) *PredictionWriter {
	return &PredictionWriter{w: bufio.NewWriter(w), labels: labels}
}

// WriteHeader writes the two header lines.
func (pw *PredictionWriter) WriteHeader() error {
	_, err := fmt.Fprintf(pw.w, "%s\n%s\n", HeaderRule, HeaderTitle)
	return errors.Wrap(err, "write prediction header")
}

// Write writes one "<actual> , <predicted>" line.
func (pw *PredictionWriter) Write(p Prediction) error {
	actual, predicted := FormatClassValue(p.Actual), FormatClassValue(p.Predicted)
	if pw.labels {
		actual, predicted = p.ActualLabel, p.PredictedLabel
	}
	_, err := fmt.Fprintf(pw.w, "%s , %s\n", actual, predicted)
	return errors.Wrap(err, "write prediction")
}

// WriteAll writes the header, every prediction and flushes.
func (pw *PredictionWriter) WriteAll(preds []Prediction) error {
	if err := pw.WriteHeader(); err != nil {
		return err
	}
	for _, p := range preds {
		if err := pw.Write(p); err != nil {
			return err
		}
	}
	return pw.Flush()
}

// Flush flushes buffered output.
func (pw *PredictionWriter) Flush() error {
	return errors.Wrap(pw.w.Flush(), "flush predictions")
}
