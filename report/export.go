package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/YuminosukeSato/treeprimer/pkg/log"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"
)

var exportHeader = []string{"row", "actual", "predicted", "actual_label", "predicted_label", "correct"}

// Summary describes a run for the XLSX summary sheet.
type Summary struct {
	RunID       string
	Source      string
	TrainRows   int
	TestRows    int
	Accuracy    float64
	ClassLabels []string
	// Confusion is indexed [actual][predicted].
	Confusion *mat.Dense
}

// Export writes preds to path. The extension selects the format:
// ".csv" or ".xlsx". summary is only used by the XLSX format and may be nil.
func Export(path string, preds []Prediction, summary *Summary) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ExportCSV(path, preds)
	case ".xlsx":
		return ExportXLSX(path, preds, summary)
	default:
		return errors.NewValidationError("export_path", "extension must be .csv or .xlsx", path)
	}
}

func record(p Prediction) []string {
	return []string{
		strconv.Itoa(p.Row),
		FormatClassValue(p.Actual),
		FormatClassValue(p.Predicted),
		p.ActualLabel,
		p.PredictedLabel,
		strconv.FormatBool(p.Correct()),
	}
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	return nil
}

// ExportCSV writes one CSV record per prediction, with a header.
func ExportCSV(path string, preds []Prediction) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, p := range preds {
		if err := w.Write(record(p)); err != nil {
			return errors.Wrapf(err, "write csv row %d", p.Row)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}

	log.GetLoggerWithName("report").Debug("Predictions exported",
		log.OperationKey, "export_csv",
		"path", path,
		log.PredsKey, len(preds))
	return nil
}

const (
	predictionsSheet = "predictions"
	summarySheet     = "summary"
)

// ExportXLSX writes the predictions to a "predictions" sheet and, when
// summary is given, the run summary and confusion matrix to a "summary" sheet.
func ExportXLSX(path string, preds []Prediction, summary *Summary) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", predictionsSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(predictionsSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write xlsx header")
	}
	for i, p := range preds {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		row := []interface{}{p.Row, p.Actual, p.Predicted, p.ActualLabel, p.PredictedLabel, p.Correct()}
		if err := f.SetSheetRow(predictionsSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write xlsx row %d", p.Row)
		}
	}

	if summary != nil {
		if err := writeSummary(f, summary); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	log.GetLoggerWithName("report").Debug("Predictions exported",
		log.OperationKey, "export_xlsx",
		"path", path,
		log.PredsKey, len(preds))
	return nil
}

func writeSummary(f *excelize.File, s *Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "create summary sheet")
	}
	rows := [][]interface{}{
		{"run_id", s.RunID},
		{"source", s.Source},
		{"train_rows", s.TrainRows},
		{"test_rows", s.TestRows},
		{"accuracy", s.Accuracy},
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return errors.Wrap(err, "write summary")
		}
	}
	if s.Confusion == nil {
		return nil
	}

	// 混同行列: 行が正解、列が予測
	start := len(rows) + 2
	r, c := s.Confusion.Dims()
	head := []interface{}{"actual \\ predicted"}
	for k := 0; k < c; k++ {
		head = append(head, classHeader(s.ClassLabels, k))
	}
	cell, _ := excelize.CoordinatesToCellName(1, start)
	if err := f.SetSheetRow(summarySheet, cell, &head); err != nil {
		return errors.Wrap(err, "write confusion header")
	}
	for i := 0; i < r; i++ {
		row := []interface{}{classHeader(s.ClassLabels, i)}
		for k := 0; k < c; k++ {
			row = append(row, s.Confusion.At(i, k))
		}
		cell, _ := excelize.CoordinatesToCellName(1, start+1+i)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return errors.Wrap(err, "write confusion row")
		}
	}
	return nil
}

func classHeader(labels []string, k int) string {
	if k < len(labels) {
		return labels[k]
	}
	return strconv.Itoa(k)
}
