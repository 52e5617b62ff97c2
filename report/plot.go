package report

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// SaveImportancePlot draws a bar chart of feature importances. The image
// format follows the file extension (png, svg, pdf, ...).
func SaveImportancePlot(path string, names []string, importances []float64) error {
	if len(names) != len(importances) {
		return errors.NewDimensionError("SaveImportancePlot", len(importances), len(names), 0)
	}
	if len(importances) == 0 {
		return errors.NewValueError("SaveImportancePlot", "no features to plot")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.Y.Label.Text = "Impurity decrease"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(16))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(names))*vg.Points(28) + 2*vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
