// Package plot renders the PNG artifacts of a run.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	truthColor = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	predColor  = color.RGBA{R: 220, G: 110, B: 20, A: 255}
)

// PredictionVsTruth draws truth and pred against the test day index.
func PredictionVsTruth(path string, truth, pred []float64) error {
	if len(truth) != len(pred) {
		return fmt.Errorf("plot: %d truth values but %d predictions", len(truth), len(pred))
	}

	p := newPlot("Prediction vs truth")
	if err := addLine(p, "truth close", truth, truthColor); err != nil {
		return err
	}
	if err := addLine(p, "pred close", pred, predColor); err != nil {
		return err
	}
	return save(p, path)
}

// Series draws the whole raw series.
func Series(path string, values []float64) error {
	p := newPlot("Close distribution")
	if err := addLine(p, "close values", values, truthColor); err != nil {
		return err
	}
	return save(p, path)
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "day"
	p.Y.Label.Text = "closing price"
	p.Legend.Top = true
	p.Legend.Left = true

	grid := plotter.NewGrid()
	grid.Vertical.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	grid.Horizontal.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(grid)
	return p
}

func addLine(p *plot.Plot, label string, ys []float64, c color.Color) error {
	xys := make(plotter.XYs, len(ys))
	for i, y := range ys {
		xys[i] = plotter.XY{X: float64(i), Y: y}
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("plot %s: %w", label, err)
	}
	line.Color = c
	line.Width = vg.Points(1.2)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}

func save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}
