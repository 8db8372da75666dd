package report

import (
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var DefaultPlotKeys = []string{
	"predictor/loss",
	"predictor/mse",
	"test/predictor/loss",
	"train/predictor/loss",
	"discriminator/accuracy",
	"discriminator/fake",
	"discriminator/real",
}

// PlotReport draws the selected log keys against iteration into a PNG.
type PlotReport struct {
	keys   []string
	path   string
	points map[string]plotter.XYs
}

func NewPlotReport(outDir string, keys []string) *PlotReport {
	return &PlotReport{
		keys:   keys,
		path:   filepath.Join(outDir, "loss.png"),
		points: make(map[string]plotter.XYs),
	}
}

func (r *PlotReport) Path() string { return r.path }

// Add records the entry's values. Missing and non-finite values are skipped.
func (r *PlotReport) Add(e Entry) {
	var x = float64(e.Iteration())
	for _, key := range r.keys {
		var y, ok = e[key]
		if !ok || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		r.points[key] = append(r.points[key], plotter.XY{X: x, Y: y})
	}
}

func (r *PlotReport) Save() error {
	var lines []interface{}
	for _, key := range r.keys {
		if len(r.points[key]) != 0 {
			lines = append(lines, key, r.points[key])
		}
	}
	if len(lines) == 0 {
		return nil
	}
	var p = plot.New()
	p.X.Label.Text = "iteration"
	p.Legend.Top = true
	var err = plotutil.AddLines(p, lines...)
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, r.path)
}
