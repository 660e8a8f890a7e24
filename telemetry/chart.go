package telemetry

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/pthm-cable/contagion/epidemic"
)

// WriteChart plots the stage totals of series over time and saves the
// image to path. The format follows the file extension.
func WriteChart(series *Series, title, path string) error {
	totals := series.Totals()
	if len(totals) == 0 {
		return fmt.Errorf("write chart: no measurements")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Agents"
	p.Legend.Top = true

	var lines []any
	for _, st := range epidemic.Stages() {
		pts := make(plotter.XYs, len(totals))
		for i, rec := range totals {
			pts[i].X = float64(rec.Tick())
			pts[i].Y = float64(rec[st])
		}
		lines = append(lines, st.String(), pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("add chart lines: %w", err)
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}
