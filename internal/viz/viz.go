package viz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/thyrook/pacer/internal/schedule"
)

// Options controls schedule rendering. Zero values fall back to defaults.
type Options struct {
	Title  string
	Group  int
	Width  float64 // inches
	Height float64 // inches
}

var (
	curveColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bandColor   = color.RGBA{R: 255, G: 200, B: 80, A: 70}
	markerColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// RenderSchedule draws the full learning-rate curve for one parameter
// group, shading plateau regions and marking the end of warmup, and saves
// it to path. The image format follows the file extension.
func RenderSchedule(s *schedule.Scheduler, path string, opts Options) error {
	if s == nil {
		return fmt.Errorf("scheduler is nil")
	}
	if opts.Group < 0 || opts.Group >= s.NumGroups() {
		return fmt.Errorf("group index %d out of range [0, %d)", opts.Group, s.NumGroups())
	}
	if opts.Title == "" {
		opts.Title = "Learning rate schedule"
	}
	if opts.Width <= 0 {
		opts.Width = 12
	}
	if opts.Height <= 0 {
		opts.Height = 6
	}

	total := s.TotalSteps()
	pts := make(plotter.XYs, total)
	maxLR := 0.0
	for step := 0; step < total; step++ {
		lr, err := s.GetLR(step, opts.Group)
		if err != nil {
			return fmt.Errorf("failed to evaluate step %d: %w", step, err)
		}
		pts[step].X = float64(step)
		pts[step].Y = lr
		if lr > maxLR {
			maxLR = lr
		}
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "step"
	p.Y.Label.Text = "learning rate"
	p.X.Min = 0
	p.X.Max = float64(total - 1)
	p.Y.Min = 0
	p.Y.Max = maxLR * 1.08
	if p.Y.Max <= 0 {
		p.Y.Max = 1
	}

	p.Add(plotter.NewGrid())

	// Plateau bands, in absolute step coordinates
	warmup := s.WarmupSteps()
	for _, pl := range s.GetPlateaus() {
		if pl.End <= pl.Start {
			continue
		}
		band := plotter.XYs{
			{X: float64(warmup + pl.Start), Y: 0},
			{X: float64(warmup + pl.Start), Y: p.Y.Max},
			{X: float64(warmup + pl.End), Y: p.Y.Max},
			{X: float64(warmup + pl.End), Y: 0},
		}
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return fmt.Errorf("failed to build plateau band: %w", err)
		}
		poly.Color = bandColor
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	// End-of-warmup marker
	if warmup > 0 {
		marker, err := plotter.NewLine(plotter.XYs{
			{X: float64(warmup), Y: 0},
			{X: float64(warmup), Y: p.Y.Max},
		})
		if err != nil {
			return fmt.Errorf("failed to build warmup marker: %w", err)
		}
		marker.LineStyle.Color = markerColor
		marker.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(marker)
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build curve: %w", err)
	}
	line.LineStyle.Color = curveColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("group %d", opts.Group), line)
	p.Legend.Top = true

	if err := p.Save(vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}

	return nil
}

// RenderSeries draws a single line of y values against x values and saves
// it to path. It is used for loss curves and other per-step series.
func RenderSeries(xs, ys []float64, title, xLabel, yLabel, path string) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("series length mismatch: %d x values, %d y values", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return fmt.Errorf("series is empty")
	}

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build curve: %w", err)
	}
	line.LineStyle.Color = curveColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}

	return nil
}
