// Package chart renders the dashboard views as image files with gonum/plot.
// The output format follows the file extension (.png, .svg, .pdf).
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"yashubustudio/mbtidash/mbti"
)

// ErrNoData is returned when a view has nothing to draw.
var ErrNoData = errors.New("chart: no data")

var (
	barColor       = color.RGBA{R: 66, G: 133, B: 244, A: 255}
	referenceColor = color.RGBA{R: 219, G: 68, B: 55, A: 255}
	targetColor    = color.RGBA{R: 15, G: 157, B: 88, A: 255}
)

// Size is the canvas size of a saved chart.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultSize fits sixteen labelled bars.
var DefaultSize = Size{Width: 10 * vg.Inch, Height: 5 * vg.Inch}

// AverageChart draws the global average view as a bar chart.
func AverageChart(path string, avgs []mbti.TypeAverage, size Size) error {
	if len(avgs) == 0 {
		return ErrNoData
	}
	values := make(plotter.Values, len(avgs))
	labels := make([]string, len(avgs))
	for i, a := range avgs {
		values[i] = a.Average
		labels[i] = string(a.Type)
	}
	p := newPlot("Global average by type", "Type", "Average (%)")
	if err := addBars(p, values, barColor); err != nil {
		return err
	}
	p.NominalX(labels...)
	return save(p, path, size)
}

// TopNChart draws a per-type country ranking as a bar chart.
func TopNChart(path string, code mbti.TypeCode, ranked []mbti.RankedCountry, size Size) error {
	if len(ranked) == 0 {
		return ErrNoData
	}
	values := make(plotter.Values, len(ranked))
	labels := make([]string, len(ranked))
	for i, r := range ranked {
		values[i] = r.Value
		labels[i] = fmt.Sprintf("%d. %s", r.Rank, r.Country)
	}
	p := newPlot(fmt.Sprintf("Top %d countries for %s", len(ranked), code), "Country", "Share (%)")
	if err := addBars(p, values, barColor); err != nil {
		return err
	}
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = -1
	return save(p, path, size)
}

// ComparisonChart draws the reference and target countries as two lines
// over the compared types.
func ComparisonChart(path string, cmp *mbti.Comparison, size Size) error {
	if cmp == nil || len(cmp.Entries) == 0 {
		return ErrNoData
	}
	ref := make(plotter.XYs, len(cmp.Entries))
	tgt := make(plotter.XYs, len(cmp.Entries))
	labels := make([]string, len(cmp.Entries))
	for i, e := range cmp.Entries {
		ref[i].X, ref[i].Y = float64(i), e.Reference
		tgt[i].X, tgt[i].Y = float64(i), e.Target
		labels[i] = string(e.Type)
	}
	p := newPlot(fmt.Sprintf("%s vs %s", cmp.Reference, cmp.Target), "Type", "Share (%)")
	if err := addLine(p, cmp.Reference, ref, referenceColor); err != nil {
		return err
	}
	if err := addLine(p, cmp.Target, tgt, targetColor); err != nil {
		return err
	}
	p.Legend.Top = true
	p.NominalX(labels...)
	return save(p, path, size)
}

// WriteAll renders every view of a snapshot into dir and returns the paths
// written. Views without data are skipped.
func WriteAll(dir string, snap *mbti.Snapshot, size Size) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}
	var written []string
	write := func(name string, render func(string) error) error {
		path := filepath.Join(dir, name)
		if err := render(path); err != nil {
			if errors.Is(err, ErrNoData) {
				return nil
			}
			return fmt.Errorf("render %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}
	if err := write("average.png", func(p string) error { return AverageChart(p, snap.Averages, size) }); err != nil {
		return written, err
	}
	if snap.SelectedType != "" {
		name := fmt.Sprintf("top_%s.png", strings.ToLower(string(snap.SelectedType)))
		if err := write(name, func(p string) error { return TopNChart(p, snap.SelectedType, snap.Top, size) }); err != nil {
			return written, err
		}
	}
	if err := write("compare.png", func(p string) error { return ComparisonChart(p, snap.Comparison, size) }); err != nil {
		return written, err
	}
	return written, nil
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Y.Min = 0
	p.Add(plotter.NewGrid())
	return p
}

func addBars(p *plot.Plot, values plotter.Values, c color.Color) error {
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = c
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	return nil
}

func addLine(p *plot.Plot, name string, xys plotter.XYs, c color.Color) error {
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return fmt.Errorf("line %s: %w", name, err)
	}
	line.Color = c
	line.Width = vg.Points(2)
	points.GlyphStyle.Color = c
	p.Add(line, points)
	p.Legend.Add(name, line, points)
	return nil
}

func save(p *plot.Plot, path string, size Size) error {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	if err := p.Save(size.Width, size.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}
