package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/banshee-data/lapalign/internal/session"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNothingToPlot is returned when a recording has no frames inside a lap.
var ErrNothingToPlot = errors.New("nothing to plot")

var lowConfidenceColor = color.RGBA{R: 220, G: 40, B: 40, A: 255}

// WriteProgressPlot renders progress against frame index as a PNG, one line
// per lap, with low-confidence frames marked.
func WriteProgressPlot(w io.Writer, rec *session.Recording) error {
	laps := map[int]plotter.XYs{}
	var flagged plotter.XYs
	for _, s := range rec.Samples {
		if s.Lap == 0 {
			continue
		}
		laps[s.Lap] = append(laps[s.Lap], plotter.XY{X: float64(s.Frame), Y: s.Progress})
		if s.LowConfidence {
			flagged = append(flagged, plotter.XY{X: float64(s.Frame), Y: s.Progress})
		}
	}
	if len(laps) == 0 {
		return fmt.Errorf("recording %q: %w", rec.Label, ErrNothingToPlot)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Lap progress: %s", rec.Label)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Progress (%)"
	p.Add(plotter.NewGrid())

	colors := lapColors(len(rec.Laps))
	for i, lap := range rec.Laps {
		pts := laps[lap.Number]
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("lap %d line: %w", lap.Number, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Lap %d", lap.Number), line)
	}

	if len(flagged) > 0 {
		sc, err := plotter.NewScatter(flagged)
		if err != nil {
			return fmt.Errorf("low confidence scatter: %w", err)
		}
		sc.GlyphStyle.Color = lowConfidenceColor
		sc.GlyphStyle.Radius = vg.Points(2)
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		p.Add(sc)
		p.Legend.Add("Low confidence", sc)
	}

	p.Y.Min = 0
	p.Y.Max = 100
	p.Legend.Top = true
	p.Legend.Left = true

	return savePNG(w, p, 14*vg.Inch, 6*vg.Inch)
}

// WritePathPlot renders the reference loop as a PNG with the locked start
// point marked. A negative startIndex omits the marker.
func WritePathPlot(w io.Writer, path *loop.ClosedPath, startIndex int, title string) error {
	pts := make(plotter.XYs, 0, path.Len()+1)
	for _, v := range path.Points() {
		pts = append(pts, plotter.XY{X: v.X, Y: v.Y})
	}
	pts = append(pts, pts[0])

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("path line: %w", err)
	}
	line.Color = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("Reference (%d points)", path.Len()), line)

	if startIndex >= 0 && startIndex < path.Len() {
		start := path.Point(startIndex)
		sc, err := plotter.NewScatter(plotter.XYs{{X: start.X, Y: start.Y}})
		if err != nil {
			return fmt.Errorf("start marker: %w", err)
		}
		sc.GlyphStyle.Color = color.RGBA{R: 20, G: 160, B: 60, A: 255}
		sc.GlyphStyle.Radius = vg.Points(5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("Start (index %d)", startIndex), sc)
	}

	return savePNG(w, p, 8*vg.Inch, 8*vg.Inch)
}

func savePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}
