package report

import (
	"fmt"
	"io"

	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/banshee-data/lapalign/internal/session"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteProgressHTML renders an interactive page with the reference loop and
// one progress chart per recording.
func WriteProgressHTML(w io.Writer, path *loop.ClosedPath, recs []*session.Recording) error {
	page := components.NewPage()
	page.AddCharts(pathChart(path))
	for _, rec := range recs {
		page.AddCharts(progressChart(rec))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func pathChart(path *loop.ClosedPath) *charts.Scatter {
	data := make([]opts.ScatterData, 0, path.Len())
	for i, v := range path.Points() {
		data = append(data, opts.ScatterData{Name: fmt.Sprintf("%d", i), Value: []interface{}{v.X, v.Y}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Reference loop", Subtitle: fmt.Sprintf("points=%d length=%.2f", path.Len(), path.TotalLength())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("reference", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}

func progressChart(rec *session.Recording) *charts.Scatter {
	series := make(map[int][]opts.ScatterData, len(rec.Laps))
	var flagged []opts.ScatterData
	for _, s := range rec.Samples {
		if s.Lap == 0 {
			continue
		}
		pt := opts.ScatterData{Value: []interface{}{s.Frame, s.Progress, string(s.Reason)}}
		series[s.Lap] = append(series[s.Lap], pt)
		if s.LowConfidence {
			flagged = append(flagged, pt)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    rec.Label,
			Subtitle: fmt.Sprintf("laps=%d completed=%d low_confidence=%d", len(rec.Laps), rec.CompletedLaps(), rec.LowConfidenceFrames()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Progress (%)", NameLocation: "middle", NameGap: 30, Min: 0, Max: 100}),
	)
	for _, lap := range rec.Laps {
		if pts := series[lap.Number]; len(pts) > 0 {
			scatter.AddSeries(fmt.Sprintf("Lap %d", lap.Number), pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
		}
	}
	if len(flagged) > 0 {
		scatter.AddSeries("Low confidence", flagged, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}
	return scatter
}
