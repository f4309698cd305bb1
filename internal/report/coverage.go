package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/gridbot/internal/explore"
)

// CoverageChart renders the explored and moved-through series of a run
// as a standalone HTML page.
func CoverageChart(w io.Writer, sum explore.RunSummary) error {
	ticks := make([]int, len(sum.Series))
	explored := make([]opts.LineData, len(sum.Series))
	covered := make([]opts.LineData, len(sum.Series))
	for i, pt := range sum.Series {
		ticks[i] = pt.Tick
		explored[i] = opts.LineData{Value: round2(pt.Explored)}
		covered[i] = opts.LineData{Value: round2(pt.Covered)}
	}

	subtitle := fmt.Sprintf("%s: %s after %d ticks", sum.SessionID, sum.Reason, sum.Ticks)
	if !sum.Started.IsZero() {
		subtitle += ", started " + sum.Started.UTC().Format(time.RFC3339)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gridbot coverage", Width: "100%", Height: "540px"}),
		charts.WithTitleOpts(opts.Title{Title: "Exploration progress", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "% of grid", Min: 0, Max: 100}),
	)
	line.SetXAxis(ticks).
		AddSeries("explored", explored).
		AddSeries("moved through", covered)

	page := components.NewPage()
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render coverage chart: %w", err)
	}
	return nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
