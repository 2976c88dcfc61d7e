package export

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kamal-hamza/lima-cli/internal/core/services"
)

// maxChartTags keeps the tag chart readable
const maxChartTags = 20

// WriteStatsPage renders the statistics as a standalone HTML page
func WriteStatsPage(w io.Writer, stats *services.LibraryStats) error {
	page := components.NewPage()
	page.AddCharts(activityChart(stats), tagChart(stats))
	if stats.IncludeAssets {
		page.AddCharts(kindChart(stats))
	}
	return page.Render(w)
}

func activityChart(stats *services.LibraryStats) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Activity", Subtitle: "Projects by month of last update"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, len(stats.Activity))
	data := make([]opts.BarData, len(stats.Activity))
	for i, c := range stats.Activity {
		labels[i] = c.Label
		data[i] = opts.BarData{Value: c.Value}
	}
	bar.SetXAxis(labels).AddSeries("Projects", data)
	return bar
}

func tagChart(stats *services.LibraryStats) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Tags", Subtitle: "Projects per tag"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	tags := stats.Tags
	if len(tags) > maxChartTags {
		tags = tags[:maxChartTags]
	}
	labels := make([]string, len(tags))
	data := make([]opts.BarData, len(tags))
	for i, c := range tags {
		labels[i] = c.Label
		data[i] = opts.BarData{Value: c.Value}
	}
	bar.SetXAxis(labels).AddSeries("Projects", data)
	return bar
}

func kindChart(stats *services.LibraryStats) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Assets", Subtitle: "Files by kind"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	data := make([]opts.PieData, len(stats.AssetsByKind))
	for i, c := range stats.AssetsByKind {
		data[i] = opts.PieData{Name: c.Label, Value: c.Value}
	}
	pie.AddSeries("Assets", data)
	return pie
}
