package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func lineData(points []Point, pick func(Point) *float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		if v := pick(p); v != nil {
			data = append(data, opts.LineData{Value: *v})
		} else {
			// "-" leaves a gap in echarts
			data = append(data, opts.LineData{Value: "-"})
		}
	}
	return data
}

func newLine(title, subtitle, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Stature Session", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Scale: opts.Bool(true)}),
	)
	return line
}

// RenderHTML writes an interactive page with the height and weight series.
func RenderHTML(w io.Writer, t *Trace) error {
	points := t.Points()
	if len(points) == 0 {
		return ErrEmptyTrace
	}

	frames := make([]string, len(points))
	for i, p := range points {
		frames[i] = strconv.Itoa(p.Frame)
	}
	subtitle := fmt.Sprintf("session=%s frames=%d", t.SessionID, len(points))

	height := newLine("Smoothed Height", subtitle, "m")
	height.SetXAxis(frames).AddSeries("height", lineData(points, func(p Point) *float64 { return p.Height }))

	weight := newLine("Smoothed Weight", subtitle, "kg")
	weight.SetXAxis(frames).AddSeries("weight", lineData(points, func(p Point) *float64 { return p.Weight }))

	page := components.NewPage()
	page.PageTitle = "Stature Session " + t.SessionID
	page.AddCharts(height, weight)
	return page.Render(w)
}
