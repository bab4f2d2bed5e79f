package report

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/stature/internal/display"
)

var (
	heightColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	weightColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	thresholdColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

func series(points []Point, pick func(Point) *float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(points))
	for _, p := range points {
		if v := pick(p); v != nil {
			xys = append(xys, plotter.XY{X: float64(p.Frame), Y: *v})
		}
	}
	return xys
}

func addThreshold(p *plot.Plot, label string, y float64) {
	line := plotter.NewFunction(func(float64) float64 { return y })
	line.Color = thresholdColor
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
}

// WritePNG draws smoothed height above smoothed weight, both against frame
// index, and saves the image to path. The height panel shows the category
// boundaries as dashed lines.
func WritePNG(path string, t *Trace, th display.Thresholds) error {
	points := t.Points()
	heights := series(points, func(p Point) *float64 { return p.Height })
	if len(heights) == 0 {
		return ErrEmptyTrace
	}
	weights := series(points, func(p Point) *float64 { return p.Weight })

	pHeight := plot.New()
	pHeight.Title.Text = fmt.Sprintf("Session %s - Smoothed Height", t.SessionID)
	pHeight.X.Label.Text = "Frame"
	pHeight.Y.Label.Text = "Height (m)"

	heightLine, err := plotter.NewLine(heights)
	if err != nil {
		return err
	}
	heightLine.Color = heightColor
	heightLine.Width = vg.Points(1.5)
	pHeight.Add(heightLine)
	pHeight.Legend.Add("height", heightLine)
	if th.Tall > 0 {
		addThreshold(pHeight, display.LabelTall, th.Tall)
	}
	if th.Short > 0 {
		addThreshold(pHeight, display.LabelShort, th.Short)
	}

	pWeight := plot.New()
	pWeight.Title.Text = "Smoothed Weight"
	pWeight.X.Label.Text = "Frame"
	pWeight.Y.Label.Text = "Weight (kg)"
	if len(weights) > 0 {
		weightLine, err := plotter.NewLine(weights)
		if err != nil {
			return err
		}
		weightLine.Color = weightColor
		weightLine.Width = vg.Points(1.5)
		pWeight.Add(weightLine)
	}

	img := vgimg.New(10*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Points(10)}
	plots := [][]*plot.Plot{{pHeight}, {pWeight}}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
