// Package render draws the mission table as PNG images: a bubble map of
// Berlin for one year and a bar chart of the yearly totals.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoYears is returned when the table has no year columns to draw.
var ErrNoYears = errors.New("table has no years")

// Image sizes.
const (
	MapWidth    = 8 * vg.Inch
	MapHeight   = 6.5 * vg.Inch
	ChartWidth  = 8 * vg.Inch
	ChartHeight = 6.5 * vg.Inch
)

// maxBubble is the radius of the district with the largest count of any year,
// so bubble sizes compare across years.
const maxBubble = 28 * vg.Millimeter

// Colors.
var (
	bubbleColor  = color.NRGBA{R: 255, A: 128}                 // red, half transparent
	latestColor  = color.NRGBA{R: 255, G: 165, A: 128}         // orange, half transparent
	labelColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 128} // white, half transparent
	mapBG        = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	barColor     = color.NRGBA{R: 173, G: 216, B: 230, A: 255} // lightblue
	barHighlight = color.NRGBA{R: 255, G: 165, A: 255}         // orange
)

// ChartUnit is the divisor applied to the yearly totals on the bar chart.
const ChartUnit = 100_000

// Map builds the bubble map for year: one circle per located district with a
// radius proportional to its count. The latest year is drawn in orange.
func Map(table *domain.MergedTable, year int) (*plot.Plot, error) {
	snapshot, err := table.Snapshot(year)
	if err != nil {
		return nil, err
	}
	latest, _ := table.LatestYear()

	p := plot.New()
	p.Title.Text = "Berlin Feuerwehr missions " + strconv.Itoa(year)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.X.Min, p.X.Max = minLon, maxLon
	p.Y.Min, p.Y.Max = minLat, maxLat
	p.BackgroundColor = mapBG

	if len(snapshot) > 0 {
		bubbles, err := bubbleLayer(snapshot, table.MaxMissions(), year == latest)
		if err != nil {
			return nil, err
		}
		p.Add(bubbles)
	}

	labels, err := bezirkLabels()
	if err != nil {
		return nil, err
	}
	p.Add(labels)
	return p, nil
}

func bubbleLayer(snapshot []domain.DistrictValue, maxMissions int, latest bool) (*plotter.Scatter, error) {
	points := make(plotter.XYs, len(snapshot))
	for i, d := range snapshot {
		points[i].X = d.Location.Lon
		points[i].Y = d.Location.Lat
	}
	s, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("bubble layer: %w", err)
	}

	fill := color.Color(bubbleColor)
	if latest {
		fill = latestColor
	}
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  fill,
			Radius: bubbleRadius(snapshot[i].Missions, maxMissions),
			Shape:  draw.CircleGlyph{},
		}
	}
	return s, nil
}

// bubbleRadius scales count linearly against the table maximum.
func bubbleRadius(count, maxMissions int) vg.Length {
	if count <= 0 || maxMissions <= 0 {
		return 0
	}
	return maxBubble * vg.Length(float64(count)/float64(maxMissions))
}

func bezirkLabels() (*plotter.Labels, error) {
	xys := make(plotter.XYs, len(Bezirke))
	names := make([]string, len(Bezirke))
	for i, b := range Bezirke {
		xys[i] = plotter.XY{X: b.Position.Lon, Y: b.Position.Lat}
		names[i] = b.Label
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
	if err != nil {
		return nil, fmt.Errorf("bezirk labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = labelColor
		labels.TextStyle[i].Font.Size = vg.Points(7)
	}
	return labels, nil
}

// BarChart builds the chart of yearly totals in units of ChartUnit, with
// the latest year highlighted.
func BarChart(table *domain.MergedTable) (*plot.Plot, error) {
	totals := table.YearTotals()
	if len(totals) == 0 {
		return nil, ErrNoYears
	}

	p := plot.New()
	p.Title.Text = "Missions Berlin total in 100 Tsd."
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Min = 0

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)

	layers, err := barLayers(totals)
	if err != nil {
		return nil, err
	}
	for _, bars := range layers {
		p.Add(bars)
	}

	names := make([]string, len(totals))
	for i, t := range totals {
		names[i] = strconv.Itoa(t.Year)
	}
	p.NominalX(names...)
	return p, nil
}

// barLayers splits the totals into a regular and a highlighted layer at the
// same positions; each layer holds zero where the other one draws.
func barLayers(totals []domain.YearTotal) ([]*plotter.BarChart, error) {
	regular := make(plotter.Values, len(totals))
	highlight := make(plotter.Values, len(totals))
	for i, t := range totals {
		v := float64(t.Missions) / ChartUnit
		if i == len(totals)-1 {
			highlight[i] = v
		} else {
			regular[i] = v
		}
	}

	width := vg.Points(24)
	out := make([]*plotter.BarChart, 0, 2)
	for _, layer := range []struct {
		values plotter.Values
		fill   color.Color
	}{
		{regular, barColor},
		{highlight, barHighlight},
	} {
		bars, err := plotter.NewBarChart(layer.values, width)
		if err != nil {
			return nil, fmt.Errorf("bar chart: %w", err)
		}
		bars.Color = layer.fill
		bars.LineStyle.Width = vg.Length(0)
		out = append(out, bars)
	}
	return out, nil
}

// MapPNG writes the bubble map for year as PNG.
func MapPNG(w io.Writer, table *domain.MergedTable, year int) error {
	p, err := Map(table, year)
	if err != nil {
		return err
	}
	return writePNG(w, p, MapWidth, MapHeight)
}

// BarChartPNG writes the yearly totals chart as PNG.
func BarChartPNG(w io.Writer, table *domain.MergedTable) error {
	p, err := BarChart(table)
	if err != nil {
		return err
	}
	return writePNG(w, p, ChartWidth, ChartHeight)
}

func writePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("create png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
