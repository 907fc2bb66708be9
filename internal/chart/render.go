// Package chart draws commute tables as weekday line charts.
package chart

import (
	"commute-forecast/internal/domain"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a table has no successful records to plot.
var ErrNoData = errors.New("chart: no successful records to plot")

const (
	width  = 2200
	height = 1000

	titleFontSize = 30
	nameFontSize  = 20
	tickFontSize  = 16

	tickRotation = 70
	lineWidth    = 2.2

	// Room for the legend, which sits outside the plot on the left.
	legendPadding = 260
)

// seaborn's "deep" palette, one color per weekday line.
var palette = []drawing.Color{
	drawing.ColorFromHex("4C72B0"),
	drawing.ColorFromHex("DD8452"),
	drawing.ColorFromHex("55A868"),
	drawing.ColorFromHex("C44E52"),
	drawing.ColorFromHex("8172B3"),
	drawing.ColorFromHex("937860"),
	drawing.ColorFromHex("DA8BC3"),
}

// Figure is a rendered-on-demand chart held in memory.
type Figure struct {
	Chart gochart.Chart
}

func (f *Figure) WritePNG(w io.Writer) error {
	if err := f.Chart.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

func (f *Figure) WriteSVG(w io.Writer) error {
	if err := f.Chart.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	return nil
}

// Render lays out duration in minutes against departure time of day, one
// line per weekday. Records without a successful lookup are left out.
func Render(table *domain.CommuteTable, title string) (*Figure, error) {
	if table == nil {
		return nil, ErrNoData
	}

	records := table.Successful()
	if len(records) == 0 {
		return nil, ErrNoData
	}

	type point struct {
		x, y float64
	}

	byDay := make(map[string][]point)
	labels := make(map[float64]string)
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)

	for _, r := range records {
		x := minuteOfDay(r)
		y := r.DurationInTrafficMinutes

		byDay[r.WeekDay] = append(byDay[r.WeekDay], point{x, y})
		labels[x] = r.TimeLabel

		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	series := make([]gochart.Series, 0, len(byDay))
	for i, day := range table.Weekdays() {
		pts := byDay[day]
		sort.Slice(pts, func(a, b int) bool { return pts[a].x < pts[b].x })

		xs := make([]float64, len(pts))
		ys := make([]float64, len(pts))
		for j, p := range pts {
			xs[j], ys[j] = p.x, p.y
		}

		color := palette[i%len(palette)]
		series = append(series, gochart.ContinuousSeries{
			Name:    day,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: color,
				StrokeWidth: lineWidth,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}

	// go-chart cannot draw a zero-width range.
	if minX == maxX {
		minX, maxX = minX-5, maxX+5
	}
	yPad := math.Max(1, (maxY-minY)*0.05)

	fig := &Figure{Chart: gochart.Chart{
		Title:      title,
		TitleStyle: gochart.Style{FontSize: titleFontSize},
		Width:      width,
		Height:     height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 60, Left: legendPadding, Right: 40, Bottom: 40},
		},
		Canvas: gochart.Style{FillColor: drawing.ColorFromHex("E5E5E5")},
		XAxis: gochart.XAxis{
			Name:      "Departure time",
			NameStyle: gochart.Style{FontSize: nameFontSize},
			Style:     gochart.Style{FontSize: tickFontSize, TextRotationDegrees: tickRotation},
			Range:     &gochart.ContinuousRange{Min: minX, Max: maxX},
			Ticks:     timeTicks(labels),
		},
		YAxis: gochart.YAxis{
			Name:      "Commute time (minutes)",
			NameStyle: gochart.Style{FontSize: nameFontSize},
			Style:     gochart.Style{FontSize: tickFontSize},
			Range:     &gochart.ContinuousRange{Min: math.Max(0, minY-yPad), Max: maxY + yPad},
		},
		Series: series,
	}}
	fig.Chart.Elements = []gochart.Renderable{gochart.LegendLeft(&fig.Chart, gochart.Style{FontSize: tickFontSize})}

	return fig, nil
}

func minuteOfDay(r domain.CommuteRecord) float64 {
	t := r.DepartAt
	return float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
}

// timeTicks puts one tick on every sampled departure time.
func timeTicks(labels map[float64]string) []gochart.Tick {
	xs := make([]float64, 0, len(labels))
	for x := range labels {
		xs = append(xs, x)
	}
	sort.Float64s(xs)

	ticks := make([]gochart.Tick, 0, len(xs))
	for _, x := range xs {
		ticks = append(ticks, gochart.Tick{Value: x, Label: labels[x]})
	}
	return ticks
}
