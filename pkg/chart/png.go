// Package chart draws consistency chart specifications as PNG images and text tables.
package chart

import (
	"fmt"
	"io"
	"math"

	"f1consistencybot/pkg/model"

	"github.com/pkg/errors"
	gochart "github.com/wcharczuk/go-chart/v2"
)

const (
	Width  = 1024
	Height = 576
)

// ErrNothingToPlot is returned when no series has a defined value.
var ErrNothingToPlot = errors.New("no defined values to plot")

// RenderPNG draws one line per series. Undefined values are not drawn.
func RenderPNG(spec model.ChartSpec, w io.Writer) error {
	series := []gochart.Series{}
	minLap, maxLap := math.MaxInt, 0
	maxValue := 0.0

	for i, s := range spec.Series {
		xs := make([]float64, 0, len(s.Points))
		ys := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			if !p.Defined() {
				continue
			}
			xs = append(xs, float64(p.LapNumber))
			ys = append(ys, p.Value)
			minLap = min(minLap, p.LapNumber)
			maxLap = max(maxLap, p.LapNumber)
			maxValue = math.Max(maxValue, p.Value)
		}
		if len(xs) == 0 {
			continue
		}

		color := gochart.GetDefaultColor(i)
		series = append(series, gochart.ContinuousSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}
	if len(series) == 0 {
		return ErrNothingToPlot
	}

	xMin, xMax := float64(minLap), float64(maxLap)
	if xMin == xMax {
		xMin, xMax = xMin-1, xMax+1
	}
	yMax := maxValue * 1.1
	if yMax == 0 {
		yMax = 1
	}

	ch := gochart.Chart{
		Title:      spec.Title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:  spec.XLabel,
			Range: &gochart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		YAxis: gochart.YAxis{
			Name:  spec.YLabel,
			Range: &gochart.ContinuousRange{Min: 0, Max: yMax},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	return errors.Wrap(ch.Render(gochart.PNG, w), "rendering chart")
}
