package chart

import (
	"bytes"
	"fmt"
	"sort"

	"f1consistencybot/pkg/helper"
	"f1consistencybot/pkg/model"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	tableLap  = "LAP"
	tableBest = "BEST"
)

// RenderTable lists the values of every series by lap, one column per competitor.
// A footer holds the best lap of each competitor when one was timed.
func RenderTable(spec model.ChartSpec) string {
	values := make([]map[int]float64, len(spec.Series))
	laps := map[int]bool{}
	header := table.Row{tableLap}
	for i, s := range spec.Series {
		header = append(header, s.CompetitorID)
		values[i] = map[int]float64{}
		for _, p := range s.Points {
			values[i][p.LapNumber] = p.Value
			laps[p.LapNumber] = true
		}
	}

	numbers := make([]int, 0, len(laps))
	for n := range laps {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var b bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	style := table.StyleRounded
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.AppendHeader(header)
	for _, n := range numbers {
		row := table.Row{fmt.Sprintf("%d", n)}
		for i := range spec.Series {
			v, ok := values[i][n]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, helper.FormatDeviation(v))
		}
		t.AppendRow(row)
	}

	footer := table.Row{tableBest}
	timed := false
	for _, s := range spec.Series {
		footer = append(footer, helper.SecondsToMinutes(s.BestLap))
		timed = timed || s.BestLap > 0
	}
	if timed {
		t.AppendFooter(footer)
	}
	t.Render()

	return b.String()
}
