package display

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/harrison/toolgap/internal/aggregate"
	"github.com/harrison/toolgap/internal/models"
	"github.com/harrison/toolgap/internal/report"
	"github.com/harrison/toolgap/internal/transition"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

// rightAligned right-aligns columns from..to (1-based, inclusive)
func rightAligned(from, to int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, 0, to-from+1)
	for n := from; n <= to; n++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return cfgs
}

// RenderRates prints one row per group with every label's rate and interval
func RenderRates(w io.Writer, s *aggregate.Summary) {
	if s == nil || len(s.Groups) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	t := newTable()
	header := table.Row{"Model", "Condition", "n"}
	for _, l := range models.Labels {
		header = append(header, l.Title())
	}
	t.AppendHeader(header)

	for _, g := range s.Groups {
		condition := g.Group.Condition
		if condition == "" {
			condition = report.AllConditions
		}
		row := table.Row{g.Group.Model, condition, g.Counts.Total}
		for _, r := range g.Rates {
			row = append(row, report.FormatRate(r))
		}
		t.AppendRow(row)
	}
	t.SetColumnConfigs(rightAligned(3, 3+models.NumLabels))

	fmt.Fprintln(w, t.Render())
}

// RenderTransitions prints one probability matrix per model
func RenderTransitions(w io.Writer, res *transition.Result) {
	if res == nil || len(res.Models) == 0 {
		fmt.Fprintln(w, "No sequences.")
		return
	}

	for _, model := range res.Models {
		m := res.Matrix(model)

		t := newTable()
		t.SetTitle(fmt.Sprintf("%s (%d sequences, %d transitions)", model, res.Sequences[model], m.Total()))
		header := table.Row{"From \\ To"}
		for _, l := range models.Labels {
			header = append(header, l.Title())
		}
		header = append(header, "n")
		t.AppendHeader(header)

		for _, row := range m.Probabilities() {
			r := table.Row{row.From.Title()}
			for _, p := range row.P {
				if row.Defined {
					r = append(r, fmt.Sprintf("%.3f", p))
				} else {
					r = append(r, "n/a")
				}
			}
			r = append(r, row.Total)
			t.AppendRow(r)
		}
		t.SetColumnConfigs(rightAligned(2, 2+models.NumLabels))

		fmt.Fprintln(w, t.Render())
	}

	if n := len(res.Anomalies); n > 0 {
		fmt.Fprintf(w, "%d turn ordering anomalies (gap policy: %s)\n", n, res.Policy)
	}
}
