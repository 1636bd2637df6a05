package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/harrison/toolgap/internal/aggregate"
	"github.com/harrison/toolgap/internal/models"
	"github.com/harrison/toolgap/internal/transition"
)

// Column headers
var (
	LabelCSVHeader      = []string{"model", "condition", "label", "count", "total", "percentage", "ci_lo", "ci_hi"}
	TransitionCSVHeader = []string{"model", "from_label", "to_label", "count", "probability"}
)

// WideCSVHeader returns model,condition,n followed by count_<LABEL> and
// pct_<LABEL> columns in canonical label order. This is the per-model table
// the figure-1 plot reads.
func WideCSVHeader() []string {
	header := []string{"model", "condition", "n"}
	for _, l := range models.Labels {
		header = append(header, "count_"+string(l))
	}
	for _, l := range models.Labels {
		header = append(header, "pct_"+string(l))
	}
	return header
}

// WriteLabelCSV writes one row per (group, label). Percentage and interval
// cells are empty for empty groups.
func WriteLabelCSV(w io.Writer, s *aggregate.Summary) error {
	if s == nil {
		return fmt.Errorf("no label rates to write")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(LabelCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, g := range s.Groups {
		for _, r := range g.Rates {
			row := []string{
				g.Group.Model,
				conditionCell(g.Group),
				string(r.Label),
				strconv.Itoa(r.Count),
				strconv.Itoa(r.Total),
				"", "", "",
			}
			if r.Defined {
				row[5] = formatFloat(r.Percentage(), 4)
				row[6] = formatFloat(r.CILo, 6)
				row[7] = formatFloat(r.CIHi, 6)
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteWideCSV writes one row per group. pct cells are fractions in [0, 1],
// empty for an empty group.
func WriteWideCSV(w io.Writer, s *aggregate.Summary) error {
	if s == nil {
		return fmt.Errorf("no label rates to write")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(WideCSVHeader()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, g := range s.Groups {
		row := []string{g.Group.Model, conditionCell(g.Group), strconv.Itoa(g.Counts.Total)}
		for _, l := range models.Labels {
			row = append(row, strconv.Itoa(g.Counts.Count(l)))
		}
		for _, l := range models.Labels {
			r := g.Rate(l)
			cell := ""
			if r.Defined {
				cell = formatFloat(r.Rate, 6)
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTransitionCSV writes one row per (model, from, to) in model order.
// Probability is empty for from-labels with no outgoing transitions.
func WriteTransitionCSV(w io.Writer, res *transition.Result) error {
	if res == nil {
		return fmt.Errorf("no transition matrices to write")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(TransitionCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, model := range res.Models {
		m := res.Matrix(model)
		for i, row := range m.Probabilities() {
			for j, to := range models.Labels {
				p := ""
				if row.Defined {
					p = formatFloat(row.P[j], 6)
				}
				record := []string{model, string(row.From), string(to), strconv.Itoa(m.Counts[i][j]), p}
				if err := cw.Write(record); err != nil {
					return fmt.Errorf("write csv row: %w", err)
				}
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func conditionCell(g models.Group) string {
	if g.Condition == "" {
		return AllConditions
	}
	return g.Condition
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
