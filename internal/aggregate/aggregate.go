// Package aggregate groups result records and computes label rates with
// Wilson confidence intervals.
//
// Groups are reported in the order their first record appears in the input,
// so reports built from the same files always diff cleanly.
package aggregate

import (
	"fmt"

	"github.com/harrison/toolgap/internal/models"
	"github.com/harrison/toolgap/internal/stats"
)

// GroupFunc maps a record to its aggregation bucket
type GroupFunc func(models.ResultRecord) models.Group

// ByModel groups records by model only
func ByModel(r models.ResultRecord) models.Group {
	return models.Group{Model: r.Model}
}

// ByModelCondition groups records by model and condition
func ByModelCondition(r models.ResultRecord) models.Group {
	return models.Group{Model: r.Model, Condition: r.ConditionID}
}

// GroupFuncFor resolves a grouping name ("model" or "condition")
func GroupFuncFor(name string) (GroupFunc, error) {
	switch name {
	case "", "model":
		return ByModel, nil
	case "condition", "model_condition":
		return ByModelCondition, nil
	}
	return nil, fmt.Errorf("unknown grouping %q (want model or condition)", name)
}

// GroupStats holds the counts and per-label rates of one group
type GroupStats struct {
	Group  models.Group              `json:"group"`
	Counts models.LabelCounts        `json:"counts"`
	Rates  []models.RateWithInterval `json:"rates"` // One per label, in models.Labels order
}

// Rate returns the rate entry for a label
func (g *GroupStats) Rate(l models.Label) models.RateWithInterval {
	if i := l.Index(); i >= 0 && i < len(g.Rates) {
		return g.Rates[i]
	}
	return models.RateWithInterval{Label: l, Total: g.Counts.Total}
}

// Summary is the aggregation result of one run
type Summary struct {
	Groups []*GroupStats `json:"groups"`
	index  map[models.Group]int
}

// Aggregate counts labels per group and derives rates and intervals
func Aggregate(records []models.ResultRecord, groupBy GroupFunc) *Summary {
	if groupBy == nil {
		groupBy = ByModel
	}

	s := &Summary{
		Groups: make([]*GroupStats, 0),
		index:  make(map[models.Group]int),
	}

	for _, rec := range records {
		key := groupBy(rec)
		i, ok := s.index[key]
		if !ok {
			i = len(s.Groups)
			s.index[key] = i
			s.Groups = append(s.Groups, &GroupStats{Group: key, Counts: models.NewLabelCounts()})
		}
		s.Groups[i].Counts.Add(rec.Label)
	}

	for _, g := range s.Groups {
		g.Rates = RatesFor(g.Counts)
	}
	return s
}

// RatesFor computes one RateWithInterval per label. An empty LabelCounts
// yields entries with Defined=false.
func RatesFor(lc models.LabelCounts) []models.RateWithInterval {
	rates := make([]models.RateWithInterval, 0, models.NumLabels)
	for _, l := range models.Labels {
		// On error (empty group, inconsistent counts) r.Defined stays false
		r, _ := stats.Rate(l, lc.Count(l), lc.Total)
		rates = append(rates, r)
	}
	return rates
}

// Group returns the stats for a group key
func (s *Summary) Group(key models.Group) (*GroupStats, bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.Groups[i], true
}

// Models returns the distinct models in first-occurrence order
func (s *Summary) Models() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range s.Groups {
		if !seen[g.Group.Model] {
			seen[g.Group.Model] = true
			out = append(out, g.Group.Model)
		}
	}
	return out
}

// Filter returns a Summary restricted to the named models. An empty list
// returns the summary unchanged.
func (s *Summary) Filter(modelNames []string) *Summary {
	if len(modelNames) == 0 {
		return s
	}
	keep := make(map[string]bool, len(modelNames))
	for _, m := range modelNames {
		keep[m] = true
	}

	out := &Summary{Groups: make([]*GroupStats, 0), index: make(map[models.Group]int)}
	for _, g := range s.Groups {
		if keep[g.Group.Model] {
			out.index[g.Group] = len(out.Groups)
			out.Groups = append(out.Groups, g)
		}
	}
	return out
}

// ByModel folds condition-level groups into one group per model. A summary
// that is already per model is returned unchanged.
func (s *Summary) ByModel() *Summary {
	perCondition := false
	for _, g := range s.Groups {
		if g.Group.Condition != "" {
			perCondition = true
			break
		}
	}
	if !perCondition {
		return s
	}

	out := newSummary()
	for _, g := range s.Groups {
		out.add(models.Group{Model: g.Group.Model}, g.Counts)
	}
	return out
}

// Validate checks the LabelCounts invariant of every group
func (s *Summary) Validate() error {
	for _, g := range s.Groups {
		if err := g.Counts.Validate(); err != nil {
			return fmt.Errorf("group %s: %w", g.Group, err)
		}
	}
	return nil
}
