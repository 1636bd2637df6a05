package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/harrison/toolgap/internal/models"
)

// ErrStatsShape marks a stats file that matches neither known layout
var ErrStatsShape = errors.New("unrecognized stats file")

// Totals are the run-level call counters carried by stats files
type Totals struct {
	Responses int `json:"total_responses"` // Calls that returned a response
	Calls     int `json:"total_calls"`     // All calls, including failed ones
}

// StatsDocument is the in-memory form of a stats file: a by-model Summary
// plus run totals. Raw result files and stats files both reduce to it.
type StatsDocument struct {
	RunID   string
	Totals  Totals
	Summary *Summary

	// DeclaredN holds the n of legacy groups whose label counts do not sum
	// to it. Summary keeps the counts sum as the group total.
	DeclaredN map[models.Group]int
}

// declaredTotal returns the n the file declared for a group, or the counts
// total when it declared none
func (d *StatsDocument) declaredTotal(g *GroupStats) int {
	if n, ok := d.DeclaredN[g.Group]; ok {
		return n
	}
	return g.Counts.Total
}

// statsFile is the "_stats.json" layout
type statsFile struct {
	RunID          string                `json:"run_id,omitempty"`
	TotalResponses int                   `json:"total_responses"`
	TotalCalls     int                   `json:"total_calls"`
	ByModel        map[string]modelStats `json:"by_model"`
}

type modelStats struct {
	Total       int                    `json:"total"`
	Labels      map[string]int         `json:"labels"`
	Rates       map[string]*float64    `json:"rates"`
	CIsWilson95 map[string]*[2]float64 `json:"cis_wilson_95"`
}

// legacyStatsFile is the flat per-(model, domain) layout of earlier tooling
type legacyStatsFile struct {
	Model  string         `json:"model"`
	Domain string         `json:"domain"`
	N      *int           `json:"n"`
	Counts map[string]int `json:"counts"`
}

// NewStatsDocument derives the stats-file view from raw records
func NewStatsDocument(records []models.ResultRecord) *StatsDocument {
	return &StatsDocument{
		Totals:  TotalsFor(records),
		Summary: Aggregate(records, ByModel),
	}
}

// TotalsFor counts calls and successful responses
func TotalsFor(records []models.ResultRecord) Totals {
	t := Totals{Calls: len(records)}
	for _, rec := range records {
		if rec.Success {
			t.Responses++
		}
	}
	return t
}

// EncodeStatsFile serializes the document in the "_stats.json" layout.
// Rates and intervals of empty groups are written as null.
func EncodeStatsFile(doc *StatsDocument) ([]byte, error) {
	if doc == nil || doc.Summary == nil {
		return nil, errors.New("stats document cannot be nil")
	}

	out := statsFile{
		RunID:          doc.RunID,
		TotalResponses: doc.Totals.Responses,
		TotalCalls:     doc.Totals.Calls,
		ByModel:        make(map[string]modelStats),
	}

	for _, g := range doc.Summary.Groups {
		if g.Group.Condition != "" {
			return nil, fmt.Errorf("stats files are per model, got group %s", g.Group)
		}
		ms := modelStats{
			Total:       g.Counts.Total,
			Labels:      make(map[string]int, models.NumLabels),
			Rates:       make(map[string]*float64, models.NumLabels),
			CIsWilson95: make(map[string]*[2]float64, models.NumLabels),
		}
		for _, r := range g.Rates {
			key := string(r.Label)
			ms.Labels[key] = r.Count
			if r.Defined {
				rate := r.Rate
				ci := [2]float64{r.CILo, r.CIHi}
				ms.Rates[key] = &rate
				ms.CIsWilson95[key] = &ci
			} else {
				ms.Rates[key] = nil
				ms.CIsWilson95[key] = nil
			}
		}
		out.ByModel[g.Group.Model] = ms
	}

	return json.MarshalIndent(out, "", "  ")
}

// DecodeStatsFile parses either stats layout. Rates and intervals in the file
// are ignored and recomputed from the counts.
func DecodeStatsFile(data []byte) (*StatsDocument, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatsShape, err)
	}

	switch {
	case probe["by_model"] != nil:
		var sf statsFile
		if err := json.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStatsShape, err)
		}
		return decodeByModel(sf)
	case probe["counts"] != nil:
		var lf legacyStatsFile
		if err := json.Unmarshal(data, &lf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStatsShape, err)
		}
		return decodeLegacy(lf)
	}
	return nil, fmt.Errorf("%w: neither by_model nor counts present", ErrStatsShape)
}

// LoadStatsFile reads and decodes one stats file
func LoadStatsFile(path string) (*StatsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats file: %w", err)
	}
	doc, err := DecodeStatsFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func decodeByModel(sf statsFile) (*StatsDocument, error) {
	names := make([]string, 0, len(sf.ByModel))
	for name := range sf.ByModel {
		names = append(names, name)
	}
	sort.Strings(names)

	summary := newSummary()
	for _, name := range names {
		ms := sf.ByModel[name]
		lc, err := countsFromMap(ms.Labels, ms.Total)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		summary.add(models.Group{Model: name}, lc)
	}

	return &StatsDocument{
		RunID:   sf.RunID,
		Totals:  Totals{Responses: sf.TotalResponses, Calls: sf.TotalCalls},
		Summary: summary,
	}, nil
}

func decodeLegacy(lf legacyStatsFile) (*StatsDocument, error) {
	model := lf.Model
	if model == "" {
		model = "unknown"
	}
	domain := lf.Domain
	if domain == "" {
		domain = "unknown"
	}
	lc, err := countsFromMap(lf.Counts, 0)
	if err != nil {
		return nil, fmt.Errorf("model %s domain %s: %w", model, domain, err)
	}

	key := models.Group{Model: model, Condition: domain}
	summary := newSummary()
	summary.add(key, lc)
	doc := &StatsDocument{
		Totals:  Totals{Responses: lc.Total, Calls: lc.Total},
		Summary: summary,
	}

	if lf.N != nil {
		n := *lf.N
		if n < 0 {
			return nil, fmt.Errorf("%w: model %s domain %s: negative n %d", ErrStatsShape, model, domain, n)
		}
		doc.Totals = Totals{Responses: n, Calls: n}
		if n != lc.Total {
			doc.DeclaredN = map[models.Group]int{key: n}
		}
	}
	return doc, nil
}

// countsFromMap converts label-keyed counts. Unknown label keys fold into
// NULL. A zero total is taken from the sum of counts.
func countsFromMap(raw map[string]int, total int) (models.LabelCounts, error) {
	lc := models.NewLabelCounts()
	sum := 0
	for key, n := range raw {
		if n < 0 {
			return lc, fmt.Errorf("%w: negative count for %s", ErrStatsShape, key)
		}
		label, _ := models.ParseLabel(key)
		lc.Counts[label] += n
		sum += n
	}
	if total == 0 {
		total = sum
	}
	lc.Total = total
	if err := lc.Validate(); err != nil {
		return lc, fmt.Errorf("%w: %v", ErrStatsShape, err)
	}
	return lc, nil
}

func newSummary() *Summary {
	return &Summary{Groups: make([]*GroupStats, 0), index: make(map[models.Group]int)}
}

// add merges counts into a group, creating it on first use
func (s *Summary) add(key models.Group, lc models.LabelCounts) {
	i, ok := s.index[key]
	if !ok {
		i = len(s.Groups)
		s.index[key] = i
		s.Groups = append(s.Groups, &GroupStats{Group: key, Counts: models.NewLabelCounts()})
	}
	g := s.Groups[i]
	for _, l := range models.Labels {
		g.Counts.Counts[l] += lc.Count(l)
	}
	g.Counts.Total += lc.Total
	g.Rates = RatesFor(g.Counts)
}

// MergeDocuments sums several stats documents into one, e.g. one stats file
// per experiment
func MergeDocuments(docs ...*StatsDocument) *StatsDocument {
	merged := &StatsDocument{Summary: newSummary()}
	for _, d := range docs {
		if d == nil || d.Summary == nil {
			continue
		}
		merged.Totals.Calls += d.Totals.Calls
		merged.Totals.Responses += d.Totals.Responses
		for _, g := range d.Summary.Groups {
			merged.Summary.add(g.Group, g.Counts)
		}
	}

	// A group keeps a declared n if any input declared one for it
	for _, d := range docs {
		if d == nil || d.Summary == nil {
			continue
		}
		for key := range d.DeclaredN {
			if merged.DeclaredN == nil {
				merged.DeclaredN = make(map[models.Group]int)
			}
			merged.DeclaredN[key] = 0
		}
	}
	for key := range merged.DeclaredN {
		for _, d := range docs {
			if d == nil || d.Summary == nil {
				continue
			}
			if g, ok := d.Summary.Group(key); ok {
				merged.DeclaredN[key] += d.declaredTotal(g)
			}
		}
	}
	return merged
}
