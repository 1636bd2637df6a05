// Package transition builds per-model turn-to-turn label transition matrices
// from multi-turn persistence runs.
//
// Records are grouped into sequences by (model, sequence key) and ordered by
// turn index. Each pair of adjacent turns adds one transition to the owning
// model's matrix. How a missing turn is treated is set by GapPolicy.
package transition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/toolgap/internal/logger"
	"github.com/harrison/toolgap/internal/models"
)

// GapPolicy decides what happens across a missing turn index
type GapPolicy string

const (
	// GapSkip counts no transition across a gap. Contiguous runs on either
	// side of the gap still count.
	GapSkip GapPolicy = "skip"
	// GapBridge treats the next present turn as adjacent
	GapBridge GapPolicy = "bridge"
)

// DefaultGapPolicy is used when no policy is configured
const DefaultGapPolicy = GapSkip

// ParseGapPolicy converts a configuration value into a GapPolicy.
// An empty value selects DefaultGapPolicy.
func ParseGapPolicy(s string) (GapPolicy, error) {
	switch GapPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultGapPolicy, nil
	case GapSkip:
		return GapSkip, nil
	case GapBridge:
		return GapBridge, nil
	}
	return "", fmt.Errorf("invalid gap policy %q (must be %s or %s)", s, GapSkip, GapBridge)
}

// AnomalyKind classifies an ordering problem inside a sequence
type AnomalyKind string

const (
	AnomalyGap       AnomalyKind = "gap"
	AnomalyDuplicate AnomalyKind = "duplicate"
)

// Anomaly is an ordering problem found in one sequence. For a gap, From and
// To are the turn indices on either side of it. For a duplicate both equal
// the repeated index.
type Anomaly struct {
	Kind        AnomalyKind
	Model       string
	SequenceKey string
	From        int
	To          int
}

func (a Anomaly) String() string {
	if a.Kind == AnomalyDuplicate {
		return fmt.Sprintf("model %s sequence %s: duplicate turn %d", a.Model, a.SequenceKey, a.From)
	}
	return fmt.Sprintf("model %s sequence %s: turn gap %d -> %d", a.Model, a.SequenceKey, a.From, a.To)
}

// Result holds the matrices built from one record set
type Result struct {
	Policy    GapPolicy
	Models    []string // First-occurrence order
	Matrices  map[string]*Matrix
	Sequences map[string]int // Sequences seen per model, including single-turn ones
	Anomalies []Anomaly
}

// Matrix returns the matrix for model, or nil if the model was never seen
func (r *Result) Matrix(model string) *Matrix {
	return r.Matrices[model]
}

// Builder turns flat records into transition matrices
type Builder struct {
	policy GapPolicy
	log    logger.Logger
}

// NewBuilder creates a Builder. A nil logger discards anomaly warnings.
func NewBuilder(policy GapPolicy, log logger.Logger) *Builder {
	if policy == "" {
		policy = DefaultGapPolicy
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Builder{policy: policy, log: log}
}

// Policy returns the gap policy in effect
func (b *Builder) Policy() GapPolicy {
	return b.policy
}

type sequenceID struct {
	model string
	key   string
}

// Build groups records into sequences and counts adjacent-turn transitions.
// The input is not modified.
func (b *Builder) Build(records []models.ResultRecord) *Result {
	result := &Result{
		Policy:    b.policy,
		Models:    make([]string, 0),
		Matrices:  make(map[string]*Matrix),
		Sequences: make(map[string]int),
	}

	var order []sequenceID
	sequences := make(map[sequenceID][]models.ResultRecord)
	for _, rec := range records {
		if _, ok := result.Matrices[rec.Model]; !ok {
			result.Models = append(result.Models, rec.Model)
			result.Matrices[rec.Model] = NewMatrix(rec.Model)
		}
		id := sequenceID{model: rec.Model, key: rec.SequenceKey}
		if _, ok := sequences[id]; !ok {
			order = append(order, id)
			result.Sequences[rec.Model]++
		}
		sequences[id] = append(sequences[id], rec)
	}

	for _, id := range order {
		b.addSequence(result, id, sequences[id])
	}

	b.log.LogDebug(fmt.Sprintf("built transition matrices for %d models from %d sequences (gap policy %s)",
		len(result.Models), len(order), b.policy))
	return result
}

func (b *Builder) addSequence(result *Result, id sequenceID, turns []models.ResultRecord) {
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].TurnIndex < turns[j].TurnIndex
	})

	b.log.LogTrace(fmt.Sprintf("model %s sequence %s: turns %d..%d (%d records)",
		id.model, id.key, turns[0].TurnIndex, turns[len(turns)-1].TurnIndex, len(turns)))

	m := result.Matrices[id.model]
	for i := 1; i < len(turns); i++ {
		prev, cur := turns[i-1], turns[i]

		if cur.TurnIndex == prev.TurnIndex {
			b.report(result, Anomaly{Kind: AnomalyDuplicate, Model: id.model, SequenceKey: id.key,
				From: cur.TurnIndex, To: cur.TurnIndex})
			// Keep comparing against the first record at this index
			turns[i] = prev
			continue
		}

		if cur.TurnIndex != prev.TurnIndex+1 {
			b.report(result, Anomaly{Kind: AnomalyGap, Model: id.model, SequenceKey: id.key,
				From: prev.TurnIndex, To: cur.TurnIndex})
			if b.policy == GapSkip {
				continue
			}
		}

		m.Add(labelOf(prev), labelOf(cur))
	}
}

func (b *Builder) report(result *Result, a Anomaly) {
	result.Anomalies = append(result.Anomalies, a)
	b.log.LogWarn(a.String())
}

// labelOf maps unknown labels to NULL, matching how they are counted
func labelOf(rec models.ResultRecord) models.Label {
	if rec.Label.Valid() {
		return rec.Label
	}
	return models.LabelNull
}
