package transition

import (
	"github.com/harrison/toolgap/internal/models"
)

// Matrix holds turn-to-turn label transition counts for one model.
// Counts[i][j] is the number of times label i at turn n was followed by
// label j at the next turn, indexed by position in models.Labels.
type Matrix struct {
	Model  string
	Counts [models.NumLabels][models.NumLabels]int
}

// Row is one normalized row of a Matrix. P is meaningful only when Defined.
type Row struct {
	From    models.Label
	Total   int
	Defined bool
	P       [models.NumLabels]float64
}

// NewMatrix returns an empty matrix for model
func NewMatrix(model string) *Matrix {
	return &Matrix{Model: model}
}

// Add records one transition. It reports false if either label is unknown.
func (m *Matrix) Add(from, to models.Label) bool {
	i, j := from.Index(), to.Index()
	if i < 0 || j < 0 {
		return false
	}
	m.Counts[i][j]++
	return true
}

// Count returns the number of from -> to transitions
func (m *Matrix) Count(from, to models.Label) int {
	i, j := from.Index(), to.Index()
	if i < 0 || j < 0 {
		return 0
	}
	return m.Counts[i][j]
}

// RowTotal returns the number of transitions leaving from
func (m *Matrix) RowTotal(from models.Label) int {
	i := from.Index()
	if i < 0 {
		return 0
	}
	total := 0
	for _, n := range m.Counts[i] {
		total += n
	}
	return total
}

// Total returns the number of transitions in the matrix
func (m *Matrix) Total() int {
	total := 0
	for _, l := range models.Labels {
		total += m.RowTotal(l)
	}
	return total
}

// Probabilities row-normalizes the counts. Rows with no outgoing transitions
// are returned with Defined=false and zero P, never NaN.
func (m *Matrix) Probabilities() []Row {
	rows := make([]Row, models.NumLabels)
	for i, from := range models.Labels {
		row := Row{From: from, Total: m.RowTotal(from)}
		if row.Total > 0 {
			row.Defined = true
			for j, n := range m.Counts[i] {
				row.P[j] = float64(n) / float64(row.Total)
			}
		}
		rows[i] = row
	}
	return rows
}

// Probability returns P(to | from) and whether the from row has any data
func (m *Matrix) Probability(from, to models.Label) (float64, bool) {
	total := m.RowTotal(from)
	if total == 0 || to.Index() < 0 {
		return 0, false
	}
	return float64(m.Count(from, to)) / float64(total), true
}
