package models

import (
	"fmt"
)

// LabelCounts holds per-label occurrence counts for one group
type LabelCounts struct {
	Counts map[Label]int `json:"counts"`
	Total  int           `json:"total"`
}

// NewLabelCounts returns LabelCounts with every label present at zero
func NewLabelCounts() LabelCounts {
	counts := make(map[Label]int, NumLabels)
	for _, l := range Labels {
		counts[l] = 0
	}
	return LabelCounts{Counts: counts}
}

// Add records one occurrence of the label. Unknown labels count as NULL.
func (lc *LabelCounts) Add(l Label) {
	if lc.Counts == nil {
		*lc = NewLabelCounts()
	}
	if !l.Valid() {
		l = LabelNull
	}
	lc.Counts[l]++
	lc.Total++
}

// Count returns the count for a label (0 if never observed)
func (lc LabelCounts) Count(l Label) int {
	return lc.Counts[l]
}

// Validate checks that counts are non-negative, never exceed the total,
// and sum to the total
func (lc LabelCounts) Validate() error {
	if lc.Total < 0 {
		return fmt.Errorf("total cannot be negative: %d", lc.Total)
	}
	sum := 0
	for label, c := range lc.Counts {
		if c < 0 {
			return fmt.Errorf("count for %s cannot be negative: %d", label, c)
		}
		if c > lc.Total {
			return fmt.Errorf("count for %s (%d) exceeds total %d", label, c, lc.Total)
		}
		sum += c
	}
	if sum != lc.Total {
		return fmt.Errorf("label counts sum to %d, total is %d", sum, lc.Total)
	}
	return nil
}

// RateWithInterval is a label proportion with its 95% Wilson interval.
// When Defined is false the group was empty and Rate, CILo and CIHi carry no
// meaning.
type RateWithInterval struct {
	Label   Label   `json:"label"`
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
	CILo    float64 `json:"ci_lo"`
	CIHi    float64 `json:"ci_hi"`
	Defined bool    `json:"defined"`
}

// Percentage returns the rate scaled to 0-100
func (r RateWithInterval) Percentage() float64 {
	return r.Rate * 100
}
