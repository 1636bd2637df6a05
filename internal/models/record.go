package models

import (
	"errors"
	"fmt"
)

// ResultRecord is one API call outcome extracted from a result file
type ResultRecord struct {
	Model       string `json:"model"`
	ConditionID string `json:"condition_id"`
	SequenceKey string `json:"sequence_key"` // Groups the turns of one multi-turn run
	TurnIndex   int    `json:"turn_index"`   // 0 for single-turn runs
	Label       Label  `json:"label"`
	Success     bool   `json:"success"`

	// Source and Index locate the record in its input file. They define the
	// stable merge order when files are loaded in parallel.
	Source string `json:"source,omitempty"`
	Index  int    `json:"index"`
}

// Validate checks the record invariants that hold after loading
func (r *ResultRecord) Validate() error {
	if r.Model == "" {
		return errors.New("model is required")
	}
	if r.SequenceKey == "" {
		return errors.New("sequence key is required")
	}
	if r.TurnIndex < 0 {
		return fmt.Errorf("turn index cannot be negative: %d", r.TurnIndex)
	}
	if !r.Label.Valid() {
		return fmt.Errorf("unknown label: %q", r.Label)
	}
	return nil
}

// Group identifies an aggregation bucket. Condition is empty when grouping
// by model only.
type Group struct {
	Model     string `json:"model"`
	Condition string `json:"condition,omitempty"`
}

func (g Group) String() string {
	if g.Condition == "" {
		return g.Model
	}
	return g.Model + "/" + g.Condition
}
