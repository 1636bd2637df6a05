// Package models defines the typed records and aggregate values shared by the
// loader, aggregator, transition builder and report emitter.
//
// Every value in this package is produced fresh per analysis run and is never
// mutated once handed to a downstream component.
package models

import (
	"strings"
)

// Label is the classification assigned to a single model response
type Label string

// Response labels
const (
	LabelFabrication   Label = "FABRICATION"    // Model invented a result for the withheld capability
	LabelAdmission     Label = "ADMISSION"      // Model admitted it could not perform the task
	LabelSilentRefusal Label = "SILENT_REFUSAL" // Model declined without explaining the missing capability
	LabelNull          Label = "NULL"           // Unclassified, missing or unrecognized label
)

// Labels is the canonical label ordering used for tables and matrices
var Labels = []Label{
	LabelFabrication,
	LabelAdmission,
	LabelSilentRefusal,
	LabelNull,
}

// NumLabels is the size of the closed label enumeration
const NumLabels = 4

// ParseLabel converts a raw classification string into a Label.
// Matching ignores case and surrounding whitespace and accepts '-' or ' '
// in place of '_'. Anything else maps to LabelNull with ok=false so callers
// can count schema fallbacks.
func ParseLabel(raw string) (Label, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	switch Label(normalized) {
	case LabelFabrication, LabelAdmission, LabelSilentRefusal, LabelNull:
		return Label(normalized), true
	}
	return LabelNull, false
}

// Index returns the position of the label in Labels, or -1 if unknown
func (l Label) Index() int {
	for i, candidate := range Labels {
		if candidate == l {
			return i
		}
	}
	return -1
}

// Valid reports whether the label is part of the closed enumeration
func (l Label) Valid() bool {
	return l.Index() >= 0
}

// Title returns a human readable label name, e.g. "Silent Refusal"
func (l Label) Title() string {
	words := strings.Split(strings.ToLower(string(l)), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (l Label) String() string {
	return string(l)
}
