package aggregate

import (
	"fmt"

	"github.com/harrison/toolgap/internal/models"
)

// Mismatch field names besides label names
const (
	FieldTotal     = "total" // Sum of label counts
	FieldDeclaredN = "n"     // n declared by a legacy stats file
)

// Mismatch is one disagreement between derived and reference counts
type Mismatch struct {
	Group     models.Group
	Field     string // A label name or FieldTotal
	Derived   int
	Reference int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %s: derived %d, reference %d", m.Group, m.Field, m.Derived, m.Reference)
}

// CrossCheck compares counts group by group. Groups present on only one side
// are compared against zero counts. Order follows derived groups first, then
// reference-only groups.
func CrossCheck(derived, reference *Summary) []Mismatch {
	var mismatches []Mismatch

	compare := func(key models.Group, d, r models.LabelCounts) {
		if d.Total != r.Total {
			mismatches = append(mismatches, Mismatch{Group: key, Field: FieldTotal, Derived: d.Total, Reference: r.Total})
		}
		for _, l := range models.Labels {
			if d.Count(l) != r.Count(l) {
				mismatches = append(mismatches, Mismatch{Group: key, Field: string(l), Derived: d.Count(l), Reference: r.Count(l)})
			}
		}
	}

	for _, g := range derived.Groups {
		ref := models.NewLabelCounts()
		if rg, ok := reference.Group(g.Group); ok {
			ref = rg.Counts
		}
		compare(g.Group, g.Counts, ref)
	}
	for _, rg := range reference.Groups {
		if _, ok := derived.Group(rg.Group); !ok {
			compare(rg.Group, models.NewLabelCounts(), rg.Counts)
		}
	}

	return mismatches
}

// CrossCheckRecords aggregates records with the grouping the reference uses
// (per model, or per model and condition for legacy per-domain stats) and
// compares the two.
func CrossCheckRecords(records []models.ResultRecord, reference *Summary) []Mismatch {
	return CrossCheck(Aggregate(records, groupingOf(reference)), reference)
}

// CrossCheckDocument is CrossCheckRecords against a decoded stats file. A
// declared n that differs from the derived group total is reported as an
// extra FieldDeclaredN mismatch.
func CrossCheckDocument(records []models.ResultRecord, doc *StatsDocument) []Mismatch {
	derived := Aggregate(records, groupingOf(doc.Summary))
	mismatches := CrossCheck(derived, doc.Summary)

	for _, rg := range doc.Summary.Groups {
		n, ok := doc.DeclaredN[rg.Group]
		if !ok {
			continue
		}
		got := 0
		if dg, found := derived.Group(rg.Group); found {
			got = dg.Counts.Total
		}
		if got != n {
			mismatches = append(mismatches, Mismatch{Group: rg.Group, Field: FieldDeclaredN, Derived: got, Reference: n})
		}
	}
	return mismatches
}

// groupingOf returns ByModelCondition when any reference group carries a
// condition
func groupingOf(reference *Summary) GroupFunc {
	for _, g := range reference.Groups {
		if g.Group.Condition != "" {
			return ByModelCondition
		}
	}
	return ByModel
}
