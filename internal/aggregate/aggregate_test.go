package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/toolgap/internal/models"
)

func rec(model, condition string, label models.Label) models.ResultRecord {
	return models.ResultRecord{Model: model, ConditionID: condition, SequenceKey: "k", Label: label, Success: true}
}

// repeat returns n records with the same model, condition and label
func repeat(n int, model, condition string, label models.Label) []models.ResultRecord {
	out := make([]models.ResultRecord, n)
	for i := range out {
		out[i] = rec(model, condition, label)
	}
	return out
}

func TestAggregate_ByModelRates(t *testing.T) {
	var records []models.ResultRecord
	records = append(records, repeat(81, "gpt", "web", models.LabelFabrication)...)
	records = append(records, repeat(10, "gpt", "file", models.LabelAdmission)...)
	records = append(records, repeat(9, "gpt", "web", models.LabelSilentRefusal)...)

	s := Aggregate(records, ByModel)
	require.NoError(t, s.Validate())
	require.Len(t, s.Groups, 1)

	g := s.Groups[0]
	assert.Equal(t, models.Group{Model: "gpt"}, g.Group)
	assert.Equal(t, 100, g.Counts.Total)
	require.Len(t, g.Rates, models.NumLabels)

	want := map[models.Label]float64{
		models.LabelFabrication:   0.81,
		models.LabelAdmission:     0.10,
		models.LabelSilentRefusal: 0.09,
	}
	for label, rate := range want {
		r := g.Rate(label)
		assert.True(t, r.Defined)
		assert.InDelta(t, rate, r.Rate, 1e-12, label)
		assert.Less(t, r.CILo, r.Rate, label)
		assert.Greater(t, r.CIHi, r.Rate, label)
	}

	null := g.Rate(models.LabelNull)
	assert.True(t, null.Defined, "unobserved labels still get an interval")
	assert.Zero(t, null.Count)
	assert.Zero(t, null.Rate)
	assert.Zero(t, null.CILo)
	assert.Greater(t, null.CIHi, 0.0)
}

func TestAggregate_ByModelConditionInsertionOrder(t *testing.T) {
	records := []models.ResultRecord{
		rec("zeta", "web", models.LabelFabrication),
		rec("alpha", "file", models.LabelAdmission),
		rec("zeta", "file", models.LabelNull),
		rec("alpha", "file", models.LabelAdmission),
		rec("zeta", "web", models.LabelAdmission),
	}

	s := Aggregate(records, ByModelCondition)
	got := make([]models.Group, len(s.Groups))
	for i, g := range s.Groups {
		got[i] = g.Group
	}
	want := []models.Group{
		{Model: "zeta", Condition: "web"},
		{Model: "alpha", Condition: "file"},
		{Model: "zeta", Condition: "file"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("group order mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"zeta", "alpha"}, s.Models())

	g, ok := s.Group(models.Group{Model: "alpha", Condition: "file"})
	require.True(t, ok)
	assert.Equal(t, 2, g.Counts.Count(models.LabelAdmission))
	assert.Equal(t, 2, g.Counts.Total)
}

func TestAggregate_CountsSumToTotal(t *testing.T) {
	labels := models.Labels
	var records []models.ResultRecord
	for i := 0; i < 257; i++ {
		records = append(records, rec([]string{"a", "b", "c"}[i%3], []string{"x", "y"}[i%2], labels[(i*7)%len(labels)]))
	}

	for _, groupBy := range []GroupFunc{ByModel, ByModelCondition} {
		s := Aggregate(records, groupBy)
		total := 0
		for _, g := range s.Groups {
			sum := 0
			for _, n := range g.Counts.Counts {
				sum += n
			}
			assert.Equal(t, g.Counts.Total, sum, g.Group.String())
			total += g.Counts.Total
		}
		assert.Equal(t, len(records), total)
	}
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, nil)
	assert.Empty(t, s.Groups)
	assert.NoError(t, s.Validate())
}

func TestRatesFor_EmptyCountsAreUndefined(t *testing.T) {
	rates := RatesFor(models.NewLabelCounts())
	require.Len(t, rates, models.NumLabels)
	for i, r := range rates {
		assert.Equal(t, models.Labels[i], r.Label)
		assert.False(t, r.Defined)
	}
}

func TestSummary_Filter(t *testing.T) {
	s := Aggregate([]models.ResultRecord{
		rec("a", "x", models.LabelNull),
		rec("b", "x", models.LabelNull),
		rec("c", "x", models.LabelNull),
	}, ByModel)

	filtered := s.Filter([]string{"c", "a"})
	assert.Equal(t, []string{"a", "c"}, filtered.Models())
	_, ok := filtered.Group(models.Group{Model: "b"})
	assert.False(t, ok)

	assert.Same(t, s, s.Filter(nil))
}

func TestSummary_ByModel(t *testing.T) {
	records := append(
		repeat(3, "a", "x", models.LabelFabrication),
		append(repeat(1, "b", "x", models.LabelNull), repeat(2, "a", "y", models.LabelAdmission)...)...,
	)

	collapsed := Aggregate(records, ByModelCondition).ByModel()
	direct := Aggregate(records, ByModel)
	assert.Empty(t, CrossCheck(direct, collapsed))
	assert.Equal(t, []string{"a", "b"}, collapsed.Models())

	g, ok := collapsed.Group(models.Group{Model: "a"})
	require.True(t, ok)
	assert.InDelta(t, 0.4, g.Rate(models.LabelAdmission).Rate, 1e-12)

	assert.Same(t, direct, direct.ByModel())
}

func TestGroupFuncFor(t *testing.T) {
	for _, name := range []string{"", "model", "condition", "model_condition"} {
		fn, err := GroupFuncFor(name)
		require.NoError(t, err, name)
		assert.NotNil(t, fn)
	}
	_, err := GroupFuncFor("seed")
	assert.Error(t, err)
}
