package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		raw    string
		want   Label
		wantOK bool
	}{
		{"FABRICATION", LabelFabrication, true},
		{"admission", LabelAdmission, true},
		{"  Silent_Refusal ", LabelSilentRefusal, true},
		{"silent-refusal", LabelSilentRefusal, true},
		{"silent refusal", LabelSilentRefusal, true},
		{"NULL", LabelNull, true},
		{"", LabelNull, false},
		{"HALLUCINATION", LabelNull, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseLabel(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestLabel_IndexAndTitle(t *testing.T) {
	for i, l := range Labels {
		assert.Equal(t, i, l.Index())
		assert.True(t, l.Valid())
	}
	assert.Equal(t, -1, Label("OTHER").Index())
	assert.Len(t, Labels, NumLabels)
	assert.Equal(t, "Silent Refusal", LabelSilentRefusal.Title())
	assert.Equal(t, "Fabrication", LabelFabrication.Title())
}

func TestLabelCounts_AddAndValidate(t *testing.T) {
	var lc LabelCounts
	lc.Add(LabelFabrication)
	lc.Add(LabelFabrication)
	lc.Add(LabelAdmission)
	lc.Add(Label("bogus"))

	require.NoError(t, lc.Validate())
	assert.Equal(t, 4, lc.Total)
	assert.Equal(t, 2, lc.Count(LabelFabrication))
	assert.Equal(t, 1, lc.Count(LabelAdmission))
	assert.Equal(t, 0, lc.Count(LabelSilentRefusal))
	assert.Equal(t, 1, lc.Count(LabelNull))
}

func TestLabelCounts_ValidateRejectsBrokenInvariants(t *testing.T) {
	t.Run("sum mismatch", func(t *testing.T) {
		lc := LabelCounts{Counts: map[Label]int{LabelFabrication: 2}, Total: 3}
		assert.Error(t, lc.Validate())
	})

	t.Run("count exceeds total", func(t *testing.T) {
		lc := LabelCounts{Counts: map[Label]int{LabelFabrication: 5, LabelNull: -2}, Total: 3}
		assert.Error(t, lc.Validate())
	})

	t.Run("empty is valid", func(t *testing.T) {
		assert.NoError(t, NewLabelCounts().Validate())
	})
}

func TestResultRecord_Validate(t *testing.T) {
	valid := ResultRecord{Model: "m", SequenceKey: "k", Label: LabelAdmission}
	require.NoError(t, valid.Validate())

	noModel := valid
	noModel.Model = ""
	assert.Error(t, noModel.Validate())

	negative := valid
	negative.TurnIndex = -1
	assert.Error(t, negative.Validate())

	badLabel := valid
	badLabel.Label = "maybe"
	assert.Error(t, badLabel.Validate())
}

func TestGroup_String(t *testing.T) {
	assert.Equal(t, "gpt-4o", Group{Model: "gpt-4o"}.String())
	assert.Equal(t, "gpt-4o/web_search", Group{Model: "gpt-4o", Condition: "web_search"}.String())
}
