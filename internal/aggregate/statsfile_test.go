package aggregate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/toolgap/internal/models"
)

func sampleRecords() []models.ResultRecord {
	var records []models.ResultRecord
	records = append(records, repeat(6, "gpt", "web", models.LabelFabrication)...)
	records = append(records, repeat(3, "gpt", "file", models.LabelAdmission)...)
	records = append(records, repeat(4, "claude", "web", models.LabelSilentRefusal)...)
	failed := rec("claude", "web", models.LabelNull)
	failed.Success = false
	return append(records, failed)
}

func TestNewStatsDocument_Totals(t *testing.T) {
	doc := NewStatsDocument(sampleRecords())
	assert.Equal(t, 14, doc.Totals.Calls)
	assert.Equal(t, 13, doc.Totals.Responses)
	assert.Equal(t, []string{"gpt", "claude"}, doc.Summary.Models())
}

func TestEncodeStatsFile_Layout(t *testing.T) {
	doc := NewStatsDocument(sampleRecords())
	doc.RunID = "run-1"

	data, err := EncodeStatsFile(doc)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.EqualValues(t, 13, decoded["total_responses"])
	assert.EqualValues(t, 14, decoded["total_calls"])

	byModel := decoded["by_model"].(map[string]interface{})
	gpt := byModel["gpt"].(map[string]interface{})
	assert.EqualValues(t, 9, gpt["total"])
	assert.EqualValues(t, 6, gpt["labels"].(map[string]interface{})["FABRICATION"])
	assert.InDelta(t, 6.0/9.0, gpt["rates"].(map[string]interface{})["FABRICATION"], 1e-12)

	ci := gpt["cis_wilson_95"].(map[string]interface{})["FABRICATION"].([]interface{})
	require.Len(t, ci, 2)
	assert.Less(t, ci[0].(float64), 6.0/9.0)
	assert.Greater(t, ci[1].(float64), 6.0/9.0)
}

func TestStatsFile_RoundTripMatchesRawAggregation(t *testing.T) {
	records := sampleRecords()
	doc := NewStatsDocument(records)

	data, err := EncodeStatsFile(doc)
	require.NoError(t, err)

	decoded, err := DecodeStatsFile(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Totals, decoded.Totals)
	assert.Empty(t, CrossCheck(Aggregate(records, ByModel), decoded.Summary))

	g, ok := decoded.Summary.Group(models.Group{Model: "claude"})
	require.True(t, ok)
	orig, _ := doc.Summary.Group(models.Group{Model: "claude"})
	assert.InDeltaSlice(t,
		[]float64{orig.Rate(models.LabelSilentRefusal).CILo, orig.Rate(models.LabelSilentRefusal).CIHi},
		[]float64{g.Rate(models.LabelSilentRefusal).CILo, g.Rate(models.LabelSilentRefusal).CIHi},
		1e-12)
}

func TestEncodeStatsFile_RejectsConditionGroups(t *testing.T) {
	doc := &StatsDocument{Summary: Aggregate(sampleRecords(), ByModelCondition)}
	_, err := EncodeStatsFile(doc)
	assert.Error(t, err)

	_, err = EncodeStatsFile(nil)
	assert.Error(t, err)
}

func TestDecodeStatsFile_Legacy(t *testing.T) {
	data := []byte(`{"model": "gpt", "domain": "finance", "n": 10,
		"counts": {"FABRICATION": 7, "ADMISSION": 2, "SILENT_REFUSAL": 1}}`)

	doc, err := DecodeStatsFile(data)
	require.NoError(t, err)
	require.Len(t, doc.Summary.Groups, 1)

	g := doc.Summary.Groups[0]
	assert.Equal(t, models.Group{Model: "gpt", Condition: "finance"}, g.Group)
	assert.Equal(t, 10, g.Counts.Total)
	assert.InDelta(t, 0.7, g.Rate(models.LabelFabrication).Rate, 1e-12)
}

func TestDecodeStatsFile_LegacyMissingN(t *testing.T) {
	doc, err := DecodeStatsFile([]byte(`{"counts": {"ADMISSION": 3, "whatever": 1}}`))
	require.NoError(t, err)

	g := doc.Summary.Groups[0]
	assert.Equal(t, models.Group{Model: "unknown", Condition: "unknown"}, g.Group)
	assert.Equal(t, 4, g.Counts.Total)
	assert.Equal(t, 1, g.Counts.Count(models.LabelNull), "unknown label keys fold into NULL")
}

func TestDecodeStatsFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"no known keys", `{"total_calls": 3}`},
		{"sum exceeds total", `{"by_model": {"m": {"total": 2, "labels": {"ADMISSION": 3}}}}`},
		{"negative count", `{"counts": {"ADMISSION": -1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStatsFile([]byte(tt.data))
			assert.ErrorIs(t, err, ErrStatsShape)
		})
	}
}

func TestLoadStatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cross_domain_stats.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"total_calls": 2, "total_responses": 2,
		"by_model": {"m": {"total": 2, "labels": {"ADMISSION": 2}}}}`), 0644))

	doc, err := LoadStatsFile(path)
	require.NoError(t, err)
	assert.Equal(t, Totals{Responses: 2, Calls: 2}, doc.Totals)

	_, err = LoadStatsFile(filepath.Join(dir, "missing_stats.json"))
	assert.Error(t, err)
}

func TestMergeDocuments(t *testing.T) {
	a := NewStatsDocument(repeat(3, "m", "x", models.LabelAdmission))
	b := NewStatsDocument(repeat(1, "m", "y", models.LabelFabrication))

	merged := MergeDocuments(a, nil, b)
	assert.Equal(t, 4, merged.Totals.Calls)

	g, ok := merged.Summary.Group(models.Group{Model: "m"})
	require.True(t, ok)
	assert.Equal(t, 4, g.Counts.Total)
	assert.Equal(t, 3, g.Counts.Count(models.LabelAdmission))
	assert.InDelta(t, 0.75, g.Rate(models.LabelAdmission).Rate, 1e-12)
}

func TestDecodeStatsFile_LegacyNDiffersFromCounts(t *testing.T) {
	doc, err := DecodeStatsFile([]byte(`{"model": "gpt", "domain": "finance", "n": 12,
		"counts": {"FABRICATION": 7, "ADMISSION": 2, "SILENT_REFUSAL": 1}}`))
	require.NoError(t, err)

	key := models.Group{Model: "gpt", Condition: "finance"}
	g, ok := doc.Summary.Group(key)
	require.True(t, ok)
	assert.Equal(t, 10, g.Counts.Total, "group total stays the sum of label counts")
	assert.NoError(t, g.Counts.Validate())
	assert.Equal(t, map[models.Group]int{key: 12}, doc.DeclaredN)
	assert.Equal(t, Totals{Responses: 12, Calls: 12}, doc.Totals)

	_, err = DecodeStatsFile([]byte(`{"n": -1, "counts": {"ADMISSION": 1}}`))
	assert.ErrorIs(t, err, ErrStatsShape)
}

func TestDecodeStatsFile_LegacyMatchingNIsNotDeclared(t *testing.T) {
	doc, err := DecodeStatsFile([]byte(`{"model": "gpt", "domain": "web", "n": 3, "counts": {"NULL": 3}}`))
	require.NoError(t, err)
	assert.Nil(t, doc.DeclaredN)
}

func TestMergeDocuments_KeepsDeclaredN(t *testing.T) {
	a, err := DecodeStatsFile([]byte(`{"model": "gpt", "domain": "web", "n": 5, "counts": {"ADMISSION": 3}}`))
	require.NoError(t, err)
	b, err := DecodeStatsFile([]byte(`{"model": "gpt", "domain": "web", "n": 2, "counts": {"ADMISSION": 2}}`))
	require.NoError(t, err)
	c, err := DecodeStatsFile([]byte(`{"model": "gpt", "domain": "file", "n": 1, "counts": {"NULL": 1}}`))
	require.NoError(t, err)

	merged := MergeDocuments(a, b, c)
	assert.Equal(t, map[models.Group]int{{Model: "gpt", Condition: "web"}: 7}, merged.DeclaredN)

	g, ok := merged.Summary.Group(models.Group{Model: "gpt", Condition: "web"})
	require.True(t, ok)
	assert.Equal(t, 5, g.Counts.Total)
}
