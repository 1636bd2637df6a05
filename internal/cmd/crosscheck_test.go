package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/toolgap/internal/loader"
)

const matchingStats = `{
  "total_responses": 5,
  "total_calls": 6,
  "by_model": {
    "gpt-4o": {"total": 4, "labels": {"FABRICATION": 2, "ADMISSION": 1, "SILENT_REFUSAL": 0, "NULL": 1}},
    "claude": {"total": 2, "labels": {"FABRICATION": 0, "ADMISSION": 1, "SILENT_REFUSAL": 1, "NULL": 0}}
  }
}`

func TestCrossCheckCommand_Agreement(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "cross_domain.json", crossDomainResults)
	writeFixture(t, dir, "cross_domain_stats.json", matchingStats)
	writeFixture(t, dir, "persistence_run1.json", persistenceResults)

	stdout, _, err := execute(t, "crosscheck", "--in-dir", dir, "-q")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ cross_domain_stats.json: 2 groups agree")
}

func TestCrossCheckCommand_Mismatch(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "cross_domain.json", crossDomainResults)
	writeFixture(t, dir, "cross_domain_stats.json", `{
  "total_responses": 5,
  "total_calls": 7,
  "by_model": {
    "gpt-4o": {"total": 4, "labels": {"FABRICATION": 3, "NULL": 1}},
    "claude": {"total": 2, "labels": {"ADMISSION": 1, "SILENT_REFUSAL": 1}}
  }
}`)

	stdout, _, err := execute(t, "crosscheck", "--in-dir", dir, "-q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCrossCheckFailed))

	assert.Contains(t, stdout, "gpt-4o FABRICATION: derived 2, reference 3")
	assert.Contains(t, stdout, "gpt-4o ADMISSION: derived 1, reference 0")
	assert.Contains(t, stdout, "total_calls: derived 6, reference 7")
}

func TestCrossCheckCommand_LegacyStats(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "cross_domain.json", crossDomainResults)
	writeFixture(t, dir, "claude_web_search_stats.json",
		`{"model": "claude", "domain": "web_search", "n": 2, "counts": {"ADMISSION": 1, "SILENT_REFUSAL": 1}}`)

	// No claude_web_search.json exists, so the whole directory is the reference
	// population and the gpt-4o groups show up as derived-only mismatches
	stdout, _, err := execute(t, "crosscheck", "--in-dir", dir, "-q")
	require.Error(t, err)
	assert.NotContains(t, stdout, "claude/web_search")
	assert.Contains(t, stdout, "gpt-4o/web_search total: derived 2, reference 0")
}

func TestCrossCheckCommand_NoStatsFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "cross_domain.json", crossDomainResults)

	_, _, err := execute(t, "crosscheck", "--in-dir", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrNoInputFiles))
}

func TestCrossCheckCommand_UnreadableStats(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "cross_domain.json", crossDomainResults)
	writeFixture(t, dir, "cross_domain_stats.json", `{"unexpected": true}`)

	_, stderr, err := execute(t, "crosscheck", "--in-dir", dir, "--log-level", "warn")
	require.Error(t, err)
	assert.Contains(t, stderr, "[ERROR] cannot check stats file")
	assert.Contains(t, stderr, "unrecognized stats file")
}

func TestCrossCheckCommand_LegacyDeclaredN(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "gpt_finance.json", `{"results": {"gpt-4o": [
		{"condition_id": "finance", "classification": "FABRICATION", "dedupe_key": "f1"},
		{"condition_id": "finance", "classification": "ADMISSION", "dedupe_key": "f2"}
	]}}`)
	writeFixture(t, dir, "gpt_finance_stats.json",
		`{"model": "gpt-4o", "domain": "finance", "n": 3, "counts": {"FABRICATION": 1, "ADMISSION": 1}}`)

	stdout, _, err := execute(t, "crosscheck", "--in-dir", dir, "-q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCrossCheckFailed))
	assert.Contains(t, stdout, "gpt-4o/finance n: derived 2, reference 3")
}
