package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/toolgap/internal/report"
)

const persistenceResults = `{
  "config": {"experiment": "persistence", "turns": 3},
  "results": {
    "gpt-4o": [
      {"condition_id": "web_search", "turn_index": 0, "classification": "FABRICATION", "dedupe_key": "s1"},
      {"condition_id": "web_search", "turn_index": 1, "classification": "ADMISSION", "dedupe_key": "s1"},
      {"condition_id": "web_search", "turn_index": 2, "classification": "ADMISSION", "dedupe_key": "s1"},
      {"condition_id": "web_search", "turn_index": 0, "classification": "FABRICATION", "dedupe_key": "s2"},
      {"condition_id": "web_search", "turn_index": 2, "classification": "ADMISSION", "dedupe_key": "s2"}
    ]
  }
}`

func readTransitionRow(t *testing.T, path, from, to string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	prefix := "gpt-4o," + from + "," + to + ","
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	t.Fatalf("no row %s in %s", prefix, path)
	return ""
}

func TestTransitionsCommand_SkipPolicy(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "persistence_run1.json", persistenceResults)
	writeFixture(t, dir, "cross_domain.json", `{"results": {"other": [{"classification": "NULL"}]}}`)
	figDir := filepath.Join(dir, "figs")

	stdout, stderr, err := execute(t, "transitions", "--in-dir", dir, "--fig-dir", figDir)
	require.NoError(t, err)

	csvPath := filepath.Join(figDir, report.TransitionCSVName)
	assert.Equal(t, "gpt-4o,FABRICATION,ADMISSION,1,1.000000", readTransitionRow(t, csvPath, "FABRICATION", "ADMISSION"))
	assert.Equal(t, "gpt-4o,ADMISSION,ADMISSION,1,1.000000", readTransitionRow(t, csvPath, "ADMISSION", "ADMISSION"))
	assert.Equal(t, "gpt-4o,NULL,NULL,0,", readTransitionRow(t, csvPath, "NULL", "NULL"))

	_, err = os.Stat(filepath.Join(figDir, report.TransitionMarkdownName))
	assert.NoError(t, err)

	assert.Contains(t, stdout, "gpt-4o (2 sequences, 2 transitions)")
	assert.NotContains(t, stdout, "other", "only persistence files are loaded")
	assert.Contains(t, stderr, "turn gap 0 -> 2")
	assert.Contains(t, stderr, "Turn gaps: 1")
}

func TestTransitionsCommand_BridgePolicy(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "persistence_run1.json", persistenceResults)
	figDir := filepath.Join(dir, "figs")

	_, _, err := execute(t, "transitions", "--in-dir", dir, "--fig-dir", figDir, "--gap-policy", "bridge", "-q")
	require.NoError(t, err)

	csvPath := filepath.Join(figDir, report.TransitionCSVName)
	assert.Equal(t, "gpt-4o,FABRICATION,ADMISSION,2,1.000000", readTransitionRow(t, csvPath, "FABRICATION", "ADMISSION"))
}

func TestTransitionsCommand_GapPolicyFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "persistence_run1.json", persistenceResults)
	cfgPath := writeFixture(t, dir, "toolgap.yaml", "transitions:\n  gap_policy: bridge\n")
	figDir := filepath.Join(dir, "figs")

	_, _, err := execute(t, "transitions", "--config", cfgPath, "--in-dir", dir, "--fig-dir", figDir, "-q")
	require.NoError(t, err)

	csvPath := filepath.Join(figDir, report.TransitionCSVName)
	assert.Equal(t, "gpt-4o,FABRICATION,ADMISSION,2,1.000000", readTransitionRow(t, csvPath, "FABRICATION", "ADMISSION"))
}

func TestTransitionsCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "persistence_run1.json", persistenceResults)

	_, _, err := execute(t, "transitions", "--in-dir", dir, "--fig-dir", dir, "--gap-policy", "interpolate")
	assert.Error(t, err)

	_, _, err = execute(t, "transitions", "--in-dir", t.TempDir(), "--fig-dir", dir)
	assert.Error(t, err, "no persistence files")

	_, _, err = execute(t, "transitions", "--in-dir", dir)
	assert.Error(t, err, "missing --fig-dir")
}

func TestTransitionsCommand_ModelsFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "persistence_run1.json", persistenceResults)
	writeFixture(t, dir, "persistence_run2.json", `{"results": {"claude": [
		{"turn_index": 0, "classification": "ADMISSION", "dedupe_key": "c1"},
		{"turn_index": 1, "classification": "ADMISSION", "dedupe_key": "c1"}
	]}}`)
	cfgPath := writeFixture(t, dir, "toolgap.yaml", "transitions:\n  models: [claude]\n")
	figDir := filepath.Join(dir, "figs")

	stdout, _, err := execute(t, "transitions", "--config", cfgPath, "--in-dir", dir, "--fig-dir", figDir, "-q")
	require.NoError(t, err)
	assert.Contains(t, stdout, "claude (1 sequences, 1 transitions)")
	assert.NotContains(t, stdout, "gpt-4o")

	// The flag overrides the config list
	stdout, _, err = execute(t, "transitions", "--config", cfgPath, "--in-dir", dir, "--fig-dir", figDir, "-q", "--models", "gpt-4o")
	require.NoError(t, err)
	assert.Contains(t, stdout, "gpt-4o (2 sequences, 2 transitions)")
	assert.NotContains(t, stdout, "claude")
}
