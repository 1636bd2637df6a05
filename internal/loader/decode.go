package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harrison/toolgap/internal/models"
)

// UnknownCondition is used when a record carries no condition_id
const UnknownCondition = "unknown"

// FileResult holds the records decoded from one result file
type FileResult struct {
	Path            string
	Records         []models.ResultRecord
	SkippedRecords  int
	SchemaFallbacks int
	Issues          []string // Per-record problems, for logging
}

// rawRecord is the untyped ingest shape of one call record. Every field is
// kept raw so type problems are handled in one place by toRecord.
type rawRecord struct {
	ConditionID    json.RawMessage `json:"condition_id"`
	TurnIndex      json.RawMessage `json:"turn_index"`
	Classification json.RawMessage `json:"classification"`
	Label          json.RawMessage `json:"label"`
	DedupeKey      json.RawMessage `json:"dedupe_key"`
	Seed           json.RawMessage `json:"seed"`
	Success        json.RawMessage `json:"success"`
}

type modelEntry struct {
	model string
	raw   json.RawMessage
}

// Decode parses the contents of one result file. The returned error wraps
// ErrParse or ErrMissingResults; record-level problems never fail the file.
func Decode(path string, data []byte) (*FileResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: top level is null", ErrParse)
	}

	rawResults, ok := top["results"]
	if !ok {
		return nil, ErrMissingResults
	}

	entries, err := decodeOrderedObject(rawResults)
	if err != nil {
		return nil, fmt.Errorf("%w: results: %v", ErrParse, err)
	}

	fr := &FileResult{Path: path, Records: make([]models.ResultRecord, 0)}
	source := filepath.Base(path)
	index := 0

	for _, entry := range entries {
		var items []json.RawMessage
		if err := json.Unmarshal(entry.raw, &items); err != nil {
			fr.SkippedRecords++
			fr.Issues = append(fr.Issues, fmt.Sprintf("model %q: results are not an array", entry.model))
			continue
		}

		for _, item := range items {
			rec, fellBack, err := toRecord(entry.model, source, index, item)
			index++
			if err != nil {
				fr.SkippedRecords++
				fr.Issues = append(fr.Issues, fmt.Sprintf("model %q record %d: %v", entry.model, index-1, err))
				continue
			}
			if fellBack {
				fr.SchemaFallbacks++
			}
			rec.Source = path
			fr.Records = append(fr.Records, rec)
		}
	}

	return fr, nil
}

// decodeOrderedObject decodes a JSON object while keeping key order, so that
// models appear in the order the file lists them.
func decodeOrderedObject(raw json.RawMessage) ([]modelEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []modelEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("model %q: %w", key, err)
		}
		entries = append(entries, modelEntry{model: key, raw: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

// toRecord validates one raw call record. fellBack reports that the label
// was absent or unrecognized and was mapped to NULL.
func toRecord(model, source string, index int, item json.RawMessage) (models.ResultRecord, bool, error) {
	var raw rawRecord
	if err := json.Unmarshal(item, &raw); err != nil {
		return models.ResultRecord{}, false, fmt.Errorf("not an object: %w", err)
	}

	turn, err := parseTurnIndex(raw.TurnIndex)
	if err != nil {
		return models.ResultRecord{}, false, err
	}

	condition, ok := scalarString(raw.ConditionID)
	if !ok || condition == "" {
		condition = UnknownCondition
	}

	label, labelOK := parseLabel(raw.Classification)
	if !labelOK {
		label, labelOK = parseLabel(raw.Label)
	}

	rec := models.ResultRecord{
		Model:       model,
		ConditionID: condition,
		SequenceKey: sequenceKey(model, condition, source, index, raw),
		TurnIndex:   turn,
		Label:       label,
		Success:     parseSuccess(raw.Success),
		Index:       index,
	}
	return rec, !labelOK, nil
}

func parseTurnIndex(raw json.RawMessage) (int, error) {
	if isAbsent(raw) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("turn_index is not a number: %s", string(raw))
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("turn_index must be a non-negative integer: %s", string(raw))
	}
	return int(f), nil
}

// parseLabel returns ok=false when the field is absent, not a string, or not
// one of the known labels
func parseLabel(raw json.RawMessage) (models.Label, bool) {
	if isAbsent(raw) {
		return models.LabelNull, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.LabelNull, false
	}
	return models.ParseLabel(s)
}

func parseSuccess(raw json.RawMessage) bool {
	if isAbsent(raw) {
		return true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return true
	}
	return b
}

// sequenceKey prefers the file's dedupe_key, then model|condition|seed. With
// neither, the record is its own sequence.
func sequenceKey(model, condition, source string, index int, raw rawRecord) string {
	if key, ok := scalarString(raw.DedupeKey); ok && key != "" {
		return key
	}
	if seed, ok := scalarString(raw.Seed); ok && seed != "" {
		return strings.Join([]string{model, condition, seed}, "|")
	}
	return strings.Join([]string{model, condition, source + "#" + strconv.Itoa(index)}, "|")
}

// scalarString renders a JSON string or number as text
func scalarString(raw json.RawMessage) (string, bool) {
	if isAbsent(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
