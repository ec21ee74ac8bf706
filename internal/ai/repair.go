package ai

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// RepairStats tracks what it took to get a parseable payload out of a
// model response
type RepairStats struct {
	OriginalBytes    int           `json:"original_bytes"`
	RepairedBytes    int           `json:"repaired_bytes"`
	RepairTime       time.Duration `json:"repair_time"`
	RepairStrategies []string      `json:"repair_strategies"`
	WasRepaired      bool          `json:"was_repaired"`
}

// RepairJSON extracts and repairs the JSON object in a model response.
// Strategies, in order: parse as-is, strip markdown code fences, trim to
// the outermost braces, and finally the jsonrepair library.
func RepairJSON(raw string) (string, RepairStats, error) {
	startTime := time.Now()
	stats := RepairStats{OriginalBytes: len(raw)}

	candidate := strings.TrimSpace(raw)
	if isValidJSON(candidate) {
		stats.RepairedBytes = len(candidate)
		stats.RepairTime = time.Since(startTime)
		return candidate, stats, nil
	}
	stats.WasRepaired = true

	if fenced := stripCodeFences(candidate); fenced != candidate {
		candidate = fenced
		stats.RepairStrategies = append(stats.RepairStrategies, "code_fences")
		if isValidJSON(candidate) {
			stats.RepairedBytes = len(candidate)
			stats.RepairTime = time.Since(startTime)
			return candidate, stats, nil
		}
	}

	if trimmed := trimToBraces(candidate); trimmed != candidate && trimmed != "" {
		candidate = trimmed
		stats.RepairStrategies = append(stats.RepairStrategies, "brace_trim")
		if isValidJSON(candidate) {
			stats.RepairedBytes = len(candidate)
			stats.RepairTime = time.Since(startTime)
			return candidate, stats, nil
		}
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	stats.RepairTime = time.Since(startTime)
	if err != nil {
		return "", stats, err
	}
	stats.RepairStrategies = append(stats.RepairStrategies, "jsonrepair_library")
	stats.RepairedBytes = len(repaired)
	return repaired, stats, nil
}

func isValidJSON(s string) bool {
	var v interface{}
	return json.Unmarshal([]byte(s), &v) == nil
}

// stripCodeFences removes a surrounding ```json ... ``` block if present
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// trimToBraces cuts everything outside the outermost JSON object
func trimToBraces(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
