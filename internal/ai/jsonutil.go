package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// fenced ```json { ... } ``` blocks
	jsonBlockPattern     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	jsonObjectPattern    = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	numberPattern        = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// ExtractJSON pulls a JSON object out of a model answer, tolerating code
// fences, line comments and trailing commas. It returns "" when none is found.
func ExtractJSON(content string) string {
	raw := ""
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else if m := jsonObjectPattern.FindString(content); m != "" {
		raw = m
	}
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// decodeJSON extracts and unmarshals the object in a model answer into v
func decodeJSON(content string, v interface{}) error {
	raw := ExtractJSON(content)
	if raw == "" {
		return fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("malformed JSON in model response: %w", err)
	}
	return nil
}

// number accepts JSON numbers, numeric strings such as "$1,200.50" and null
type number struct {
	value *float64
}

func (n *number) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if f := coerceFloat(v); !math.IsNaN(f) {
		n.value = &f
	}
	return nil
}

func (n number) ptr() *float64 {
	return n.value
}

func (n number) or(def float64) float64 {
	if n.value == nil {
		return def
	}
	return *n.value
}

func coerceFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		trimmed := strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(val))
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// parseScore reads the first number in a free-text answer and clamps it to 0..100
func parseScore(answer string) float64 {
	m := numberPattern.FindString(answer)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return math.Min(100, math.Max(0, f))
}

// truncateForLog shortens s to limit runes for debug output
func truncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
