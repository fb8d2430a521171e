// Package analysis turns the loosely shaped output of the summarization
// service into the strict Analysis view. Normalize never fails: the worst
// case is an Analysis with empty fields.
package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/evalmatrix/internal/domain/types"
)

// Canonical response keys and their deprecated aliases.
const (
	KeyFocus   = "focus"
	KeyActions = "actions"

	AliasFocusAreas      = "focusAreas"
	AliasRecommendations = "recommendations"
)

// Normalize coerces raw into an Analysis. raw may be a JSON object, a JSON
// object wrapped in a markdown code fence, or plain text; plain text becomes
// the summary.
func Normalize(raw []byte) types.Analysis {
	text := ExtractJSON(string(raw))
	out := types.Analysis{
		Strengths: []string{},
		Risks:     []string{},
		Focus:     []string{},
		Actions:   []string{},
	}
	if text == "" {
		return out
	}
	if !gjson.Valid(text) {
		out.Summary = text
		return out
	}

	doc := gjson.Parse(text)
	if !doc.IsObject() {
		out.Summary = scalarString(doc)
		return out
	}

	out.Summary = scalarString(doc.Get("summary"))
	out.Narrative = scalarString(doc.Get("narrative"))
	out.OverallScore = number(doc.Get("overallScore"))
	out.Strengths = list(doc.Get("strengths"))
	out.Risks = list(doc.Get("risks"))

	focus, alias := preferred(doc, KeyFocus, AliasFocusAreas)
	out.Focus = list(focus)
	if alias {
		out.Aliases = append(out.Aliases, AliasFocusAreas)
	}
	actions, alias := preferred(doc, KeyActions, AliasRecommendations)
	out.Actions = list(actions)
	if alias {
		out.Aliases = append(out.Aliases, AliasRecommendations)
	}
	return out
}

// preferred returns the canonical key when it is truthy, otherwise the
// deprecated alias. Any array or object is truthy, even an empty one. The
// flag reports that the alias was used.
func preferred(doc gjson.Result, key, alias string) (gjson.Result, bool) {
	if v := doc.Get(key); truthy(v) {
		return v, false
	}
	if v := doc.Get(alias); truthy(v) {
		return v, true
	}
	return gjson.Result{}, false
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0 && !math.IsNaN(r.Num)
	default:
		return false
	}
}

// scalarString returns strings as-is, falsy values as "" and anything else
// as its JSON text.
func scalarString(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	if !truthy(r) {
		return ""
	}
	return r.Raw
}

func list(r gjson.Result) []string {
	out := []string{}
	switch {
	case !truthy(r):
	case r.IsArray():
		for _, item := range r.Array() {
			if truthy(item) {
				out = append(out, scalarString(item))
			}
		}
	default:
		out = append(out, scalarString(r))
	}
	return out
}

func number(r gjson.Result) *float64 {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ExtractJSON strips a surrounding markdown code fence, if any.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// TruncateForLog shortens s to limit runes for log output.
func TruncateForLog(s string, limit int) string {
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
