package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
)

// Category names one concurrent LLM call of a roast.
type Category string

const (
	CategoryRoast      Category = "roast"
	CategoryUX         Category = "ux"
	CategorySEO        Category = "seo"
	CategoryCopy       Category = "copy"
	CategoryCRO        Category = "cro"
	CategoryCompliance Category = "compliance"
)

func (c Category) String() string {
	return string(c)
}

// AuditCategories lists the scored audit categories in display order.
func AuditCategories() []Category {
	return []Category{CategoryUX, CategorySEO, CategoryCopy, CategoryCRO, CategoryCompliance}
}

func (c Category) IsAudit() bool {
	switch c {
	case CategoryUX, CategorySEO, CategoryCopy, CategoryCRO, CategoryCompliance:
		return true
	default:
		return false
	}
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// NormalizeSeverity maps anything that is not "critical" to warning.
func NormalizeSeverity(raw string) Severity {
	if strings.EqualFold(strings.TrimSpace(raw), string(SeverityCritical)) {
		return SeverityCritical
	}
	return SeverityWarning
}

type Issue struct {
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Fix         string   `json:"fix"`
}

// AuditRequest is one (model, system prompt, user prompt) call of a roast.
type AuditRequest struct {
	Category     Category
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// AuditResult is the validated part of one audit category's model output.
// Fields the model returned beyond score/summary/issues are kept in Extra
// untouched.
type AuditResult struct {
	Category     Category                   `json:"-"`
	Score        int                        `json:"score"`
	Summary      string                     `json:"summary,omitempty"`
	Issues       []Issue                    `json:"issues"`
	Extra        map[string]json.RawMessage `json:"-"`
	Defaulted    bool                       `json:"-"`
	ScorePresent bool                       `json:"-"`
}

// ErrNotObject is returned when model output is valid JSON but not an object.
var ErrNotObject = errors.New("model output is not a JSON object")

func (a AuditResult) MarshalJSON() ([]byte, error) {
	issues := a.Issues
	if issues == nil {
		issues = []Issue{}
	}
	fields := map[string]any{
		"score":  a.Score,
		"issues": issues,
	}
	if a.Summary != "" {
		fields["summary"] = a.Summary
	}
	return marshalWithExtra(fields, a.Extra)
}

func (a *AuditResult) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}

	*a = AuditResult{Issues: []Issue{}}
	a.Score, a.ScorePresent = takeScore(fields)
	a.Summary = takeString(fields, "summary")

	if raw, ok := fields["issues"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			delete(fields, "issues")
			a.Issues = decodeIssues(items)
		}
	}

	if len(fields) > 0 {
		a.Extra = fields
	}
	return nil
}

func decodeIssues(items []json.RawMessage) []Issue {
	issues := make([]Issue, 0, len(items))
	for _, item := range items {
		var raw struct {
			Severity    string `json:"severity"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Fix         string `json:"fix"`
		}
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		if strings.TrimSpace(raw.Title) == "" && strings.TrimSpace(raw.Description) == "" {
			continue
		}
		issues = append(issues, Issue{
			Severity:    NormalizeSeverity(raw.Severity),
			Title:       strings.TrimSpace(raw.Title),
			Description: strings.TrimSpace(raw.Description),
			Fix:         strings.TrimSpace(raw.Fix),
		})
	}
	return issues
}

// RoastResult is the headline critique: score, headline, markdown body and tl;dr.
type RoastResult struct {
	Score        int                        `json:"score"`
	Headline     string                     `json:"headline"`
	Roast        string                     `json:"roast"`
	TLDR         string                     `json:"tldr"`
	Extra        map[string]json.RawMessage `json:"-"`
	Defaulted    bool                       `json:"-"`
	ScorePresent bool                       `json:"-"`
}

func (r RoastResult) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(map[string]any{
		"score":    r.Score,
		"headline": r.Headline,
		"roast":    r.Roast,
		"tldr":     r.TLDR,
	}, r.Extra)
}

func (r *RoastResult) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}

	*r = RoastResult{}
	r.Score, r.ScorePresent = takeScore(fields)
	r.Headline = takeString(fields, "headline")
	r.Roast = takeString(fields, "roast")
	r.TLDR = takeString(fields, "tldr")
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

// RoastBundle is everything one roast produced: the roast plus every audit.
type RoastBundle struct {
	Roast  RoastResult
	Audits map[Category]AuditResult
}

// FinalScore is the roast score, or the fallback when the roast gave none.
func (b *RoastBundle) FinalScore(fallback int) int {
	if b == nil || b.Roast.Score <= 0 {
		return fallback
	}
	return b.Roast.Score
}

// Audit returns the result for c, or nil when the bundle has none.
func (b *RoastBundle) Audit(c Category) *AuditResult {
	if b == nil {
		return nil
	}
	result, ok := b.Audits[c]
	if !ok {
		return nil
	}
	return &result
}

// CategoryEvent reports that one category settled. It carries no content.
type CategoryEvent struct {
	Category  Category `json:"category"`
	Defaulted bool     `json:"defaulted"`
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// takeScore removes a numeric "score" from fields, rounded and clamped to 0-100.
func takeScore(fields map[string]json.RawMessage) (int, bool) {
	raw, ok := fields["score"]
	if !ok {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	delete(fields, "score")
	return ClampScore(value), true
}

// ClampScore rounds to the nearest integer inside 0-100.
func ClampScore(value float64) int {
	if math.IsNaN(value) {
		return 0
	}
	rounded := int(math.Round(value))
	switch {
	case rounded < 0:
		return 0
	case rounded > 100:
		return 100
	default:
		return rounded
	}
}

func takeString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	delete(fields, key)
	return value
}

func marshalWithExtra(fields map[string]any, extra map[string]json.RawMessage) ([]byte, error) {
	merged := make(map[string]any, len(fields)+len(extra))
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		merged[k] = extra[k]
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}
