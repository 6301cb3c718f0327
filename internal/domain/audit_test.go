package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditResultUnmarshalKeepsExtras(t *testing.T) {
	raw := `{"score": 72.6, "summary": "ok", "issues": [
		{"severity": "CRITICAL", "title": "No CTA", "description": "Nothing to click", "fix": "Add one"},
		{"severity": "meh", "title": "Slow hero", "description": "Big image"},
		"not an issue",
		{"severity": "warning"}
	], "quickWins": ["a", "b"]}`

	var result AuditResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	assert.True(t, result.ScorePresent)
	assert.Equal(t, 73, result.Score)
	assert.Equal(t, "ok", result.Summary)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, SeverityCritical, result.Issues[0].Severity)
	assert.Equal(t, SeverityWarning, result.Issues[1].Severity)
	assert.JSONEq(t, `["a","b"]`, string(result.Extra["quickWins"]))
}

func TestAuditResultUnmarshalMissingScore(t *testing.T) {
	var result AuditResult
	require.NoError(t, json.Unmarshal([]byte(`{"score": "80", "issues": []}`), &result))
	assert.False(t, result.ScorePresent)
	assert.Zero(t, result.Score)
}

func TestAuditResultUnmarshalRejectsNonObject(t *testing.T) {
	var result AuditResult
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &result))
	assert.Error(t, json.Unmarshal([]byte(`null`), &result))
}

func TestAuditResultMarshalMergesExtras(t *testing.T) {
	result := AuditResult{
		Score: 60,
		Extra: map[string]json.RawMessage{"grade": json.RawMessage(`"C"`)},
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":60,"issues":[],"grade":"C"}`, string(data))
}

func TestRoastResultRoundTrip(t *testing.T) {
	var result RoastResult
	require.NoError(t, json.Unmarshal([]byte(`{"score":140,"headline":"h","roast":"**r**","tldr":"t","mood":"spicy"}`), &result))
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, "**r**", result.Roast)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":100,"headline":"h","roast":"**r**","tldr":"t","mood":"spicy"}`, string(data))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-3))
	assert.Equal(t, 100, ClampScore(100.4))
	assert.Equal(t, 43, ClampScore(42.5))
}

func TestFinalScoreFallsBack(t *testing.T) {
	var missing *RoastBundle
	assert.Equal(t, 50, missing.FinalScore(50))
	assert.Equal(t, 50, (&RoastBundle{}).FinalScore(50))
	assert.Equal(t, 12, (&RoastBundle{Roast: RoastResult{Score: 12}}).FinalScore(50))
}

func TestNormalizeSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, NormalizeSeverity(" Critical "))
	assert.Equal(t, SeverityWarning, NormalizeSeverity("info"))
	assert.Equal(t, SeverityWarning, NormalizeSeverity(""))
}
