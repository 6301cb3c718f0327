package adapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negraodenio/roast/internal/domain"
)

func TestFormatReport(t *testing.T) {
	bundle := &domain.RoastBundle{
		Roast: domain.RoastResult{Score: 38, Headline: "Beige", Roast: "It is very beige.", TLDR: "Add color."},
		Audits: map[domain.Category]domain.AuditResult{
			domain.CategoryUX: {Category: domain.CategoryUX, Score: 55, Summary: "Busy", Issues: []domain.Issue{
				{Severity: domain.SeverityCritical, Title: "No CTA", Fix: "Add one"},
				{Severity: domain.SeverityWarning, Description: "Small fonts"},
			}},
			domain.CategorySEO: {Category: domain.CategorySEO, Score: 60, Defaulted: true, Issues: []domain.Issue{}},
		},
	}

	text, err := NewReportFormatter("").FormatReport("https://shop.test/", 38, bundle)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"https://shop.test/",
		"Score: 38/100",
		"",
		"Beige",
		"",
		"It is very beige.",
		"",
		"TL;DR: Add color.",
		"",
		"[UX] 55/100",
		"  Busy",
		"  - [critical] No CTA -> Add one",
		"  - [warning] Small fonts",
		"",
		"[SEO] 60/100 (default)",
	}, "\n")
	assert.Equal(t, expected, text)
}

func TestFormatReportWithoutBundle(t *testing.T) {
	text, err := NewReportFormatter("").FormatReport("https://shop.test/", 50, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/\nScore: 50/100", text)
}

func TestFormatReportTruncatesLongIssues(t *testing.T) {
	bundle := &domain.RoastBundle{
		Audits: map[domain.Category]domain.AuditResult{
			domain.CategoryCopy: {Category: domain.CategoryCopy, Score: 10, Issues: []domain.Issue{
				{Severity: domain.SeverityWarning, Title: strings.Repeat("a", 500)},
			}},
		},
	}
	text, err := NewReportFormatter("").FormatReport("u", 10, bundle)
	require.NoError(t, err)
	assert.Contains(t, text, "  - [warning] "+strings.Repeat("a", 200))
	assert.NotContains(t, text, strings.Repeat("a", 201))
}

func TestFormatSaved(t *testing.T) {
	text, err := NewReportFormatter("https://roast.test/").FormatSaved("abc", 42)
	require.NoError(t, err)
	assert.Equal(t, "Saved roast abc (score 42)\nhttps://roast.test/roast/abc", text)

	text, err = NewReportFormatter("").FormatSaved("abc", 42)
	require.NoError(t, err)
	assert.Equal(t, "Saved roast abc (score 42)", text)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := render(reportTemplate("missing"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render missing")
}
