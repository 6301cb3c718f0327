package audit

import (
	"encoding/json"
	"strings"

	"github.com/negraodenio/roast/internal/domain"
)

const (
	failedRoastHeadline = "Roast Failed"
	failedRoastTLDR     = "AI timed out roasting you."
)

// DefaultAudit is substituted whenever a category produced nothing usable.
func DefaultAudit(category domain.Category, defaultScore int) domain.AuditResult {
	return domain.AuditResult{
		Category:  category,
		Score:     defaultScore,
		Issues:    []domain.Issue{},
		Defaulted: true,
	}
}

// ParseAudit validates raw model output. Non-JSON output, a non-object, or an
// object without a numeric score all collapse to DefaultAudit.
func ParseAudit(category domain.Category, raw string, defaultScore int) domain.AuditResult {
	var result domain.AuditResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil || !result.ScorePresent {
		return DefaultAudit(category, defaultScore)
	}
	result.Category = category
	return result
}

// ParseRoast validates the roast output. Unparseable output keeps the raw text
// as the roast body; a missing score only replaces the score.
func ParseRoast(raw string, defaultScore int) domain.RoastResult {
	var result domain.RoastResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return domain.RoastResult{
			Score:     defaultScore,
			Headline:  failedRoastHeadline,
			Roast:     raw,
			TLDR:      failedRoastTLDR,
			Defaulted: true,
		}
	}
	if !result.ScorePresent {
		result.Score = defaultScore
		result.Defaulted = true
	}
	return result
}
