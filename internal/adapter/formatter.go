package adapter

import (
	"strings"

	"github.com/negraodenio/roast/internal/constants"
	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/util"
)

// ReportFormatter renders roast results as plain text for the terminal.
type ReportFormatter struct {
	appURL string
}

// NewReportFormatter creates a formatter. appURL is the public frontend used
// for roast links and may be empty.
func NewReportFormatter(appURL string) *ReportFormatter {
	return &ReportFormatter{appURL: strings.TrimRight(strings.TrimSpace(appURL), "/")}
}

type reportIssue struct {
	Severity domain.Severity
	Line     string
}

type reportSection struct {
	Label     string
	Score     int
	Defaulted bool
	Summary   string
	Issues    []reportIssue
}

type reportData struct {
	URL      string
	Score    int
	Headline string
	Roast    string
	TLDR     string
	Sections []reportSection
}

// FormatReport renders the roast followed by every audit that is present.
func (f *ReportFormatter) FormatReport(url string, score int, bundle *domain.RoastBundle) (string, error) {
	data := reportData{URL: url, Score: score}
	if bundle != nil {
		data.Headline = bundle.Roast.Headline
		data.Roast = bundle.Roast.Roast
		data.TLDR = bundle.Roast.TLDR

		for _, c := range domain.AuditCategories() {
			result := bundle.Audit(c)
			if result == nil {
				continue
			}
			section := reportSection{
				Label:     c.String(),
				Score:     result.Score,
				Defaulted: result.Defaulted,
				Summary:   result.Summary,
			}
			for _, issue := range result.Issues {
				section.Issues = append(section.Issues, reportIssue{Severity: issue.Severity, Line: f.issueLine(issue)})
			}
			data.Sections = append(data.Sections, section)
		}
	}
	return render(templateReport, data)
}

// FormatSaved confirms a stored roast and links to it when the app URL is known.
func (f *ReportFormatter) FormatSaved(id string, score int) (string, error) {
	data := struct {
		ID    string
		Score int
		Link  string
	}{ID: id, Score: score}
	if f.appURL != "" {
		data.Link = f.appURL + "/roast/" + id
	}
	return render(templateSaved, data)
}

func (f *ReportFormatter) issueLine(issue domain.Issue) string {
	line := issue.Title
	if line == "" {
		line = issue.Description
	}
	line = util.TruncateRunes(line, constants.StringLimits.ReportIssue)
	if issue.Fix != "" {
		line += " -> " + util.TruncateRunes(issue.Fix, constants.StringLimits.ReportIssue)
	}
	return line
}
