package prompt

import (
	"fmt"

	"github.com/negraodenio/roast/internal/constants"
	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/util"
)

type siteContextData struct {
	*domain.SiteContext
	BodyPreview string
}

// BuildSiteContext renders the labeled block every category prompt receives.
// It is the only view of the page the model ever gets.
func BuildSiteContext(site *domain.SiteContext) (string, error) {
	if site == nil {
		return "", fmt.Errorf("build site context: nil site")
	}
	return DefaultPromptBuilder().Render(TemplateSiteContext, siteContextData{
		SiteContext: site,
		BodyPreview: util.TruncateRunes(site.BodyTextPreview, constants.PromptLimits.BodyPreview),
	})
}

// UserPrompt prefixes the site block with a category instruction.
func UserPrompt(prefix, siteContext string) string {
	return prefix + "\n" + siteContext
}
