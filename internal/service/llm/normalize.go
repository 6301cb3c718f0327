package llm

import "regexp"

var (
	leadingFence  = regexp.MustCompile("^```json\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// NormalizeContent strips a leading ```json fence and a trailing ``` fence.
// Anything else is returned unmodified.
func NormalizeContent(content string) string {
	content = leadingFence.ReplaceAllString(content, "")
	return trailingFence.ReplaceAllString(content, "")
}
