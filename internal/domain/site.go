package domain

// LegalLinks flags which legal pages are linked from anywhere on the page.
type LegalLinks struct {
	Privacy       bool `json:"privacy"`
	Terms         bool `json:"terms"`
	Cookies       bool `json:"cookies"`
	Accessibility bool `json:"accessibility"`
}

// AccessibilityStats counts basic accessibility markers.
type AccessibilityStats struct {
	ImagesWithAlt int `json:"imagesWithAlt"`
	TotalImages   int `json:"totalImages"`
	ARIAElements  int `json:"ariaElements"`
}

// SiteContext is the bounded summary of one scraped page. It is built once per
// roast, never mutated and never persisted.
type SiteContext struct {
	URL             string             `json:"url"`
	Title           string             `json:"title"`
	MetaDescription string             `json:"metaDescription"`
	Headings        []string           `json:"headings"`
	BodyTextPreview string             `json:"bodyTextPreview"`
	ImageCount      int                `json:"imageCount"`
	LinkCount       int                `json:"linkCount"`
	FormCount       int                `json:"formCount"`
	ButtonCount     int                `json:"buttonCount"`
	CTATexts        []string           `json:"ctaTexts"`
	HasHTTPS        bool               `json:"hasHttps"`
	LegalLinks      LegalLinks         `json:"legalLinks"`
	Accessibility   AccessibilityStats `json:"accessibility"`
}
