package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/constants"
	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/util"
	"github.com/negraodenio/roast/pkg/errors"
)

// nonContentSelector lists nodes removed before any text is read.
const nonContentSelector = "script, style, noscript, iframe, svg"

var ctaKeywords = []string{"sign", "get", "try", "buy", "join", "start"}

// Extractor fetches one page and reduces it to a domain.SiteContext.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	logger     *zap.Logger
}

func NewExtractor(timeout time.Duration, userAgent string, logger *zap.Logger) *Extractor {
	if timeout <= 0 {
		timeout = constants.ScraperConfig.Timeout
	}
	if userAgent == "" {
		userAgent = constants.ScraperConfig.UserAgent
	}
	return &Extractor{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		timeout:    timeout,
		logger:     logger,
	}
}

// Extract fetches pageURL and parses it. Every failure to obtain the page is
// reported as *errors.SiteUnreachableError.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*domain.SiteContext, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.NewSiteUnreachableError(pageURL, 0, "invalid request", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	started := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn("Site fetch failed",
			zap.String("url", pageURL),
			zap.Error(err))
		return nil, errors.NewSiteUnreachableError(pageURL, 0, "unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Warn("Site returned non-2xx",
			zap.String("url", pageURL),
			zap.Int("status", resp.StatusCode))
		return nil, errors.NewSiteUnreachableError(pageURL, resp.StatusCode, resp.Status, nil)
	}

	site, err := Parse(pageURL, io.LimitReader(resp.Body, constants.ExtractLimits.MaxResponseBytes))
	if err != nil {
		return nil, errors.NewSiteUnreachableError(pageURL, resp.StatusCode, "unparseable html", err)
	}

	e.logger.Info("Site extracted",
		zap.String("url", pageURL),
		zap.Int("headings", len(site.Headings)),
		zap.Int("ctas", len(site.CTATexts)),
		zap.Int("links", site.LinkCount),
		zap.Duration("took", time.Since(started)))

	return site, nil
}

// Parse builds a SiteContext from an HTML document. It performs no I/O beyond
// reading r, so the same document always yields the same context.
func Parse(pageURL string, r io.Reader) (*domain.SiteContext, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("HTML parse failed: %w", err)
	}

	doc.Find(nonContentSelector).Remove()

	meta, _ := doc.Find(`meta[name="description"]`).First().Attr("content")

	images := doc.Find("img")
	imagesWithAlt := images.FilterFunction(func(_ int, sel *goquery.Selection) bool {
		alt, ok := sel.Attr("alt")
		return ok && alt != ""
	}).Length()

	anchors := doc.Find("a")

	return &domain.SiteContext{
		URL:             pageURL,
		Title:           strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription: meta,
		Headings:        collectHeadings(doc),
		BodyTextPreview: util.TruncateRunes(util.CollapseWhitespace(doc.Find("body").Text()), constants.ExtractLimits.MaxBodyPreview),
		ImageCount:      images.Length(),
		LinkCount:       anchors.Length(),
		FormCount:       doc.Find("form").Length(),
		ButtonCount:     doc.Find("button").Length(),
		CTATexts:        collectCTAs(doc),
		HasHTTPS:        strings.HasPrefix(pageURL, "https"),
		LegalLinks:      detectLegalLinks(anchors),
		Accessibility: domain.AccessibilityStats{
			ImagesWithAlt: imagesWithAlt,
			TotalImages:   images.Length(),
			ARIAElements:  doc.Find("[aria-label], [aria-labelledby], [role]").Length(),
		},
	}, nil
}

func collectHeadings(doc *goquery.Document) []string {
	headings := make([]string, 0)
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			headings = append(headings, text)
		}
		return len(headings) < constants.ExtractLimits.MaxHeadings
	})
	return headings
}

func collectCTAs(doc *goquery.Document) []string {
	ctas := make([]string, 0)
	seen := make(map[string]struct{})

	doc.Find("a, button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" || util.RuneLen(text) >= constants.ExtractLimits.MaxCTALength {
			return true
		}
		if !util.ContainsAny(strings.ToLower(text), ctaKeywords...) {
			return true
		}
		if _, dup := seen[text]; dup {
			return true
		}
		seen[text] = struct{}{}
		ctas = append(ctas, text)
		return len(ctas) < constants.ExtractLimits.MaxCTAs
	})
	return ctas
}

// detectLegalLinks ORs each keyword over every anchor on the page, matching
// either the anchor text or its href.
func detectLegalLinks(anchors *goquery.Selection) domain.LegalLinks {
	var links domain.LegalLinks
	anchors.Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		haystack := strings.ToLower(sel.Text()) + " " + strings.ToLower(href)

		links.Privacy = links.Privacy || strings.Contains(haystack, "privacy")
		links.Terms = links.Terms || strings.Contains(haystack, "terms")
		links.Cookies = links.Cookies || strings.Contains(haystack, "cookie")
		links.Accessibility = links.Accessibility || strings.Contains(haystack, "accessibility")
	})
	return links
}
