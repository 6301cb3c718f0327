package prompt

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/negraodenio/roast/internal/domain"
)

const catalogFile = "categories.yaml"

// ModelSlot selects one of the configured model names.
type ModelSlot string

const (
	ModelSlotRoast ModelSlot = "roast"
	ModelSlotUX    ModelSlot = "ux"
	ModelSlotSEO   ModelSlot = "seo"
)

// ModelSet holds the configured model name for each slot.
type ModelSet struct {
	Roast string
	UX    string
	SEO   string
}

func (m ModelSet) For(slot ModelSlot) string {
	switch slot {
	case ModelSlotRoast:
		return m.Roast
	case ModelSlotSEO:
		return m.SEO
	default:
		return m.UX
	}
}

// CategoryPrompt is the persona and output contract of one category.
type CategoryPrompt struct {
	Category     domain.Category `yaml:"category"`
	Model        ModelSlot       `yaml:"model"`
	DefaultScore int             `yaml:"default_score"`
	UserPrefix   string          `yaml:"user_prefix"`
	System       string          `yaml:"system"`
}

type catalogDocument struct {
	Categories []CategoryPrompt `yaml:"categories"`
}

// Catalog is the ordered set of category prompts, roast first.
type Catalog struct {
	prompts    []CategoryPrompt
	byCategory map[domain.Category]CategoryPrompt
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
	defaultCatalogErr  error
)

// DefaultCatalog parses the embedded catalogue once.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		content, err := readTemplate(catalogFile)
		if err != nil {
			defaultCatalogErr = fmt.Errorf("load category catalog: %w", err)
			return
		}
		defaultCatalog, defaultCatalogErr = ParseCatalog(content)
	})
	return defaultCatalog, defaultCatalogErr
}

// ParseCatalog decodes a catalogue and checks that the roast and every audit
// category are declared exactly once.
func ParseCatalog(content []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse category catalog: %w", err)
	}

	catalog := &Catalog{
		byCategory: make(map[domain.Category]CategoryPrompt, len(doc.Categories)),
	}
	for _, p := range doc.Categories {
		if p.Category != domain.CategoryRoast && !p.Category.IsAudit() {
			return nil, fmt.Errorf("category catalog: unknown category %q", p.Category)
		}
		if _, dup := catalog.byCategory[p.Category]; dup {
			return nil, fmt.Errorf("category catalog: %s declared twice", p.Category)
		}
		if strings.TrimSpace(p.System) == "" || strings.TrimSpace(p.UserPrefix) == "" {
			return nil, fmt.Errorf("category catalog: %s has an empty prompt", p.Category)
		}
		if p.DefaultScore < 0 || p.DefaultScore > 100 {
			return nil, fmt.Errorf("category catalog: %s default score %d out of range", p.Category, p.DefaultScore)
		}
		p.System = strings.TrimSpace(p.System)
		catalog.byCategory[p.Category] = p
		catalog.prompts = append(catalog.prompts, p)
	}

	for _, c := range append([]domain.Category{domain.CategoryRoast}, domain.AuditCategories()...) {
		if _, ok := catalog.byCategory[c]; !ok {
			return nil, fmt.Errorf("category catalog: missing %s", c)
		}
	}

	return catalog, nil
}

func (c *Catalog) Prompt(category domain.Category) (CategoryPrompt, bool) {
	p, ok := c.byCategory[category]
	return p, ok
}

// DefaultScore is the score substituted when a category's output is unusable.
func (c *Catalog) DefaultScore(category domain.Category) int {
	return c.byCategory[category].DefaultScore
}

// Requests builds one AuditRequest per category, in catalogue order.
func (c *Catalog) Requests(models ModelSet, siteContext string) []domain.AuditRequest {
	requests := make([]domain.AuditRequest, 0, len(c.prompts))
	for _, p := range c.prompts {
		requests = append(requests, domain.AuditRequest{
			Category:     p.Category,
			Model:        models.For(p.Model),
			SystemPrompt: p.System,
			UserPrompt:   UserPrompt(p.UserPrefix, siteContext),
		})
	}
	return requests
}
