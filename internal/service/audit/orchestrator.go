package audit

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/prompt"
)

// Caller is the gateway seen from the orchestrator.
type Caller interface {
	Call(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Observer is told when each category settles. It may be called from several
// goroutines at once.
type Observer interface {
	CategorySettled(event domain.CategoryEvent)
}

type ObserverFunc func(event domain.CategoryEvent)

func (f ObserverFunc) CategorySettled(event domain.CategoryEvent) {
	f(event)
}

// Orchestrator fans one site context out to every category and joins the
// results once all calls have settled.
type Orchestrator struct {
	gateway Caller
	catalog *prompt.Catalog
	models  prompt.ModelSet
	logger  *zap.Logger
}

func NewOrchestrator(gateway Caller, catalog *prompt.Catalog, models prompt.ModelSet, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		gateway: gateway,
		catalog: catalog,
		models:  models,
		logger:  logger,
	}
}

type categoryOutcome struct {
	roast domain.RoastResult
	audit domain.AuditResult
}

// Run issues the roast call and one call per audit category concurrently and
// waits for all of them. Malformed output and failed audit calls fall back to
// the category default. A failed roast call is the only error returned, and
// only after every sibling has settled.
func (o *Orchestrator) Run(ctx context.Context, siteContext string, observer Observer) (*domain.RoastBundle, error) {
	requests := o.catalog.Requests(o.models, siteContext)
	outcomes := make([]categoryOutcome, len(requests))
	started := time.Now()

	p := pool.New().WithErrors().WithContext(ctx)
	for idx, req := range requests {
		idx, req := idx, req
		p.Go(func(ctx context.Context) error {
			outcome, err := o.runCategory(ctx, req)
			if err != nil {
				return err
			}
			outcomes[idx] = outcome
			if observer != nil {
				observer.CategorySettled(domain.CategoryEvent{
					Category:  req.Category,
					Defaulted: outcome.defaulted(req.Category),
				})
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	bundle := &domain.RoastBundle{Audits: make(map[domain.Category]domain.AuditResult, len(requests)-1)}
	defaulted := 0
	for idx, req := range requests {
		if req.Category == domain.CategoryRoast {
			bundle.Roast = outcomes[idx].roast
		} else {
			bundle.Audits[req.Category] = outcomes[idx].audit
		}
		if outcomes[idx].defaulted(req.Category) {
			defaulted++
		}
	}

	o.logger.Info("Roast categories settled",
		zap.Int("categories", len(requests)),
		zap.Int("defaulted", defaulted),
		zap.Int("roast_score", bundle.Roast.Score),
		zap.Duration("took", time.Since(started)),
	)

	return bundle, nil
}

func (o *Orchestrator) runCategory(ctx context.Context, req domain.AuditRequest) (categoryOutcome, error) {
	defaultScore := o.catalog.DefaultScore(req.Category)
	raw, err := o.gateway.Call(ctx, req.Model, req.SystemPrompt, req.UserPrompt)

	if req.Category == domain.CategoryRoast {
		if err != nil {
			o.logger.Error("Roast call failed", zap.String("model", req.Model), zap.Error(err))
			return categoryOutcome{}, err
		}
		return categoryOutcome{roast: ParseRoast(raw, defaultScore)}, nil
	}

	if err != nil {
		o.logger.Warn("Audit call failed, using default",
			zap.String("category", req.Category.String()),
			zap.String("model", req.Model),
			zap.Error(err))
		return categoryOutcome{audit: DefaultAudit(req.Category, defaultScore)}, nil
	}

	result := ParseAudit(req.Category, raw, defaultScore)
	if result.Defaulted {
		o.logger.Warn("Audit output unusable, using default",
			zap.String("category", req.Category.String()),
			zap.Int("raw_length", len(raw)))
	}
	return categoryOutcome{audit: result}, nil
}

func (c categoryOutcome) defaulted(category domain.Category) bool {
	if category == domain.CategoryRoast {
		return c.roast.Defaulted
	}
	return c.audit.Defaulted
}
