package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/util"
	apperrors "github.com/negraodenio/roast/pkg/errors"
)

// Gateway sends one message pair to the primary provider and, when that
// fails, once to the fallback. There is no further retry and no backoff.
type Gateway struct {
	chain  []Provider
	logger *zap.Logger
}

// NewGateway builds the ordered chain. fallback may be nil. breaker guards the
// primary only: while it is open and the fallback can serve, the primary is
// skipped as if it had no credential. With no usable fallback the primary is
// always attempted. The chain never grows beyond two attempts.
func NewGateway(primary, fallback Provider, breaker *util.CircuitBreaker, logger *zap.Logger) *Gateway {
	chain := []Provider{&guardedProvider{Provider: primary, breaker: breaker, fallback: fallback}}
	if fallback != nil {
		chain = append(chain, fallback)
	}
	return &Gateway{chain: chain, logger: logger}
}

// Call returns the normalized content of the first provider that answers.
func (g *Gateway) Call(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	text, used, err := callChain(ctx, g.chain, Request{
		Model:        model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		g.logger.Error("LLM chain exhausted", zap.String("model", model), zap.Error(err))
		return "", err
	}
	if used > 0 {
		g.logger.Info("Served by fallback provider",
			zap.String("provider", g.chain[used].Name()),
			zap.String("requested_model", model))
	}
	return text, nil
}

// Providers exposes the chain names in order.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.chain))
	for _, p := range g.chain {
		names = append(names, p.Name())
	}
	return names
}

// callChain tries each provider in order and stops at the first success. An
// unavailable provider is skipped. When every attempt fails the first failure
// is returned, joined with any later attempt errors.
func callChain(ctx context.Context, chain []Provider, req Request) (string, int, error) {
	var errs []error
	for i, p := range chain {
		if !p.Available() {
			if len(errs) == 0 {
				errs = append(errs, apperrors.NewProviderError(p.Name(), 0, ErrProviderUnavailable))
			}
			continue
		}
		text, err := p.Complete(ctx, req)
		if err == nil {
			return NormalizeContent(text), i, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return "", -1, apperrors.NewProviderError("llm", 0, fmt.Errorf("no providers configured"))
	}
	return "", -1, errors.Join(errs...)
}

// guardedProvider feeds the primary's outcomes into a circuit breaker.
type guardedProvider struct {
	Provider
	breaker  *util.CircuitBreaker
	fallback Provider
}

func (p *guardedProvider) Available() bool {
	if !p.Provider.Available() {
		return false
	}
	if p.fallback == nil || !p.fallback.Available() {
		return true
	}
	return p.breaker.CanExecute()
}

func (p *guardedProvider) Complete(ctx context.Context, req Request) (string, error) {
	text, err := p.Provider.Complete(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			p.breaker.RecordFailure()
		} else {
			p.breaker.ReleaseTrial()
		}
		return "", err
	}
	p.breaker.RecordSuccess()
	return text, nil
}
