package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/config"
	"github.com/negraodenio/roast/internal/prompt"
	"github.com/negraodenio/roast/internal/server"
	"github.com/negraodenio/roast/internal/service/audit"
	"github.com/negraodenio/roast/internal/service/cache"
	"github.com/negraodenio/roast/internal/service/database"
	"github.com/negraodenio/roast/internal/service/extractor"
	"github.com/negraodenio/roast/internal/service/llm"
	"github.com/negraodenio/roast/internal/service/roast"
	"github.com/negraodenio/roast/internal/util"
)

// Options selects which infrastructure Build connects to.
type Options struct {
	// SkipStores builds an analysis-only service without Postgres or Redis.
	SkipStores bool
	// Migrate applies the schema after connecting to Postgres.
	Migrate bool
}

// Container bundles assembled services for the server and the admin CLI.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Postgres *database.PostgresService
	Gateway  *llm.Gateway
	Roasts   *roast.Service

	closers []func()
}

// Build assembles all infrastructure services. Anything opened before a
// failure is closed again.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	gateway, err := buildGateway(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Gateway = gateway

	catalog, err := prompt.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt catalog: %w", err)
	}
	orchestrator := audit.NewOrchestrator(gateway, catalog, prompt.ModelSet{
		Roast: cfg.Primary.RoastModel,
		UX:    cfg.Primary.UXModel,
		SEO:   cfg.Primary.SEOModel,
	}, logger)

	deps := roast.Dependencies{
		Extractor: extractor.NewExtractor(cfg.Scraper.Timeout, cfg.Scraper.UserAgent, logger),
		Auditor:   orchestrator,
	}

	if !opts.SkipStores {
		if err := c.connectStores(ctx, opts, &deps); err != nil {
			return nil, err
		}
	}

	c.Roasts = roast.NewService(deps, roast.Config{
		Timeout:         cfg.Roast.Timeout,
		FreePlanCredits: cfg.Roast.FreePlanCredits,
	}, logger)

	logger.Info("Roast services assembled",
		zap.Strings("providers", gateway.Providers()),
		zap.Bool("stores", !opts.SkipStores),
		zap.Bool("redis", cfg.Redis.Enabled() && !opts.SkipStores),
	)
	return c, nil
}

func (c *Container) connectStores(ctx context.Context, opts Options, deps *roast.Dependencies) error {
	cfg := c.Config

	postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
		URL:      cfg.Postgres.URL,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
		SSLMode:  cfg.Postgres.SSLMode,
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create postgres service: %w", err)
	}
	c.Postgres = postgresSvc
	c.closers = append(c.closers, func() {
		_ = postgresSvc.Close()
	})

	if opts.Migrate {
		if err := postgresSvc.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	deps.Roasts = database.NewRoastRepository(postgresSvc, c.Logger)
	deps.Profiles = database.NewProfileRepository(postgresSvc, c.Logger)

	if !cfg.Redis.Enabled() {
		c.Logger.Warn("REDIS_HOST not set, anonymous rate limit and wall cache disabled")
		return nil
	}

	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create cache service: %w", err)
	}
	c.closers = append(c.closers, func() {
		_ = cacheSvc.Close()
	})

	deps.Limiter = cache.NewRateLimiter(cacheSvc, cfg.Roast.AnonDailyLimit, 0)
	deps.WallCache = cache.NewWallCache(cacheSvc, 0)
	return nil
}

// buildGateway wires the primary provider behind a circuit breaker and the
// configured fallback.
func buildGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*llm.Gateway, error) {
	primary := llm.NewOpenAIProvider(llm.OpenAIConfig{
		Name:      "siliconflow",
		APIKey:    cfg.Primary.APIKey,
		BaseURL:   cfg.Primary.BaseURL,
		MaxTokens: cfg.Primary.MaxTokens,
		Timeout:   cfg.LLM.RequestTimeout,
	}, logger)

	var fallback llm.Provider
	switch cfg.Fallback.Provider {
	case config.FallbackGemini:
		gemini, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
			APIKey: cfg.Fallback.GeminiAPIKey,
			Model:  cfg.Fallback.GeminiModel,
		}, logger)
		if err != nil {
			return nil, err
		}
		fallback = gemini
	default:
		fallback = llm.NewOpenAIProvider(llm.OpenAIConfig{
			Name:      "groq",
			APIKey:    cfg.Fallback.GroqAPIKey,
			BaseURL:   cfg.Fallback.GroqBaseURL,
			Model:     cfg.Fallback.GroqModel,
			MaxTokens: cfg.Fallback.GroqMaxTokens,
			Timeout:   cfg.LLM.RequestTimeout,
		}, logger)
	}

	if !primary.Available() && !fallback.Available() {
		logger.Warn("No LLM credentials configured, every roast will fail")
	}

	breaker := util.NewCircuitBreaker("siliconflow", cfg.LLM.BreakerThreshold, cfg.LLM.BreakerReset, logger)
	return llm.NewGateway(primary, fallback, breaker, logger), nil
}

// NewServer builds the HTTP API over the assembled services.
func (c *Container) NewServer() (*server.Server, error) {
	if c == nil || c.Roasts == nil || c.Postgres == nil {
		return nil, fmt.Errorf("server dependencies not initialized")
	}
	return server.New(c.Roasts, c.Postgres, server.Options{
		Mode:           c.Config.Server.Mode,
		AllowedOrigins: c.Config.Server.AllowedOrigins,
		JWTSecret:      c.Config.Auth.JWTSecret,
	}, c.Logger), nil
}

// Close releases connections in reverse order of opening.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
