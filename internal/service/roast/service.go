package roast

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/constants"
	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/prompt"
	"github.com/negraodenio/roast/internal/service/audit"
	"github.com/negraodenio/roast/pkg/errors"
)

type SiteExtractor interface {
	Extract(ctx context.Context, pageURL string) (*domain.SiteContext, error)
}

type Auditor interface {
	Run(ctx context.Context, siteContext string, observer audit.Observer) (*domain.RoastBundle, error)
}

type RoastStore interface {
	CreateRoast(ctx context.Context, record *domain.RoastRecord) error
	GetRoast(ctx context.Context, id uuid.UUID) (*domain.RoastRecord, error)
	ListPublicRoasts(ctx context.Context, limit int) ([]domain.WallEntry, error)
	ListRoastsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.RoastRecord, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
}

type ProfileStore interface {
	// GetProfile returns nil without error when no profile exists.
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	CreateProfile(ctx context.Context, id uuid.UUID, email string, credits int) error
	DecrementCredits(ctx context.Context, id uuid.UUID) error
	UpgradeByEmail(ctx context.Context, email string) (bool, error)
}

// RateLimiter meters anonymous roasts. Allow counts the attempt.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type WallCache interface {
	GetWall(ctx context.Context) ([]domain.WallEntry, bool)
	SetWall(ctx context.Context, entries []domain.WallEntry)
	Invalidate(ctx context.Context)
}

type Config struct {
	Timeout         time.Duration
	FallbackScore   int
	WallSize        int
	DashboardSize   int
	FreePlanCredits int
}

// Service runs the roast pipeline and the read paths around stored roasts.
// Limiter and wall cache are optional.
type Service struct {
	extractor SiteExtractor
	auditor   Auditor
	roasts    RoastStore
	profiles  ProfileStore
	limiter   RateLimiter
	wallCache WallCache
	markdown  goldmark.Markdown
	cfg       Config
	logger    *zap.Logger
}

type Dependencies struct {
	Extractor SiteExtractor
	Auditor   Auditor
	Roasts    RoastStore
	Profiles  ProfileStore
	Limiter   RateLimiter
	WallCache WallCache
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.RoastConfig.Timeout
	}
	if cfg.FallbackScore <= 0 {
		cfg.FallbackScore = constants.RoastConfig.FallbackScore
	}
	if cfg.WallSize <= 0 {
		cfg.WallSize = constants.RoastConfig.WallSize
	}
	if cfg.DashboardSize <= 0 {
		cfg.DashboardSize = constants.RoastConfig.DashboardSize
	}
	if cfg.FreePlanCredits <= 0 {
		cfg.FreePlanCredits = constants.RoastConfig.FreePlanCredits
	}
	return &Service{
		extractor: deps.Extractor,
		auditor:   deps.Auditor,
		roasts:    deps.Roasts,
		profiles:  deps.Profiles,
		limiter:   deps.Limiter,
		wallCache: deps.WallCache,
		markdown:  goldmark.New(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Request is one roast submission.
type Request struct {
	URL      string
	IsPublic *bool
	UserID   string
	Email    string
	ClientIP string
}

// Outcome is what a finished, persisted roast reports back.
type Outcome struct {
	RoastID uuid.UUID `json:"roastId"`
	Score   int       `json:"score"`
}

// Analysis is an unsaved roast.
type Analysis struct {
	URL    string              `json:"url"`
	Site   *domain.SiteContext `json:"site"`
	Bundle *domain.RoastBundle `json:"-"`
	Score  int                 `json:"score"`
}

// NormalizeURL prefixes https:// when no scheme is given and requires a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.NewValidationError("Invalid URL", "url", raw)
	}
	if !strings.HasPrefix(raw, "http") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.NewValidationError("Invalid URL", "url", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Roast gates the caller, runs the pipeline, stores the record and charges a
// credit. Once the page has been fetched the work no longer follows the
// caller's cancellation.
func (s *Service) Roast(ctx context.Context, req Request, observer audit.Observer) (*Outcome, error) {
	pageURL, err := NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}

	owner, err := s.gate(ctx, req)
	if err != nil {
		return nil, err
	}

	site, err := s.extractor.Extract(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	analysis, err := s.analyzeSite(runCtx, pageURL, site, observer)
	if err != nil {
		return nil, err
	}

	public := true
	if req.IsPublic != nil {
		public = *req.IsPublic
	}

	record := domain.NewRoastRecord(pageURL, owner, analysis.Bundle, s.cfg.FallbackScore, public)
	if err := s.roasts.CreateRoast(runCtx, record); err != nil {
		s.logger.Error("Failed to save roast", zap.String("url", pageURL), zap.Error(err))
		return nil, err
	}

	if public && s.wallCache != nil {
		s.wallCache.Invalidate(runCtx)
	}

	if owner.Valid {
		if err := s.profiles.DecrementCredits(runCtx, owner.UUID); err != nil {
			s.logger.Warn("Failed to decrement credits",
				zap.String("user_id", owner.UUID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Roast saved",
		zap.String("roast_id", record.ID.String()),
		zap.String("url", pageURL),
		zap.Int("score", record.Score),
		zap.Bool("public", public),
		zap.Bool("anonymous", !owner.Valid))

	return &Outcome{RoastID: record.ID, Score: record.Score}, nil
}

// Analyze runs extraction and every category without persisting anything.
func (s *Service) Analyze(ctx context.Context, rawURL string, observer audit.Observer) (*Analysis, error) {
	pageURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	site, err := s.extractor.Extract(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.analyzeSite(runCtx, pageURL, site, observer)
}

func (s *Service) analyzeSite(ctx context.Context, pageURL string, site *domain.SiteContext, observer audit.Observer) (*Analysis, error) {
	block, err := prompt.BuildSiteContext(site)
	if err != nil {
		return nil, err
	}

	bundle, err := s.auditor.Run(ctx, block, observer)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		URL:    pageURL,
		Site:   site,
		Bundle: bundle,
		Score:  bundle.FinalScore(s.cfg.FallbackScore),
	}, nil
}

// gate applies the credit check for signed-in users and the daily limit for
// anonymous ones. A signed-in user without a profile gets a free one and is
// let through.
func (s *Service) gate(ctx context.Context, req Request) (uuid.NullUUID, error) {
	if req.UserID == "" {
		if s.limiter != nil && req.ClientIP != "" {
			key := constants.CacheKeys.AnonRoastPrefix + req.ClientIP
			allowed, err := s.limiter.Allow(ctx, key)
			if err != nil {
				s.logger.Warn("Rate limiter unavailable, allowing", zap.Error(err))
			} else if !allowed {
				return uuid.NullUUID{}, errors.NewRateLimitedError(key)
			}
		}
		return uuid.NullUUID{}, nil
	}

	id, err := uuid.Parse(req.UserID)
	if err != nil {
		return uuid.NullUUID{}, errors.NewValidationError("Invalid user", "user_id", req.UserID)
	}

	profile, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return uuid.NullUUID{}, err
	}
	if profile == nil {
		if err := s.profiles.CreateProfile(ctx, id, req.Email, s.cfg.FreePlanCredits); err != nil {
			s.logger.Warn("Failed to create profile", zap.String("user_id", req.UserID), zap.Error(err))
		}
	} else if !profile.CanRoast() {
		return uuid.NullUUID{}, errors.NewNoCreditsError(req.UserID)
	}
	return uuid.NullUUID{UUID: id, Valid: true}, nil
}

// View loads a roast for viewerID, enforcing visibility and the paywall.
func (s *Service) View(ctx context.Context, rawID, viewerID string) (*domain.RoastView, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errors.NewNotFoundError("Roast not found", map[string]any{"id": rawID})
	}

	record, err := s.roasts.GetRoast(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NewNotFoundError("Roast not found", map[string]any{"id": rawID})
	}
	if !record.CanView(viewerID) {
		return nil, errors.NewForbiddenError("This roast is private", map[string]any{"id": rawID})
	}

	view := record.ViewFor(viewerID)
	view.RoastHTML = s.renderMarkdown(record.Roast.Roast)
	return &view, nil
}

func (s *Service) renderMarkdown(source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		s.logger.Warn("Markdown render failed", zap.Error(err))
		return ""
	}
	return buf.String()
}

// Wall lists the newest public roasts, served from cache when possible.
func (s *Service) Wall(ctx context.Context) ([]domain.WallEntry, error) {
	if s.wallCache != nil {
		if entries, ok := s.wallCache.GetWall(ctx); ok {
			return entries, nil
		}
	}

	entries, err := s.roasts.ListPublicRoasts(ctx, s.cfg.WallSize)
	if err != nil {
		return nil, err
	}

	if s.wallCache != nil {
		s.wallCache.SetWall(ctx, entries)
	}
	return entries, nil
}

// Dashboard lists the caller's own roasts, newest first.
func (s *Service) Dashboard(ctx context.Context, userID string) ([]*domain.RoastRecord, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, errors.NewValidationError("Invalid user", "user_id", userID)
	}
	return s.roasts.ListRoastsByUser(ctx, id, s.cfg.DashboardSize)
}

// ConfirmPayment unlocks a roast's audits. It reports false when the roast
// was already paid.
func (s *Service) ConfirmPayment(ctx context.Context, rawID string) (bool, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return false, errors.NewValidationError("Invalid roast id", "id", rawID)
	}
	flipped, err := s.roasts.MarkPaid(ctx, id)
	if err != nil {
		return false, err
	}
	s.logger.Info("Payment confirmed", zap.String("roast_id", rawID), zap.Bool("flipped", flipped))
	return flipped, nil
}

// UpgradeToAgency gives a profile unlimited roasts.
func (s *Service) UpgradeToAgency(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.NewValidationError("Email is required", "email", email)
	}
	found, err := s.profiles.UpgradeByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !found {
		return errors.NewNotFoundError("Profile not found", map[string]any{"email": email})
	}
	s.logger.Info("Profile upgraded to agency", zap.String("email", email))
	return nil
}
