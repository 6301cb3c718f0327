package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/service/audit"
	"github.com/negraodenio/roast/internal/service/roast"
)

// RoastAPI is the part of the roast service the HTTP layer drives.
type RoastAPI interface {
	Roast(ctx context.Context, req roast.Request, observer audit.Observer) (*roast.Outcome, error)
	View(ctx context.Context, rawID, viewerID string) (*domain.RoastView, error)
	Wall(ctx context.Context) ([]domain.WallEntry, error)
	Dashboard(ctx context.Context, userID string) ([]*domain.RoastRecord, error)
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Mode           string
	AllowedOrigins []string
	JWTSecret      string
}

type Server struct {
	router   *gin.Engine
	roasts   RoastAPI
	health   HealthChecker
	origins  func(origin string) bool
	secret   []byte
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func New(roasts RoastAPI, health HealthChecker, opts Options, logger *zap.Logger) *Server {
	switch opts.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:  gin.New(),
		roasts:  roasts,
		health:  health,
		origins: originMatcher(opts.AllowedOrigins),
		secret:  []byte(opts.JWTSecret),
		logger:  logger,
	}
	s.upgrader = newUpgrader(s.origins)

	s.router.HandleMethodNotAllowed = true
	s.router.Use(gin.Recovery())
	s.router.Use(Logger(logger))
	s.router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  s.origins,
	}))

	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api", OptionalAuth(s.secret))
	api.POST("/roast", s.handleCreateRoast)
	api.GET("/roast/stream", s.handleRoastStream)
	api.GET("/roast/:id", s.handleGetRoast)
	api.GET("/wall", s.handleWall)
	api.GET("/dashboard/roasts", RequireAuth(), s.handleDashboard)
}

// originMatcher allows everything when no origins are configured. Entries are
// full origins or bare hosts.
func originMatcher(allowed []string) func(string) bool {
	if len(allowed) == 0 {
		return func(string) bool { return true }
	}
	return func(origin string) bool {
		host := origin
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			host = u.Host
		}
		for _, entry := range allowed {
			if strings.EqualFold(entry, origin) || strings.EqualFold(entry, host) {
				return true
			}
		}
		return false
	}
}

type createRoastRequest struct {
	URL      string `json:"url"`
	IsPublic *bool  `json:"isPublic"`
}

type createRoastResponse struct {
	Success bool `json:"success"`
	*roast.Outcome
}

func (s *Server) roastRequest(c *gin.Context, body createRoastRequest) roast.Request {
	return roast.Request{
		URL:      body.URL,
		IsPublic: body.IsPublic,
		UserID:   CurrentUserID(c),
		Email:    CurrentEmail(c),
		ClientIP: c.ClientIP(),
	}
}

func (s *Server) handleCreateRoast(c *gin.Context) {
	var body createRoastRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		abortWithMessage(c, http.StatusBadRequest, "Invalid URL")
		return
	}

	outcome, err := s.roasts.Roast(c.Request.Context(), s.roastRequest(c, body), nil)
	if err != nil {
		abortWithError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, createRoastResponse{Success: true, Outcome: outcome})
}

func (s *Server) handleGetRoast(c *gin.Context) {
	view, err := s.roasts.View(c.Request.Context(), c.Param("id"), CurrentUserID(c))
	if err != nil {
		abortWithError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleWall(c *gin.Context) {
	entries, err := s.roasts.Wall(c.Request.Context())
	if err != nil {
		abortWithError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roasts": entries})
}

func (s *Server) handleDashboard(c *gin.Context) {
	records, err := s.roasts.Dashboard(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		abortWithError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roasts": records})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
