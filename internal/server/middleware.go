package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
)

// Logger writes one line per request keyed by the matched route, so roast ids
// do not fan out into separate paths. Health checks log at debug, failed
// requests at warn.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if route == "unmatched" {
			fields = append(fields, zap.String("path", c.Request.URL.Path))
		}
		if _, ok := c.Get(ContextKeyUserID); ok {
			fields = append(fields, zap.String("user_id", CurrentUserID(c)))
		}

		switch {
		case route == "/healthz":
			log.Debug("Request served", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Request failed", fields...)
		default:
			log.Info("Request served", fields...)
		}
	}
}

// Claims is the part of a Supabase access token the API reads. The user id
// is the subject.
type Claims struct {
	Email string `json:"email"`
	jwtlib.RegisteredClaims
}

// ParseToken validates an HS256 token signed with secret.
func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token verification is not configured")
	}
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// OptionalAuth sets the user when a bearer token is present. A token that is
// present but invalid is rejected rather than treated as anonymous.
func OptionalAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := ParseToken(secret, token)
		if err != nil {
			abortWithMessage(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Set(ContextKeyUserID, claims.Subject)
		c.Set(ContextKeyEmail, claims.Email)
		c.Next()
	}
}

// RequireAuth must run after OptionalAuth.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			abortWithMessage(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

func CurrentEmail(c *gin.Context) string {
	return c.GetString(ContextKeyEmail)
}

func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

// extractToken reads the Authorization header, then the token query parameter
// browsers use for WebSocket upgrades.
func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
