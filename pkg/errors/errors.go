package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeAppError        = "APP_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
	CodeSiteUnreachable = "SITE_UNREACHABLE"
	CodeProvider        = "PROVIDER_UNAVAILABLE"
	CodeNoCredits       = "NO_CREDITS"
	CodeRateLimited     = "RATE_LIMITED"
	CodeNotFound        = "NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeStore           = "STORE_ERROR"
	CodeCache           = "CACHE_ERROR"
)

// UnreachableMessage is the only thing a user learns about a failed scrape.
const UnreachableMessage = "Could not access website. It might be blocking bots or unreachable."

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

type ValidationError struct {
	*AppError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

// SiteUnreachableError collapses every fetch failure (DNS, timeout, non-2xx) into
// one user-facing message. Reason keeps the internal detail for logs only.
type SiteUnreachableError struct {
	*AppError
	URL    string
	Status int
	Reason string
}

func NewSiteUnreachableError(url string, status int, reason string, cause error) *SiteUnreachableError {
	return &SiteUnreachableError{
		AppError: &AppError{
			Message:    UnreachableMessage,
			Code:       CodeSiteUnreachable,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"url":    url,
				"status": status,
				"reason": reason,
			},
			Cause: cause,
		},
		URL:    url,
		Status: status,
		Reason: reason,
	}
}

// ProviderError reports an LLM provider chain that produced no answer.
type ProviderError struct {
	*AppError
	Provider string
	Status   int
}

func NewProviderError(provider string, status int, cause error) *ProviderError {
	return &ProviderError{
		AppError: &AppError{
			Message:    fmt.Sprintf("%s request failed", provider),
			Code:       CodeProvider,
			StatusCode: http.StatusBadGateway,
			Context: map[string]any{
				"provider": provider,
				"status":   status,
			},
			Cause: cause,
		},
		Provider: provider,
		Status:   status,
	}
}

type NoCreditsError struct {
	*AppError
	UserID string
}

func NewNoCreditsError(userID string) *NoCreditsError {
	return &NoCreditsError{
		AppError: &AppError{
			Message:    "No credits left. Please upgrade.",
			Code:       CodeNoCredits,
			StatusCode: http.StatusForbidden,
			Context:    map[string]any{"user_id": userID},
		},
		UserID: userID,
	}
}

type RateLimitedError struct {
	*AppError
	Key string
}

func NewRateLimitedError(key string) *RateLimitedError {
	return &RateLimitedError{
		AppError: &AppError{
			Message:    "Daily free roast limit reached. Sign in to keep roasting.",
			Code:       CodeRateLimited,
			StatusCode: http.StatusTooManyRequests,
			Context:    map[string]any{"key": key},
		},
		Key: key,
	}
}

func NewNotFoundError(message string, context map[string]any) *AppError {
	return NewAppError(message, CodeNotFound, http.StatusNotFound, context)
}

func NewForbiddenError(message string, context map[string]any) *AppError {
	return NewAppError(message, CodeForbidden, http.StatusForbidden, context)
}

type StoreError struct {
	*AppError
	Operation string
}

func NewStoreError(message, operation string, cause error) *StoreError {
	return &StoreError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeStore,
			StatusCode: http.StatusInternalServerError,
			Context:    map[string]any{"operation": operation},
			Cause:      cause,
		},
		Operation: operation,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

// StatusOf returns the HTTP status carried by err, or 500 for foreign errors.
func StatusOf(err error) int {
	if app := asAppError(err); app != nil && app.StatusCode != 0 {
		return app.StatusCode
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text safe to show an end user. Internal failures get a
// generic message.
func PublicMessage(err error) string {
	app := asAppError(err)
	if app == nil || app.StatusCode >= http.StatusInternalServerError {
		return "Something went wrong while roasting. Please try again."
	}
	return app.Message
}

func asAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var (
		validation  *ValidationError
		unreachable *SiteUnreachableError
		provider    *ProviderError
		noCredits   *NoCreditsError
		limited     *RateLimitedError
		store       *StoreError
		cache       *CacheError
		app         *AppError
	)
	switch {
	case stderrors.As(err, &validation):
		return validation.AppError
	case stderrors.As(err, &unreachable):
		return unreachable.AppError
	case stderrors.As(err, &provider):
		return provider.AppError
	case stderrors.As(err, &noCredits):
		return noCredits.AppError
	case stderrors.As(err, &limited):
		return limited.AppError
	case stderrors.As(err, &store):
		return store.AppError
	case stderrors.As(err, &cache):
		return cache.AppError
	case stderrors.As(err, &app):
		return app
	}
	return nil
}

// IsUnreachable reports whether err came from a failed scrape.
func IsUnreachable(err error) bool {
	var target *SiteUnreachableError
	return stderrors.As(err, &target)
}
