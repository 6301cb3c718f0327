package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

// abortWithError maps err to its HTTP status. Internal detail stays in the log.
func abortWithError(c *gin.Context, logger *zap.Logger, err error) {
	status := errors.StatusOf(err)
	if status >= 500 {
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	} else {
		logger.Debug("Request rejected",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	abortWithMessage(c, status, errors.PublicMessage(err))
}
