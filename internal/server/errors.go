package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/metervision/meter-reading-api/internal/apperr"
	"github.com/metervision/meter-reading-api/internal/logging"
	"go.uber.org/zap"
)

type errorResponse struct {
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// ErrorHandlingMiddleware turns errors attached to the context into the
// uniform {error_code, error_description} body. Internals stay in the
// server-side log only.
func ErrorHandlingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		apiErr := apperr.From(lastErr.Err)
		reqLogger := logging.WithRequestID(logger, c.GetString(requestIDKey))
		fields := []zap.Field{
			zap.Error(lastErr.Err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", apiErr.Status),
			zap.String("error_code", apiErr.Code),
		}
		if apiErr.Status >= http.StatusInternalServerError {
			reqLogger.Error("request failed", fields...)
		} else {
			reqLogger.Warn("request rejected", fields...)
		}

		c.AbortWithStatusJSON(apiErr.Status, errorResponse{
			ErrorCode:        apiErr.Code,
			ErrorDescription: apiErr.Message,
		})
	}
}

// AbortWithError records err on the context for the error middleware.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidDataError(message string) error {
	return apperr.New(http.StatusBadRequest, apperr.CodeInvalidData, message)
}
