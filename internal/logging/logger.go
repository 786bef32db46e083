package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates the service-wide structured logger. Every entry
// carries the service name so aggregated logs stay attributable.
func NewLogger(serviceName string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]interface{}{
		"service": serviceName,
	}
	return cfg.Build()
}

// WithRequestID returns a request-scoped logger carrying the request_id
// assigned by the HTTP request-ID middleware.
func WithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	return logger.With(zap.String("request_id", requestID))
}
