package main

import (
	"github.com/metervision/meter-reading-api/internal/config"
	"github.com/metervision/meter-reading-api/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
