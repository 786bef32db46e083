package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/metervision/meter-reading-api/internal/config"
	"github.com/metervision/meter-reading-api/internal/db"
	"github.com/metervision/meter-reading-api/internal/imagestore"
	"github.com/metervision/meter-reading-api/internal/inference"
	"github.com/metervision/meter-reading-api/internal/mq"
	"github.com/metervision/meter-reading-api/internal/repository"
	"github.com/metervision/meter-reading-api/internal/server"
	"github.com/metervision/meter-reading-api/internal/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	srv *server.Server,
) {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServicePort),
		Handler: srv.Router(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Listen synchronously so a busy port fails startup.
			listener, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
			}

			logger.Info("http server listening",
				zap.Int("port", cfg.ServicePort),
				zap.String("image_dir", cfg.ImageDir))

			go func() {
				if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Error("failed to shut down http server", zap.Error(err))
				return err
			}
			logger.Info("http server stopped gracefully")
			return nil
		},
	})
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideImageStore creates a new image store instance
func ProvideImageStore(cfg *config.Config) *imagestore.Store {
	return imagestore.NewStore(cfg.ImageDir)
}

// ProvideMeterReader creates a new Gemini meter reader instance
func ProvideMeterReader(cfg *config.Config, logger *zap.Logger) *inference.GeminiReader {
	timeout := time.Duration(cfg.Gemini.TimeoutSec) * time.Second
	return inference.NewGeminiReader(cfg.Gemini.APIKey, cfg.Gemini.Model, timeout, logger)
}

// ProvideEventPublisher creates the measurement event publisher. Publishing
// is optional: with no RABBITMQ_URL configured the API runs standalone.
func ProvideEventPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (service.EventPublisher, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Info("event publishing disabled, RABBITMQ_URL not set")
		return nil, nil
	}

	return mq.NewPublisher(lc, cfg.RabbitMQ.URL, cfg.RabbitMQ.EventsExchange, logger)
}

// ProvideMeasurementService creates the workflow orchestrator instance
func ProvideMeasurementService(
	repo *repository.Repository,
	images *imagestore.Store,
	reader *inference.GeminiReader,
	events service.EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *service.MeasurementService {
	routing := service.EventRoutingKeys{
		Created:   cfg.RabbitMQ.CreatedRoutingKey,
		Confirmed: cfg.RabbitMQ.ConfirmedRoutingKey,
	}
	return service.NewMeasurementService(repo, images, reader, events, routing, logger)
}

// ProvideServer creates the HTTP server layer instance. Static serving
// reads from the same directory the image store writes to.
func ProvideServer(svc *service.MeasurementService, logger *zap.Logger, images *imagestore.Store) *server.Server {
	return server.NewServer(svc, logger, images.Dir())
}
