package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/metervision/meter-reading-api/internal/service"
	"go.uber.org/zap"
)

// MeasurementWorkflow is the orchestrator surface the handlers call.
type MeasurementWorkflow interface {
	Upload(ctx context.Context, in service.UploadInput) (*service.UploadResult, error)
	Confirm(ctx context.Context, measureUUID string, confirmedValue int64) error
	List(ctx context.Context, customerCode, measureType string) (*service.ListResult, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	svc      MeasurementWorkflow
	logger   *zap.Logger
	imageDir string
}

// NewServer creates the HTTP server layer.
func NewServer(svc MeasurementWorkflow, logger *zap.Logger, imageDir string) *Server {
	return &Server{
		svc:      svc,
		logger:   logger,
		imageDir: imageDir,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(ErrorHandlingMiddleware(s.logger))

	api := router.Group("/api/measurements")
	api.POST("/upload", s.UploadMeasurement)
	api.PATCH("/confirm", s.ConfirmMeasurement)
	api.GET("/:customer_code/list", s.ListMeasurements)

	router.Static("/resources/images", s.imageDir)

	return router
}
