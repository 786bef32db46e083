package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/metervision/meter-reading-api/internal/apperr"
	"github.com/metervision/meter-reading-api/internal/db"
	"github.com/metervision/meter-reading-api/internal/mq"
	"go.uber.org/zap"
)

// MeasurementRepository is the persistence surface the workflow needs.
type MeasurementRepository interface {
	HasMeasurementInPeriod(ctx context.Context, customerCode string, measureType db.MeasureType, year, month int) (bool, error)
	Insert(ctx context.Context, m *db.Measurement) error
	FindByUUID(ctx context.Context, measureUUID uuid.UUID) (*db.Measurement, error)
	Confirm(ctx context.Context, measureUUID uuid.UUID, confirmedValue int64) error
	ListByCustomer(ctx context.Context, customerCode string, measureType *db.MeasureType) ([]db.Measurement, error)
}

// ImageStore persists an encoded image and returns its file name.
type ImageStore interface {
	Save(encodedImage string) (string, error)
}

// MeterReader derives an integer reading from a meter photo.
type MeterReader interface {
	ReadMeasurement(ctx context.Context, encodedImage, fileName string) (int64, error)
}

// EventPublisher emits measurement lifecycle events. May be absent.
type EventPublisher interface {
	PublishMeasurementEvent(ctx context.Context, event mq.MeasurementEvent, routingKey string) error
}

// EventRoutingKeys names the routing keys for published events.
type EventRoutingKeys struct {
	Created   string
	Confirmed string
}

// MeasurementService orchestrates the upload, confirm and list workflows.
type MeasurementService struct {
	repo    MeasurementRepository
	images  ImageStore
	reader  MeterReader
	events  EventPublisher
	routing EventRoutingKeys
	logger  *zap.Logger
}

// NewMeasurementService creates the workflow orchestrator. events may be
// nil, in which case no events are published.
func NewMeasurementService(
	repo MeasurementRepository,
	images ImageStore,
	reader MeterReader,
	events EventPublisher,
	routing EventRoutingKeys,
	logger *zap.Logger,
) *MeasurementService {
	return &MeasurementService{
		repo:    repo,
		images:  images,
		reader:  reader,
		events:  events,
		routing: routing,
		logger:  logger,
	}
}

// UploadInput carries the upload request fields plus the request's base
// URL, used to build the retrievable image URL.
type UploadInput struct {
	Image           string
	CustomerCode    string
	MeasureDatetime string
	MeasureType     string
	BaseURL         string
}

// UploadResult is the upload response payload.
type UploadResult struct {
	ImageURL     string
	MeasureValue int64
	MeasureUUID  uuid.UUID
}

// Upload runs the full upload workflow: validation, duplicate check,
// image persistence, inference and record insertion.
func (s *MeasurementService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Image == "" || in.CustomerCode == "" || in.MeasureDatetime == "" || in.MeasureType == "" {
		return nil, apperr.New(http.StatusBadRequest, apperr.CodeInvalidData, "Todos os campos são obrigatórios")
	}

	// Upload takes the type verbatim; only the list filter is
	// case-insensitive.
	measureType := db.MeasureType(in.MeasureType)
	if measureType != db.MeasureTypeWater && measureType != db.MeasureTypeGas {
		return nil, apperr.New(http.StatusBadRequest, apperr.CodeInvalidData, "Tipo de medição não permitida")
	}

	measureDatetime, err := time.Parse(time.RFC3339, in.MeasureDatetime)
	if err != nil {
		return nil, apperr.New(http.StatusBadRequest, apperr.CodeInvalidData, "Dados fornecidos são inválidos")
	}

	exists, err := s.repo.HasMeasurementInPeriod(ctx, in.CustomerCode, measureType, measureDatetime.Year(), int(measureDatetime.Month()))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.New(http.StatusConflict, apperr.CodeDoubleReport, "Leitura do mês já realizada")
	}

	fileName, err := s.images.Save(in.Image)
	if err != nil {
		return nil, err
	}

	measureValue, err := s.reader.ReadMeasurement(ctx, in.Image, fileName)
	if err != nil {
		return nil, err
	}

	imageURL := fmt.Sprintf("%s/resources/images/%s", in.BaseURL, fileName)
	measurement := &db.Measurement{
		MeasureUUID:     uuid.New(),
		CustomerCode:    in.CustomerCode,
		MeasureType:     measureType,
		MeasureValue:    measureValue,
		MeasureDatetime: measureDatetime,
		ImageURL:        &imageURL,
	}

	if err := s.repo.Insert(ctx, measurement); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, measurement, s.routing.Created)

	return &UploadResult{
		ImageURL:     imageURL,
		MeasureValue: measurement.MeasureValue,
		MeasureUUID:  measurement.MeasureUUID,
	}, nil
}

// Confirm overwrites a measurement's value with the human-confirmed one.
// A measurement can be confirmed exactly once.
func (s *MeasurementService) Confirm(ctx context.Context, measureUUID string, confirmedValue int64) error {
	id, err := uuid.Parse(measureUUID)
	if err != nil {
		return apperr.New(http.StatusNotFound, apperr.CodeMeasureNotFound, "Leitura não encontrada")
	}

	measurement, err := s.repo.FindByUUID(ctx, id)
	if err != nil {
		return err
	}
	if measurement == nil {
		return apperr.New(http.StatusNotFound, apperr.CodeMeasureNotFound, "Leitura não encontrada")
	}

	if measurement.HasConfirmed {
		return apperr.New(http.StatusConflict, apperr.CodeConfirmationDup, "Leitura já confirmada")
	}

	if err := s.repo.Confirm(ctx, id, confirmedValue); err != nil {
		return err
	}

	measurement.MeasureValue = confirmedValue
	measurement.HasConfirmed = true
	s.publishEvent(ctx, measurement, s.routing.Confirmed)

	return nil
}

// ListedMeasure is one entry of the list response.
type ListedMeasure struct {
	MeasureUUID     uuid.UUID
	MeasureDatetime time.Time
	MeasureType     db.MeasureType
	HasConfirmed    bool
	ImageURL        *string
}

// ListResult is the list response payload.
type ListResult struct {
	CustomerCode string
	Measures     []ListedMeasure
}

// List returns the customer's measurements, optionally filtered by meter
// type (case-insensitive). An empty result is a MEASURES_NOT_FOUND error,
// not an empty success.
func (s *MeasurementService) List(ctx context.Context, customerCode, measureType string) (*ListResult, error) {
	if customerCode == "" {
		return nil, apperr.New(http.StatusBadRequest, apperr.CodeInvalidData, "Código do cliente é obrigatório")
	}

	var typeFilter *db.MeasureType
	if measureType != "" {
		parsed, ok := db.ParseMeasureType(measureType)
		if !ok {
			return nil, apperr.New(http.StatusBadRequest, apperr.CodeInvalidType, "Tipo de medição não permitida")
		}
		typeFilter = &parsed
	}

	measurements, err := s.repo.ListByCustomer(ctx, customerCode, typeFilter)
	if err != nil {
		return nil, err
	}
	if len(measurements) == 0 {
		return nil, apperr.New(http.StatusNotFound, apperr.CodeMeasuresNotFound, "Nenhuma leitura encontrada")
	}

	result := &ListResult{
		CustomerCode: customerCode,
		Measures:     make([]ListedMeasure, 0, len(measurements)),
	}
	for _, m := range measurements {
		result.Measures = append(result.Measures, ListedMeasure{
			MeasureUUID:     m.MeasureUUID,
			MeasureDatetime: m.MeasureDatetime,
			MeasureType:     m.MeasureType,
			HasConfirmed:    m.HasConfirmed,
			ImageURL:        m.ImageURL,
		})
	}

	return result, nil
}

// publishEvent emits a lifecycle event when publishing is enabled.
// Publish failures are logged, never failing the request.
func (s *MeasurementService) publishEvent(ctx context.Context, m *db.Measurement, routingKey string) {
	if s.events == nil {
		return
	}

	event := mq.MeasurementEvent{
		MeasureUUID:     m.MeasureUUID.String(),
		CustomerCode:    m.CustomerCode,
		MeasureType:     string(m.MeasureType),
		MeasureValue:    m.MeasureValue,
		MeasureDatetime: m.MeasureDatetime.Format(time.RFC3339),
		HasConfirmed:    m.HasConfirmed,
	}

	if err := s.events.PublishMeasurementEvent(ctx, event, routingKey); err != nil {
		s.logger.Error("failed to publish measurement event",
			zap.Error(err),
			zap.String("routing_key", routingKey),
			zap.String("measure_uuid", event.MeasureUUID),
		)
	}
}
