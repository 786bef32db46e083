package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metervision/meter-reading-api/internal/apperr"
	"github.com/metervision/meter-reading-api/internal/db"
)

const uniqueViolationCode = "23505"

// Repository handles database operations for measurements
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HasMeasurementInPeriod reports whether a measurement already exists for
// the customer, meter type and calendar year/month.
func (r *Repository) HasMeasurementInPeriod(ctx context.Context, customerCode string, measureType db.MeasureType, year, month int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM measurements
			WHERE customer_code = $1 AND measure_type = $2
			  AND measure_year = $3 AND measure_month = $4
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, customerCode, measureType, year, month).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate measurement: %w", err)
	}

	return exists, nil
}

// Insert persists a new measurement. Year and month are derived from the
// measurement datetime here so the period uniqueness always matches what
// was stored. A unique-violation on the period index surfaces as
// DOUBLE_REPORT, covering concurrent uploads that both passed the
// pre-check.
func (r *Repository) Insert(ctx context.Context, m *db.Measurement) error {
	m.MeasureYear = m.MeasureDatetime.Year()
	m.MeasureMonth = int(m.MeasureDatetime.Month())

	query := `
		INSERT INTO measurements (
			measure_uuid, customer_code, measure_type, measure_value,
			measure_datetime, measure_year, measure_month, image_url,
			has_confirmed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.pool.QueryRow(ctx, query,
		m.MeasureUUID,
		m.CustomerCode,
		m.MeasureType,
		m.MeasureValue,
		m.MeasureDatetime,
		m.MeasureYear,
		m.MeasureMonth,
		m.ImageURL,
		m.HasConfirmed,
		now,
	).Scan(&m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return apperr.New(http.StatusConflict, apperr.CodeDoubleReport, "Leitura do mês já realizada")
		}
		return fmt.Errorf("failed to insert measurement: %w", err)
	}

	return nil
}

// FindByUUID returns the measurement with the given identifier, or nil
// when none exists.
func (r *Repository) FindByUUID(ctx context.Context, measureUUID uuid.UUID) (*db.Measurement, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_type, measure_value,
		       measure_datetime, measure_year, measure_month, image_url,
		       has_confirmed, created_at, updated_at
		FROM measurements
		WHERE measure_uuid = $1
	`

	var m db.Measurement
	err := r.pool.QueryRow(ctx, query, measureUUID).Scan(
		&m.MeasureUUID,
		&m.CustomerCode,
		&m.MeasureType,
		&m.MeasureValue,
		&m.MeasureDatetime,
		&m.MeasureYear,
		&m.MeasureMonth,
		&m.ImageURL,
		&m.HasConfirmed,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query measurement: %w", err)
	}

	return &m, nil
}

// Confirm overwrites the measurement value with the confirmed one and
// marks the measurement as confirmed. The has_confirmed guard makes the
// transition atomic: when two confirms race past the service-layer read,
// the loser updates zero rows and surfaces as CONFIRMATION_DUPLICATE.
func (r *Repository) Confirm(ctx context.Context, measureUUID uuid.UUID, confirmedValue int64) error {
	query := `
		UPDATE measurements
		SET measure_value = $2, has_confirmed = TRUE, updated_at = $3
		WHERE measure_uuid = $1 AND has_confirmed = FALSE
	`

	tag, err := r.pool.Exec(ctx, query, measureUUID, confirmedValue, time.Now())
	if err != nil {
		return fmt.Errorf("failed to confirm measurement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Measurements are never deleted, so the row exists and the
		// flag must have flipped since the caller's read.
		return apperr.New(http.StatusConflict, apperr.CodeConfirmationDup, "Leitura já confirmada")
	}

	return nil
}

// ListByCustomer returns all measurements for the customer, optionally
// filtered by meter type. An empty result is returned as an empty slice.
func (r *Repository) ListByCustomer(ctx context.Context, customerCode string, measureType *db.MeasureType) ([]db.Measurement, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_type, measure_value,
		       measure_datetime, measure_year, measure_month, image_url,
		       has_confirmed, created_at, updated_at
		FROM measurements
		WHERE customer_code = $1
	`
	args := []interface{}{customerCode}

	if measureType != nil {
		query += ` AND measure_type = $2`
		args = append(args, *measureType)
	}
	query += ` ORDER BY measure_datetime`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []db.Measurement
	for rows.Next() {
		var m db.Measurement
		if err := rows.Scan(
			&m.MeasureUUID,
			&m.CustomerCode,
			&m.MeasureType,
			&m.MeasureValue,
			&m.MeasureDatetime,
			&m.MeasureYear,
			&m.MeasureMonth,
			&m.ImageURL,
			&m.HasConfirmed,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		measurements = append(measurements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return measurements, nil
}
