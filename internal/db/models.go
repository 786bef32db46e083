package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MeasureType is the kind of meter a measurement was read from.
type MeasureType string

const (
	MeasureTypeWater MeasureType = "WATER"
	MeasureTypeGas   MeasureType = "GAS"
)

// ParseMeasureType normalizes raw input to a MeasureType. The match is
// case-insensitive; anything outside {WATER, GAS} is rejected.
func ParseMeasureType(raw string) (MeasureType, bool) {
	switch MeasureType(strings.ToUpper(raw)) {
	case MeasureTypeWater:
		return MeasureTypeWater, true
	case MeasureTypeGas:
		return MeasureTypeGas, true
	default:
		return "", false
	}
}

// Measurement represents a meter reading in the database.
//
// MeasureYear and MeasureMonth are derived from MeasureDatetime at insert
// time and back the one-reading-per-period uniqueness.
type Measurement struct {
	MeasureUUID     uuid.UUID
	CustomerCode    string
	MeasureType     MeasureType
	MeasureValue    int64
	MeasureDatetime time.Time
	MeasureYear     int
	MeasureMonth    int
	ImageURL        *string
	HasConfirmed    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
