package db_test

import (
	"testing"

	"github.com/metervision/meter-reading-api/internal/db"
)

func TestParseMeasureType(t *testing.T) {
	cases := []struct {
		input string
		want  db.MeasureType
		ok    bool
	}{
		{"WATER", db.MeasureTypeWater, true},
		{"GAS", db.MeasureTypeGas, true},
		{"water", db.MeasureTypeWater, true},
		{"gAs", db.MeasureTypeGas, true},
		{"ELECTRICITY", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := db.ParseMeasureType(tc.input)
		if ok != tc.ok {
			t.Errorf("ParseMeasureType(%q): expected ok=%v, got %v", tc.input, tc.ok, ok)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMeasureType(%q): expected %q, got %q", tc.input, tc.want, got)
		}
	}
}
