package httpserver

import (
	"math"
	"testing"
)

func TestRoundToOneDecimal(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"zero", 0, 0},
		{"round-up", 7.35, 7.4},
		{"round-down", 6.666666, 6.7},
		{"exact", 4.5, 4.5},
		{"top of scale", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundToOneDecimal(tt.value)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Fatalf("roundToOneDecimal(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeStringPtr(t *testing.T) {
	padded := "  gravel road  "
	blank := "   "

	if got := normalizeStringPtr(nil); got != nil {
		t.Fatalf("nil input should stay nil")
	}
	if got := normalizeStringPtr(&blank); got != nil {
		t.Fatalf("blank input should collapse to nil")
	}
	got := normalizeStringPtr(&padded)
	if got == nil || *got != "gravel road" {
		t.Fatalf("normalizeStringPtr(%q) = %v", padded, got)
	}
}
