package significance

import (
	"testing"

	"github.com/menta2k/docintake/pkg/types"
)

func TestIsSignificant(t *testing.T) {
	tests := []struct {
		name string
		rect types.CropRect
		want bool
	}{
		{"identity", types.CropRect{X: 0, Y: 0, Width: 100, Height: 100}, false},
		{"x offset", types.CropRect{X: 5, Y: 0, Width: 100, Height: 100}, true},
		{"y offset", types.CropRect{X: 0, Y: 3.5, Width: 96, Height: 96}, true},
		{"narrow", types.CropRect{X: 0, Y: 0, Width: 93.9, Height: 100}, true},
		{"short", types.CropRect{X: 0, Y: 0, Width: 100, Height: 90}, true},
		{"rotated", types.CropRect{X: 0, Y: 0, Width: 100, Height: 100, Rotation: 90}, true},
		{"at thresholds", types.CropRect{X: 3, Y: 3, Width: 94, Height: 94}, false},
		{"small trim", types.CropRect{X: 1, Y: 2, Width: 97, Height: 95}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSignificant(tt.rect); got != tt.want {
				t.Errorf("IsSignificant(%+v) = %v, want %v", tt.rect, got, tt.want)
			}
		})
	}
}

func TestCustomThresholds(t *testing.T) {
	f := Filter{EdgeThreshold: 10, SpanThreshold: 80}
	if f.IsSignificant(types.CropRect{X: 5, Y: 5, Width: 85, Height: 85}) {
		t.Error("Expected crop within relaxed thresholds to be insignificant")
	}
	if !f.IsSignificant(types.CropRect{X: 11, Y: 0, Width: 85, Height: 85}) {
		t.Error("Expected x=11 to be significant")
	}
}
