// Package significance decides whether a detected crop is worth a lossy
// re-encode. A crop that trims less than a few percent from every edge and
// proposes no rotation counts as a no-op.
package significance

import "github.com/menta2k/docintake/pkg/types"

// Default thresholds in percentage units
const (
	DefaultEdgeThreshold = 3.0
	DefaultSpanThreshold = 94.0
)

// Filter holds the thresholds. A crop is significant when its origin lies
// beyond EdgeThreshold on either axis, its size falls below SpanThreshold
// on either axis, or it rotates.
type Filter struct {
	EdgeThreshold float64
	SpanThreshold float64
}

// Default returns the filter with default thresholds
func Default() Filter {
	return Filter{
		EdgeThreshold: DefaultEdgeThreshold,
		SpanThreshold: DefaultSpanThreshold,
	}
}

// IsSignificant applies the filter to a rect from a successful detection
func (f Filter) IsSignificant(r types.CropRect) bool {
	return r.X > f.EdgeThreshold ||
		r.Y > f.EdgeThreshold ||
		r.Width < f.SpanThreshold ||
		r.Height < f.SpanThreshold ||
		r.Rotation != 0
}

// IsSignificant applies the default filter
func IsSignificant(r types.CropRect) bool {
	return Default().IsSignificant(r)
}
