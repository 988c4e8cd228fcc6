// Package vision provides an offline page detector. It locates a scanned
// document by its contrast against the background visible along the image
// border, which covers the common case of a sheet photographed on a desk.
// It never proposes rotation.
package vision

import (
	"context"
	"image"
	"math"

	"github.com/menta2k/docintake/pkg/processing"
	"github.com/menta2k/docintake/pkg/types"
)

// PageDetector implements client.Backend without any network access
type PageDetector struct {
	config    DetectionConfig
	processor *processing.Processor
}

// DetectionConfig holds configuration for page detection
type DetectionConfig struct {
	// ContrastThreshold is the luminance difference (0-255) from the
	// background that marks a pixel as part of the page
	ContrastThreshold float64
	// MinLineCoverage is the fraction of a row or column that must differ
	// from the background for that line to belong to the page
	MinLineCoverage float64
	// BorderRatio is the share of each side sampled as background
	BorderRatio float64
}

// New creates a new PageDetector with default configuration
func New() *PageDetector {
	return NewWithConfig(DetectionConfig{
		ContrastThreshold: 40,
		MinLineCoverage:   0.25,
		BorderRatio:       0.02,
	})
}

// NewWithConfig creates a new PageDetector with custom configuration
func NewWithConfig(config DetectionConfig) *PageDetector {
	return &PageDetector{
		config:    config,
		processor: processing.NewProcessor(),
	}
}

// Region represents a rectangular region of interest
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// DetectCrop implements client.Backend
func (d *PageDetector) DetectCrop(ctx context.Context, req types.DetectionRequest) (*types.DetectionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := d.processor.Decode(req.ImageBytes)
	if err != nil {
		return nil, err
	}

	region, ok := d.FindPage(img)
	if !ok {
		return failure("no document found"), nil
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	x := 100 * float64(region.X) / w
	y := 100 * float64(region.Y) / h
	cw := math.Min(100*float64(region.Width)/w, 100-x)
	ch := math.Min(100*float64(region.Height)/h, 100-y)

	success := true
	rotation := 0.0
	confidence := region.Score
	return &types.DetectionResponse{
		Success:      &success,
		CropX:        &x,
		CropY:        &y,
		CropWidth:    &cw,
		CropHeight:   &ch,
		Rotation:     &rotation,
		Confidence:   &confidence,
		DocumentType: "document",
	}, nil
}

// FindPage returns the pixel region that stands out from the border
// background. The second return value is false when nothing does.
func (d *PageDetector) FindPage(img image.Image) (Region, bool) {
	lum := luminanceMap(img)
	height := len(lum)
	if height == 0 {
		return Region{}, false
	}
	width := len(lum[0])

	background := d.borderLuminance(lum, width, height)

	rowHits := make([]int, height)
	colHits := make([]int, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if math.Abs(lum[y][x]-background) >= d.config.ContrastThreshold {
				rowHits[y]++
				colHits[x]++
			}
		}
	}

	y0, y1, okY := span(rowHits, d.config.MinLineCoverage*float64(width))
	x0, x1, okX := span(colHits, d.config.MinLineCoverage*float64(height))
	if !okX || !okY {
		return Region{}, false
	}

	region := Region{X: x0, Y: y0, Width: x1 - x0 + 1, Height: y1 - y0 + 1}
	region.Score = d.scoreRegion(lum, region, background)
	return region, true
}

// borderLuminance averages the luminance of a thin frame around the image
func (d *PageDetector) borderLuminance(lum [][]float64, width, height int) float64 {
	bx := int(math.Max(1, d.config.BorderRatio*float64(width)))
	by := int(math.Max(1, d.config.BorderRatio*float64(height)))

	var sum float64
	var n int
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < bx || x >= width-bx || y < by || y >= height-by {
				sum += lum[y][x]
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// scoreRegion measures how clearly the region separates from the
// background: mean contrast inside the region, normalised to [0,1]
func (d *PageDetector) scoreRegion(lum [][]float64, r Region, background float64) float64 {
	if r.Area() == 0 {
		return 0
	}
	var sum float64
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			sum += math.Abs(lum[y][x] - background)
		}
	}
	return clamp(sum/float64(r.Area())/128, 0, 1)
}

func luminanceMap(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	lum := make([][]float64, height)
	for y := 0; y < height; y++ {
		lum[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// ITU-R BT.601, 8-bit range
			lum[y][x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257
		}
	}
	return lum
}

// span returns the first and last index whose count reaches min
func span(hits []int, min float64) (int, int, bool) {
	first, last := -1, -1
	for i, n := range hits {
		if float64(n) >= min && n > 0 {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last, first >= 0
}

func failure(msg string) *types.DetectionResponse {
	success := false
	return &types.DetectionResponse{Success: &success, Message: msg}
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
