package types

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Mime types produced by the transform paths
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
	MimeGIF  = "image/gif"
	MimeBMP  = "image/bmp"
	MimeTIFF = "image/tiff"
	MimePDF  = "application/pdf"
)

// Asset is an immutable binary file flowing through the intake pipeline.
// Edits never mutate an Asset; they produce a new one that replaces it.
type Asset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// NewAsset creates an asset with a fresh identifier
func NewAsset(name, mimeType string, data []byte) Asset {
	return Asset{
		ID:       uuid.NewString(),
		Name:     name,
		MimeType: mimeType,
		Data:     data,
	}
}

// Size returns the asset size in bytes
func (a Asset) Size() int64 {
	return int64(len(a.Data))
}

// IsRaster reports whether the mime type names a raster image format the
// pipeline can decode. PDFs and other documents are not raster.
func (a Asset) IsRaster() bool {
	switch strings.ToLower(a.MimeType) {
	case MimeJPEG, "image/jpg", MimePNG, MimeWebP, MimeGIF, MimeBMP, MimeTIFF:
		return true
	}
	return false
}

// Replace returns a new asset carrying the same name with new content
func (a Asset) Replace(mimeType string, data []byte) Asset {
	return NewAsset(a.Name, mimeType, data)
}

// CropRect describes a sub-region of an asset's pixel grid in percentage
// units [0,100] plus a clockwise rotation in degrees.
type CropRect struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
}

// FullFrame returns the rectangle covering the whole asset without rotation
func FullFrame() CropRect {
	return CropRect{X: 0, Y: 0, Width: 100, Height: 100}
}

// Validate checks the rectangle invariants
func (r CropRect) Validate() error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: crop rect has non-finite value", ErrValidation)
		}
	}
	if r.X < 0 || r.Y < 0 {
		return fmt.Errorf("%w: crop origin (%.2f, %.2f) is negative", ErrValidation, r.X, r.Y)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: crop size %.2fx%.2f must be positive", ErrValidation, r.Width, r.Height)
	}
	if r.X+r.Width > 100 || r.Y+r.Height > 100 {
		return fmt.Errorf("%w: crop rect exceeds frame (x+w=%.2f, y+h=%.2f)", ErrValidation, r.X+r.Width, r.Y+r.Height)
	}
	if !ValidRotation(r.Rotation) {
		return fmt.Errorf("%w: rotation %d not one of 0, 90, 180, 270", ErrValidation, r.Rotation)
	}
	return nil
}

// ValidRotation reports whether deg is one of the quarter turns
func ValidRotation(deg int) bool {
	return deg == 0 || deg == 90 || deg == 180 || deg == 270
}

// NormalizeRotation maps any multiple of 90 into [0,360). The second
// return value is false when deg is not a quarter turn.
func NormalizeRotation(deg int) (int, bool) {
	if deg%90 != 0 {
		return 0, false
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg, true
}

// DetectionRequest is what the detection service receives
type DetectionRequest struct {
	ImageBytes     []byte
	ImageType      string
	OriginalWidth  int
	OriginalHeight int
}

// DetectionResponse is the raw detection service payload. Pointer fields
// let the boundary tell a missing value from a zero one.
type DetectionResponse struct {
	Success      *bool    `json:"success"`
	CropX        *float64 `json:"cropX"`
	CropY        *float64 `json:"cropY"`
	CropWidth    *float64 `json:"cropWidth"`
	CropHeight   *float64 `json:"cropHeight"`
	Rotation     *float64 `json:"rotation"`
	Confidence   *float64 `json:"confidence"`
	Message      string   `json:"message,omitempty"`
	DocumentType string   `json:"documentType,omitempty"`
}

// DetectionResult is the normalized outcome of a crop detection. When
// Success is false, CropRect and Confidence carry no meaning.
type DetectionResult struct {
	Success      bool     `json:"success"`
	CropRect     CropRect `json:"crop_rect"`
	Confidence   float64  `json:"confidence"`
	Message      string   `json:"message,omitempty"`
	DocumentType string   `json:"document_type,omitempty"`
}

// Failed builds an unsuccessful detection result
func Failed(format string, args ...any) DetectionResult {
	return DetectionResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// BatchSummary holds the outcome counts of one batch run
type BatchSummary struct {
	SuccessCount int `json:"success_count"`
	SkipCount    int `json:"skip_count"`
	ErrorCount   int `json:"error_count"`
}

// Total returns the number of eligible items accounted for
func (s BatchSummary) Total() int {
	return s.SuccessCount + s.SkipCount + s.ErrorCount
}

// Progress is the (current, total) signal emitted after each batch item
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}
