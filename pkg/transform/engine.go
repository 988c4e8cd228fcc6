// Package transform implements the geometric raster operations of the
// intake pipeline: percentage crops with quarter-turn rotation, a fixed
// clockwise rotation, and the general compose edit used for manual edits.
//
// Crops and rotations take the lossy path (JPEG at a fixed quality) so
// batch output stays small. Compose edits take the lossless path.
//
// Percentages are converted to pixels with round-half-up:
// floor(p*dim/100 + 0.5). This is a policy choice kept fixed so repeated
// runs produce identical geometry.
package transform

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"

	"github.com/menta2k/docintake/pkg/processing"
	"github.com/menta2k/docintake/pkg/types"
)

// Zoom limits for ComposeEdit
const (
	MinZoom = 0.5
	MaxZoom = 2.0
)

// Config holds encoder settings for the engine
type Config struct {
	LossyQuality   int
	LosslessFormat processing.LosslessFormat
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		LossyQuality:   processing.DefaultLossyQuality,
		LosslessFormat: processing.LosslessPNG,
	}
}

// Engine turns an asset plus a crop/rotation description into a new asset
type Engine struct {
	processor *processing.Processor
	config    Config
}

// New creates an Engine with default configuration
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Engine with custom configuration
func NewWithConfig(config Config) *Engine {
	if config.LossyQuality < 1 || config.LossyQuality > 100 {
		config.LossyQuality = processing.DefaultLossyQuality
	}
	if config.LosslessFormat == "" {
		config.LosslessFormat = processing.LosslessPNG
	}
	return &Engine{
		processor: processing.NewProcessor(),
		config:    config,
	}
}

// Edit describes a manual compose edit. A nil Rect means the full asset.
// RotationDelta is in clockwise degrees. A zero Zoom means 1.
type Edit struct {
	Rect          *types.CropRect
	RotationDelta float64
	FlipH         bool
	FlipV         bool
	Zoom          float64
}

// Validate checks the edit parameters
func (e Edit) Validate() error {
	if e.Rect != nil {
		if err := e.Rect.Validate(); err != nil {
			return err
		}
	}
	if math.IsNaN(e.RotationDelta) || math.IsInf(e.RotationDelta, 0) {
		return fmt.Errorf("%w: rotation delta is not finite", types.ErrValidation)
	}
	z := e.zoom()
	if math.IsNaN(z) || z < MinZoom || z > MaxZoom {
		return fmt.Errorf("%w: zoom %.2f outside [%.1f, %.1f]", types.ErrValidation, z, MinZoom, MaxZoom)
	}
	return nil
}

func (e Edit) zoom() float64 {
	if e.Zoom == 0 {
		return 1
	}
	return e.Zoom
}

// Crop cuts rect out of asset, rotates it clockwise by rect.Rotation and
// re-encodes it lossy. For rotations of 90 and 270 the output width and
// height are swapped relative to the cropped region.
func (e *Engine) Crop(asset types.Asset, rect types.CropRect) (types.Asset, error) {
	if err := rect.Validate(); err != nil {
		return types.Asset{}, err
	}

	img, err := e.processor.DecodeAsset(asset)
	if err != nil {
		return types.Asset{}, err
	}

	out := rotateClockwise(imaging.Crop(img, PixelRect(rect, img.Bounds())), rect.Rotation)

	data, err := e.processor.EncodeLossy(out, e.config.LossyQuality)
	if err != nil {
		return types.Asset{}, fmt.Errorf("crop %s: %w", asset.Name, err)
	}
	return asset.Replace(types.MimeJPEG, data), nil
}

// Rotate90 rotates asset 90 degrees clockwise and re-encodes it lossy
func (e *Engine) Rotate90(asset types.Asset) (types.Asset, error) {
	img, err := e.processor.DecodeAsset(asset)
	if err != nil {
		return types.Asset{}, err
	}

	data, err := e.processor.EncodeLossy(imaging.Rotate270(img), e.config.LossyQuality)
	if err != nil {
		return types.Asset{}, fmt.Errorf("rotate %s: %w", asset.Name, err)
	}
	return asset.Replace(types.MimeJPEG, data), nil
}

// ComposeEdit applies the manual editor pipeline: optional crop, then
// rotation, then flip, then zoom around the centre of the rotated surface.
// The result is encoded losslessly.
func (e *Engine) ComposeEdit(asset types.Asset, edit Edit) (types.Asset, error) {
	if err := edit.Validate(); err != nil {
		return types.Asset{}, err
	}

	img, err := e.processor.DecodeAsset(asset)
	if err != nil {
		return types.Asset{}, err
	}

	src := img
	angle := edit.RotationDelta
	if edit.Rect != nil {
		src = imaging.Crop(img, PixelRect(*edit.Rect, img.Bounds()))
		angle += float64(edit.Rect.Rotation)
	}

	out := compose(src, normalizeAngle(angle), edit.FlipH, edit.FlipV, edit.zoom())

	data, mimeType, err := e.processor.EncodeLossless(out, e.config.LosslessFormat)
	if err != nil {
		return types.Asset{}, fmt.Errorf("compose edit %s: %w", asset.Name, err)
	}
	return asset.Replace(mimeType, data), nil
}

// PixelRect converts a percentage rectangle to absolute pixels within
// bounds using round-half-up. The result always lies inside bounds and is
// at least one pixel wide and tall.
func PixelRect(rect types.CropRect, bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()

	x0 := clampInt(roundHalfUp(rect.X*float64(w)/100), 0, w-1)
	y0 := clampInt(roundHalfUp(rect.Y*float64(h)/100), 0, h-1)
	cw := clampInt(roundHalfUp(rect.Width*float64(w)/100), 1, w-x0)
	ch := clampInt(roundHalfUp(rect.Height*float64(h)/100), 1, h-y0)

	return image.Rect(x0, y0, x0+cw, y0+ch).Add(bounds.Min)
}

// OutputSize returns the pixel size Crop produces for rect on a source of
// the given size
func OutputSize(rect types.CropRect, width, height int) (int, int) {
	r := PixelRect(rect, image.Rect(0, 0, width, height))
	if rect.Rotation == 90 || rect.Rotation == 270 {
		return r.Dy(), r.Dx()
	}
	return r.Dx(), r.Dy()
}

// rotateClockwise applies a quarter-turn rotation. imaging rotates
// counter-clockwise, hence the swapped helpers.
func rotateClockwise(img image.Image, deg int) image.Image {
	switch deg {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return img
}

func compose(src image.Image, angle float64, flipH, flipV bool, zoom float64) image.Image {
	var filters []gift.Filter

	switch angle {
	case 0:
	case 90:
		filters = append(filters, gift.Rotate270())
	case 180:
		filters = append(filters, gift.Rotate180())
	case 270:
		filters = append(filters, gift.Rotate90())
	default:
		// gift rotates counter-clockwise and grows the surface to fit
		filters = append(filters, gift.Rotate(float32(360-angle), color.Transparent, gift.CubicInterpolation))
	}
	if flipH {
		filters = append(filters, gift.FlipHorizontal())
	}
	if flipV {
		filters = append(filters, gift.FlipVertical())
	}

	g := gift.New(filters...)
	surface := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(surface, src)

	if zoom == 1 {
		return surface
	}

	w, h := surface.Bounds().Dx(), surface.Bounds().Dy()
	zw := maxInt(1, roundHalfUp(float64(w)*zoom))
	zh := maxInt(1, roundHalfUp(float64(h)*zoom))

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	scale := gift.New(gift.Resize(zw, zh, gift.LanczosResampling))
	scale.DrawAt(out, surface, image.Pt((w-zw)/2, (h-zh)/2), gift.CopyOperator)
	return out
}

// normalizeAngle maps degrees into [0,360)
func normalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
