// Package detection is the client-side adapter for the crop detection
// service. It builds a bounded analysis copy of an asset, queries a
// backend and folds every failure into an unsuccessful DetectionResult,
// so callers branch on Success instead of handling errors.
package detection

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"strings"

	"github.com/menta2k/docintake/pkg/client"
	"github.com/menta2k/docintake/pkg/processing"
	"github.com/menta2k/docintake/pkg/types"
)

// overshootTolerance absorbs float noise in x+width and y+height
const overshootTolerance = 0.01

// Config holds configuration for the detection client
type Config struct {
	// MaxDimension bounds the longest side of the analysis copy
	MaxDimension int
	// Quality is the JPEG quality of the analysis copy
	Quality int
	// MinConfidence turns weaker detections into failures; 0 disables it
	MinConfidence float64
	// MaxAssetBytes rejects larger assets before any work; 0 disables it
	MaxAssetBytes int64
}

// DefaultConfig returns the default detection configuration
func DefaultConfig() Config {
	return Config{
		MaxDimension:  processing.DefaultAnalysisMaxDim,
		Quality:       processing.DefaultAnalysisQuality,
		MaxAssetBytes: 25 << 20,
	}
}

// Client queries a detection backend for crop proposals
type Client struct {
	backend   client.Backend
	processor *processing.Processor
	config    Config
	logger    *log.Logger
}

// NewClient creates a detection client with default configuration
func NewClient(backend client.Backend) *Client {
	return NewClientWithConfig(backend, DefaultConfig())
}

// NewClientWithConfig creates a detection client with custom configuration
func NewClientWithConfig(backend client.Backend, config Config) *Client {
	if config.Quality < 1 || config.Quality > 100 {
		config.Quality = processing.DefaultAnalysisQuality
	}
	return &Client{
		backend:   backend,
		processor: processing.NewProcessor(),
		config:    config,
	}
}

// SetLogger sets the logger used for failure diagnostics; nil disables logging
func (c *Client) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// Detect proposes a crop for a raster asset. It never returns an error:
// decode problems, transport failures and malformed payloads all yield
// a result with Success false.
func (c *Client) Detect(ctx context.Context, asset types.Asset) types.DetectionResult {
	if c.config.MaxAssetBytes > 0 && asset.Size() > c.config.MaxAssetBytes {
		return c.fail(asset, "asset too large for detection (%d bytes)", asset.Size())
	}

	img, err := c.processor.DecodeAsset(asset)
	if err != nil {
		return c.fail(asset, "%v", err)
	}

	req, err := c.buildRequest(img)
	if err != nil {
		return c.fail(asset, "failed to prepare analysis copy: %v", err)
	}

	resp, err := c.backend.DetectCrop(ctx, req)
	if err != nil {
		return c.fail(asset, "%v", err)
	}

	result := Normalize(resp)
	if result.Success && result.Confidence < c.config.MinConfidence {
		return c.fail(asset, "confidence %.2f below minimum %.2f", result.Confidence, c.config.MinConfidence)
	}
	if !result.Success && c.logger != nil {
		c.logger.Printf("detection %s: %s", asset.Name, result.Message)
	}
	return result
}

func (c *Client) buildRequest(img image.Image) (types.DetectionRequest, error) {
	b := img.Bounds()
	data, err := c.processor.PrepareForDetection(img, c.config.MaxDimension, c.config.Quality)
	if err != nil {
		return types.DetectionRequest{}, err
	}
	return types.DetectionRequest{
		ImageBytes:     data,
		ImageType:      types.MimeJPEG,
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
	}, nil
}

func (c *Client) fail(asset types.Asset, format string, args ...any) types.DetectionResult {
	result := types.Failed(format, args...)
	if c.logger != nil {
		c.logger.Printf("detection %s: %s", asset.Name, result.Message)
	}
	return result
}

// Normalize validates a raw service payload and converts it into a
// DetectionResult. Anything missing or out of range fails closed.
func Normalize(resp *types.DetectionResponse) types.DetectionResult {
	if resp == nil {
		return types.Failed("empty detection response")
	}
	if resp.Success == nil {
		return types.Failed("detection response has no success flag")
	}
	if !*resp.Success {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = "document not detected"
		}
		return types.DetectionResult{Success: false, Message: msg, DocumentType: resp.DocumentType}
	}

	fields := []struct {
		name  string
		value *float64
	}{
		{"cropX", resp.CropX},
		{"cropY", resp.CropY},
		{"cropWidth", resp.CropWidth},
		{"cropHeight", resp.CropHeight},
		{"rotation", resp.Rotation},
		{"confidence", resp.Confidence},
	}
	for _, f := range fields {
		if f.value == nil {
			return types.Failed("detection response missing %s", f.name)
		}
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			return types.Failed("detection response has non-finite %s", f.name)
		}
	}

	if *resp.Rotation != math.Trunc(*resp.Rotation) {
		return types.Failed("rotation %.2f is not a whole number of degrees", *resp.Rotation)
	}
	rotation, ok := types.NormalizeRotation(int(*resp.Rotation))
	if !ok {
		return types.Failed("rotation %.0f is not a quarter turn", *resp.Rotation)
	}

	confidence := *resp.Confidence
	if confidence < 0 || confidence > 1 {
		return types.Failed("confidence %.2f outside [0,1]", confidence)
	}

	rect := types.CropRect{
		X:        *resp.CropX,
		Y:        *resp.CropY,
		Width:    *resp.CropWidth,
		Height:   *resp.CropHeight,
		Rotation: rotation,
	}
	if over := rect.X + rect.Width - 100; over > 0 && over <= overshootTolerance {
		rect.Width = 100 - rect.X
	}
	if over := rect.Y + rect.Height - 100; over > 0 && over <= overshootTolerance {
		rect.Height = 100 - rect.Y
	}
	if err := rect.Validate(); err != nil {
		return types.Failed("invalid crop rect: %v", err)
	}

	return types.DetectionResult{
		Success:      true,
		CropRect:     rect,
		Confidence:   confidence,
		Message:      resp.Message,
		DocumentType: resp.DocumentType,
	}
}

// String renders a result for logs
func String(r types.DetectionResult) string {
	if !r.Success {
		return fmt.Sprintf("not detected (%s)", r.Message)
	}
	return fmt.Sprintf("crop=%.1f,%.1f %.1fx%.1f rot=%d conf=%.2f type=%s",
		r.CropRect.X, r.CropRect.Y, r.CropRect.Width, r.CropRect.Height,
		r.CropRect.Rotation, r.Confidence, r.DocumentType)
}
