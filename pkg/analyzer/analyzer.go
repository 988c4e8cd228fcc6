package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/docintake/pkg/types"
)

// Analyzer inspects incoming assets before they enter the pipeline
type Analyzer struct {
	config Config
}

// Config holds configuration for the asset analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// New creates a new Analyzer with default configuration
func New() *Analyzer {
	return &Analyzer{
		config: Config{
			SupportedFormats: []string{"jpeg", "png", "webp", "gif", "bmp", "tiff"},
			MinImageSize:     16,
		},
	}
}

// NewWithConfig creates a new Analyzer with custom configuration
func NewWithConfig(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// AssetInfo contains basic asset metadata
type AssetInfo struct {
	Name        string
	MimeType    string
	Size        int64
	Raster      bool
	Format      string
	Width       int
	Height      int
	AspectRatio float64
}

// LoadAsset reads a file into an asset, sniffing its mime type
func (a *Analyzer) LoadAsset(path string) (types.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Asset{}, fmt.Errorf("failed to read asset file: %w", err)
	}
	name := filepath.Base(path)
	return types.NewAsset(name, a.SniffMimeType(name, data), data), nil
}

// SniffMimeType determines the mime type from content, falling back to the
// file extension when the content is not recognised
func (a *Analyzer) SniffMimeType(name string, data []byte) string {
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return types.MimeTIFF
	}

	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "text/") {
		return sniffed
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if i := strings.Index(byExt, ";"); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	return sniffed
}

// Inspect returns metadata for an asset. Non-raster assets are reported
// without dimensions; raster assets whose header cannot be read fail with
// types.ErrDecode.
func (a *Analyzer) Inspect(asset types.Asset) (AssetInfo, error) {
	info := AssetInfo{
		Name:     asset.Name,
		MimeType: asset.MimeType,
		Size:     asset.Size(),
		Raster:   asset.IsRaster(),
	}
	if !info.Raster {
		return info, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(asset.Data))
	if err != nil {
		return info, fmt.Errorf("%w: %s: %v", types.ErrDecode, asset.Name, err)
	}
	info.Format = format
	info.Width = cfg.Width
	info.Height = cfg.Height
	if cfg.Height > 0 {
		info.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}
	return info, nil
}

// Validate checks that an inspected raster asset meets minimum requirements
func (a *Analyzer) Validate(info AssetInfo) error {
	if !info.Raster {
		return fmt.Errorf("%s: %w", info.Name, types.ErrNotRaster)
	}
	if !a.isFormatSupported(info.Format) {
		return fmt.Errorf("%w: unsupported image format: %s", types.ErrValidation, info.Format)
	}
	if info.Width < a.config.MinImageSize || info.Height < a.config.MinImageSize {
		return fmt.Errorf("%w: image too small: %dx%d (minimum: %d)", types.ErrValidation,
			info.Width, info.Height, a.config.MinImageSize)
	}
	return nil
}

func (a *Analyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}
