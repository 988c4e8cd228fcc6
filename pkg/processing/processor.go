package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/docintake/pkg/types"
)

// Default encoder settings
const (
	DefaultLossyQuality    = 92
	DefaultAnalysisQuality = 80
	DefaultAnalysisMaxDim  = 800
)

// LosslessFormat selects the encoder used by the manual edit path
type LosslessFormat string

const (
	LosslessPNG  LosslessFormat = "png"
	LosslessWebP LosslessFormat = "webp"
)

// MimeType returns the mime type written by the lossless encoder
func (f LosslessFormat) MimeType() string {
	if f == LosslessWebP {
		return types.MimeWebP
	}
	return types.MimePNG
}

// Processor handles raster decode and encode operations
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Decode decodes raster bytes with WebP support
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", types.ErrDecode)
	}

	// Try standard image.Decode first
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Try WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("%w: unknown or unsupported format", types.ErrDecode)
}

// DecodeAsset decodes a raster asset
func (p *Processor) DecodeAsset(asset types.Asset) (image.Image, error) {
	if !asset.IsRaster() {
		return nil, fmt.Errorf("%w: %w: %s (%s)", types.ErrDecode, types.ErrNotRaster, asset.Name, asset.MimeType)
	}
	img, err := p.Decode(asset.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", asset.Name, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s has empty bounds", types.ErrDecode, asset.Name)
	}
	return img, nil
}

// EncodeLossy encodes img as JPEG at the given quality
func (p *Processor) EncodeLossy(img image.Image, quality int) ([]byte, error) {
	if err := checkSurface(img); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: jpeg: %v", types.ErrEncode, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: jpeg encoder produced no data", types.ErrEncode)
	}
	return buf.Bytes(), nil
}

// EncodeLossless encodes img with the lossless encoder for format and
// returns the bytes with their mime type
func (p *Processor) EncodeLossless(img image.Image, format LosslessFormat) ([]byte, string, error) {
	if err := checkSurface(img); err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	switch format {
	case LosslessWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
			return nil, "", fmt.Errorf("%w: webp: %v", types.ErrEncode, err)
		}
	default:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("%w: png: %v", types.ErrEncode, err)
		}
	}
	if buf.Len() == 0 {
		return nil, "", fmt.Errorf("%w: %s encoder produced no data", types.ErrEncode, format)
	}
	return buf.Bytes(), format.MimeType(), nil
}

// PrepareForDetection produces the analysis copy sent to the detector: the
// longest side bounded to maxDim, aspect ratio preserved, JPEG at quality.
func (p *Processor) PrepareForDetection(img image.Image, maxDim int, quality int) ([]byte, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}
	return p.EncodeLossy(img, quality)
}

// LoadAssetFromURL downloads a raster asset
func (p *Processor) LoadAssetFromURL(assetURL string) (types.Asset, error) {
	parsedURL, err := url.Parse(assetURL)
	if err != nil {
		return types.Asset{}, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return types.Asset{}, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest("GET", assetURL, nil)
	if err != nil {
		return types.Asset{}, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "docintake/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return types.Asset{}, fmt.Errorf("failed to download asset: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Asset{}, fmt.Errorf("failed to download asset: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Asset{}, fmt.Errorf("failed to read asset data: %v", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(strings.ToLower(mimeType))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	name := path.Base(parsedURL.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}
	return types.NewAsset(name, mimeType, data), nil
}

// CreateDebugOverlay draws the detected crop rectangle over img
func (p *Processor) CreateDebugOverlay(img image.Image, rect types.CropRect) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	gold := color.NRGBA{255, 204, 0, 255}
	blue := color.NRGBA{0, 170, 255, 255}
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))

	x0 := int(clamp(rect.X/100, 0, 1)*float64(w) + 0.5)
	y0 := int(clamp(rect.Y/100, 0, 1)*float64(h) + 0.5)
	x1 := int(clamp((rect.X+rect.Width)/100, 0, 1)*float64(w) + 0.5)
	y1 := int(clamp((rect.Y+rect.Height)/100, 0, 1)*float64(h) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(nrgba, y0+s, x0, x1, gold)
		drawHLine(nrgba, y1-1-s, x0, x1, gold)
		drawVLine(nrgba, x0+s, y0, y1, gold)
		drawVLine(nrgba, x1-1-s, y0, y1, gold)
	}

	// Mark the top edge of the page after rotation
	if rect.Rotation != 0 {
		cx, cy := (x0+x1)/2, (y0+y1)/2
		switch rect.Rotation {
		case 90:
			drawHLine(nrgba, cy, x0, cx, blue)
		case 180:
			drawVLine(nrgba, cx, cy, y1, blue)
		case 270:
			drawHLine(nrgba, cy, cx, x1, blue)
		}
	}

	return nrgba
}

func checkSurface(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: no surface", types.ErrEncode)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: empty surface %dx%d", types.ErrEncode, b.Dx(), b.Dy())
	}
	return nil
}

// Helper functions
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
