package processing

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/docintake/pkg/types"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestEncodeLossyRoundTrip(t *testing.T) {
	p := NewProcessor()
	data, err := p.EncodeLossy(createTestImage(120, 80), DefaultLossyQuality)
	if err != nil {
		t.Fatalf("EncodeLossy failed: %v", err)
	}

	img, err := p.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Errorf("Expected 120x80, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestEncodeLosslessPNG(t *testing.T) {
	p := NewProcessor()
	data, mime, err := p.EncodeLossless(createTestImage(10, 10), LosslessPNG)
	if err != nil {
		t.Fatalf("EncodeLossless failed: %v", err)
	}
	if mime != types.MimePNG {
		t.Errorf("Expected %s, got %s", types.MimePNG, mime)
	}

	img, err := p.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	r, g, b, _ := img.At(3, 7).RGBA()
	if r>>8 != 3 || g>>8 != 7 || b>>8 != 128 {
		t.Errorf("Lossless pixel mismatch: got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestEncodeRejectsEmptySurface(t *testing.T) {
	p := NewProcessor()
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))

	if _, err := p.EncodeLossy(empty, 90); !errors.Is(err, types.ErrEncode) {
		t.Errorf("Expected ErrEncode, got %v", err)
	}
	if _, _, err := p.EncodeLossless(nil, LosslessPNG); !errors.Is(err, types.ErrEncode) {
		t.Errorf("Expected ErrEncode for nil surface, got %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	p := NewProcessor()
	if _, err := p.Decode([]byte("not an image")); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
	if _, err := p.Decode(nil); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode for empty data, got %v", err)
	}
}

func TestDecodeAssetRejectsPDF(t *testing.T) {
	p := NewProcessor()
	asset := types.NewAsset("scan.pdf", types.MimePDF, []byte("%PDF-1.4"))
	if _, err := p.DecodeAsset(asset); !errors.Is(err, types.ErrNotRaster) {
		t.Errorf("Expected ErrNotRaster, got %v", err)
	}
}

func TestPrepareForDetectionBoundsLongestSide(t *testing.T) {
	p := NewProcessor()

	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1600, 1200, 800, 600},
		{1000, 2000, 400, 800},
		{640, 480, 640, 480},
	}

	for _, tt := range tests {
		data, err := p.PrepareForDetection(createTestImage(tt.w, tt.h), DefaultAnalysisMaxDim, DefaultAnalysisQuality)
		if err != nil {
			t.Fatalf("PrepareForDetection(%dx%d) failed: %v", tt.w, tt.h, err)
		}
		img, err := p.Decode(data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("%dx%d: expected %dx%d, got %dx%d", tt.w, tt.h, tt.wantW, tt.wantH, b.Dx(), b.Dy())
		}
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(200, 100)
	overlay := p.CreateDebugOverlay(img, types.CropRect{X: 10, Y: 10, Width: 50, Height: 50, Rotation: 90})

	if overlay.Bounds() != img.Bounds() {
		t.Errorf("Overlay bounds %v differ from source %v", overlay.Bounds(), img.Bounds())
	}
	r, g, b, _ := overlay.At(20, 10).RGBA()
	if r>>8 != 255 || g>>8 != 204 || b>>8 != 0 {
		t.Errorf("Expected box stroke at (20,10), got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}
