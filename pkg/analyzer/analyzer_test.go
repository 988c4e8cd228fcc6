package analyzer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/docintake/pkg/types"
)

// createTestPNG encodes a simple gradient test image
func createTestPNG(t testing.TB, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Fill with a gradient pattern
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	analyzer := New()
	if analyzer == nil {
		t.Fatal("New() returned nil")
	}

	if analyzer.config.MinImageSize != 16 {
		t.Errorf("Expected min size 16, got %d", analyzer.config.MinImageSize)
	}
}

func TestSniffMimeType(t *testing.T) {
	analyzer := New()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"page.png", createTestPNG(t, 4, 4), types.MimePNG},
		{"scan.pdf", []byte("%PDF-1.7\n"), types.MimePDF},
		{"scan.tif", []byte("II*\x00rest"), types.MimeTIFF},
		{"photo.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}, types.MimeJPEG},
		{"mislabelled.jpg", createTestPNG(t, 4, 4), types.MimePNG},
	}

	for _, tt := range tests {
		if got := analyzer.SniffMimeType(tt.name, tt.data); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestInspectRaster(t *testing.T) {
	analyzer := New()
	asset := types.NewAsset("page.png", types.MimePNG, createTestPNG(t, 400, 300))

	info, err := analyzer.Inspect(asset)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if info.Width != 400 || info.Height != 300 {
		t.Errorf("Expected 400x300, got %dx%d", info.Width, info.Height)
	}
	if info.Format != "png" || !info.Raster {
		t.Errorf("Unexpected info %+v", info)
	}

	expectedRatio := float64(400) / float64(300)
	if info.AspectRatio != expectedRatio {
		t.Errorf("Expected aspect ratio %f, got %f", expectedRatio, info.AspectRatio)
	}

	if err := analyzer.Validate(info); err != nil {
		t.Errorf("Valid image should pass validation: %v", err)
	}
}

func TestInspectNonRaster(t *testing.T) {
	analyzer := New()
	info, err := analyzer.Inspect(types.NewAsset("contract.pdf", types.MimePDF, []byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Raster || info.Width != 0 {
		t.Errorf("Unexpected info %+v", info)
	}
	if err := analyzer.Validate(info); !errors.Is(err, types.ErrNotRaster) {
		t.Errorf("Expected ErrNotRaster, got %v", err)
	}
}

func TestInspectCorrupt(t *testing.T) {
	analyzer := New()
	_, err := analyzer.Inspect(types.NewAsset("broken.png", types.MimePNG, []byte("not a png")))
	if !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestValidateTooSmall(t *testing.T) {
	analyzer := NewWithConfig(Config{SupportedFormats: []string{"png"}, MinImageSize: 100})
	info, err := analyzer.Inspect(types.NewAsset("tiny.png", types.MimePNG, createTestPNG(t, 50, 50)))
	if err != nil {
		t.Fatal(err)
	}
	if err := analyzer.Validate(info); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestIsFormatSupported(t *testing.T) {
	analyzer := NewWithConfig(Config{SupportedFormats: []string{"jpeg", "png"}})

	for _, format := range []string{"jpeg", "png", "JPEG", "PNG"} {
		if !analyzer.isFormatSupported(format) {
			t.Errorf("Format %s should be supported", format)
		}
	}

	for _, format := range []string{"gif", "bmp", "tiff"} {
		if analyzer.isFormatSupported(format) {
			t.Errorf("Format %s should not be supported", format)
		}
	}
}

func TestLoadAsset(t *testing.T) {
	analyzer := New()
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, createTestPNG(t, 20, 20), 0644); err != nil {
		t.Fatal(err)
	}

	asset, err := analyzer.LoadAsset(path)
	if err != nil {
		t.Fatal(err)
	}
	if asset.Name != "page.png" || asset.MimeType != types.MimePNG || asset.ID == "" {
		t.Errorf("Unexpected asset %+v", asset)
	}

	if _, err := analyzer.LoadAsset(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func BenchmarkInspect(b *testing.B) {
	analyzer := New()
	asset := types.NewAsset("page.png", types.MimePNG, createTestPNG(b, 1920, 1080))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = analyzer.Inspect(asset)
	}
}
