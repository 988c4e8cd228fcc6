package transform

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/docintake/pkg/processing"
	"github.com/menta2k/docintake/pkg/types"
)

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

// createTestAsset encodes a solid grey image losslessly
func createTestAsset(t *testing.T, width, height int) types.Asset {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}
	return encodeAsset(t, "page.png", img)
}

// createSplitAsset returns an image whose left half is red and right half is blue
func createSplitAsset(t *testing.T, width, height int) types.Asset {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, red)
			} else {
				img.Set(x, y, blue)
			}
		}
	}
	return encodeAsset(t, "split.png", img)
}

func encodeAsset(t *testing.T, name string, img image.Image) types.Asset {
	t.Helper()
	data, mime, err := processing.NewProcessor().EncodeLossless(img, processing.LosslessPNG)
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return types.NewAsset(name, mime, data)
}

func decodeAsset(t *testing.T, asset types.Asset) image.Image {
	t.Helper()
	img, err := processing.NewProcessor().DecodeAsset(asset)
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return img
}

func size(img image.Image) (int, int) {
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func isRedish(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 > 180 && g>>8 < 80 && b>>8 < 80
}

func isBlueish(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return b>>8 > 180 && r>>8 < 80 && g>>8 < 80
}

func TestCropScenario(t *testing.T) {
	engine := New()
	asset := createTestAsset(t, 1000, 800)

	out, err := engine.Crop(asset, types.CropRect{X: 10, Y: 10, Width: 80, Height: 80})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if w, h := size(decodeAsset(t, out)); w != 800 || h != 640 {
		t.Errorf("Expected 800x640, got %dx%d", w, h)
	}
	if out.MimeType != types.MimeJPEG {
		t.Errorf("Expected mime %s, got %s", types.MimeJPEG, out.MimeType)
	}
	if out.Name != asset.Name {
		t.Errorf("Expected name %q, got %q", asset.Name, out.Name)
	}
	if out.ID == asset.ID {
		t.Error("Expected replacement asset to carry a new ID")
	}

	rotated, err := engine.Crop(asset, types.CropRect{X: 10, Y: 10, Width: 80, Height: 80, Rotation: 90})
	if err != nil {
		t.Fatalf("Crop with rotation failed: %v", err)
	}
	if w, h := size(decodeAsset(t, rotated)); w != 640 || h != 800 {
		t.Errorf("Expected 640x800, got %dx%d", w, h)
	}
}

func TestCropOutputDimensions(t *testing.T) {
	engine := New()
	asset := createTestAsset(t, 333, 217)

	rects := []types.CropRect{
		types.FullFrame(),
		{X: 0, Y: 0, Width: 50, Height: 50},
		{X: 12.5, Y: 7.3, Width: 61.1, Height: 44.4, Rotation: 90},
		{X: 33, Y: 20, Width: 67, Height: 80, Rotation: 180},
		{X: 1, Y: 99, Width: 99, Height: 1, Rotation: 270},
	}

	for _, rect := range rects {
		out, err := engine.Crop(asset, rect)
		if err != nil {
			t.Fatalf("Crop(%+v) failed: %v", rect, err)
		}
		wantW, wantH := OutputSize(rect, 333, 217)
		if w, h := size(decodeAsset(t, out)); w != wantW || h != wantH {
			t.Errorf("Crop(%+v): expected %dx%d, got %dx%d", rect, wantW, wantH, w, h)
		}
	}
}

func TestPixelRectRoundsHalfUp(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 10)
	r := PixelRect(types.CropRect{X: 15, Y: 5, Width: 25, Height: 45}, bounds)

	// 1.5 -> 2, 0.5 -> 1, 2.5 -> 3, 4.5 -> 5
	want := image.Rect(2, 1, 5, 6)
	if r != want {
		t.Errorf("Expected %v, got %v", want, r)
	}
}

func TestPixelRectStaysInsideBounds(t *testing.T) {
	bounds := image.Rect(0, 0, 3, 3)
	r := PixelRect(types.CropRect{X: 50, Y: 50, Width: 50, Height: 50}, bounds)
	if !r.In(bounds) {
		t.Errorf("Expected %v inside %v", r, bounds)
	}
	if r.Dx() < 1 || r.Dy() < 1 {
		t.Errorf("Expected non-empty rect, got %v", r)
	}
}

func TestPixelRectClampsRoundedSizeToFrame(t *testing.T) {
	// x0 = floor(1.5+0.5) = 2 and width rounds to 2, but only 1 px remains
	r := PixelRect(types.CropRect{X: 50, Y: 0, Width: 50, Height: 100}, image.Rect(0, 0, 3, 3))

	want := image.Rect(2, 0, 3, 3)
	if r != want {
		t.Errorf("Expected %v, got %v", want, r)
	}
	if w, h := OutputSize(types.CropRect{X: 50, Y: 0, Width: 50, Height: 100, Rotation: 90}, 3, 3); w != 3 || h != 1 {
		t.Errorf("Expected 3x1 after rotation, got %dx%d", w, h)
	}
}

func TestCropPlacement(t *testing.T) {
	engine := New()
	asset := createSplitAsset(t, 128, 64)

	// Right half only
	out, err := engine.Crop(asset, types.CropRect{X: 50, Y: 0, Width: 50, Height: 100})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	img := decodeAsset(t, out)
	if w, h := size(img); w != 64 || h != 64 {
		t.Fatalf("Expected 64x64, got %dx%d", w, h)
	}
	if !isBlueish(img.At(32, 32)) {
		t.Errorf("Expected blue content, got %v", img.At(32, 32))
	}
}

func TestCropRejectsInvalidRect(t *testing.T) {
	engine := New()
	asset := createTestAsset(t, 100, 100)

	invalid := []types.CropRect{
		{X: -1, Y: 0, Width: 50, Height: 50},
		{X: 0, Y: 0, Width: 0, Height: 50},
		{X: 60, Y: 0, Width: 50, Height: 50},
		{X: 0, Y: 30, Width: 50, Height: 80},
		{X: 0, Y: 0, Width: 50, Height: 50, Rotation: 45},
	}
	for _, rect := range invalid {
		if _, err := engine.Crop(asset, rect); !errors.Is(err, types.ErrValidation) {
			t.Errorf("Crop(%+v): expected ErrValidation, got %v", rect, err)
		}
	}
}

func TestCropRejectsUndecodableAsset(t *testing.T) {
	engine := New()

	garbage := types.NewAsset("broken.jpg", types.MimeJPEG, []byte("definitely not a jpeg"))
	if _, err := engine.Crop(garbage, types.FullFrame()); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}

	pdf := types.NewAsset("scan.pdf", types.MimePDF, []byte("%PDF-1.7"))
	if _, err := engine.Crop(pdf, types.FullFrame()); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode for PDF, got %v", err)
	}
}

func TestRotate90(t *testing.T) {
	engine := New()
	asset := createSplitAsset(t, 128, 64)

	out, err := engine.Rotate90(asset)
	if err != nil {
		t.Fatalf("Rotate90 failed: %v", err)
	}
	img := decodeAsset(t, out)
	if w, h := size(img); w != 64 || h != 128 {
		t.Fatalf("Expected 64x128, got %dx%d", w, h)
	}

	// Clockwise: the left (red) half ends up on top
	if !isRedish(img.At(32, 32)) {
		t.Errorf("Expected red on top, got %v", img.At(32, 32))
	}
	if !isBlueish(img.At(32, 96)) {
		t.Errorf("Expected blue at bottom, got %v", img.At(32, 96))
	}
}

func TestRotate90FourTimesRestoresDimensions(t *testing.T) {
	engine := New()
	asset := createTestAsset(t, 90, 40)

	current := asset
	for i := 0; i < 4; i++ {
		var err error
		current, err = engine.Rotate90(current)
		if err != nil {
			t.Fatalf("Rotate90 #%d failed: %v", i+1, err)
		}
	}
	if w, h := size(decodeAsset(t, current)); w != 90 || h != 40 {
		t.Errorf("Expected 90x40 after four turns, got %dx%d", w, h)
	}
}

func TestRotate90TwiceMatchesCrop180(t *testing.T) {
	engine := New()
	asset := createTestAsset(t, 90, 40)

	once, err := engine.Rotate90(asset)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := engine.Rotate90(once)
	if err != nil {
		t.Fatal(err)
	}

	rect := types.FullFrame()
	rect.Rotation = 180
	cropped, err := engine.Crop(asset, rect)
	if err != nil {
		t.Fatal(err)
	}

	w1, h1 := size(decodeAsset(t, twice))
	w2, h2 := size(decodeAsset(t, cropped))
	if w1 != w2 || h1 != h2 {
		t.Errorf("Expected equal dimensions, got %dx%d and %dx%d", w1, h1, w2, h2)
	}
}

func TestComposeEditIsLossless(t *testing.T) {
	engine := New()
	asset := createSplitAsset(t, 40, 20)

	out, err := engine.ComposeEdit(asset, Edit{FlipH: true})
	if err != nil {
		t.Fatalf("ComposeEdit failed: %v", err)
	}
	if out.MimeType != types.MimePNG {
		t.Errorf("Expected %s, got %s", types.MimePNG, out.MimeType)
	}

	img := decodeAsset(t, out)
	if w, h := size(img); w != 40 || h != 20 {
		t.Fatalf("Expected 40x20, got %dx%d", w, h)
	}
	// Exact pixels after a horizontal flip
	if r, g, b, _ := img.At(0, 0).RGBA(); r>>8 != 0 || g>>8 != 0 || b>>8 != 255 {
		t.Errorf("Expected pure blue at (0,0), got %d,%d,%d", r>>8, g>>8, b>>8)
	}
	if r, g, b, _ := img.At(39, 0).RGBA(); r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("Expected pure red at (39,0), got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestComposeEditRotationThenFlip(t *testing.T) {
	engine := New()
	asset := createSplitAsset(t, 40, 20)

	// Rotate clockwise puts red on top, then the vertical flip moves it to the bottom
	out, err := engine.ComposeEdit(asset, Edit{RotationDelta: 90, FlipV: true})
	if err != nil {
		t.Fatalf("ComposeEdit failed: %v", err)
	}
	img := decodeAsset(t, out)
	if w, h := size(img); w != 20 || h != 40 {
		t.Fatalf("Expected 20x40, got %dx%d", w, h)
	}
	if !isBlueish(img.At(10, 5)) || !isRedish(img.At(10, 35)) {
		t.Errorf("Unexpected placement: top %v bottom %v", img.At(10, 5), img.At(10, 35))
	}
}

func TestComposeEditWithRectAndZoom(t *testing.T) {
	engine := New()
	asset := createTestAsset(t, 200, 100)

	rect := types.CropRect{X: 0, Y: 0, Width: 50, Height: 100}
	out, err := engine.ComposeEdit(asset, Edit{Rect: &rect, Zoom: 2})
	if err != nil {
		t.Fatalf("ComposeEdit failed: %v", err)
	}
	if w, h := size(decodeAsset(t, out)); w != 100 || h != 100 {
		t.Errorf("Zoom must keep the surface size: got %dx%d", w, h)
	}

	out, err = engine.ComposeEdit(asset, Edit{Zoom: 0.5})
	if err != nil {
		t.Fatalf("ComposeEdit zoom out failed: %v", err)
	}
	img := decodeAsset(t, out)
	if w, h := size(img); w != 200 || h != 100 {
		t.Errorf("Expected 200x100, got %dx%d", w, h)
	}
	// Zooming out leaves a transparent margin around the centred content
	if _, _, _, a := img.At(2, 2).RGBA(); a != 0 {
		t.Errorf("Expected transparent corner, got alpha %d", a)
	}
	if _, _, _, a := img.At(100, 50).RGBA(); a == 0 {
		t.Error("Expected opaque centre")
	}
}

func TestComposeEditArbitraryRotationGrowsSurface(t *testing.T) {
	engine := New()
	asset := createTestAsset(t, 100, 100)

	out, err := engine.ComposeEdit(asset, Edit{RotationDelta: 45})
	if err != nil {
		t.Fatalf("ComposeEdit failed: %v", err)
	}
	w, h := size(decodeAsset(t, out))
	if w <= 100 || h <= 100 {
		t.Errorf("Expected rotated bounding box larger than 100x100, got %dx%d", w, h)
	}
}

func TestComposeEditValidation(t *testing.T) {
	engine := New()
	asset := createTestAsset(t, 50, 50)

	for _, zoom := range []float64{0.25, 2.5, -1} {
		if _, err := engine.ComposeEdit(asset, Edit{Zoom: zoom}); !errors.Is(err, types.ErrValidation) {
			t.Errorf("Zoom %.2f: expected ErrValidation, got %v", zoom, err)
		}
	}

	bad := types.CropRect{X: 90, Y: 0, Width: 20, Height: 10}
	if _, err := engine.ComposeEdit(asset, Edit{Rect: &bad}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Expected ErrValidation for bad rect, got %v", err)
	}
}

func TestComposeEditWebP(t *testing.T) {
	engine := NewWithConfig(Config{LosslessFormat: processing.LosslessWebP})
	asset := createTestAsset(t, 30, 20)

	out, err := engine.ComposeEdit(asset, Edit{})
	if err != nil {
		t.Fatalf("ComposeEdit failed: %v", err)
	}
	if out.MimeType != types.MimeWebP {
		t.Errorf("Expected %s, got %s", types.MimeWebP, out.MimeType)
	}
	if w, h := size(decodeAsset(t, out)); w != 30 || h != 20 {
		t.Errorf("Expected 30x20, got %dx%d", w, h)
	}
}
