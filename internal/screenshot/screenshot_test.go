package screenshot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func makeTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func TestResizeDownscales(t *testing.T) {
	img := makeTestImage(3024, 1890)

	resized := Resize(img, 1512)

	bounds := resized.Bounds()
	if bounds.Dx() != 1512 {
		t.Errorf("Expected width 1512, got %d", bounds.Dx())
	}

	// Aspect ratio preserved: 1890 * 1512 / 3024 = 945
	if bounds.Dy() != 945 {
		t.Errorf("Expected height 945, got %d", bounds.Dy())
	}
}

func TestResizeNoOpWhenWithinLimit(t *testing.T) {
	img := makeTestImage(800, 600)

	resized := Resize(img, 1512)

	// Must return the identical image, not a scaled copy
	if resized != img {
		t.Error("Expected image within limit to be returned unchanged")
	}
}

func TestResizeExactWidthUnchanged(t *testing.T) {
	img := makeTestImage(1512, 900)

	resized := Resize(img, 1512)

	if resized != img {
		t.Error("Expected image at exactly maxWidth to be returned unchanged")
	}
}

func TestResizeNeverUpscales(t *testing.T) {
	img := makeTestImage(400, 300)

	resized := Resize(img, 1512)

	bounds := resized.Bounds()
	if bounds.Dx() != 400 || bounds.Dy() != 300 {
		t.Errorf("Expected 400x300 unchanged, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestResizeZeroMaxWidth(t *testing.T) {
	img := makeTestImage(800, 600)

	// Zero or negative limit disables downscaling
	resized := Resize(img, 0)

	if resized != img {
		t.Error("Expected image to be unchanged when maxWidth is 0")
	}
}

func TestResizeExtremeAspectRatio(t *testing.T) {
	img := makeTestImage(5000, 2)

	resized := Resize(img, 100)

	bounds := resized.Bounds()
	if bounds.Dx() != 100 {
		t.Errorf("Expected width 100, got %d", bounds.Dx())
	}

	// Height must never round down to zero
	if bounds.Dy() < 1 {
		t.Errorf("Expected height >= 1, got %d", bounds.Dy())
	}
}

func TestEncodePNG(t *testing.T) {
	img := makeTestImage(64, 48)

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode PNG output: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 48 {
		t.Errorf("Expected 64x48, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestCapture(t *testing.T) {
	img, err := Capture()
	if err != nil {
		t.Skipf("Screen capture not available: %v", err)
	}

	if img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		t.Error("Expected non-empty capture")
	}
}
