package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/go-vgo/robotgo"
	"golang.org/x/image/draw"
)

// Capture grabs the main display and returns it as an image.
// Screen recording permission is required on macOS; without it the OS
// hands back an empty capture.
func Capture() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("screen capture returned no image")
	}
	return img, nil
}

// Resize scales the image down so its width does not exceed maxWidth,
// preserving aspect ratio. Images already within the limit are returned
// unchanged; upscaling never happens.
func Resize(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxWidth <= 0 || width <= maxWidth {
		return img
	}

	newHeight := height * maxWidth / width
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EncodePNG serializes the image to PNG bytes for the vision API upload
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
