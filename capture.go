package snappdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
)

// DefaultCaptureScale is the oversampling factor used for captures.
const DefaultCaptureScale = 2.0

// DefaultJPEGQuality is the JPEG quality of embedded page images.
const DefaultJPEGQuality = 95

// CaptureOptions controls a surface capture.
type CaptureOptions struct {
	// Scale is the device scale factor applied while capturing.
	// Values <= 0 use DefaultCaptureScale.
	Scale float64
}

func (o CaptureOptions) scale() float64 {
	if o.Scale <= 0 {
		return DefaultCaptureScale
	}
	return o.Scale
}

// Capture is a raster image of a rendered surface.
type Capture struct {
	Image image.Image
}

// Width returns the pixel width of the capture.
func (c *Capture) Width() int {
	return c.Image.Bounds().Dx()
}

// Height returns the pixel height of the capture.
func (c *Capture) Height() int {
	return c.Image.Bounds().Dy()
}

// Capturer rasterizes the full document of a surface.
type Capturer interface {
	Capture(ctx context.Context, opts CaptureOptions) (*Capture, error)
}

// decodeCapture decodes a PNG or JPEG screenshot.
func decodeCapture(data []byte) (*Capture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}
	c := &Capture{Image: img}
	if c.Width() <= 0 || c.Height() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d px", ErrInvalidImage, c.Width(), c.Height())
	}
	return c, nil
}

// encodeJPEG encodes the capture for embedding in a page.
func encodeJPEG(c *Capture, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.Image, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
