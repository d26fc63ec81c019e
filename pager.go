package snappdf

import "fmt"

// Placement positions the full scaled image on one output page.
// Y is zero on the first page and negative afterwards, so each page
// shows the next vertical band of the image.
type Placement struct {
	Page   int // zero-based page index
	X, Y   float64
	Width  float64
	Height float64
}

// Layout is the page plan for one capture.
type Layout struct {
	Geometry Geometry

	// ImageWidth and ImageHeight are the scaled image size in millimetres.
	// ImageWidth always equals the page width.
	ImageWidth  float64
	ImageHeight float64

	Placements []Placement
}

// Pages returns the number of output pages.
func (l Layout) Pages() int {
	return len(l.Placements)
}

// Offsets returns the vertical image offset of every page in order.
func (l Layout) Offsets() []float64 {
	out := make([]float64, len(l.Placements))
	for i, p := range l.Placements {
		out[i] = p.Y
	}
	return out
}

// Paginate slices an image of width×height pixels across pages of the
// given geometry. The image is scaled uniformly to the page width; the
// first page shows it at offset 0 and every further page shifts it up by
// one page height until the remaining height fits on the current page.
func Paginate(width, height int, g Geometry) (Layout, error) {
	if err := g.Validate(); err != nil {
		return Layout{}, err
	}
	if width <= 0 || height <= 0 {
		return Layout{}, fmt.Errorf("%w: %dx%d px", ErrInvalidImage, width, height)
	}

	imgW := g.Width
	imgH := float64(height) * imgW / float64(width)

	l := Layout{
		Geometry:    g,
		ImageWidth:  imgW,
		ImageHeight: imgH,
		Placements:  []Placement{{Page: 0, Width: imgW, Height: imgH}},
	}

	y := 0.0
	remaining := imgH
	for remaining > g.Height {
		y -= g.Height
		l.Placements = append(l.Placements, Placement{
			Page:   len(l.Placements),
			Y:      y,
			Width:  imgW,
			Height: imgH,
		})
		remaining -= g.Height
	}
	return l, nil
}
