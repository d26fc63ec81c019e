package snappdf

import (
	"fmt"
	"strings"
)

// Geometry is an output page size in millimetres.
type Geometry struct {
	Width  float64 // Width in millimetres.
	Height float64 // Height in millimetres.
}

// Standard portrait paper sizes.
var (
	A3Portrait     = Geometry{Width: 297, Height: 420}
	A4Portrait     = Geometry{Width: 210, Height: 297}
	A5Portrait     = Geometry{Width: 148, Height: 210}
	LetterPortrait = Geometry{Width: 215.9, Height: 279.4}
)

var namedGeometries = map[string]Geometry{
	"a3":     A3Portrait,
	"a4":     A4Portrait,
	"a5":     A5Portrait,
	"letter": LetterPortrait,
}

// GeometryByName returns the preset called name ("a3", "a4", "a5" or
// "letter", case-insensitive).
func GeometryByName(name string) (Geometry, error) {
	g, ok := namedGeometries[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Geometry{}, fmt.Errorf("%w: unknown page size %q", ErrInvalidGeometry, name)
	}
	return g, nil
}

// Validate reports whether both sides are strictly positive.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: %vx%v mm", ErrInvalidGeometry, g.Width, g.Height)
	}
	return nil
}
