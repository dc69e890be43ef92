// Package texture synthesizes the RGBA pages declared by scene files.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/pkg/formats"
)

// Pattern names accepted in scene files.
const (
	PatternSolid   = "solid"
	PatternChecker = "checker"
	PatternRadial  = "radial"
)

// checkerCell is the checker square size in pixels.
const checkerCell = 8

var ErrUnknownPattern = errors.New("texture: unknown pattern")

// Generate renders the page described by def. An empty pattern is solid.
func Generate(def formats.TextureDef) (*image.RGBA, error) {
	if def.Width <= 0 || def.Height <= 0 {
		return nil, fmt.Errorf("texture %q: invalid size %dx%d", def.Name, def.Width, def.Height)
	}
	c, err := formats.ParseColor(def.Color)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", def.Name, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, def.Width, def.Height))
	switch def.Pattern {
	case "", PatternSolid:
		fill(img, func(x, y int) skeleton.Color { return c })
	case PatternChecker:
		dark := skeleton.Color{R: c.R * 0.6, G: c.G * 0.6, B: c.B * 0.6, A: c.A}
		fill(img, func(x, y int) skeleton.Color {
			if (x/checkerCell+y/checkerCell)%2 == 0 {
				return c
			}
			return dark
		})
	case PatternRadial:
		cx, cy := float32(def.Width)/2, float32(def.Height)/2
		fill(img, func(x, y int) skeleton.Color {
			dx := (float32(x) + 0.5 - cx) / cx
			dy := (float32(y) + 0.5 - cy) / cy
			falloff := 1 - math32.Min(math32.Sqrt(dx*dx+dy*dy), 1)
			return skeleton.Color{R: c.R, G: c.G, B: c.B, A: c.A * falloff}
		})
	default:
		return nil, fmt.Errorf("%w: %q in texture %q", ErrUnknownPattern, def.Pattern, def.Name)
	}
	return img, nil
}

func fill(img *image.RGBA, at func(x, y int) skeleton.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, toRGBA(at(x, y)))
		}
	}
}

func toRGBA(c skeleton.Color) color.RGBA {
	c = c.Clamp()
	return color.RGBA{
		R: uint8(math32.Round(c.R * 255)),
		G: uint8(math32.Round(c.G * 255)),
		B: uint8(math32.Round(c.B * 255)),
		A: uint8(math32.Round(c.A * 255)),
	}
}
