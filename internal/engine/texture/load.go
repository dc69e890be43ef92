package texture

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration

	_ "golang.org/x/image/bmp" // BMP decoder registration
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration

	"github.com/Faultbox/skelbatch/pkg/formats"
)

// Load returns the pixels of a declared page. Pages with a File are
// decoded from dir/File and, when Width and Height are both set, scaled
// to that size. Other pages are generated.
func Load(def formats.TextureDef, dir string) (*image.RGBA, error) {
	if def.File == "" {
		return Generate(def)
	}

	path := def.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", def.Name, err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %s: %w", def.Name, path, err)
	}
	if def.Width > 0 && def.Height > 0 {
		img = Scale(img, def.Width, def.Height)
	}
	return img, nil
}

// Decode reads a PNG, JPEG, BMP or WebP image into RGBA.
func Decode(r io.Reader) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}

// Scale resamples img to width x height with bilinear filtering. Images
// already at that size are returned as is.
func Scale(img *image.RGBA, width, height int) *image.RGBA {
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
