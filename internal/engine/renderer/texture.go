package renderer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// TextureOptions are the sampling settings of a Texture.
type TextureOptions struct {
	MinFilter TextureFilter
	MagFilter TextureFilter
	WrapS     TextureWrap
	WrapT     TextureWrap
}

// DefaultTextureOptions samples linearly and clamps to the edge.
func DefaultTextureOptions() TextureOptions {
	return TextureOptions{
		MinFilter: FilterLinear,
		MagFilter: FilterLinear,
		WrapS:     WrapClampToEdge,
		WrapT:     WrapClampToEdge,
	}
}

// Texture is an OpenGL texture. It satisfies skeleton.Texture.
type Texture struct {
	id     uint32
	width  int
	height int
}

// NewTexture uploads RGBA pixels. Requires a current GL context.
func NewTexture(img *image.RGBA, opts TextureOptions) (*Texture, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("renderer: empty texture %dx%d", w, h)
	}
	minFilter, err := ToGLTextureFilter(opts.MinFilter)
	if err != nil {
		return nil, err
	}
	magFilter, err := ToGLTextureFilter(opts.MagFilter)
	if err != nil {
		return nil, err
	}
	if opts.MagFilter.usesMipMaps() {
		return nil, fmt.Errorf("%w: mag filter cannot use mip maps", ErrUnknownTextureFilter)
	}
	wrapS, err := ToGLTextureWrap(opts.WrapS)
	if err != nil {
		return nil, err
	}
	wrapT, err := ToGLTextureWrap(opts.WrapT)
	if err != nil {
		return nil, err
	}

	t := &Texture{width: w, height: h}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	if opts.MinFilter.usesMipMaps() {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapS)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapT)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t, nil
}

func (t *Texture) ID() uint32  { return t.id }
func (t *Texture) Width() int  { return t.width }
func (t *Texture) Height() int { return t.height }

// Delete releases the GL texture.
func (t *Texture) Delete() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}
