package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/skelbatch/internal/batch"
	"github.com/Faultbox/skelbatch/internal/skeleton"
)

var (
	ErrUnknownBlendMode     = errors.New("renderer: unknown blend mode")
	ErrUnknownTextureFilter = errors.New("renderer: unknown texture filter")
	ErrUnknownTextureWrap   = errors.New("renderer: unknown texture wrap")
)

// BlendFunc is a source/destination factor pair for gl.BlendFunc.
type BlendFunc struct {
	Src uint32
	Dst uint32
}

// TextureFilter selects how a texture is sampled when scaled.
type TextureFilter int

const (
	FilterNearest TextureFilter = iota
	FilterLinear
	FilterMipMap
	FilterMipMapNearestNearest
	FilterMipMapLinearNearest
	FilterMipMapNearestLinear
	FilterMipMapLinearLinear
)

// TextureWrap selects how texture coordinates outside 0..1 are handled.
type TextureWrap int

const (
	WrapClampToEdge TextureWrap = iota
	WrapRepeat
	WrapMirroredRepeat
)

var blendFuncs = map[skeleton.BlendMode]BlendFunc{
	skeleton.BlendNormal:   {gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA},
	skeleton.BlendAdditive: {gl.SRC_ALPHA, gl.ONE},
	skeleton.BlendMultiply: {gl.DST_COLOR, gl.ONE_MINUS_SRC_ALPHA},
	skeleton.BlendScreen:   {gl.ONE, gl.ONE_MINUS_SRC_COLOR},
}

var textureFilters = map[TextureFilter]int32{
	FilterNearest:              gl.NEAREST,
	FilterLinear:               gl.LINEAR,
	FilterMipMap:               gl.LINEAR_MIPMAP_LINEAR,
	FilterMipMapNearestNearest: gl.NEAREST_MIPMAP_NEAREST,
	FilterMipMapLinearNearest:  gl.LINEAR_MIPMAP_NEAREST,
	FilterMipMapNearestLinear:  gl.NEAREST_MIPMAP_LINEAR,
	FilterMipMapLinearLinear:   gl.LINEAR_MIPMAP_LINEAR,
}

var textureWraps = map[TextureWrap]int32{
	WrapClampToEdge:    gl.CLAMP_TO_EDGE,
	WrapRepeat:         gl.REPEAT,
	WrapMirroredRepeat: gl.MIRRORED_REPEAT,
}

// ToGLBlend returns the blend factors for a slot blend mode. Colors are
// not premultiplied.
func ToGLBlend(mode skeleton.BlendMode) (BlendFunc, error) {
	f, ok := blendFuncs[mode]
	if !ok {
		return BlendFunc{}, fmt.Errorf("%w: %v", ErrUnknownBlendMode, mode)
	}
	return f, nil
}

// ToGLTextureFilter returns the GL filter enum.
func ToGLTextureFilter(f TextureFilter) (int32, error) {
	v, ok := textureFilters[f]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTextureFilter, int(f))
	}
	return v, nil
}

// ToGLTextureWrap returns the GL wrap enum.
func ToGLTextureWrap(w TextureWrap) (int32, error) {
	v, ok := textureWraps[w]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTextureWrap, int(w))
	}
	return v, nil
}

// usesMipMaps reports whether the min filter samples mip levels.
func (f TextureFilter) usesMipMaps() bool {
	return f >= FilterMipMap
}

// drawState is the fixed-function state a material group needs.
type drawState struct {
	Blend     BlendFunc
	Blending  bool
	DepthMask bool
	CullFace  bool
	AlphaTest float32
}

func stateFor(m *batch.Material) (drawState, error) {
	blend, err := ToGLBlend(m.Blend)
	if err != nil {
		return drawState{}, err
	}
	return drawState{
		Blend:     blend,
		Blending:  m.Params.Transparent,
		DepthMask: m.Params.DepthWrite,
		CullFace:  !m.Params.DoubleSided,
		AlphaTest: m.Params.AlphaTest,
	}, nil
}
