package skeleton

// Texture is a handle to an externally owned texture. Skeletons and batches
// only hold references; they never manage a texture's lifetime.
type Texture interface {
	ID() uint32
	Width() int
	Height() int
}

// TextureRegion is a sub-rectangle of a texture page in normalized
// coordinates. When Rotate is set the region is stored rotated 90 degrees
// clockwise in the page.
type TextureRegion struct {
	Texture Texture
	U, V    float32
	U2, V2  float32
	Rotate  bool
}

// FullRegion returns a region covering the whole texture.
func FullRegion(tex Texture) *TextureRegion {
	return &TextureRegion{Texture: tex, U: 0, V: 0, U2: 1, V2: 1}
}
