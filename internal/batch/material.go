package batch

import (
	"github.com/Faultbox/skelbatch/internal/skeleton"
)

// MaterialParams are the per-slot render settings a renderer applies when
// drawing a material group.
type MaterialParams struct {
	Transparent bool
	DepthWrite  bool
	DoubleSided bool
	// AlphaTest discards fragments whose alpha is below the threshold.
	AlphaTest float32
}

// DefaultMaterialParams returns the settings used for skeleton geometry.
func DefaultMaterialParams() MaterialParams {
	return MaterialParams{
		Transparent: true,
		DepthWrite:  false,
		DoubleSided: true,
		AlphaTest:   0.5,
	}
}

// MaterialCustomizer adjusts the params of every newly allocated material.
type MaterialCustomizer func(*MaterialParams)

// Material is a batch-scoped binding of one texture and blend mode. A nil
// Texture marks the slot as unused and free to be claimed.
type Material struct {
	Texture skeleton.Texture
	Blend   skeleton.BlendMode
	Params  MaterialParams

	// NeedsUpdate is set whenever the binding changes; renderers clear it
	// after re-applying the material state.
	NeedsUpdate bool
}

func newMaterial(customize MaterialCustomizer) *Material {
	m := &Material{Params: DefaultMaterialParams()}
	if customize != nil {
		customize(&m.Params)
	}
	return m
}

func (m *Material) bind(tex skeleton.Texture, blend skeleton.BlendMode) {
	m.Texture = tex
	m.Blend = blend
	m.NeedsUpdate = true
}

func (m *Material) unbind() {
	m.Texture = nil
	m.Blend = skeleton.BlendNormal
}

// Materials is the material storage of a batch.
type Materials interface {
	Len() int
	At(i int) *Material
}

// materialAppender is implemented by material storage that can grow.
type materialAppender interface {
	Materials
	Append(m *Material) int
}

// MaterialList is the growable material storage used by New.
type MaterialList struct {
	items []*Material
}

// Len implements Materials.
func (l *MaterialList) Len() int { return len(l.items) }

// At implements Materials.
func (l *MaterialList) At(i int) *Material { return l.items[i] }

// Append adds m and returns its index.
func (l *MaterialList) Append(m *Material) int {
	l.items = append(l.items, m)
	return len(l.items) - 1
}

// FixedMaterial is single-slot material storage. Batches using it can be
// filled and cleared but cannot resolve materials.
type FixedMaterial struct {
	Material *Material
}

// Len implements Materials.
func (f FixedMaterial) Len() int { return 1 }

// At implements Materials.
func (f FixedMaterial) At(int) *Material { return f.Material }
