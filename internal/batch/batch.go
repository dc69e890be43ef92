// Package batch implements a fixed-capacity accumulator of interleaved
// vertices and 16-bit triangle indices, grouped into contiguous index
// ranges that share one texture and blend mode.
//
// A Batch is filled once per frame:
//
//	b.Begin()
//	for each part {
//		if !b.CanAppend(nv, ni) { ...switch batch... }
//		slot, err := b.ResolveMaterial(tex, blend)
//		b.AddMaterialGroup(ni, slot)
//		b.Append(vertices, nv, indices, ni, z)
//	}
//	b.End()
//
// After End the written prefixes of Vertices and Indices, the dirty
// ranges and Groups describe everything a renderer needs to upload and
// draw. Batches are not safe for concurrent use.
package batch

import (
	"errors"
	"fmt"

	"github.com/Faultbox/skelbatch/internal/skeleton"
)

const (
	// VertexSize is the number of float32 scalars per batched vertex:
	// x, y, z, r, g, b, a, u, v.
	VertexSize = 9

	// SourceVertexSize is the number of scalars per input vertex. The
	// input carries no z; Append synthesizes it.
	SourceVertexSize = 8

	// MaxVertices is the largest capacity whose triangle-list index
	// buffer stays addressable with 16-bit indices.
	MaxVertices = 10920
)

var (
	ErrTooManyVertices = errors.New("batch: capacity exceeds 16-bit index limit")
	ErrFixedMaterials  = errors.New("batch: material storage is not extensible")
	ErrBatchFull       = errors.New("batch: capacity exceeded")
	ErrShortInput      = errors.New("batch: input shorter than declared length")
)

// MaterialGroup is a contiguous index range drawn with one material slot.
type MaterialGroup struct {
	Start    int
	Count    int
	Material int
}

// UpdateRange is the region of a buffer that changed since the last upload,
// in elements (scalars for vertices, indices for the index buffer).
type UpdateRange struct {
	Offset int
	Count  int
}

// DrawRange is the index range to draw.
type DrawRange struct {
	Start int
	Count int
}

// Resources are renderer-side objects attached to a batch (GPU buffers).
// They are released when the batch is disposed.
type Resources interface {
	Release()
}

// Batch is a fixed-capacity vertex/index accumulator.
type Batch struct {
	vertices    []float32
	indices     []uint16
	maxVertices int

	verticesLength int
	indicesLength  int

	pending []MaterialGroup
	groups  []MaterialGroup

	materials Materials
	customize MaterialCustomizer

	vertexUpdate UpdateRange
	indexUpdate  UpdateRange
	vertexDirty  bool
	indexDirty   bool
	drawRange    DrawRange

	// Visible is false for pooled batches not used by the current frame.
	Visible bool

	resources Resources
}

// New creates a batch holding up to maxVertices vertices and maxVertices*3
// indices, with growable material storage. A maxVertices <= 0 selects
// MaxVertices. customize, if non-nil, is applied to every new material.
func New(maxVertices int, customize MaterialCustomizer) (*Batch, error) {
	list := &MaterialList{}
	list.Append(newMaterial(customize))
	return newBatch(maxVertices, list, customize)
}

// NewFixed creates a batch bound to a single material. ResolveMaterial on
// such a batch fails with ErrFixedMaterials.
func NewFixed(maxVertices int, material *Material) (*Batch, error) {
	if material == nil {
		material = newMaterial(nil)
	}
	return newBatch(maxVertices, FixedMaterial{Material: material}, nil)
}

func newBatch(maxVertices int, materials Materials, customize MaterialCustomizer) (*Batch, error) {
	if maxVertices <= 0 {
		maxVertices = MaxVertices
	}
	if maxVertices > MaxVertices {
		return nil, fmt.Errorf("%w: requested %d, max %d", ErrTooManyVertices, maxVertices, MaxVertices)
	}
	return &Batch{
		vertices:    make([]float32, maxVertices*VertexSize),
		indices:     make([]uint16, maxVertices*3),
		maxVertices: maxVertices,
		materials:   materials,
		customize:   customize,
	}, nil
}

// Begin starts a new fill pass. Only write cursors and pending groups are
// reset; material bindings survive until Clear.
func (b *Batch) Begin() {
	b.verticesLength = 0
	b.indicesLength = 0
	b.pending = b.pending[:0]
}

// CanAppend reports whether numVertices vertices and numIndices indices
// fit in the remaining capacity.
func (b *Batch) CanAppend(numVertices, numIndices int) bool {
	if b.indicesLength+numIndices > len(b.indices) {
		return false
	}
	if b.VertexCount()+numVertices > b.maxVertices {
		return false
	}
	return true
}

// Append copies numVertices source vertices (SourceVertexSize scalars each)
// into the batch, inserting z after x and y, and copies numIndices indices
// rebased onto the vertices already present. Nothing is written when the
// geometry does not fit.
func (b *Batch) Append(vertices []float32, numVertices int, indices []uint16, numIndices int, z float32) error {
	if !b.CanAppend(numVertices, numIndices) {
		return fmt.Errorf("%w: +%d vertices/+%d indices onto %d/%d",
			ErrBatchFull, numVertices, numIndices, b.VertexCount(), b.indicesLength)
	}
	if len(vertices) < numVertices*SourceVertexSize || len(indices) < numIndices {
		return fmt.Errorf("%w: %d scalars for %d vertices, %d of %d indices",
			ErrShortInput, len(vertices), numVertices, len(indices), numIndices)
	}

	indexStart := uint16(b.VertexCount())

	dst := b.vertices[b.verticesLength:]
	for v := 0; v < numVertices; v++ {
		s := vertices[v*SourceVertexSize : (v+1)*SourceVertexSize]
		d := dst[v*VertexSize : (v+1)*VertexSize]
		d[0] = s[0]
		d[1] = s[1]
		d[2] = z
		copy(d[3:], s[2:])
	}
	b.verticesLength += numVertices * VertexSize

	out := b.indices[b.indicesLength : b.indicesLength+numIndices]
	for i, idx := range indices[:numIndices] {
		out[i] = idx + indexStart
	}
	b.indicesLength += numIndices
	return nil
}

// End finalizes the pass: pending groups become Groups, the dirty ranges
// cover exactly the written prefixes and the draw range spans every index.
func (b *Batch) End() {
	b.vertexDirty = b.verticesLength > 0
	b.vertexUpdate = UpdateRange{Offset: 0, Count: b.verticesLength}

	b.groups = append(b.groups[:0], b.pending...)

	b.indexDirty = b.indicesLength > 0
	b.indexUpdate = UpdateRange{Offset: 0, Count: b.indicesLength}

	b.drawRange = DrawRange{Start: 0, Count: b.indicesLength}
}

// AddMaterialGroup records numIndices upcoming indices as drawn with
// material. Consecutive ranges with the same material merge into one group.
func (b *Batch) AddMaterialGroup(numIndices, material int) {
	if n := len(b.pending); n > 0 && b.pending[n-1].Material == material {
		b.pending[n-1].Count += numIndices
		return
	}
	b.pending = append(b.pending, MaterialGroup{
		Start:    b.indicesLength,
		Count:    numIndices,
		Material: material,
	})
}

// ResolveMaterial returns the index of the material slot for tex and
// blend. Slots are scanned in order: the first unused slot is claimed,
// else the first slot already bound to (tex, blend) is reused, else a new
// slot is appended.
func (b *Batch) ResolveMaterial(tex skeleton.Texture, blend skeleton.BlendMode) (int, error) {
	list, ok := b.materials.(materialAppender)
	if !ok {
		return -1, ErrFixedMaterials
	}

	for i := 0; i < list.Len(); i++ {
		m := list.At(i)
		if m.Texture == nil {
			m.bind(tex, blend)
			return i, nil
		}
		if m.Texture == tex && m.Blend == blend {
			return i, nil
		}
	}

	m := newMaterial(b.customize)
	m.bind(tex, blend)
	return list.Append(m), nil
}

// Clear empties the batch: cursors, draw range and groups are reset and
// every material slot is unbound.
func (b *Batch) Clear() {
	b.verticesLength = 0
	b.indicesLength = 0
	b.drawRange = DrawRange{}
	b.pending = b.pending[:0]
	b.groups = b.groups[:0]
	for i := 0; i < b.materials.Len(); i++ {
		b.materials.At(i).unbind()
	}
}

// Dispose releases attached renderer resources.
func (b *Batch) Dispose() {
	if b.resources != nil {
		b.resources.Release()
		b.resources = nil
	}
}

// SetResources attaches renderer-side resources, replacing (but not
// releasing) any previous ones.
func (b *Batch) SetResources(r Resources) {
	b.resources = r
}

// Resources returns the attached renderer resources, or nil.
func (b *Batch) Resources() Resources {
	return b.resources
}

// MaxVertices returns the vertex capacity.
func (b *Batch) MaxVertices() int { return b.maxVertices }

// VertexCount returns the number of vertices written this pass.
func (b *Batch) VertexCount() int { return b.verticesLength / VertexSize }

// VerticesLength returns the number of vertex scalars written this pass.
func (b *Batch) VerticesLength() int { return b.verticesLength }

// IndicesLength returns the number of indices written this pass.
func (b *Batch) IndicesLength() int { return b.indicesLength }

// Vertices returns the written prefix of the vertex buffer.
func (b *Batch) Vertices() []float32 { return b.vertices[:b.verticesLength] }

// Indices returns the written prefix of the index buffer.
func (b *Batch) Indices() []uint16 { return b.indices[:b.indicesLength] }

// VertexBuffer returns the whole vertex buffer, sized for capacity.
func (b *Batch) VertexBuffer() []float32 { return b.vertices }

// IndexBuffer returns the whole index buffer, sized for capacity.
func (b *Batch) IndexBuffer() []uint16 { return b.indices }

// Groups returns the material groups committed by the last End.
func (b *Batch) Groups() []MaterialGroup { return b.groups }

// Materials returns the material storage.
func (b *Batch) Materials() Materials { return b.materials }

// Material returns material slot i.
func (b *Batch) Material(i int) *Material { return b.materials.At(i) }

// DrawRange returns the index range set by the last End.
func (b *Batch) DrawRange() DrawRange { return b.drawRange }

// VertexUpdate returns the dirty vertex range and whether an upload is due.
func (b *Batch) VertexUpdate() (UpdateRange, bool) { return b.vertexUpdate, b.vertexDirty }

// IndexUpdate returns the dirty index range and whether an upload is due.
func (b *Batch) IndexUpdate() (UpdateRange, bool) { return b.indexUpdate, b.indexDirty }

// MarkUploaded clears the dirty flags after a renderer has uploaded the
// ranges.
func (b *Batch) MarkUploaded() {
	b.vertexDirty = false
	b.indexDirty = false
}
