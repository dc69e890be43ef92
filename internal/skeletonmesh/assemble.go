package skeletonmesh

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/pkg/math"
)

// part is one slot's extracted geometry. vertices aliases the scratch
// buffer and holds numVertices entries of the extraction stride.
type part struct {
	vertices    []float32
	numVertices int
	triangles   []uint16
	uvs         []float32
	texture     skeleton.Texture
	color       skeleton.Color
}

// UpdateGeometry rebuilds the batches from the skeleton's current pose.
// Only configuration errors are returned; parts that cannot be drawn are
// skipped.
func (m *SkeletonMesh) UpdateGeometry() error {
	m.clearBatches()
	m.stats = FrameStats{}

	b, err := m.nextBatch()
	if err != nil {
		return err
	}
	b.Begin()

	clipper := m.clipper
	var z float32

	for _, slot := range m.Skeleton.DrawOrder {
		if !slot.Bone.Active {
			m.stats.Skipped++
			clipper.ClipEndWithSlot(slot)
			continue
		}

		if clip, ok := slot.Attachment.(*skeleton.ClippingAttachment); ok {
			clipper.ClipStart(slot, clip)
			continue
		}

		stride := VertexSize
		if clipper.IsClipping() {
			stride = 2
		}

		p, ok := m.extract(slot, stride)
		if !ok {
			m.stats.Skipped++
			clipper.ClipEndWithSlot(slot)
			continue
		}

		var (
			vertices    []float32
			numVertices int
			triangles   []uint16
		)
		if clipper.IsClipping() {
			vertices, triangles = clipper.ClipTriangles(p.vertices, p.numVertices, p.triangles, p.uvs, p.color)
			numVertices = len(vertices) / VertexSize
			if m.VertexEffect != nil {
				m.applyEffectInterleaved(vertices, p.color)
			}
		} else {
			vertices, numVertices, triangles = p.vertices, p.numVertices, p.triangles
			m.fill(vertices, numVertices, p.uvs, p.color)
		}

		if numVertices == 0 || len(triangles) == 0 {
			m.stats.Skipped++
			if m.advanceZOnEmptyClip {
				z += m.ZOffset
			}
			clipper.ClipEndWithSlot(slot)
			continue
		}

		if numVertices > b.MaxVertices() || len(triangles) > len(b.IndexBuffer()) {
			m.log.Warn("part exceeds batch capacity",
				zap.String("slot", slot.Name),
				zap.Int("vertices", numVertices),
				zap.Int("indices", len(triangles)),
				zap.Int("max_vertices", b.MaxVertices()))
			m.stats.Skipped++
			clipper.ClipEndWithSlot(slot)
			continue
		}

		if !b.CanAppend(numVertices, len(triangles)) {
			b.End()
			if b, err = m.nextBatch(); err != nil {
				return err
			}
			b.Begin()
		}

		material, err := b.ResolveMaterial(p.texture, slot.BlendMode)
		if err != nil {
			return fmt.Errorf("skeletonmesh: slot %q: %w", slot.Name, err)
		}
		b.AddMaterialGroup(len(triangles), material)
		if err := b.Append(vertices, numVertices, triangles, len(triangles), z); err != nil {
			return fmt.Errorf("skeletonmesh: slot %q: %w", slot.Name, err)
		}
		z += m.ZOffset
		m.stats.Parts++

		clipper.ClipEndWithSlot(slot)
	}

	clipper.ClipEnd()
	b.End()

	m.collectStats()
	return nil
}

// extract computes the slot's world vertices into the scratch buffer with
// the given stride. It reports false for parts that cannot be drawn.
func (m *SkeletonMesh) extract(slot *skeleton.Slot, stride int) (part, bool) {
	var (
		p               part
		attachmentColor skeleton.Color
	)

	switch a := slot.Attachment.(type) {
	case *skeleton.RegionAttachment:
		p.texture = a.Texture()
		if p.texture == nil {
			m.log.Debug("skipping region without texture",
				zap.String("slot", slot.Name), zap.String("attachment", a.Name))
			return p, false
		}
		p.numVertices = 4
		m.ensureScratch(p.numVertices * stride)
		a.ComputeWorldVertices(slot.Bone, m.vertices, 0, stride)
		p.triangles = skeleton.QuadTriangles
		p.uvs = a.UVs()
		attachmentColor = a.Color

	case *skeleton.MeshAttachment:
		p.texture = a.Texture()
		if p.texture == nil {
			m.log.Debug("skipping mesh without texture",
				zap.String("slot", slot.Name), zap.String("attachment", a.Name))
			return p, false
		}
		p.numVertices = a.WorldVerticesLength() / 2
		p.triangles = a.Triangles
		p.uvs = a.UVs()
		if p.numVertices == 0 || len(p.triangles) == 0 || len(p.uvs) < p.numVertices*2 {
			m.log.Debug("skipping degenerate mesh",
				zap.String("slot", slot.Name),
				zap.String("attachment", a.Name),
				zap.Int("vertices", p.numVertices),
				zap.Int("triangles", len(p.triangles)/3))
			return p, false
		}
		m.ensureScratch(p.numVertices * stride)
		a.ComputeWorldVertices(slot, 0, a.WorldVerticesLength(), m.vertices, 0, stride)
		attachmentColor = a.Color

	default:
		return p, false
	}

	p.vertices = m.vertices[:p.numVertices*stride]
	p.color = m.Skeleton.Color.Mul(slot.Color).Mul(attachmentColor)
	return p, true
}

// fill writes color and texture coordinates into unclipped scratch
// vertices, running the vertex effect when one is set.
func (m *SkeletonMesh) fill(vertices []float32, numVertices int, uvs []float32, color skeleton.Color) {
	effect := m.VertexEffect
	for v, u := 0, 0; v < numVertices*VertexSize; v, u = v+VertexSize, u+2 {
		uv := math.Vec2{X: uvs[u], Y: uvs[u+1]}
		light := color
		if effect != nil {
			var pos math.Vec2
			pos, light, _ = effect(math.Vec2{X: vertices[v], Y: vertices[v+1]}, uv, color)
			vertices[v], vertices[v+1] = pos.X, pos.Y
		}
		vertices[v+2] = light.R
		vertices[v+3] = light.G
		vertices[v+4] = light.B
		vertices[v+5] = light.A
		vertices[v+6] = uv.X
		vertices[v+7] = uv.Y
	}
}

// applyEffectInterleaved runs the vertex effect over clipped vertices,
// which already carry color and texture coordinates.
func (m *SkeletonMesh) applyEffectInterleaved(vertices []float32, color skeleton.Color) {
	for v := 0; v+VertexSize <= len(vertices); v += VertexSize {
		pos, light, _ := m.VertexEffect(
			math.Vec2{X: vertices[v], Y: vertices[v+1]},
			math.Vec2{X: vertices[v+6], Y: vertices[v+7]},
			color)
		vertices[v], vertices[v+1] = pos.X, pos.Y
		vertices[v+2] = light.R
		vertices[v+3] = light.G
		vertices[v+4] = light.B
		vertices[v+5] = light.A
	}
}

func (m *SkeletonMesh) collectStats() {
	batches := m.Batches()
	m.stats.Batches = len(batches)
	for _, b := range batches {
		m.stats.Groups += len(b.Groups())
		m.stats.Vertices += b.VertexCount()
		m.stats.Indices += b.IndicesLength()
	}
}
