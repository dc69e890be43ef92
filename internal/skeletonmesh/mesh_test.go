package skeletonmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/skelbatch/internal/batch"
	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/pkg/math"
)

const eps = 1e-4

type fakeTexture uint32

func (t fakeTexture) ID() uint32  { return uint32(t) }
func (t fakeTexture) Width() int  { return 32 }
func (t fakeTexture) Height() int { return 32 }

const (
	tex1 = fakeTexture(1)
	tex2 = fakeTexture(2)
	tex3 = fakeTexture(3)
	tex4 = fakeTexture(4)
)

func newSkeleton() (*skeleton.Skeleton, *skeleton.Bone) {
	sk := skeleton.New()
	root := sk.NewBone("root", nil)
	return sk, root
}

// addRegion appends a square region of the given size centered at x, y in
// bone space. A nil tex leaves the region unresolved.
func addRegion(sk *skeleton.Skeleton, bone *skeleton.Bone, name string, tex skeleton.Texture, x, y, size float32) *skeleton.Slot {
	slot := sk.NewSlot(name, bone)
	r := skeleton.NewRegionAttachment(name)
	r.X, r.Y = x, y
	r.Width, r.Height = size, size
	r.UpdateOffset()
	if tex != nil {
		r.SetRegion(skeleton.FullRegion(tex))
	}
	slot.Attachment = r
	return slot
}

func addTriangleMesh(sk *skeleton.Skeleton, bone *skeleton.Bone, name string, tex skeleton.Texture) *skeleton.Slot {
	slot := sk.NewSlot(name, bone)
	mesh := skeleton.NewMeshAttachment(name)
	mesh.Vertices = []float32{0, 0, 1, 0, 0, 1}
	mesh.RegionUVs = []float32{0, 0, 1, 0, 0, 1}
	mesh.Triangles = []uint16{0, 1, 2}
	mesh.SetRegion(skeleton.FullRegion(tex))
	slot.Attachment = mesh
	return slot
}

func addClip(sk *skeleton.Skeleton, bone *skeleton.Bone, polygon []float32) *skeleton.ClippingAttachment {
	slot := sk.NewSlot("clip", bone)
	clip := skeleton.NewClippingAttachment("clip")
	clip.Vertices = polygon
	slot.Attachment = clip
	return clip
}

func newMesh(t *testing.T, sk *skeleton.Skeleton, opts Options) *SkeletonMesh {
	t.Helper()
	m, err := New(sk, opts)
	require.NoError(t, err)
	require.NoError(t, m.Update(0))
	return m
}

// partZ returns the z of the first vertex of the k-th 4-vertex part.
func partZ(b *batch.Batch, k int) float32 {
	return b.Vertices()[k*4*batch.VertexSize+2]
}

// groupBounds returns the x range of the vertices referenced by group g.
func groupBounds(b *batch.Batch, g batch.MaterialGroup) (minX, maxX float32) {
	minX, maxX = 1e9, -1e9
	for _, idx := range b.Indices()[g.Start : g.Start+g.Count] {
		x := b.Vertices()[int(idx)*batch.VertexSize]
		minX = min(minX, x)
		maxX = max(maxX, x)
	}
	return minX, maxX
}

func TestNew(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrNilSkeleton)

	sk, _ := newSkeleton()
	_, err = New(sk, Options{MaxVertices: batch.MaxVertices + 1})
	assert.ErrorIs(t, err, batch.ErrTooManyVertices)

	m, err := New(sk, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultZOffset, m.ZOffset)
	assert.Empty(t, m.Batches())
}

func TestMergesSameMaterial(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)
	addTriangleMesh(sk, root, "b", tex1)
	c := addRegion(sk, root, "c", tex2, 5, 5, 2)
	c.BlendMode = skeleton.BlendAdditive

	m := newMesh(t, sk, Options{})

	require.Len(t, m.Batches(), 1)
	b := m.Batches()[0]
	assert.Equal(t, []batch.MaterialGroup{
		{Start: 0, Count: 9, Material: 0},
		{Start: 9, Count: 6, Material: 1},
	}, b.Groups())
	assert.Equal(t, 11, b.VertexCount())
	assert.Equal(t, 15, b.IndicesLength())

	assert.Equal(t, skeleton.Texture(tex1), b.Material(0).Texture)
	assert.Equal(t, skeleton.BlendNormal, b.Material(0).Blend)
	assert.Equal(t, skeleton.Texture(tex2), b.Material(1).Texture)
	assert.Equal(t, skeleton.BlendAdditive, b.Material(1).Blend)

	// Mesh indices are rebased past the region's four vertices.
	assert.Equal(t, []uint16{0, 1, 2, 2, 3, 0, 4, 5, 6, 7, 8, 9, 9, 10, 7}, b.Indices())
}

func TestCapacitySplitsBatches(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)
	addRegion(sk, root, "b", tex1, 1, 0, 2)
	addRegion(sk, root, "c", tex1, 2, 0, 2)

	m := newMesh(t, sk, Options{MaxVertices: 8})

	batches := m.Batches()
	require.Len(t, batches, 2)

	assert.Equal(t, 8, batches[0].VertexCount())
	assert.Equal(t, []batch.MaterialGroup{{Start: 0, Count: 12, Material: 0}}, batches[0].Groups())
	assert.True(t, batches[0].Visible)

	assert.Equal(t, 4, batches[1].VertexCount())
	assert.Equal(t, []uint16{0, 1, 2, 2, 3, 0}, batches[1].Indices())
	assert.Equal(t, []batch.MaterialGroup{{Start: 0, Count: 6, Material: 0}}, batches[1].Groups())

	// The third part keeps its place in the z sequence.
	assert.InDelta(t, 0.2, partZ(batches[1], 0), eps)

	stats := m.Stats()
	assert.Equal(t, 3, stats.Parts)
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 12, stats.Vertices)
	assert.Equal(t, 18, stats.Indices)
}

func TestBatchPoolReuse(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)
	addRegion(sk, root, "b", tex2, 0, 0, 2)
	addRegion(sk, root, "c", tex1, 0, 0, 2)

	m := newMesh(t, sk, Options{MaxVertices: 8})
	first := append([]*batch.Batch(nil), m.Batches()...)
	firstVertices := append([]float32(nil), first[0].Vertices()...)

	require.NoError(t, m.UpdateGeometry())

	require.Len(t, m.Batches(), len(first))
	for i, b := range m.Batches() {
		assert.Same(t, first[i], b)
	}
	assert.Equal(t, firstVertices, m.Batches()[0].Vertices())
	assert.Equal(t, 2, m.Batches()[0].Materials().Len())

	// Hiding a part drops the second batch from the frame but keeps it pooled.
	sk.DrawOrder = sk.DrawOrder[:2]
	require.NoError(t, m.UpdateGeometry())
	require.Len(t, m.Batches(), 1)
	assert.False(t, first[1].Visible)
	assert.Zero(t, first[1].IndicesLength())
}

func TestZSequenceSkipsTexturelessParts(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)
	addRegion(sk, root, "missing", nil, 0, 0, 2)
	addRegion(sk, root, "b", tex1, 0, 0, 2)
	addRegion(sk, root, "c", tex2, 0, 0, 2)

	core, logs := observer.New(zap.DebugLevel)
	m := newMesh(t, sk, Options{Logger: zap.New(core)})

	b := m.Batches()[0]
	require.Equal(t, 12, b.VertexCount())
	for k, want := range []float32{0, 0.1, 0.2} {
		assert.InDelta(t, want, partZ(b, k), eps, "part %d", k)
	}
	for v := 0; v < b.VertexCount(); v++ {
		assert.InDelta(t, partZ(b, v/4), b.Vertices()[v*batch.VertexSize+2], eps)
	}

	assert.Equal(t, 1, m.Stats().Skipped)
	assert.Equal(t, 1, logs.FilterMessage("skipping region without texture").Len())
}

func TestCustomZOffset(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)
	addRegion(sk, root, "b", tex1, 0, 0, 2)

	m := newMesh(t, sk, Options{ZOffset: 0.5})
	assert.InDelta(t, 0.5, partZ(m.Batches()[0], 1), eps)
}

var clipSquare = []float32{0, 0, 10, 0, 10, 10, 0, 10}

func TestZOnEmptyClip(t *testing.T) {
	tests := []struct {
		name    string
		advance bool
		want    []float32
	}{
		{"default", false, []float32{0, 0.1}},
		{"advance", true, []float32{0.1, 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sk, root := newSkeleton()
			clip := addClip(sk, root, clipSquare)
			addRegion(sk, root, "outside", tex1, 100, 100, 2)
			clip.EndSlot = addRegion(sk, root, "inside", tex1, 5, 5, 2)
			addRegion(sk, root, "after", tex1, 100, 100, 2)

			m := newMesh(t, sk, Options{AdvanceZOnEmptyClip: tt.advance})

			b := m.Batches()[0]
			require.Equal(t, 2, m.Stats().Parts)
			assert.Equal(t, 1, m.Stats().Skipped)

			// The inside part is clipped and may be re-triangulated, so
			// read its z from its first vertex and the after part's from
			// the last four.
			vs := b.Vertices()
			assert.InDelta(t, tt.want[0], vs[2], eps)
			last := (b.VertexCount() - 4) * batch.VertexSize
			assert.InDelta(t, tt.want[1], vs[last+2], eps)
		})
	}
}

func TestClipRun(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "before", tex1, 10, 5, 4)
	clip := addClip(sk, root, clipSquare)
	addRegion(sk, root, "first", tex2, 10, 5, 4)
	clip.EndSlot = addRegion(sk, root, "second", tex3, 10, 5, 4)
	addRegion(sk, root, "after", tex4, 10, 5, 4)

	m := newMesh(t, sk, Options{})

	require.Len(t, m.Batches(), 1)
	b := m.Batches()[0]
	groups := b.Groups()
	require.Len(t, groups, 4)

	tests := []struct {
		name    string
		group   batch.MaterialGroup
		clipped bool
	}{
		{"before", groups[0], false},
		{"first", groups[1], true},
		{"second", groups[2], true},
		{"after", groups[3], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minX, maxX := groupBounds(b, tt.group)
			assert.InDelta(t, 8, minX, eps)
			if tt.clipped {
				assert.InDelta(t, 10, maxX, eps)
			} else {
				assert.InDelta(t, 12, maxX, eps)
				assert.Equal(t, 6, tt.group.Count)
			}
		})
	}
}

func TestClippedUVsAndColor(t *testing.T) {
	sk, root := newSkeleton()
	clip := addClip(sk, root, clipSquare)
	slot := addRegion(sk, root, "half", tex1, 10, 5, 4)
	slot.Color = skeleton.Color{R: 1, G: 0.5, B: 1, A: 1}
	clip.EndSlot = slot

	m := newMesh(t, sk, Options{})
	b := m.Batches()[0]
	require.NotZero(t, b.VertexCount())

	for v := 0; v < b.VertexCount(); v++ {
		vert := b.Vertices()[v*batch.VertexSize : (v+1)*batch.VertexSize]
		// Region spans x 8..12 with u 0..1.
		assert.InDelta(t, (vert[0]-8)/4, vert[7], eps, "u follows x")
		assert.InDelta(t, 0.5, vert[4], eps, "green channel tinted")
	}
}

func TestInactiveBoneEndsClip(t *testing.T) {
	sk, root := newSkeleton()
	hidden := sk.NewBone("hidden", root)
	hidden.Active = false

	clip := addClip(sk, root, clipSquare)
	clip.EndSlot = addRegion(sk, hidden, "end", tex1, 5, 5, 2)
	addRegion(sk, root, "after", tex2, 10, 5, 4)

	m := newMesh(t, sk, Options{})

	b := m.Batches()[0]
	require.Len(t, b.Groups(), 1)
	_, maxX := groupBounds(b, b.Groups()[0])
	assert.InDelta(t, 12, maxX, eps, "part after the end slot is not clipped")
	assert.Equal(t, 1, m.Stats().Skipped)
}

func TestTint(t *testing.T) {
	sk, root := newSkeleton()
	sk.Color = skeleton.Color{R: 0.5, G: 1, B: 1, A: 0.5}
	slot := addRegion(sk, root, "a", tex1, 0, 0, 2)
	slot.Color = skeleton.Color{R: 1, G: 0.5, B: 1, A: 1}
	slot.Attachment.(*skeleton.RegionAttachment).Color = skeleton.Color{R: 1, G: 1, B: 0.25, A: 0.5}

	m := newMesh(t, sk, Options{})

	vs := m.Batches()[0].Vertices()
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 0.25, 0.25}, vs[3:7], eps)
}

func TestRegionVertexLayout(t *testing.T) {
	sk, root := newSkeleton()
	root.X, root.Y = 10, 20
	addRegion(sk, root, "a", tex1, 0, 0, 2)

	m := newMesh(t, sk, Options{})

	assert.InDeltaSlice(t, []float32{
		9, 19, 0, 1, 1, 1, 1, 0, 1,
		9, 21, 0, 1, 1, 1, 1, 0, 0,
		11, 21, 0, 1, 1, 1, 1, 1, 0,
		11, 19, 0, 1, 1, 1, 1, 1, 1,
	}, m.Batches()[0].Vertices(), eps)
}

func TestVertexEffect(t *testing.T) {
	red := skeleton.Color{R: 1, A: 1}
	var calls int
	shift := func(pos, uv math.Vec2, light skeleton.Color) (math.Vec2, skeleton.Color, skeleton.Color) {
		calls++
		return pos.Add(math.Vec2{X: 100}), red, skeleton.Color{R: 9, G: 9, B: 9, A: 9}
	}

	t.Run("unclipped", func(t *testing.T) {
		calls = 0
		sk, root := newSkeleton()
		addRegion(sk, root, "a", tex1, 0, 0, 2)

		m := newMesh(t, sk, Options{VertexEffect: shift})

		vs := m.Batches()[0].Vertices()
		assert.Equal(t, 4, calls)
		assert.InDelta(t, 99, vs[0], eps)
		assert.InDeltaSlice(t, []float32{1, 0, 0, 1}, vs[3:7], eps)
		assert.InDeltaSlice(t, []float32{0, 1}, vs[7:9], eps, "uv is unchanged")
	})

	t.Run("clipped", func(t *testing.T) {
		calls = 0
		sk, root := newSkeleton()
		clip := addClip(sk, root, clipSquare)
		clip.EndSlot = addRegion(sk, root, "a", tex1, 5, 5, 2)

		m := newMesh(t, sk, Options{VertexEffect: shift})

		b := m.Batches()[0]
		assert.Equal(t, b.VertexCount(), calls)
		for v := 0; v < b.VertexCount(); v++ {
			vert := b.Vertices()[v*batch.VertexSize:]
			assert.GreaterOrEqual(t, vert[0], float32(100))
			assert.Equal(t, float32(1), vert[3])
			assert.Equal(t, float32(0), vert[4])
		}
	})

	t.Run("swapped between frames", func(t *testing.T) {
		sk, root := newSkeleton()
		addRegion(sk, root, "a", tex1, 0, 0, 2)

		m := newMesh(t, sk, Options{})
		assert.InDelta(t, -1, m.Batches()[0].Vertices()[0], eps)

		m.VertexEffect = shift
		require.NoError(t, m.UpdateGeometry())
		assert.InDelta(t, 99, m.Batches()[0].Vertices()[0], eps)
	})
}

func TestScratchGrowsForLargeMeshes(t *testing.T) {
	const n = 600

	sk, root := newSkeleton()
	slot := sk.NewSlot("big", root)
	mesh := skeleton.NewMeshAttachment("big")
	for i := 0; i < n; i++ {
		mesh.Vertices = append(mesh.Vertices, float32(i), float32(i%7))
		mesh.RegionUVs = append(mesh.RegionUVs, float32(i)/n, 0)
	}
	for i := 1; i+1 < n; i++ {
		mesh.Triangles = append(mesh.Triangles, 0, uint16(i), uint16(i+1))
	}
	mesh.SetRegion(skeleton.FullRegion(tex1))
	slot.Attachment = mesh

	m := newMesh(t, sk, Options{})

	b := m.Batches()[0]
	require.Equal(t, n, b.VertexCount())
	assert.Equal(t, 3*(n-2), b.IndicesLength())
	last := b.Vertices()[(n-1)*batch.VertexSize:]
	assert.InDelta(t, float32(n-1), last[0], eps)
	assert.InDelta(t, float32((n-1)%7), last[1], eps)
}

func TestDegenerateMeshSkipped(t *testing.T) {
	sk, root := newSkeleton()
	slot := sk.NewSlot("empty", root)
	mesh := skeleton.NewMeshAttachment("empty")
	mesh.SetRegion(skeleton.FullRegion(tex1))
	slot.Attachment = mesh
	addRegion(sk, root, "a", tex1, 0, 0, 2)

	m := newMesh(t, sk, Options{})
	assert.Equal(t, 1, m.Stats().Parts)
	assert.Equal(t, 1, m.Stats().Skipped)
	assert.InDelta(t, 0, partZ(m.Batches()[0], 0), eps)
}

func TestOversizedPartSkipped(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)
	addTriangleMesh(sk, root, "b", tex1)

	core, logs := observer.New(zap.WarnLevel)
	m := newMesh(t, sk, Options{MaxVertices: 3, Logger: zap.New(core)})

	require.Len(t, m.Batches(), 1)
	assert.Equal(t, 3, m.Batches()[0].VertexCount())
	assert.Equal(t, 1, logs.FilterMessage("part exceeds batch capacity").Len())
}

func TestFixedMaterialsFail(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)

	m, err := New(sk, Options{
		NewBatch: func(maxVertices int, _ batch.MaterialCustomizer) (*batch.Batch, error) {
			return batch.NewFixed(maxVertices, nil)
		},
	})
	require.NoError(t, err)

	err = m.Update(0)
	assert.ErrorIs(t, err, batch.ErrFixedMaterials)
	assert.Contains(t, err.Error(), `"a"`)
}

func TestAnimator(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)

	m, err := New(sk, Options{
		Animator: func(sk *skeleton.Skeleton, delta float32) {
			sk.Bones[0].X += 10 * delta
		},
	})
	require.NoError(t, err)

	require.NoError(t, m.Update(0.5))
	assert.InDelta(t, 4, m.Batches()[0].Vertices()[0], eps)

	require.NoError(t, m.Update(0.5))
	assert.InDelta(t, 9, m.Batches()[0].Vertices()[0], eps)
	assert.Equal(t, float32(10), root.X)
}

func TestMaterialCustomizer(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)
	addRegion(sk, root, "b", tex2, 0, 0, 2)

	m := newMesh(t, sk, Options{MaterialCustomizer: func(p *batch.MaterialParams) {
		p.AlphaTest = 0.1
	}})

	b := m.Batches()[0]
	require.Equal(t, 2, b.Materials().Len())
	for i := 0; i < b.Materials().Len(); i++ {
		assert.Equal(t, float32(0.1), b.Material(i).Params.AlphaTest)
	}
}

type releaseCounter struct{ n *int }

func (r releaseCounter) Release() { *r.n++ }

func TestDispose(t *testing.T) {
	sk, root := newSkeleton()
	addRegion(sk, root, "a", tex1, 0, 0, 2)
	addRegion(sk, root, "b", tex1, 0, 0, 2)

	m := newMesh(t, sk, Options{MaxVertices: 4})
	require.Len(t, m.Batches(), 2)

	released := 0
	for _, b := range m.Batches() {
		b.SetResources(releaseCounter{&released})
	}

	m.Dispose()
	assert.Equal(t, 2, released)
	assert.Empty(t, m.Batches())
}
