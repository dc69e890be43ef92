package skeleton

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/skelbatch/pkg/math"
)

// QuadTriangles is the index list of a region attachment's two triangles.
var QuadTriangles = []uint16{0, 1, 2, 2, 3, 0}

// Attachment is the shape bound to a slot: *RegionAttachment,
// *MeshAttachment or *ClippingAttachment.
type Attachment interface {
	AttachmentName() string
}

// Quad corner order shared by offsets, world vertices and UVs:
// bottom-left, upper-left, upper-right, bottom-right.
const (
	blx = iota * 2
	ulx
	urx
	brx
)

// RegionAttachment is a textured quad positioned relative to its bone.
type RegionAttachment struct {
	Name           string
	X, Y           float32
	Rotation       float32 // degrees
	ScaleX, ScaleY float32
	Width, Height  float32
	Color          Color
	Region         *TextureRegion

	offset [8]float32
	uvs    [8]float32
}

// NewRegionAttachment creates a region with unit scale and white tint.
// Call UpdateOffset and SetRegion after changing geometry or region.
func NewRegionAttachment(name string) *RegionAttachment {
	return &RegionAttachment{Name: name, ScaleX: 1, ScaleY: 1, Color: White}
}

// AttachmentName implements Attachment.
func (r *RegionAttachment) AttachmentName() string { return r.Name }

// UpdateOffset recomputes the bone-local corner positions.
func (r *RegionAttachment) UpdateOffset() {
	localX := -r.Width / 2 * r.ScaleX
	localY := -r.Height / 2 * r.ScaleY
	localX2 := r.Width / 2 * r.ScaleX
	localY2 := r.Height / 2 * r.ScaleY

	sin, cos := math32.Sincos(math.DegToRad(r.Rotation))
	localXCos := localX*cos + r.X
	localXSin := localX * sin
	localYCos := localY*cos + r.Y
	localYSin := localY * sin
	localX2Cos := localX2*cos + r.X
	localX2Sin := localX2 * sin
	localY2Cos := localY2*cos + r.Y
	localY2Sin := localY2 * sin

	o := &r.offset
	o[blx], o[blx+1] = localXCos-localYSin, localYCos+localXSin
	o[ulx], o[ulx+1] = localXCos-localY2Sin, localY2Cos+localXSin
	o[urx], o[urx+1] = localX2Cos-localY2Sin, localY2Cos+localX2Sin
	o[brx], o[brx+1] = localX2Cos-localYSin, localYCos+localX2Sin
}

// SetRegion binds the texture region and recomputes the UVs.
func (r *RegionAttachment) SetRegion(region *TextureRegion) {
	r.Region = region
	if region == nil {
		r.uvs = [8]float32{}
		return
	}
	u := &r.uvs
	if region.Rotate {
		u[blx], u[blx+1] = region.U2, region.V2
		u[ulx], u[ulx+1] = region.U, region.V2
		u[urx], u[urx+1] = region.U, region.V
		u[brx], u[brx+1] = region.U2, region.V
		return
	}
	u[blx], u[blx+1] = region.U, region.V2
	u[ulx], u[ulx+1] = region.U, region.V
	u[urx], u[urx+1] = region.U2, region.V
	u[brx], u[brx+1] = region.U2, region.V2
}

// UVs returns the four corner texture coordinates.
func (r *RegionAttachment) UVs() []float32 {
	return r.uvs[:]
}

// Texture returns the bound texture, or nil when the region did not resolve.
func (r *RegionAttachment) Texture() Texture {
	if r.Region == nil {
		return nil
	}
	return r.Region.Texture
}

// ComputeWorldVertices writes the four world-space corners into out,
// starting at offset and advancing stride scalars per vertex.
func (r *RegionAttachment) ComputeWorldVertices(bone *Bone, out []float32, offset, stride int) {
	world := bone.World()
	for corner := 0; corner < 8; corner += 2 {
		out[offset], out[offset+1] = world.Apply(r.offset[corner], r.offset[corner+1])
		offset += stride
	}
}

// MeshAttachment is an arbitrary textured triangle mesh whose vertices are
// expressed in its slot's bone space.
type MeshAttachment struct {
	Name string

	// Vertices holds bone-local x, y pairs.
	Vertices []float32
	// RegionUVs holds per-vertex u, v pairs normalized to the region.
	RegionUVs []float32
	Triangles []uint16
	Color     Color
	Region    *TextureRegion

	uvs []float32
}

// NewMeshAttachment creates an empty white mesh.
func NewMeshAttachment(name string) *MeshAttachment {
	return &MeshAttachment{Name: name, Color: White}
}

// AttachmentName implements Attachment.
func (m *MeshAttachment) AttachmentName() string { return m.Name }

// WorldVerticesLength is the number of scalars (x, y pairs) in the mesh.
func (m *MeshAttachment) WorldVerticesLength() int {
	return len(m.Vertices)
}

// SetRegion binds the texture region and maps RegionUVs into it.
func (m *MeshAttachment) SetRegion(region *TextureRegion) {
	m.Region = region
	m.UpdateUVs()
}

// UpdateUVs recomputes page UVs from RegionUVs and the bound region.
func (m *MeshAttachment) UpdateUVs() {
	if cap(m.uvs) < len(m.RegionUVs) {
		m.uvs = make([]float32, len(m.RegionUVs))
	}
	m.uvs = m.uvs[:len(m.RegionUVs)]

	u, v, width, height := float32(0), float32(0), float32(1), float32(1)
	rotate := false
	if m.Region != nil {
		u, v = m.Region.U, m.Region.V
		width, height = m.Region.U2-m.Region.U, m.Region.V2-m.Region.V
		rotate = m.Region.Rotate
	}

	for i := 0; i+1 < len(m.RegionUVs); i += 2 {
		if rotate {
			m.uvs[i] = u + m.RegionUVs[i+1]*width
			m.uvs[i+1] = v + height - m.RegionUVs[i]*height
			continue
		}
		m.uvs[i] = u + m.RegionUVs[i]*width
		m.uvs[i+1] = v + m.RegionUVs[i+1]*height
	}
}

// UVs returns the page texture coordinates, one pair per vertex.
func (m *MeshAttachment) UVs() []float32 {
	return m.uvs
}

// Texture returns the bound texture, or nil when the region did not resolve.
func (m *MeshAttachment) Texture() Texture {
	if m.Region == nil {
		return nil
	}
	return m.Region.Texture
}

// ComputeWorldVertices transforms count scalars of the mesh starting at
// start into out, starting at offset and advancing stride per vertex.
func (m *MeshAttachment) ComputeWorldVertices(slot *Slot, start, count int, out []float32, offset, stride int) {
	world := slot.Bone.World()
	for v := start; v < start+count; v += 2 {
		out[offset], out[offset+1] = world.Apply(m.Vertices[v], m.Vertices[v+1])
		offset += stride
	}
}

// ClippingAttachment is a polygon that masks the geometry of the following
// slots in draw order, up to and including EndSlot. A nil EndSlot clips to
// the end of the draw order.
type ClippingAttachment struct {
	Name string

	// Vertices holds the polygon's bone-local x, y pairs.
	Vertices []float32
	EndSlot  *Slot
	Color    Color
}

// NewClippingAttachment creates an empty clipping polygon.
func NewClippingAttachment(name string) *ClippingAttachment {
	return &ClippingAttachment{Name: name, Color: Color{0.2, 0.6, 1, 1}}
}

// AttachmentName implements Attachment.
func (c *ClippingAttachment) AttachmentName() string { return c.Name }

// WorldVerticesLength is the number of scalars in the polygon.
func (c *ClippingAttachment) WorldVerticesLength() int {
	return len(c.Vertices)
}

// ComputeWorldVertices writes the world-space polygon into out as x, y
// pairs and returns the written prefix. out is grown when too small.
func (c *ClippingAttachment) ComputeWorldVertices(slot *Slot, out []float32) []float32 {
	if cap(out) < len(c.Vertices) {
		out = make([]float32, len(c.Vertices))
	}
	out = out[:len(c.Vertices)]
	world := slot.Bone.World()
	for v := 0; v+1 < len(c.Vertices); v += 2 {
		out[v], out[v+1] = world.Apply(c.Vertices[v], c.Vertices[v+1])
	}
	return out
}
