// Package clipping masks triangle geometry with the polygon of a clipping
// attachment.
//
// The clip polygon is ear-clipped into convex triangles once per ClipStart.
// Every source triangle is then clipped against each convex piece with the
// Sutherland-Hodgman algorithm, texture coordinates are interpolated
// barycentrically and each resulting polygon is fan-triangulated.
package clipping

import (
	"github.com/Faultbox/skelbatch/internal/skeleton"
)

// VertexSize is the number of scalars per clipped output vertex:
// x, y, r, g, b, a, u, v.
const VertexSize = 8

// Clipper is the clipping state machine driven by a frame assembler while
// it walks the draw order.
type Clipper interface {
	// ClipStart begins masking with clip. It is ignored while another
	// clipping attachment is active.
	ClipStart(slot *skeleton.Slot, clip *skeleton.ClippingAttachment)
	// ClipEndWithSlot ends clipping if slot is the active attachment's end slot.
	ClipEndWithSlot(slot *skeleton.Slot)
	// ClipEnd ends clipping unconditionally.
	ClipEnd()
	IsClipping() bool
	// ClipTriangles clips a triangle list. vertices holds numVertices x, y
	// pairs, uvs the matching u, v pairs. The returned vertices use
	// VertexSize scalars each and stay valid until the next call.
	ClipTriangles(vertices []float32, numVertices int, triangles []uint16, uvs []float32, color skeleton.Color) ([]float32, []uint16)
}

// SkeletonClipping is the default Clipper.
type SkeletonClipping struct {
	attachment *skeleton.ClippingAttachment

	polygon []float32
	// pieces holds the convex decomposition, 6 scalars per CCW triangle.
	pieces  []float32
	indices []int

	input  []float32
	output []float32

	vertices  []float32
	triangles []uint16
}

// New creates an idle clipper.
func New() *SkeletonClipping {
	return &SkeletonClipping{}
}

// ClipStart implements Clipper. Polygons with fewer than three vertices or
// without area leave the clipper idle.
func (c *SkeletonClipping) ClipStart(slot *skeleton.Slot, clip *skeleton.ClippingAttachment) {
	if c.attachment != nil || clip == nil {
		return
	}
	if clip.WorldVerticesLength() < 6 {
		return
	}
	c.polygon = clip.ComputeWorldVertices(slot, c.polygon)
	c.pieces = c.triangulate(c.polygon, c.pieces[:0])
	if len(c.pieces) == 0 {
		return
	}
	c.attachment = clip
}

// ClipEndWithSlot implements Clipper.
func (c *SkeletonClipping) ClipEndWithSlot(slot *skeleton.Slot) {
	if c.attachment != nil && c.attachment.EndSlot == slot {
		c.ClipEnd()
	}
}

// ClipEnd implements Clipper.
func (c *SkeletonClipping) ClipEnd() {
	c.attachment = nil
	c.pieces = c.pieces[:0]
	c.polygon = c.polygon[:0]
}

// IsClipping implements Clipper.
func (c *SkeletonClipping) IsClipping() bool {
	return c.attachment != nil
}

// Pieces returns the convex decomposition of the active clip polygon as
// triangles of 3 x, y pairs in counter-clockwise order.
func (c *SkeletonClipping) Pieces() []float32 {
	return c.pieces
}

// ClipTriangles implements Clipper. Triangles referencing vertices past
// numVertices and triangles without area are dropped.
func (c *SkeletonClipping) ClipTriangles(vertices []float32, numVertices int, triangles []uint16, uvs []float32, color skeleton.Color) ([]float32, []uint16) {
	c.vertices = c.vertices[:0]
	c.triangles = c.triangles[:0]
	if c.attachment == nil {
		return c.vertices, c.triangles
	}

	for t := 0; t+2 < len(triangles); t += 3 {
		i1, i2, i3 := int(triangles[t]), int(triangles[t+1]), int(triangles[t+2])
		if i1 >= numVertices || i2 >= numVertices || i3 >= numVertices {
			continue
		}
		x1, y1 := vertices[i1*2], vertices[i1*2+1]
		x2, y2 := vertices[i2*2], vertices[i2*2+1]
		x3, y3 := vertices[i3*2], vertices[i3*2+1]
		u1, v1 := uvs[i1*2], uvs[i1*2+1]
		u2, v2 := uvs[i2*2], uvs[i2*2+1]
		u3, v3 := uvs[i3*2], uvs[i3*2+1]

		det := (y2-y3)*(x1-x3) + (x3-x2)*(y1-y3)
		if det == 0 {
			continue
		}
		d := 1 / det

		for p := 0; p+5 < len(c.pieces); p += 6 {
			poly := c.clipTriangle(x1, y1, x2, y2, x3, y3, c.pieces[p:p+6])
			if len(poly) < 6 {
				continue
			}

			base := uint16(len(c.vertices) / VertexSize)
			for i := 0; i+1 < len(poly); i += 2 {
				x, y := poly[i], poly[i+1]
				a := ((y2-y3)*(x-x3) + (x3-x2)*(y-y3)) * d
				b := ((y3-y1)*(x-x3) + (x1-x3)*(y-y3)) * d
				w := 1 - a - b
				c.vertices = append(c.vertices,
					x, y,
					color.R, color.G, color.B, color.A,
					u1*a+u2*b+u3*w, v1*a+v2*b+v3*w,
				)
			}

			n := uint16(len(poly) / 2)
			for i := uint16(1); i+1 < n; i++ {
				c.triangles = append(c.triangles, base, base+i, base+i+1)
			}
		}
	}
	return c.vertices, c.triangles
}

// clipTriangle clips the triangle against one convex CCW piece and returns
// the resulting polygon as x, y pairs, or nil if nothing remains.
func (c *SkeletonClipping) clipTriangle(x1, y1, x2, y2, x3, y3 float32, piece []float32) []float32 {
	in := append(c.input[:0], x1, y1, x2, y2, x3, y3)
	out := c.output[:0]

	for e := 0; e < 6; e += 2 {
		ex1, ey1 := piece[e], piece[e+1]
		ex2, ey2 := piece[(e+2)%6], piece[(e+3)%6]

		out = out[:0]
		n := len(in)
		for i := 0; i < n; i += 2 {
			px, py := in[i], in[i+1]
			qx, qy := in[(i+2)%n], in[(i+3)%n]
			sp := side(ex1, ey1, ex2, ey2, px, py)
			sq := side(ex1, ey1, ex2, ey2, qx, qy)

			if sp >= 0 {
				out = append(out, px, py)
			}
			if (sp > 0 && sq < 0) || (sp < 0 && sq > 0) {
				s := sp / (sp - sq)
				out = append(out, px+(qx-px)*s, py+(qy-py)*s)
			}
		}

		in, out = out, in
		if len(in) < 6 {
			c.input, c.output = in, out
			return nil
		}
	}

	c.input, c.output = in, out
	return in
}

// side is positive when p lies left of the directed edge e1->e2.
func side(ex1, ey1, ex2, ey2, px, py float32) float32 {
	return (ex2-ex1)*(py-ey1) - (ey2-ey1)*(px-ex1)
}
