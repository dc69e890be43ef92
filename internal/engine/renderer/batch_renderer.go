package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/batch"
	"github.com/Faultbox/skelbatch/internal/engine/shader"
	"github.com/Faultbox/skelbatch/pkg/math"
)

const (
	floatSize  = 4
	indexSize  = 2
	vertStride = batch.VertexSize * floatSize
)

// buffers are the GL objects backing one batch. They are attached to the
// batch with SetResources and released by Batch.Dispose.
type buffers struct {
	vao, vbo, ebo uint32
}

// Release deletes the GL objects.
func (b *buffers) Release() {
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
	}
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
	}
	if b.ebo != 0 {
		gl.DeleteBuffers(1, &b.ebo)
	}
	*b = buffers{}
}

// BatchRenderer uploads and draws batches.
type BatchRenderer struct {
	program *shader.Program
	log     *zap.Logger

	// lastState avoids redundant state changes between groups.
	lastState *drawState
}

// NewBatchRenderer compiles the batch program. Requires a current GL
// context.
func NewBatchRenderer(log *zap.Logger) (*BatchRenderer, error) {
	program, err := shader.NewProgram(shader.BatchVertex, shader.BatchFragment,
		"uProjection", "uTexture", "uAlphaTest")
	if err != nil {
		return nil, fmt.Errorf("batch program: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("batch program created", zap.Uint32("program", program.ID))
	return &BatchRenderer{program: program, log: log}, nil
}

// Close deletes the program. Batch buffers are released by their batches.
func (r *BatchRenderer) Close() {
	r.program.Delete()
}

// Upload sends the dirty ranges of b to its GL buffers, allocating them at
// full capacity on first use, and clears the dirty flags.
func (r *BatchRenderer) Upload(b *batch.Batch) {
	bufs := r.buffersFor(b)

	if upd, dirty := b.VertexUpdate(); dirty && upd.Count > 0 {
		data := b.VertexBuffer()
		gl.BindBuffer(gl.ARRAY_BUFFER, bufs.vbo)
		gl.BufferSubData(gl.ARRAY_BUFFER, upd.Offset*floatSize, upd.Count*floatSize,
			unsafe.Pointer(&data[upd.Offset]))
	}
	if upd, dirty := b.IndexUpdate(); dirty && upd.Count > 0 {
		data := b.IndexBuffer()
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, bufs.ebo)
		gl.BufferSubData(gl.ELEMENT_ARRAY_BUFFER, upd.Offset*indexSize, upd.Count*indexSize,
			unsafe.Pointer(&data[upd.Offset]))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	b.MarkUploaded()
}

// Draw issues one DrawElements per material group of b, in group order.
// Depth testing is off: later groups paint over earlier ones.
func (r *BatchRenderer) Draw(b *batch.Batch, projection math.Mat4) error {
	groups := b.Groups()
	if !b.Visible || len(groups) == 0 {
		return nil
	}
	bufs := r.buffersFor(b)

	r.program.Use()
	gl.UniformMatrix4fv(r.program.Uniform("uProjection"), 1, false, projection.Ptr())
	gl.Uniform1i(r.program.Uniform("uTexture"), 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.Disable(gl.DEPTH_TEST)
	gl.BindVertexArray(bufs.vao)

	for _, g := range groups {
		if g.Count == 0 {
			continue
		}
		m := b.Material(g.Material)
		if m.Texture == nil {
			continue
		}
		state, err := stateFor(m)
		if err != nil {
			return fmt.Errorf("group at %d: %w", g.Start, err)
		}
		r.apply(state)
		gl.BindTexture(gl.TEXTURE_2D, m.Texture.ID())
		m.NeedsUpdate = false
		gl.DrawElementsWithOffset(gl.TRIANGLES, int32(g.Count), gl.UNSIGNED_SHORT, uintptr(g.Start*indexSize))
	}

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// Render uploads and draws every batch in order.
func (r *BatchRenderer) Render(batches []*batch.Batch, projection math.Mat4) error {
	r.lastState = nil
	for i, b := range batches {
		r.Upload(b)
		if err := r.Draw(b, projection); err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
	}
	gl.UseProgram(0)
	return nil
}

func (r *BatchRenderer) apply(s drawState) {
	if r.lastState != nil && *r.lastState == s {
		return
	}
	if s.Blending {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(s.Blend.Src, s.Blend.Dst)
	} else {
		gl.Disable(gl.BLEND)
	}
	gl.DepthMask(s.DepthMask)
	if s.CullFace {
		gl.Enable(gl.CULL_FACE)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	gl.Uniform1f(r.program.Uniform("uAlphaTest"), s.AlphaTest)
	r.lastState = &s
}

func (r *BatchRenderer) buffersFor(b *batch.Batch) *buffers {
	if bufs, ok := b.Resources().(*buffers); ok {
		return bufs
	}

	bufs := &buffers{}
	vertices := b.VertexBuffer()
	indices := b.IndexBuffer()

	gl.GenVertexArrays(1, &bufs.vao)
	gl.BindVertexArray(bufs.vao)

	gl.GenBuffers(1, &bufs.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, bufs.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*floatSize, nil, gl.DYNAMIC_DRAW)

	gl.GenBuffers(1, &bufs.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, bufs.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*indexSize, nil, gl.DYNAMIC_DRAW)

	// Position (location = 0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertStride, 0)
	gl.EnableVertexAttribArray(0)
	// Color (location = 1)
	gl.VertexAttribPointerWithOffset(1, 4, gl.FLOAT, false, vertStride, 3*floatSize)
	gl.EnableVertexAttribArray(1)
	// UV (location = 2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, vertStride, 7*floatSize)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	b.SetResources(bufs)
	r.log.Debug("batch buffers allocated",
		zap.Uint32("vao", bufs.vao),
		zap.Int("vertices", b.MaxVertices()),
	)
	return bufs
}
