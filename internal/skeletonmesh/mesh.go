// Package skeletonmesh assembles a posed skeleton into draw batches once
// per frame.
//
// UpdateGeometry walks the draw order, extracts each part's world-space
// geometry, applies tint, clipping and the optional vertex effect, and
// appends the result to a pool of batches. A new batch is opened whenever
// the current one runs out of capacity; parts sharing a texture and blend
// mode merge into one material group.
package skeletonmesh

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/batch"
	"github.com/Faultbox/skelbatch/internal/clipping"
	"github.com/Faultbox/skelbatch/internal/logger"
	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/pkg/math"
)

// VertexSize is the number of scalars per extracted vertex:
// x, y, r, g, b, a, u, v.
const VertexSize = batch.SourceVertexSize

// DefaultZOffset is the z step between successive appended parts.
const DefaultZOffset float32 = 0.1

const initialScratch = 1024

var ErrNilSkeleton = errors.New("skeletonmesh: nil skeleton")

// VertexEffect post-processes one vertex. It receives the position, the
// texture coordinate and the part's tint and returns the new position, the
// light color written to the vertex and a dark color that is ignored.
type VertexEffect func(pos, uv math.Vec2, light skeleton.Color) (math.Vec2, skeleton.Color, skeleton.Color)

// Animator poses the skeleton's bone locals for the elapsed time.
type Animator func(sk *skeleton.Skeleton, delta float32)

// BatchFactory allocates a batch for the pool.
type BatchFactory func(maxVertices int, customize batch.MaterialCustomizer) (*batch.Batch, error)

// Options configure a SkeletonMesh. The zero value is usable.
type Options struct {
	// MaxVertices is the capacity of each batch; 0 selects batch.MaxVertices.
	MaxVertices int
	// ZOffset is the z step per appended part; 0 selects DefaultZOffset.
	ZOffset float32
	// AdvanceZOnEmptyClip also consumes a z step for parts whose geometry
	// is clipped away entirely.
	AdvanceZOnEmptyClip bool

	MaterialCustomizer batch.MaterialCustomizer
	VertexEffect       VertexEffect
	Animator           Animator

	// Clipper defaults to clipping.New().
	Clipper clipping.Clipper
	// NewBatch defaults to batch.New.
	NewBatch BatchFactory
	// Logger defaults to logger.Named("skeletonmesh").
	Logger *zap.Logger
}

// FrameStats summarizes the last UpdateGeometry.
type FrameStats struct {
	// Parts is the number of parts appended to a batch.
	Parts int
	// Skipped counts parts on inactive bones, parts without texture and
	// parts whose geometry was empty or clipped away.
	Skipped  int
	Batches  int
	Groups   int
	Vertices int
	Indices  int
}

// SkeletonMesh turns a skeleton into batches. It owns its batch pool.
type SkeletonMesh struct {
	Skeleton *skeleton.Skeleton

	// VertexEffect and Animator may be swapped between frames.
	VertexEffect VertexEffect
	Animator     Animator
	ZOffset      float32

	maxVertices         int
	advanceZOnEmptyClip bool
	customize           batch.MaterialCustomizer
	newBatch            BatchFactory

	batches        []*batch.Batch
	nextBatchIndex int
	clipper        clipping.Clipper
	vertices       []float32
	stats          FrameStats

	log *zap.Logger
}

// New creates a mesh for sk. Batches are allocated lazily on the first
// UpdateGeometry.
func New(sk *skeleton.Skeleton, opts Options) (*SkeletonMesh, error) {
	if sk == nil {
		return nil, ErrNilSkeleton
	}
	if opts.MaxVertices > batch.MaxVertices {
		return nil, fmt.Errorf("skeletonmesh: max vertices %d: %w", opts.MaxVertices, batch.ErrTooManyVertices)
	}

	m := &SkeletonMesh{
		Skeleton:            sk,
		VertexEffect:        opts.VertexEffect,
		Animator:            opts.Animator,
		ZOffset:             opts.ZOffset,
		maxVertices:         opts.MaxVertices,
		advanceZOnEmptyClip: opts.AdvanceZOnEmptyClip,
		customize:           opts.MaterialCustomizer,
		newBatch:            opts.NewBatch,
		clipper:             opts.Clipper,
		vertices:            make([]float32, initialScratch),
		log:                 opts.Logger,
	}
	if m.ZOffset == 0 {
		m.ZOffset = DefaultZOffset
	}
	if m.maxVertices <= 0 {
		m.maxVertices = batch.MaxVertices
	}
	if m.newBatch == nil {
		m.newBatch = batch.New
	}
	if m.clipper == nil {
		m.clipper = clipping.New()
	}
	if m.log == nil {
		m.log = logger.Named("skeletonmesh")
	}
	return m, nil
}

// Update advances the animator by delta seconds, recomputes world
// transforms and rebuilds the batches.
func (m *SkeletonMesh) Update(delta float32) error {
	if m.Animator != nil {
		m.Animator(m.Skeleton, delta)
	}
	m.Skeleton.UpdateWorldTransform()
	return m.UpdateGeometry()
}

// Batches returns the batches filled by the last UpdateGeometry, in draw
// order.
func (m *SkeletonMesh) Batches() []*batch.Batch {
	return m.batches[:m.nextBatchIndex]
}

// Stats returns counters for the last UpdateGeometry.
func (m *SkeletonMesh) Stats() FrameStats {
	return m.stats
}

// Dispose releases every pooled batch and its renderer resources.
func (m *SkeletonMesh) Dispose() {
	for _, b := range m.batches {
		b.Dispose()
	}
	m.batches = nil
	m.nextBatchIndex = 0
}

func (m *SkeletonMesh) clearBatches() {
	for _, b := range m.batches {
		b.Clear()
		b.Visible = false
	}
	m.nextBatchIndex = 0
}

func (m *SkeletonMesh) nextBatch() (*batch.Batch, error) {
	if len(m.batches) == m.nextBatchIndex {
		b, err := m.newBatch(m.maxVertices, m.customize)
		if err != nil {
			return nil, fmt.Errorf("skeletonmesh: allocate batch: %w", err)
		}
		m.batches = append(m.batches, b)
		m.log.Debug("allocated batch",
			zap.Int("index", len(m.batches)-1),
			zap.Int("max_vertices", b.MaxVertices()))
	}
	b := m.batches[m.nextBatchIndex]
	m.nextBatchIndex++
	b.Visible = true
	return b, nil
}

// ensureScratch grows the scratch buffer to hold n scalars.
func (m *SkeletonMesh) ensureScratch(n int) {
	if n > len(m.vertices) {
		m.vertices = make([]float32, n)
	}
}
