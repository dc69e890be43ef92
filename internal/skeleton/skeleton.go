// Package skeleton holds the posed 2D skeleton consumed by the batching
// pipeline: bones with world transforms, draw-ordered slots and the
// attachments bound to them.
//
// Only the pose side lives here. Animation timelines, constraints and
// skinning weights are produced elsewhere and written into bone locals.
package skeleton

import (
	"github.com/Faultbox/skelbatch/pkg/math"
)

// Bone is a node in the skeleton hierarchy. Parents always precede their
// children in Skeleton.Bones.
type Bone struct {
	Name   string
	Parent *Bone

	// Local pose.
	X, Y           float32
	Rotation       float32 // degrees
	ScaleX, ScaleY float32

	// Active is false for bones disabled by the current skin; slots on an
	// inactive bone are not rendered.
	Active bool

	// World transform, valid after UpdateWorldTransform.
	A, B, C, D     float32
	WorldX, WorldY float32

	skeleton *Skeleton
}

// Skeleton returns the skeleton that owns the bone.
func (b *Bone) Skeleton() *Skeleton {
	return b.skeleton
}

// World returns the bone's world transform.
func (b *Bone) World() math.Affine {
	return math.Affine{A: b.A, B: b.B, C: b.C, D: b.D, X: b.WorldX, Y: b.WorldY}
}

// UpdateWorldTransform recomputes the world transform from the local pose
// and the parent's world transform.
func (b *Bone) UpdateWorldTransform() {
	local := math.AffineFromTRS(b.X, b.Y, b.Rotation, b.ScaleX, b.ScaleY)

	var world math.Affine
	if b.Parent != nil {
		world = b.Parent.World().Mul(local)
	} else {
		sk := b.skeleton
		root := math.AffineIdentity()
		if sk != nil {
			root = math.AffineFromTRS(sk.X, sk.Y, 0, sk.ScaleX, sk.ScaleY)
		}
		world = root.Mul(local)
	}

	b.A, b.B, b.C, b.D = world.A, world.B, world.C, world.D
	b.WorldX, b.WorldY = world.X, world.Y
}

// Slot is one draw-ordered part of the skeleton.
type Slot struct {
	Name       string
	Bone       *Bone
	Color      Color
	BlendMode  BlendMode
	Attachment Attachment
}

// Skeleton is a posed skeleton instance.
type Skeleton struct {
	Bones []*Bone
	Slots []*Slot

	// DrawOrder is the back-to-front render order for the current frame.
	DrawOrder []*Slot

	Color          Color
	X, Y           float32
	ScaleX, ScaleY float32
}

// New creates an empty skeleton with a white tint and unit scale.
func New() *Skeleton {
	return &Skeleton{Color: White, ScaleX: 1, ScaleY: 1}
}

// NewBone creates an active bone with unit scale and appends it. The parent,
// if any, must already belong to the skeleton.
func (s *Skeleton) NewBone(name string, parent *Bone) *Bone {
	b := &Bone{
		Name:     name,
		Parent:   parent,
		ScaleX:   1,
		ScaleY:   1,
		Active:   true,
		A:        1,
		D:        1,
		skeleton: s,
	}
	s.Bones = append(s.Bones, b)
	return b
}

// NewSlot creates a white slot on bone and appends it to both Slots and
// the end of DrawOrder.
func (s *Skeleton) NewSlot(name string, bone *Bone) *Slot {
	slot := &Slot{Name: name, Bone: bone, Color: White}
	s.Slots = append(s.Slots, slot)
	s.DrawOrder = append(s.DrawOrder, slot)
	return slot
}

// FindBone returns the bone with the given name, or nil.
func (s *Skeleton) FindBone(name string) *Bone {
	for _, b := range s.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// FindSlot returns the slot with the given name, or nil.
func (s *Skeleton) FindSlot(name string) *Slot {
	for _, slot := range s.Slots {
		if slot.Name == name {
			return slot
		}
	}
	return nil
}

// UpdateWorldTransform recomputes every bone's world transform.
func (s *Skeleton) UpdateWorldTransform() {
	for _, b := range s.Bones {
		b.UpdateWorldTransform()
	}
}
