package formats

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/skelbatch/internal/skeleton"
)

// TextureResolver maps a texture name to a loaded texture, or nil when the
// texture is unavailable.
type TextureResolver func(name string) skeleton.Texture

// Build creates a posed skeleton in setup pose. Attachments whose texture
// does not resolve keep a nil region and are skipped at draw time.
func (s *Scene) Build(resolve TextureResolver) (*skeleton.Skeleton, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if resolve == nil {
		resolve = func(string) skeleton.Texture { return nil }
	}

	sk := skeleton.New()
	sk.X, sk.Y = s.X, s.Y
	sk.ScaleX, sk.ScaleY = orOne(s.ScaleX), orOne(s.ScaleY)
	sk.Color, _ = ParseColor(s.Color)

	for _, def := range s.Bones {
		var parent *skeleton.Bone
		if def.Parent != "" {
			parent = sk.FindBone(def.Parent)
		}
		b := sk.NewBone(def.Name, parent)
		b.X, b.Y = def.X, def.Y
		b.Rotation = def.Rotation
		b.ScaleX, b.ScaleY = orOne(def.ScaleX), orOne(def.ScaleY)
		if def.Active != nil {
			b.Active = *def.Active
		}
	}

	for _, def := range s.Slots {
		slot := sk.NewSlot(def.Name, sk.FindBone(def.Bone))
		slot.Color, _ = ParseColor(def.Color)
		slot.BlendMode, _ = skeleton.ParseBlendMode(def.Blend)
	}

	// Attachments are built after all slots exist so clipping end slots
	// can point forward.
	for i, def := range s.Slots {
		if def.Attachment == nil {
			continue
		}
		slot := sk.Slots[i]
		att, err := def.Attachment.build(sk, slot, resolve)
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", def.Name, err)
		}
		slot.Attachment = att
	}

	if len(s.DrawOrder) > 0 {
		for i, name := range s.DrawOrder {
			sk.DrawOrder[i] = sk.FindSlot(name)
		}
	}

	sk.UpdateWorldTransform()
	return sk, nil
}

func (a *AttachmentDef) build(sk *skeleton.Skeleton, slot *skeleton.Slot, resolve TextureResolver) (skeleton.Attachment, error) {
	name := a.Name
	if name == "" {
		name = slot.Name
	}
	color, _ := ParseColor(a.Color)

	switch a.Type {
	case AttachmentRegion:
		r := skeleton.NewRegionAttachment(name)
		r.X, r.Y = a.X, a.Y
		r.Rotation = a.Rotation
		r.ScaleX, r.ScaleY = orOne(a.ScaleX), orOne(a.ScaleY)
		r.Width, r.Height = a.Width, a.Height
		r.Color = color
		r.UpdateOffset()
		r.SetRegion(a.region(resolve))
		return r, nil

	case AttachmentMesh:
		m := skeleton.NewMeshAttachment(name)
		m.Vertices = append([]float32(nil), a.Vertices...)
		m.RegionUVs = append([]float32(nil), a.UVs...)
		m.Triangles = append([]uint16(nil), a.Triangles...)
		m.Color = color
		m.SetRegion(a.region(resolve))
		return m, nil

	case AttachmentClipping:
		c := skeleton.NewClippingAttachment(name)
		c.Vertices = append([]float32(nil), a.Vertices...)
		if a.Color != "" {
			c.Color = color
		}
		if a.EndSlot != "" {
			c.EndSlot = sk.FindSlot(a.EndSlot)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrAttachmentType, a.Type)
}

// region resolves the attachment's texture region, or nil when the texture
// is missing.
func (a *AttachmentDef) region(resolve TextureResolver) *skeleton.TextureRegion {
	if a.Texture == "" {
		return nil
	}
	tex := resolve(a.Texture)
	if tex == nil {
		return nil
	}
	region := skeleton.FullRegion(tex)
	if len(a.Region) == 4 {
		region.U, region.V, region.U2, region.V2 = a.Region[0], a.Region[1], a.Region[2], a.Region[3]
	}
	region.Rotate = a.Rotate
	return region
}

// Animator returns a function that swings bones declared with a swing
// around their setup rotation. The returned function keeps its own clock.
func (s *Scene) Animator() func(sk *skeleton.Skeleton, delta float32) {
	type swing struct {
		bone string
		base float32
		def  SwingDef
	}
	var swings []swing
	for _, b := range s.Bones {
		if b.Swing != nil {
			swings = append(swings, swing{bone: b.Name, base: b.Rotation, def: *b.Swing})
		}
	}

	var elapsed float32
	return func(sk *skeleton.Skeleton, delta float32) {
		elapsed += delta
		for _, sw := range swings {
			bone := sk.FindBone(sw.bone)
			if bone == nil {
				continue
			}
			phase := 2 * math32.Pi * (sw.def.Speed*elapsed + sw.def.Phase)
			bone.Rotation = sw.base + sw.def.Rotation*math32.Sin(phase)
		}
	}
}
