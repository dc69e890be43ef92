// Package formats parses the YAML skeleton scene files used by the viewer
// and the command line tool.
//
// A scene describes textures, a bone hierarchy, draw-ordered slots and the
// attachment bound to each slot:
//
//	name: demo
//	textures:
//	  - {name: body, width: 64, height: 64, color: "d08040ff", pattern: checker}
//	bones:
//	  - {name: root}
//	  - {name: arm, parent: root, x: 20, rotation: 30, swing: {rotation: 15, speed: 0.5}}
//	slots:
//	  - name: body
//	    bone: root
//	    attachment: {type: region, texture: body, width: 40, height: 60}
//	  - name: mask
//	    bone: root
//	    attachment: {type: clipping, vertices: [0, 0, 40, 0, 40, 40], end_slot: body}
package formats

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/skelbatch/internal/skeleton"
)

// Scene format errors.
var (
	ErrInvalidScene   = errors.New("invalid skeleton scene")
	ErrInvalidColor   = errors.New("invalid color")
	ErrUnknownBone    = errors.New("unknown bone")
	ErrUnknownSlot    = errors.New("unknown slot")
	ErrDuplicateName  = errors.New("duplicate name")
	ErrInvalidMesh    = errors.New("invalid mesh")
	ErrAttachmentType = errors.New("unknown attachment type")
)

// Attachment types.
const (
	AttachmentRegion   = "region"
	AttachmentMesh     = "mesh"
	AttachmentClipping = "clipping"
)

// Scene is a parsed skeleton scene file.
type Scene struct {
	Name      string       `yaml:"name"`
	X         float32      `yaml:"x"`
	Y         float32      `yaml:"y"`
	ScaleX    *float32     `yaml:"scale_x,omitempty"`
	ScaleY    *float32     `yaml:"scale_y,omitempty"`
	Color     string       `yaml:"color,omitempty"`
	Textures  []TextureDef `yaml:"textures"`
	Bones     []BoneDef    `yaml:"bones"`
	Slots     []SlotDef    `yaml:"slots"`
	DrawOrder []string     `yaml:"draw_order,omitempty"`
}

// TextureDef declares a texture page. A page is either read from File,
// relative to the scene file, or synthesized from Color and Pattern at
// Width x Height.
type TextureDef struct {
	Name    string `yaml:"name"`
	File    string `yaml:"file,omitempty"`
	Width   int    `yaml:"width,omitempty"`
	Height  int    `yaml:"height,omitempty"`
	Color   string `yaml:"color,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
}

// BoneDef declares a bone. Parents must be declared before children.
type BoneDef struct {
	Name     string    `yaml:"name"`
	Parent   string    `yaml:"parent,omitempty"`
	X        float32   `yaml:"x"`
	Y        float32   `yaml:"y"`
	Rotation float32   `yaml:"rotation"`
	ScaleX   *float32  `yaml:"scale_x,omitempty"`
	ScaleY   *float32  `yaml:"scale_y,omitempty"`
	Active   *bool     `yaml:"active,omitempty"`
	Swing    *SwingDef `yaml:"swing,omitempty"`
}

// SwingDef oscillates a bone's rotation around its setup pose.
type SwingDef struct {
	// Rotation is the amplitude in degrees.
	Rotation float32 `yaml:"rotation"`
	// Speed is in cycles per second.
	Speed float32 `yaml:"speed"`
	// Phase is in cycles.
	Phase float32 `yaml:"phase"`
}

// SlotDef declares a slot in setup draw order.
type SlotDef struct {
	Name       string         `yaml:"name"`
	Bone       string         `yaml:"bone"`
	Color      string         `yaml:"color,omitempty"`
	Blend      string         `yaml:"blend,omitempty"`
	Attachment *AttachmentDef `yaml:"attachment,omitempty"`
}

// AttachmentDef declares a region, mesh or clipping attachment.
type AttachmentDef struct {
	Type    string `yaml:"type"`
	Name    string `yaml:"name,omitempty"`
	Texture string `yaml:"texture,omitempty"`
	// Region is u, v, u2, v2 within the texture; empty means the whole page.
	Region []float32 `yaml:"region,omitempty"`
	Rotate bool      `yaml:"rotate,omitempty"`
	Color  string    `yaml:"color,omitempty"`

	// Region attachments.
	X        float32  `yaml:"x"`
	Y        float32  `yaml:"y"`
	Rotation float32  `yaml:"rotation"`
	ScaleX   *float32 `yaml:"scale_x,omitempty"`
	ScaleY   *float32 `yaml:"scale_y,omitempty"`
	Width    float32  `yaml:"width"`
	Height   float32  `yaml:"height"`

	// Mesh and clipping attachments.
	Vertices  []float32 `yaml:"vertices,omitempty"`
	UVs       []float32 `yaml:"uvs,omitempty"`
	Triangles []uint16  `yaml:"triangles,omitempty"`
	EndSlot   string    `yaml:"end_slot,omitempty"`
}

// ParseSkeleton decodes and validates a scene. Unknown keys are rejected.
func ParseSkeleton(data []byte) (*Scene, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scene
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSkeleton reads and parses a scene file.
func LoadSkeleton(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file: %w", err)
	}
	s, err := ParseSkeleton(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Marshal encodes the scene as YAML.
func (s *Scene) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encoding scene: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding scene: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks names, references and geometry without building.
func (s *Scene) Validate() error {
	if len(s.Bones) == 0 {
		return fmt.Errorf("%w: no bones", ErrInvalidScene)
	}
	if _, err := ParseColor(s.Color); err != nil {
		return fmt.Errorf("skeleton color: %w", err)
	}

	textures := make(map[string]bool, len(s.Textures))
	for i, t := range s.Textures {
		if t.Name == "" {
			return fmt.Errorf("%w: texture %d has no name", ErrInvalidScene, i)
		}
		if textures[t.Name] {
			return fmt.Errorf("%w: texture %q", ErrDuplicateName, t.Name)
		}
		if t.File == "" && (t.Width <= 0 || t.Height <= 0) {
			return fmt.Errorf("%w: texture %q has size %dx%d", ErrInvalidScene, t.Name, t.Width, t.Height)
		}
		if _, err := ParseColor(t.Color); err != nil {
			return fmt.Errorf("texture %q: %w", t.Name, err)
		}
		textures[t.Name] = true
	}

	bones := make(map[string]bool, len(s.Bones))
	for i, b := range s.Bones {
		if b.Name == "" {
			return fmt.Errorf("%w: bone %d has no name", ErrInvalidScene, i)
		}
		if bones[b.Name] {
			return fmt.Errorf("%w: bone %q", ErrDuplicateName, b.Name)
		}
		if b.Parent != "" && !bones[b.Parent] {
			return fmt.Errorf("%w: %q, parent of %q (parents must come first)", ErrUnknownBone, b.Parent, b.Name)
		}
		bones[b.Name] = true
	}

	slots := make(map[string]bool, len(s.Slots))
	for i, sl := range s.Slots {
		if sl.Name == "" {
			return fmt.Errorf("%w: slot %d has no name", ErrInvalidScene, i)
		}
		if slots[sl.Name] {
			return fmt.Errorf("%w: slot %q", ErrDuplicateName, sl.Name)
		}
		if !bones[sl.Bone] {
			return fmt.Errorf("%w: %q in slot %q", ErrUnknownBone, sl.Bone, sl.Name)
		}
		if _, err := ParseColor(sl.Color); err != nil {
			return fmt.Errorf("slot %q: %w", sl.Name, err)
		}
		if _, err := skeleton.ParseBlendMode(sl.Blend); err != nil {
			return fmt.Errorf("slot %q: %w", sl.Name, err)
		}
		slots[sl.Name] = true
	}

	for _, sl := range s.Slots {
		if sl.Attachment == nil {
			continue
		}
		if err := sl.Attachment.validate(slots); err != nil {
			return fmt.Errorf("slot %q: %w", sl.Name, err)
		}
	}

	if len(s.DrawOrder) > 0 {
		if len(s.DrawOrder) != len(s.Slots) {
			return fmt.Errorf("%w: draw order lists %d of %d slots", ErrInvalidScene, len(s.DrawOrder), len(s.Slots))
		}
		seen := make(map[string]bool, len(s.DrawOrder))
		for _, name := range s.DrawOrder {
			if !slots[name] {
				return fmt.Errorf("%w: %q in draw order", ErrUnknownSlot, name)
			}
			if seen[name] {
				return fmt.Errorf("%w: %q in draw order", ErrDuplicateName, name)
			}
			seen[name] = true
		}
	}
	return nil
}

func (a *AttachmentDef) validate(slots map[string]bool) error {
	if _, err := ParseColor(a.Color); err != nil {
		return err
	}
	if len(a.Region) != 0 && len(a.Region) != 4 {
		return fmt.Errorf("%w: region needs 4 values, got %d", ErrInvalidScene, len(a.Region))
	}

	switch a.Type {
	case AttachmentRegion:
		return nil

	case AttachmentMesh:
		n := len(a.Vertices)
		if n == 0 || n%2 != 0 {
			return fmt.Errorf("%w: %d vertex scalars", ErrInvalidMesh, n)
		}
		if len(a.UVs) != n {
			return fmt.Errorf("%w: %d uv scalars for %d vertex scalars", ErrInvalidMesh, len(a.UVs), n)
		}
		if len(a.Triangles) == 0 || len(a.Triangles)%3 != 0 {
			return fmt.Errorf("%w: %d triangle indices", ErrInvalidMesh, len(a.Triangles))
		}
		for _, idx := range a.Triangles {
			if int(idx) >= n/2 {
				return fmt.Errorf("%w: triangle index %d out of %d vertices", ErrInvalidMesh, idx, n/2)
			}
		}
		return nil

	case AttachmentClipping:
		if len(a.Vertices) < 6 || len(a.Vertices)%2 != 0 {
			return fmt.Errorf("%w: clipping polygon has %d scalars", ErrInvalidScene, len(a.Vertices))
		}
		if a.EndSlot != "" && !slots[a.EndSlot] {
			return fmt.Errorf("%w: end slot %q", ErrUnknownSlot, a.EndSlot)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrAttachmentType, a.Type)
	}
}

// ParseColor parses "RRGGBB" or "RRGGBBAA" hex. The empty string is white.
func ParseColor(s string) (skeleton.Color, error) {
	switch len(s) {
	case 0:
		return skeleton.White, nil
	case 6:
		s += "ff"
	case 8:
	default:
		return skeleton.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return skeleton.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return skeleton.Color{
		R: float32(v>>24&0xff) / 255,
		G: float32(v>>16&0xff) / 255,
		B: float32(v>>8&0xff) / 255,
		A: float32(v&0xff) / 255,
	}, nil
}

func orOne(p *float32) float32 {
	if p == nil {
		return 1
	}
	return *p
}
