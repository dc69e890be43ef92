package formats

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/skelbatch/internal/skeleton"
)

type testTexture string

func (t testTexture) ID() uint32  { return uint32(len(t)) }
func (t testTexture) Width() int  { return 16 }
func (t testTexture) Height() int { return 16 }

func resolveAll(name string) skeleton.Texture { return testTexture(name) }

const minimalScene = `
name: mini
bones:
  - {name: root}
slots:
  - {name: a, bone: root, attachment: {type: region, texture: t, width: 2, height: 2}}
`

func TestLoadSkeleton_Demo(t *testing.T) {
	s, err := LoadSkeleton("testdata/demo.yaml")
	if err != nil {
		t.Fatalf("LoadSkeleton failed: %v", err)
	}

	if s.Name != "demo" {
		t.Errorf("expected name demo, got %q", s.Name)
	}
	if len(s.Bones) != 5 {
		t.Errorf("expected 5 bones, got %d", len(s.Bones))
	}
	if len(s.Slots) != 7 {
		t.Errorf("expected 7 slots, got %d", len(s.Slots))
	}
	if len(s.Textures) != 3 {
		t.Errorf("expected 3 textures, got %d", len(s.Textures))
	}

	sk, err := s.Build(resolveAll)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	visor := sk.FindSlot("visor")
	clip, ok := visor.Attachment.(*skeleton.ClippingAttachment)
	if !ok {
		t.Fatalf("visor attachment is %T", visor.Attachment)
	}
	if clip.EndSlot != sk.FindSlot("face") {
		t.Error("visor should end at face")
	}

	if got := sk.FindSlot("halo").BlendMode; got != skeleton.BlendAdditive {
		t.Errorf("expected halo additive, got %s", got)
	}
	if got := sk.FindBone("arm_l").Parent; got != sk.FindBone("torso") {
		t.Errorf("arm_l parent = %v", got)
	}
}

func TestLoadSkeleton_Missing(t *testing.T) {
	_, err := LoadSkeleton(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestBuild_Pose(t *testing.T) {
	data := `
x: 5
y: 7
bones:
  - {name: root, rotation: 90}
  - {name: child, parent: root, x: 10, active: false}
slots:
  - {name: a, bone: child, color: "ff000080"}
`
	s, err := ParseSkeleton([]byte(data))
	if err != nil {
		t.Fatalf("ParseSkeleton failed: %v", err)
	}
	sk, err := s.Build(nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	child := sk.FindBone("child")
	if child.Active {
		t.Error("child should be inactive")
	}
	if child.ScaleX != 1 || child.ScaleY != 1 {
		t.Errorf("expected unit scale, got %v, %v", child.ScaleX, child.ScaleY)
	}
	// Root rotated 90 degrees: child's local +x maps to world +y.
	if !near(child.WorldX, 5) || !near(child.WorldY, 17) {
		t.Errorf("child world = (%v, %v), want (5, 17)", child.WorldX, child.WorldY)
	}

	slot := sk.FindSlot("a")
	if slot.Attachment != nil {
		t.Errorf("expected no attachment, got %T", slot.Attachment)
	}
	if !near(slot.Color.A, 128.0/255) || slot.Color.R != 1 || slot.Color.G != 0 {
		t.Errorf("unexpected slot color %+v", slot.Color)
	}
}

func TestBuild_Attachments(t *testing.T) {
	data := `
bones:
  - {name: root}
slots:
  - name: quad
    bone: root
    attachment: {type: region, texture: page, region: [0.5, 0, 1, 0.5], width: 4, height: 2, color: "ffffff80"}
  - name: tri
    bone: root
    attachment: {type: mesh, name: tri_mesh, texture: page, vertices: [0, 0, 1, 0, 0, 1], uvs: [0, 0, 1, 0, 0, 1], triangles: [0, 1, 2]}
  - name: lost
    bone: root
    attachment: {type: region, texture: missing, width: 1, height: 1}
`
	s, err := ParseSkeleton([]byte(data))
	if err != nil {
		t.Fatalf("ParseSkeleton failed: %v", err)
	}

	sk, err := s.Build(func(name string) skeleton.Texture {
		if name == "missing" {
			return nil
		}
		return testTexture(name)
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	quad := sk.FindSlot("quad").Attachment.(*skeleton.RegionAttachment)
	if quad.Name != "quad" {
		t.Errorf("region name defaults to slot name, got %q", quad.Name)
	}
	if quad.Texture() != testTexture("page") {
		t.Errorf("unexpected texture %v", quad.Texture())
	}
	// Bottom-left corner maps to (u, v2).
	if uvs := quad.UVs(); uvs[0] != 0.5 || uvs[1] != 0.5 {
		t.Errorf("unexpected bottom-left uv (%v, %v)", uvs[0], uvs[1])
	}

	tri := sk.FindSlot("tri").Attachment.(*skeleton.MeshAttachment)
	if tri.Name != "tri_mesh" {
		t.Errorf("expected mesh name tri_mesh, got %q", tri.Name)
	}
	if len(tri.UVs()) != 6 {
		t.Errorf("expected 6 uv scalars, got %d", len(tri.UVs()))
	}

	lost := sk.FindSlot("lost").Attachment.(*skeleton.RegionAttachment)
	if lost.Texture() != nil {
		t.Error("unresolved texture should leave the region empty")
	}
}

func TestBuild_DrawOrder(t *testing.T) {
	data := `
bones:
  - {name: root}
slots:
  - {name: a, bone: root}
  - {name: b, bone: root}
  - {name: c, bone: root}
draw_order: [c, a, b]
`
	s, err := ParseSkeleton([]byte(data))
	if err != nil {
		t.Fatalf("ParseSkeleton failed: %v", err)
	}
	sk, err := s.Build(nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var got []string
	for _, slot := range sk.DrawOrder {
		got = append(got, slot.Name)
	}
	if strings.Join(got, ",") != "c,a,b" {
		t.Errorf("draw order = %v", got)
	}
	if sk.Slots[0].Name != "a" {
		t.Error("slot order must stay in declaration order")
	}
}

func TestParseSkeleton_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not yaml", "bones: [", ErrInvalidScene},
		{"unknown key", "bones: [{name: root}]\nwat: 1\n", ErrInvalidScene},
		{"no bones", "name: x\n", ErrInvalidScene},
		{"duplicate bone", "bones: [{name: a}, {name: a}]", ErrDuplicateName},
		{"parent after child", "bones: [{name: a, parent: b}, {name: b}]", ErrUnknownBone},
		{"slot bone", "bones: [{name: a}]\nslots: [{name: s, bone: b}]", ErrUnknownBone},
		{"slot color", "bones: [{name: a}]\nslots: [{name: s, bone: a, color: red}]", ErrInvalidColor},
		{"blend", "bones: [{name: a}]\nslots: [{name: s, bone: a, blend: overlay}]", nil},
		{"attachment type", "bones: [{name: a}]\nslots: [{name: s, bone: a, attachment: {type: path}}]", ErrAttachmentType},
		{"mesh odd", "bones: [{name: a}]\nslots: [{name: s, bone: a, attachment: {type: mesh, vertices: [0, 0, 1], uvs: [0, 0, 1], triangles: [0, 1, 2]}}]", ErrInvalidMesh},
		{"mesh uvs", "bones: [{name: a}]\nslots: [{name: s, bone: a, attachment: {type: mesh, vertices: [0, 0, 1, 0, 0, 1], uvs: [0, 0], triangles: [0, 1, 2]}}]", ErrInvalidMesh},
		{"mesh index", "bones: [{name: a}]\nslots: [{name: s, bone: a, attachment: {type: mesh, vertices: [0, 0, 1, 0, 0, 1], uvs: [0, 0, 1, 0, 0, 1], triangles: [0, 1, 3]}}]", ErrInvalidMesh},
		{"clip end", "bones: [{name: a}]\nslots: [{name: s, bone: a, attachment: {type: clipping, vertices: [0, 0, 1, 0, 0, 1], end_slot: z}}]", ErrUnknownSlot},
		{"clip short", "bones: [{name: a}]\nslots: [{name: s, bone: a, attachment: {type: clipping, vertices: [0, 0, 1, 0]}}]", ErrInvalidScene},
		{"region values", "bones: [{name: a}]\nslots: [{name: s, bone: a, attachment: {type: region, region: [0, 0, 1]}}]", ErrInvalidScene},
		{"draw order short", "bones: [{name: a}]\nslots: [{name: s, bone: a}, {name: t, bone: a}]\ndraw_order: [s]", ErrInvalidScene},
		{"draw order unknown", "bones: [{name: a}]\nslots: [{name: s, bone: a}]\ndraw_order: [x]", ErrUnknownSlot},
		{"texture size", "bones: [{name: a}]\ntextures: [{name: t, width: 0, height: 4}]", ErrInvalidScene},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSkeleton([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFileTextureNeedsNoSize(t *testing.T) {
	s, err := ParseSkeleton([]byte("bones: [{name: a}]\ntextures: [{name: t, file: page.png}]"))
	if err != nil {
		t.Fatalf("ParseSkeleton failed: %v", err)
	}
	if s.Textures[0].File != "page.png" {
		t.Errorf("expected file page.png, got %q", s.Textures[0].File)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    skeleton.Color
		wantErr bool
	}{
		{"", skeleton.White, false},
		{"ffffffff", skeleton.White, false},
		{"ff0000", skeleton.Color{R: 1, A: 1}, false},
		{"00ff0000", skeleton.Color{G: 1}, false},
		{"fff", skeleton.Color{}, true},
		{"zzzzzzzz", skeleton.Color{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnimator(t *testing.T) {
	data := `
bones:
  - {name: root}
  - {name: arm, parent: root, rotation: 10, swing: {rotation: 30, speed: 1}}
`
	s, err := ParseSkeleton([]byte(data))
	if err != nil {
		t.Fatalf("ParseSkeleton failed: %v", err)
	}
	sk, err := s.Build(nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	animate := s.Animator()
	arm := sk.FindBone("arm")

	animate(sk, 0.25) // quarter cycle: sin = 1
	if !near(arm.Rotation, 40) {
		t.Errorf("rotation after 0.25s = %v, want 40", arm.Rotation)
	}
	animate(sk, 0.5) // three quarters: sin = -1
	if !near(arm.Rotation, -20) {
		t.Errorf("rotation after 0.75s = %v, want -20", arm.Rotation)
	}
	if sk.FindBone("root").Rotation != 0 {
		t.Error("bones without swing must not move")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	s, err := ParseSkeleton([]byte(minimalScene))
	if err != nil {
		t.Fatalf("ParseSkeleton failed: %v", err)
	}
	data, err := s.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	again, err := ParseSkeleton(data)
	if err != nil {
		t.Fatalf("re-parse failed: %v\n%s", err, data)
	}
	if again.Slots[0].Attachment.Width != 2 {
		t.Errorf("width lost in round trip: %s", data)
	}
}

func near(a, b float32) bool {
	d := a - b
	return d < 1e-3 && d > -1e-3
}
