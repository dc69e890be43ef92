package math

import (
	"testing"
)

func TestVec2Add(t *testing.T) {
	a := Vec2{1, 2}
	b := Vec2{3, 4}
	got := a.Add(b)
	want := Vec2{4, 6}
	if got != want {
		t.Errorf("Vec2.Add() = %v, want %v", got, want)
	}
}

func TestVec2Length(t *testing.T) {
	v := Vec2{3, 4}
	got := v.Length()
	want := float32(5)
	if got != want {
		t.Errorf("Vec2.Length() = %v, want %v", got, want)
	}
}

func TestVec2Normalize(t *testing.T) {
	v := Vec2{3, 4}
	n := v.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec2.Normalize().Length() = %v, want ~1", l)
	}
}

func TestVec2Cross(t *testing.T) {
	x := Vec2{1, 0}
	y := Vec2{0, 1}
	if got := x.Cross(y); got != 1 {
		t.Errorf("Vec2.Cross() = %v, want 1", got)
	}
	if got := y.Cross(x); got != -1 {
		t.Errorf("Vec2.Cross() reversed = %v, want -1", got)
	}
}

func TestVec2Rotate(t *testing.T) {
	got := Vec2{1, 0}.Rotate(DegToRad(90))
	if abs(got.X) > 1e-5 || abs(got.Y-1) > 1e-5 {
		t.Errorf("Vec2.Rotate(90) = %v, want (0, 1)", got)
	}
}

func TestAffineFromTRS(t *testing.T) {
	tests := []struct {
		name         string
		x, y, rot    float32
		sx, sy       float32
		px, py       float32
		wantX, wantY float32
	}{
		{"identity", 0, 0, 0, 1, 1, 3, 4, 3, 4},
		{"translate", 10, -5, 0, 1, 1, 1, 1, 11, -4},
		{"rotate 90", 0, 0, 90, 1, 1, 1, 0, 0, 1},
		{"scale", 0, 0, 0, 2, 3, 1, 1, 2, 3},
		{"scale then rotate", 1, 1, 90, 2, 1, 1, 0, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AffineFromTRS(tt.x, tt.y, tt.rot, tt.sx, tt.sy)
			gx, gy := a.Apply(tt.px, tt.py)
			if abs(gx-tt.wantX) > 1e-5 || abs(gy-tt.wantY) > 1e-5 {
				t.Errorf("Apply(%v, %v) = (%v, %v), want (%v, %v)", tt.px, tt.py, gx, gy, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestAffineMul(t *testing.T) {
	parent := AffineFromTRS(10, 0, 90, 1, 1)
	child := AffineFromTRS(5, 0, 0, 1, 1)
	world := parent.Mul(child)

	// child origin is 5 units along the parent's rotated x axis
	gx, gy := world.Apply(0, 0)
	if abs(gx-10) > 1e-5 || abs(gy-5) > 1e-5 {
		t.Errorf("world origin = (%v, %v), want (10, 5)", gx, gy)
	}
	if d := world.Determinant(); abs(d-1) > 1e-5 {
		t.Errorf("Determinant() = %v, want 1", d)
	}
}
