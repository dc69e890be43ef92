package math

import "github.com/chewxy/math32"

// Affine is a 2D affine transform:
//
//	| A B X |
//	| C D Y |
//
// It is the world transform layout of a skeleton bone.
type Affine struct {
	A, B, C, D float32
	X, Y       float32
}

// AffineIdentity returns the identity transform.
func AffineIdentity() Affine {
	return Affine{A: 1, D: 1}
}

// AffineFromTRS builds a transform from translation, rotation (degrees)
// and scale, applied scale first.
func AffineFromTRS(x, y, rotation, scaleX, scaleY float32) Affine {
	s, c := math32.Sincos(DegToRad(rotation))
	return Affine{
		A: c * scaleX, B: -s * scaleY,
		C: s * scaleX, D: c * scaleY,
		X: x, Y: y,
	}
}

// Mul returns t * other, so other is applied first.
func (t Affine) Mul(other Affine) Affine {
	return Affine{
		A: t.A*other.A + t.B*other.C,
		B: t.A*other.B + t.B*other.D,
		C: t.C*other.A + t.D*other.C,
		D: t.C*other.B + t.D*other.D,
		X: t.A*other.X + t.B*other.Y + t.X,
		Y: t.C*other.X + t.D*other.Y + t.Y,
	}
}

// Apply transforms the point (x, y).
func (t Affine) Apply(x, y float32) (float32, float32) {
	return x*t.A + y*t.B + t.X, x*t.C + y*t.D + t.Y
}

// ApplyVec transforms a point.
func (t Affine) ApplyVec(p Vec2) Vec2 {
	x, y := t.Apply(p.X, p.Y)
	return Vec2{x, y}
}

// Determinant returns the determinant of the linear part.
func (t Affine) Determinant() float32 {
	return t.A*t.D - t.B*t.C
}
