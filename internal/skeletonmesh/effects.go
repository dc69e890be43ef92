package skeletonmesh

import (
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/pkg/math"
)

// JitterEffect offsets every vertex by a random amount in [-x, x] and
// [-y, y], biased towards zero. A nil rng uses a fixed seed.
func JitterEffect(x, y float32, rng *rand.Rand) VertexEffect {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return func(pos, _ math.Vec2, light skeleton.Color) (math.Vec2, skeleton.Color, skeleton.Color) {
		pos.X += randomTriangular(rng, -x, x)
		pos.Y += randomTriangular(rng, -y, y)
		return pos, light, skeleton.Color{}
	}
}

// randomTriangular samples a triangular distribution on [lo, hi] peaking
// at the midpoint.
func randomTriangular(rng *rand.Rand, lo, hi float32) float32 {
	if hi <= lo {
		return lo
	}
	mode := (lo + hi) / 2
	u := rng.Float32()
	d := hi - lo
	if u <= (mode-lo)/d {
		return lo + math32.Sqrt(u*d*(mode-lo))
	}
	return hi - math32.Sqrt((1-u)*d*(hi-mode))
}

// SwirlEffect rotates vertices within radius of the center. The rotation
// is angle degrees at the center and eases out to zero at the radius.
func SwirlEffect(centerX, centerY, radius, angle float32) VertexEffect {
	center := math.Vec2{X: centerX, Y: centerY}
	rad := math.DegToRad(angle)
	return func(pos, _ math.Vec2, light skeleton.Color) (math.Vec2, skeleton.Color, skeleton.Color) {
		local := pos.Sub(center)
		dist := local.Length()
		if dist < radius {
			a := (radius - dist) / radius
			pos = local.Rotate(rad * pow2Out(a)).Add(center)
		}
		return pos, light, skeleton.Color{}
	}
}

func pow2Out(a float32) float32 {
	return 1 - (a-1)*(a-1)
}

// TintEffect multiplies every vertex color by tint.
func TintEffect(tint skeleton.Color) VertexEffect {
	return func(pos, _ math.Vec2, light skeleton.Color) (math.Vec2, skeleton.Color, skeleton.Color) {
		return pos, light.Mul(tint), skeleton.Color{}
	}
}
