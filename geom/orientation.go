// Package geom holds the small, allocation-free 3D primitives shared by
// interaction, packing and mc: rotation matrices and the sampling
// helpers the Monte Carlo driver uses to propose them.
package geom

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Orientation is a rotation matrix in SO(3), stored row-major. Particle
// counts in a packing run into the tens of thousands and every trial
// move multiplies one of these, so a fixed [3]r3.Vec beats a general
// mat.Dense here: no bounds checks, no heap escape.
type Orientation [3]r3.Vec

// Identity returns the identity rotation.
func Identity() Orientation {
	return Orientation{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
	}
}

// Apply returns R*v.
func (r Orientation) Apply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: r3.Dot(r[0], v),
		Y: r3.Dot(r[1], v),
		Z: r3.Dot(r[2], v),
	}
}

// Mul returns r*other, i.e. the rotation that applies other first, then r.
func (r Orientation) Mul(other Orientation) Orientation {
	cols := [3]r3.Vec{
		{X: other[0].X, Y: other[1].X, Z: other[2].X},
		{X: other[0].Y, Y: other[1].Y, Z: other[2].Y},
		{X: other[0].Z, Y: other[1].Z, Z: other[2].Z},
	}
	return Orientation{
		{X: r3.Dot(r[0], cols[0]), Y: r3.Dot(r[0], cols[1]), Z: r3.Dot(r[0], cols[2])},
		{X: r3.Dot(r[1], cols[0]), Y: r3.Dot(r[1], cols[1]), Z: r3.Dot(r[1], cols[2])},
		{X: r3.Dot(r[2], cols[0]), Y: r3.Dot(r[2], cols[1]), Z: r3.Dot(r[2], cols[2])},
	}
}

// Transpose returns the inverse rotation (rotation matrices are orthogonal).
func (r Orientation) Transpose() Orientation {
	return Orientation{
		{X: r[0].X, Y: r[1].X, Z: r[2].X},
		{X: r[0].Y, Y: r[1].Y, Z: r[2].Y},
		{X: r[0].Z, Y: r[1].Z, Z: r[2].Z},
	}
}

// AxisAngle builds the rotation of angle (radians) about axis, which need
// not be normalised. Rodrigues' formula.
func AxisAngle(axis r3.Vec, angle float64) Orientation {
	n := r3.Unit(axis)
	s, c := math.Sin(angle), math.Cos(angle)
	t := 1 - c

	return Orientation{
		{X: t*n.X*n.X + c, Y: t*n.X*n.Y - s*n.Z, Z: t*n.X*n.Z + s*n.Y},
		{X: t*n.X*n.Y + s*n.Z, Y: t*n.Y*n.Y + c, Z: t*n.Y*n.Z - s*n.X},
		{X: t*n.X*n.Z - s*n.Y, Y: t*n.Y*n.Z + s*n.X, Z: t*n.Z*n.Z + c},
	}
}

// RandomUnitVector samples a direction uniformly on the unit sphere by
// rejection sampling inside the unit ball, the way the driver samples a
// rotation axis (spec §4.6.1).
func RandomUnitVector(rng *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{
			X: 2*rng.Float64() - 1,
			Y: 2*rng.Float64() - 1,
			Z: 2*rng.Float64() - 1,
		}
		n2 := r3.Norm2(v)
		if n2 > 1e-12 && n2 <= 1 {
			return r3.Scale(1/math.Sqrt(n2), v)
		}
	}
}

// ClampAngle wraps angle into [-pi, pi], the clamp applied at sampling time
// for a rotation step size that has drifted above pi (spec §4.6.2).
func ClampAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}
