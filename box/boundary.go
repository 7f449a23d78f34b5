package box

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoundaryConditions answers minimum-image and folding queries for a
// single Box. Periodic variants use round-to-nearest in fractional
// coordinates, per spec §4.1.
type BoundaryConditions struct {
	box *Box
}

// NewBoundaryConditions binds boundary queries to a box. The returned
// value is only valid as long as box is not replaced wholesale (a Rescale
// mutates the same *Box in place, so BoundaryConditions stays valid
// across a trial scaling).
func NewBoundaryConditions(b *Box) *BoundaryConditions {
	return &BoundaryConditions{box: b}
}

// Translation returns the lattice vector t such that p2+t is the
// minimum-image partner of p1.
func (bc *BoundaryConditions) Translation(p1, p2 r3.Vec) r3.Vec {
	f1 := bc.box.ToFractional(p1)
	f2 := bc.box.ToFractional(p2)
	d := r3.Sub(f1, f2)
	rounded := r3.Vec{X: roundNearest(d.X), Y: roundNearest(d.Y), Z: roundNearest(d.Z)}
	return bc.box.ToAbsolute(rounded)
}

// Correction returns the vector that, added to p, folds it back into the
// fundamental cell [0,1)^3 in fractional coordinates.
func (bc *BoundaryConditions) Correction(p r3.Vec) r3.Vec {
	f := bc.box.ToFractional(p)
	corr := r3.Vec{X: -math.Floor(f.X), Y: -math.Floor(f.Y), Z: -math.Floor(f.Z)}
	return bc.box.ToAbsolute(corr)
}

// MinimumImageDistance returns |p2 + t - p1| for the minimum-image
// translation t, i.e. the periodic distance between p1 and p2.
func (bc *BoundaryConditions) MinimumImageDistance(p1, p2 r3.Vec) float64 {
	t := bc.Translation(p1, p2)
	return r3.Norm(r3.Sub(r3.Add(p2, t), p1))
}

func roundNearest(x float64) float64 {
	return math.Round(x)
}

// FoldFractional folds a fractional-coordinate vector into [0,1)^3.
func FoldFractional(f r3.Vec) r3.Vec {
	return r3.Vec{X: foldComponent(f.X), Y: foldComponent(f.Y), Z: foldComponent(f.Z)}
}

func foldComponent(x float64) float64 {
	x = math.Mod(x, 1)
	if x < 0 {
		x++
	}
	// math.Mod can return exactly 1 for x very close to an integer due to
	// floating point rounding; clamp back into the half-open interval.
	if x >= 1 {
		x = 0
	}
	return x
}
