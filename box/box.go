// Package box implements the triclinic periodic cell: the 3x3 matrix of
// edge vectors, its inverse, and the fractional/absolute coordinate
// conversions every other core package builds on.
package box

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// minVolume guards against a box collapsed to (near) zero volume, which
// would make ToFractional numerically meaningless.
const minVolume = 1e-12

// Box is a triclinic periodic cell: a 3x3 matrix B whose columns are the
// edge vectors, V = |det B|.
type Box struct {
	edges   mat.Dense // 3x3, columns are edge vectors
	inverse mat.Dense // cached inverse of edges
	volume  float64
}

// New builds a Box from its three edge vectors (as matrix columns).
// Returns an error if the resulting volume is not comfortably positive --
// a construction error per the taxonomy in spec §7, never a panic.
func New(a, b, c r3.Vec) (*Box, error) {
	edges := mat.NewDense(3, 3, []float64{
		a.X, b.X, c.X,
		a.Y, b.Y, c.Y,
		a.Z, b.Z, c.Z,
	})
	return newFromDense(edges)
}

// Cubic builds a cubic box of the given edge length.
func Cubic(length float64) (*Box, error) {
	return New(
		r3.Vec{X: length},
		r3.Vec{Y: length},
		r3.Vec{Z: length},
	)
}

func newFromDense(edges *mat.Dense) (*Box, error) {
	vol := math.Abs(mat.Det(edges))
	if vol < minVolume {
		return nil, fmt.Errorf("box: degenerate cell, volume %.3e below minimum %.3e", vol, minVolume)
	}

	bx := &Box{volume: vol}
	bx.edges.CloneFrom(edges)
	if err := bx.inverse.Inverse(&bx.edges); err != nil {
		return nil, fmt.Errorf("box: non-invertible cell: %w", err)
	}
	return bx, nil
}

// Volume returns V = |det B|.
func (b *Box) Volume() float64 { return b.volume }

// ToFractional converts an absolute-coordinate vector to fractional
// coordinates in the box's basis (components need not lie in [0,1)).
func (b *Box) ToFractional(p r3.Vec) r3.Vec {
	return mulVec(&b.inverse, p)
}

// ToAbsolute converts a fractional-coordinate vector to absolute
// coordinates.
func (b *Box) ToAbsolute(f r3.Vec) r3.Vec {
	return mulVec(&b.edges, f)
}

// EdgeLengths returns the length of each of the three edge vectors.
func (b *Box) EdgeLengths() r3.Vec {
	col := func(j int) r3.Vec {
		return r3.Vec{X: b.edges.At(0, j), Y: b.edges.At(1, j), Z: b.edges.At(2, j)}
	}
	return r3.Vec{X: r3.Norm(col(0)), Y: r3.Norm(col(1)), Z: r3.Norm(col(2))}
}

// MinEdgeLength returns the shortest of the three edge vectors' lengths,
// used to bound the adaptive translation step (spec §4.6.2).
func (b *Box) MinEdgeLength() float64 {
	l := b.EdgeLengths()
	return math.Min(l.X, math.Min(l.Y, l.Z))
}

// Rescale multiplies the box by the given 3x3 matrix (B <- S*B), the
// general triclinic form of a volume move, and recomputes the inverse.
// Returns an error (not applied) if the result would be degenerate.
func (b *Box) Rescale(s *mat.Dense) error {
	var next mat.Dense
	next.Mul(s, &b.edges)
	nb, err := newFromDense(&next)
	if err != nil {
		return err
	}
	*b = *nb
	return nil
}

// RescaleDiag is the common case of Rescale: independent per-axis scale
// factors with no shear.
func (b *Box) RescaleDiag(sx, sy, sz float64) error {
	s := mat.NewDense(3, 3, []float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, sz,
	})
	return b.Rescale(s)
}

// Clone returns an independent copy, used to snapshot the box before a
// trial scaling so it can be restored verbatim on rejection.
func (b *Box) Clone() *Box {
	cp := &Box{volume: b.volume}
	cp.edges.CloneFrom(&b.edges)
	cp.inverse.CloneFrom(&b.inverse)
	return cp
}

// RestoreFrom overwrites b in place with a deep copy of snapshot's state.
// Used by a rejected trial scaling to put the box back exactly as Clone
// left it, without aliasing the snapshot's backing arrays.
func (b *Box) RestoreFrom(snapshot *Box) {
	b.edges.CloneFrom(&snapshot.edges)
	b.inverse.CloneFrom(&snapshot.inverse)
	b.volume = snapshot.volume
}

// Matrix exposes the raw edge matrix for serialisation.
func (b *Box) Matrix() [3][3]float64 {
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = b.edges.At(i, j)
		}
	}
	return m
}

func mulVec(m *mat.Dense, v r3.Vec) r3.Vec {
	in := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, in)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
