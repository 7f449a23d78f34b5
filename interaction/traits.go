// Package interaction defines the external interfaces the core consumes
// but never implements: the overlap oracle between two oriented rigid
// bodies (shape traits) and the volume-move proposal distribution
// (volume scaler). Concrete shape geometries and scalers are collaborators
// supplied by the caller, per spec §1's scope boundary.
package interaction

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Oolcik/rampack/box"
	"github.com/Oolcik/rampack/geom"
)

// ShapeTraits is the overlap oracle: given two oriented particles and a
// boundary-condition service, it answers whether they intersect, and
// bounds the range over which any two particles can interact.
//
// OverlapBetween receives absolute-coordinate positions (already the
// caller's responsibility to convert out of fractional space) so that
// concrete shape implementations never need to know about the box.
type ShapeTraits interface {
	// HasHardPart reports whether this shape carries a hard (infinite
	// penalty on overlap) interaction.
	HasHardPart() bool

	// HasSoftPart reports whether EnergyBetween is meaningful.
	HasSoftPart() bool

	// OverlapBetween returns whether the two particles' hard cores
	// intersect under minimum image.
	OverlapBetween(p1 r3.Vec, r1 geom.Orientation, idx1 int, p2 r3.Vec, r2 geom.Orientation, idx2 int, bc *box.BoundaryConditions) bool

	// EnergyBetween returns the soft-interaction energy between the two
	// particles. Only meaningful when HasSoftPart is true; implementations
	// without a soft part may return 0.
	EnergyBetween(p1 r3.Vec, r1 geom.Orientation, idx1 int, p2 r3.Vec, r2 geom.Orientation, idx2 int, bc *box.BoundaryConditions) float64

	// RangeRadius is an upper bound on the centre-to-centre distance at
	// which two particles can interact; it sizes the neighbour grid and
	// the domain-decomposition halo.
	RangeRadius() float64

	// InteractionCentres returns the offsets (in the particle's own
	// frame) of each interaction site, for multi-centre particles.
	InteractionCentres() []r3.Vec
}

// VolumeScaler samples a proposed box rescaling given the current edge
// lengths, the box step size, and an RNG. A triclinic scaler additionally
// implements TriclinicVolumeScaler to return a full 3x3 multiplier; the
// core applies either uniformly via box.Rescale/box.RescaleDiag.
type VolumeScaler interface {
	SampleScalingFactors(dims r3.Vec, boxStep float64, rng *rand.Rand) (fx, fy, fz float64)
}

// TriclinicVolumeScaler is the optional richer form of VolumeScaler that
// proposes a general (non-diagonal) multiplicative update to the box.
type TriclinicVolumeScaler interface {
	VolumeScaler
	SampleScalingMatrix(dims r3.Vec, boxStep float64, rng *rand.Rand) *mat.Dense
}
