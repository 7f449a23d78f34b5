package cmd

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Oolcik/rampack/box"
	"github.com/Oolcik/rampack/geom"
)

// hardSphereTraits is the minimal interaction.ShapeTraits the CLI needs to
// drive mc.Driver end to end: identical isotropic hard spheres, no soft
// part. It is wiring for the command-line demo, not a shape-geometry
// library -- a real run would supply spherocylinders, dumbbells, or
// whatever anisotropic body the packing actually studies.
type hardSphereTraits struct {
	radius float64
}

func (h hardSphereTraits) HasHardPart() bool { return true }
func (h hardSphereTraits) HasSoftPart() bool { return false }

func (h hardSphereTraits) OverlapBetween(p1 r3.Vec, _ geom.Orientation, _ int, p2 r3.Vec, _ geom.Orientation, _ int, bc *box.BoundaryConditions) bool {
	return bc.MinimumImageDistance(p1, p2) < 2*h.radius
}

func (h hardSphereTraits) EnergyBetween(r3.Vec, geom.Orientation, int, r3.Vec, geom.Orientation, int, *box.BoundaryConditions) float64 {
	return 0
}

func (h hardSphereTraits) RangeRadius() float64 { return 2 * h.radius }

func (h hardSphereTraits) InteractionCentres() []r3.Vec { return []r3.Vec{{}} }

// isotropicScaler proposes the same random factor on all three axes, so a
// demo run samples pure volume changes rather than shape changes. All
// three axes share a single draw because an isotropic rescaling is what
// "volume move" means for spheres -- an anisotropic packing would want
// independent per-axis factors instead.
type isotropicScaler struct{}

func (isotropicScaler) SampleScalingFactors(_ r3.Vec, boxStep float64, rng *rand.Rand) (fx, fy, fz float64) {
	f := 1 + (rng.Float64()*2-1)*boxStep
	return f, f, f
}
