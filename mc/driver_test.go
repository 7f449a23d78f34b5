package mc

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Oolcik/rampack/box"
	"github.com/Oolcik/rampack/geom"
	"github.com/Oolcik/rampack/packing"
)

type hardSpheres struct{ radius float64 }

func (h hardSpheres) HasHardPart() bool { return true }
func (h hardSpheres) HasSoftPart() bool { return false }
func (h hardSpheres) OverlapBetween(p1 r3.Vec, _ geom.Orientation, _ int, p2 r3.Vec, _ geom.Orientation, _ int, bc *box.BoundaryConditions) bool {
	return bc.MinimumImageDistance(p1, p2) < 2*h.radius
}
func (h hardSpheres) EnergyBetween(r3.Vec, geom.Orientation, int, r3.Vec, geom.Orientation, int, *box.BoundaryConditions) float64 {
	return 0
}
func (h hardSpheres) RangeRadius() float64         { return 2 * h.radius }
func (h hardSpheres) InteractionCentres() []r3.Vec { return []r3.Vec{{}} }

// shrinkingScaler always proposes shrinking the box slightly, useful for
// a RelaxOverlaps-adjacent compression test without needing a realistic
// pressure-driven sampler.
type shrinkingScaler struct{ factor float64 }

func (s shrinkingScaler) SampleScalingFactors(r3.Vec, float64, *rand.Rand) (float64, float64, float64) {
	return s.factor, s.factor, s.factor
}

func newTestPacking(t *testing.T, length float64, radius float64, positions []r3.Vec) *packing.Packing {
	t.Helper()
	bx, err := box.Cubic(length)
	require.NoError(t, err)
	orients := make([]geom.Orientation, len(positions))
	for i := range orients {
		orients[i] = geom.Identity()
	}
	p, err := packing.New(bx, hardSpheres{radius: radius}, positions, orients)
	require.NoError(t, err)
	return p
}

func testConfig(seed int64) Config {
	cfg := DefaultConfig()
	cfg.Seed = seed
	cfg.Temperature = 1
	cfg.Pressure = 1
	cfg.TranslationStep = 0.2
	cfg.RotationStep = 0.2
	return cfg
}

func TestIntegrateNeverIncreasesOverlapsInDiluteSystem(t *testing.T) {
	positions := []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 5, Y: 5, Z: 5}, {X: 8, Y: 2, Z: 8}}
	p := newTestPacking(t, 10, 0.3, positions)

	d, err := New(testConfig(1), p, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, d.Integrate(context.Background(), 50))
	assert.Equal(t, 0, p.OverlapCount())
}

func TestIntegrateIsDeterministicForFixedSeed(t *testing.T) {
	positions := []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 5, Y: 5, Z: 5}, {X: 8, Y: 2, Z: 8}}

	p1 := newTestPacking(t, 10, 0.3, positions)
	d1, err := New(testConfig(7), p1, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, d1.Integrate(context.Background(), 20))

	p2 := newTestPacking(t, 10, 0.3, positions)
	d2, err := New(testConfig(7), p2, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, d2.Integrate(context.Background(), 20))

	for i := 0; i < 3; i++ {
		assert.InDelta(t, p1.AbsolutePosition(i).X, p2.AbsolutePosition(i).X, 1e-12)
		assert.InDelta(t, p1.AbsolutePosition(i).Y, p2.AbsolutePosition(i).Y, 1e-12)
		assert.InDelta(t, p1.AbsolutePosition(i).Z, p2.AbsolutePosition(i).Z, 1e-12)
	}
}

func TestRelaxOverlapsDrivesOverlapCountToZero(t *testing.T) {
	// Two spheres placed overlapping on purpose.
	positions := []r3.Vec{{X: 5, Y: 5, Z: 5}, {X: 5.3, Y: 5, Z: 5}}
	p := newTestPacking(t, 10, 0.5, positions)
	require.Greater(t, p.OverlapCount(), 0)

	cfg := testConfig(3)
	d, err := New(cfg, p, nil, nil, nil)
	require.NoError(t, err)

	ok, err := d.RelaxOverlaps(context.Background(), 2000)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, p.OverlapCount())
}

func TestBoxMovesChangeVolumeUnderPressure(t *testing.T) {
	positions := []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 5, Y: 5, Z: 5}}
	p := newTestPacking(t, 10, 0.1, positions)

	cfg := testConfig(9)
	cfg.BoxStep = 0.02
	d, err := New(cfg, p, shrinkingScaler{factor: 0.999}, nil, nil)
	require.NoError(t, err)

	before := p.Box().Volume()
	require.NoError(t, d.Integrate(context.Background(), 30))
	assert.NotEqual(t, before, p.Box().Volume())
}

func TestObserverIsCalledOncePerCycle(t *testing.T) {
	positions := []r3.Vec{{X: 1, Y: 1, Z: 1}}
	p := newTestPacking(t, 10, 0.1, positions)

	var calls int
	obs := ObservablesFunc(func(cycle int, _ *packing.Packing, _ *MoveCounters) { calls++ })

	d, err := New(testConfig(11), p, nil, nil, obs)
	require.NoError(t, err)
	require.NoError(t, d.Integrate(context.Background(), 5))
	assert.Equal(t, 5, calls)
}
