package box

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestTranslationBringsPointsToMinimumImage(t *testing.T) {
	b, err := Cubic(10)
	require.NoError(t, err)
	bc := NewBoundaryConditions(b)

	p1 := r3.Vec{X: 0.5}
	p2 := r3.Vec{X: 9.5}
	tr := bc.Translation(p1, p2)

	// The nearest periodic copy of p2 sits at x=-0.5, one unit from p1.
	image := r3.Add(p2, tr)
	assert.InDelta(t, 1, r3.Norm(r3.Sub(image, p1)), 1e-9)
}

func TestMinimumImageDistanceAcrossBoundary(t *testing.T) {
	b, err := Cubic(10)
	require.NoError(t, err)
	bc := NewBoundaryConditions(b)

	d := bc.MinimumImageDistance(r3.Vec{X: 0.5}, r3.Vec{X: 9.5})
	assert.InDelta(t, 1, d, 1e-9)
}

func TestCorrectionFoldsIntoCell(t *testing.T) {
	b, err := Cubic(10)
	require.NoError(t, err)
	bc := NewBoundaryConditions(b)

	p := r3.Vec{X: 11, Y: -1, Z: 5}
	corr := bc.Correction(p)
	folded := r3.Add(p, corr)
	f := b.ToFractional(folded)
	assert.True(t, f.X >= 0 && f.X < 1)
	assert.True(t, f.Y >= 0 && f.Y < 1)
	assert.True(t, f.Z >= 0 && f.Z < 1)
}

func TestFoldFractionalHandlesNegativeAndOne(t *testing.T) {
	f := FoldFractional(r3.Vec{X: -0.25, Y: 1.0, Z: 2.5})
	assert.InDelta(t, 0.75, f.X, 1e-9)
	assert.InDelta(t, 0, f.Y, 1e-9)
	assert.InDelta(t, 0.5, f.Z, 1e-9)
}
