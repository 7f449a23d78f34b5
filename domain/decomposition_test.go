package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewRejectsRegionThinnerThanTwoGridCells(t *testing.T) {
	// 2 regions per axis needs >= 4 grid cells per axis.
	_, err := New([3]int{2, 2, 2}, [3]int{3, 4, 4})
	assert.Error(t, err)
}

func TestRegionIndexOfMatchesRegionContainment(t *testing.T) {
	d, err := New([3]int{2, 2, 2}, [3]int{8, 8, 8})
	require.NoError(t, err)
	d.Reseed(rand.New(rand.NewSource(1)))

	for i := 0; i < d.Count(); i++ {
		region := d.Region(i)
		mid := midpoint(region)
		assert.Equal(t, i, d.RegionIndexOf(mid), "region %d's own midpoint should map back to it", i)
		assert.True(t, region.Contains(mid))
	}
}

func TestActiveRegionIsStrictSubsetOfRegion(t *testing.T) {
	d, err := New([3]int{2, 2, 2}, [3]int{8, 8, 8})
	require.NoError(t, err)
	d.Reseed(rand.New(rand.NewSource(1)))

	full := d.Region(0)
	active := d.ActiveRegion(0)
	mid := midpoint(full)
	assert.True(t, full.Contains(mid))
	assert.True(t, active.Contains(mid))

	// A point just inside the full region's low edge on every axis lies in
	// the contracted margin, so it is outside the active region.
	edge := r3.Vec{X: full.lo[0] + 1e-9, Y: full.lo[1] + 1e-9, Z: full.lo[2] + 1e-9}
	assert.True(t, full.Contains(edge))
	assert.False(t, active.Contains(edge))
}

func TestReseedChangesRegionOrigin(t *testing.T) {
	d, err := New([3]int{2, 2, 2}, [3]int{8, 8, 8})
	require.NoError(t, err)

	d.Reseed(rand.New(rand.NewSource(1)))
	first := d.Region(0)
	d.Reseed(rand.New(rand.NewSource(2)))
	second := d.Region(0)

	assert.NotEqual(t, first, second)
}

func TestRegionContainsWrapsAcrossBoundary(t *testing.T) {
	d, err := New([3]int{2, 1, 1}, [3]int{4, 4, 4})
	require.NoError(t, err)
	d.origin = [3]float64{0.9, 0, 0}

	r := d.Region(0) // lo=0.9, hi=1.4 on x
	assert.True(t, r.Contains(r3.Vec{X: 0.95}))
	assert.True(t, r.Contains(r3.Vec{X: 0.1})) // wraps: 0.1+1=1.1 in [0.9,1.4)
	assert.False(t, r.Contains(r3.Vec{X: 0.5}))
}

func midpoint(r Region) r3.Vec {
	return r3.Vec{
		X: (r.lo[0] + r.hi[0]) / 2,
		Y: (r.lo[1] + r.hi[1]) / 2,
		Z: (r.lo[2] + r.hi[2]) / 2,
	}
}
