// Package domain partitions a packing's fractional cell into a grid of
// regions so a Monte Carlo cycle can propose particle moves in every
// region concurrently: two goroutines whose regions don't touch can never
// race on the same neighbour-grid cell (spec's domain-decomposition
// scheme).
package domain

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Region is a rectangular slab of fractional space, one worker's share of
// the box for a sweep. hi may exceed 1 when the slab straddles the
// periodic boundary; Contains accounts for that.
type Region struct {
	lo, hi [3]float64
}

// Contains reports whether the fractional point v falls in the region,
// accounting for the region possibly wrapping across the cell boundary.
func (r Region) Contains(v r3.Vec) bool {
	c := [3]float64{v.X, v.Y, v.Z}
	for axis := 0; axis < 3; axis++ {
		if !axisContains(r.lo[axis], r.hi[axis], c[axis]) {
			return false
		}
	}
	return true
}

func axisContains(lo, hi, x float64) bool {
	if x >= lo && x < hi {
		return true
	}
	// x may need to be seen one period up or down to compare against a
	// region whose hi (or lo) fell outside [0,1) when the sweep origin
	// shifted it across the boundary.
	return (x+1 >= lo && x+1 < hi) || (x-1 >= lo && x-1 < hi)
}

// contract shrinks the region inward by margin on every side,
// producing the "active domain" a trial's destination must land in: a
// region wide enough that no move proposed inside it can reach into a
// neighbouring worker's territory (spec's active-domain contraction).
func (r Region) contract(margin [3]float64) Region {
	var out Region
	for axis := 0; axis < 3; axis++ {
		out.lo[axis] = r.lo[axis] + margin[axis]
		out.hi[axis] = r.hi[axis] - margin[axis]
	}
	return out
}

// Decomposition holds the Kx*Ky*Kz partition of fractional space for the
// current sweep, plus enough information to recompute a fresh random
// origin for the next one.
type Decomposition struct {
	counts [3]int
	origin [3]float64
	margin [3]float64 // one grid cell's fractional width per axis, for contraction
}

// New builds a Decomposition with the given per-axis region counts. cell
// is the neighbour grid's current per-axis cell counts; construction is
// refused if any region's extent would be less than twice the grid's
// cell size along that axis, since then a contracted active domain could
// vanish or invert.
func New(counts [3]int, cellCounts [3]int) (*Decomposition, error) {
	for axis := 0; axis < 3; axis++ {
		if counts[axis] < 1 {
			return nil, fmt.Errorf("domain: axis %d has %d regions, need >= 1", axis, counts[axis])
		}
		if cellCounts[axis] < 2*counts[axis] {
			return nil, fmt.Errorf("domain: axis %d region extent (1/%d of the box) is less than twice the grid cell size (grid has %d cells, needs >= %d)", axis, counts[axis], cellCounts[axis], 2*counts[axis])
		}
	}

	d := &Decomposition{counts: counts}
	for axis := 0; axis < 3; axis++ {
		d.margin[axis] = 1.0 / float64(cellCounts[axis])
	}
	return d, nil
}

// Count returns the total number of regions, Kx*Ky*Kz.
func (d *Decomposition) Count() int { return d.counts[0] * d.counts[1] * d.counts[2] }

// Counts returns the per-axis region counts.
func (d *Decomposition) Counts() [3]int { return d.counts }

// Reseed draws a fresh random origin, shifting every region for the next
// sweep so that which particles sit near a domain boundary changes cycle
// to cycle (spec's "random per-sweep origin").
func (d *Decomposition) Reseed(rng *rand.Rand) {
	for axis := 0; axis < 3; axis++ {
		d.origin[axis] = rng.Float64()
	}
}

// RegionIndexOf returns the flat index (x fastest) of the full region
// owning the fractional point frac, under the current origin.
func (d *Decomposition) RegionIndexOf(frac r3.Vec) int {
	c := [3]float64{frac.X, frac.Y, frac.Z}
	var idx [3]int
	for axis := 0; axis < 3; axis++ {
		shifted := c[axis] - d.origin[axis]
		shifted -= math.Floor(shifted)
		idx[axis] = int(shifted * float64(d.counts[axis]))
		if idx[axis] >= d.counts[axis] {
			idx[axis] = d.counts[axis] - 1
		}
	}
	return idx[0] + idx[1]*d.counts[0] + idx[2]*d.counts[0]*d.counts[1]
}

// Region returns the full (uncontracted) region at flat index i, used to
// decide which worker a particle belongs to for a sweep.
func (d *Decomposition) Region(i int) Region {
	x := i % d.counts[0]
	y := (i / d.counts[0]) % d.counts[1]
	z := i / (d.counts[0] * d.counts[1])
	widths := [3]float64{1.0 / float64(d.counts[0]), 1.0 / float64(d.counts[1]), 1.0 / float64(d.counts[2])}
	coords := [3]int{x, y, z}

	var r Region
	for axis := 0; axis < 3; axis++ {
		r.lo[axis] = d.origin[axis] + float64(coords[axis])*widths[axis]
		r.hi[axis] = r.lo[axis] + widths[axis]
	}
	return r
}

// ActiveRegion returns the contracted region at flat index i: the subset
// of Region(i) far enough from the boundary that a trial confined to it
// can never touch a neighbouring worker's cells.
func (d *Decomposition) ActiveRegion(i int) Region {
	return d.Region(i).contract(d.margin)
}
