// Package grid implements the uniform neighbour-cell grid over a
// periodic box: near-constant-time insert/remove/move of particle
// indices and 3x3x3-neighbourhood queries under periodic wrap-around.
package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Grid partitions [0,1)^3 fractional space into counts[0]*counts[1]*counts[2]
// cells. Wrap-around at the box boundary is resolved by a precomputed
// redirect table per axis rather than a modulo in the hot loop (spec §4.2's
// "reflected-cell aliasing").
//
// cellOf/present are indexed by particle id rather than keyed by a map so
// that domain workers touching disjoint particles can Add/Remove/Move
// concurrently: writes to distinct slice elements never race, whereas
// concurrent writes to a Go map — even at distinct keys — do. The bucket
// slices (cells) are likewise safe under concurrent access as long as no
// two goroutines touch the same cell, which the domain-decomposition
// region contraction guarantees.
type Grid struct {
	counts  [3]int
	wrap    [3][]int // wrap[axis][coord+1] for coord in [-1, counts[axis]], length counts[axis]+2
	cells   [][]int  // flat, index = x + y*counts[0] + z*counts[0]*counts[1]
	cellOf  [][3]int // indexed by particle id
	present []bool   // indexed by particle id
}

// New builds a grid with the given per-axis cell counts, sized to hold n
// particles. Each axis must have at least 3 cells for periodic
// correctness (spec §4.2).
func New(counts [3]int, n int) (*Grid, error) {
	for axis, c := range counts {
		if c < 3 {
			return nil, fmt.Errorf("grid: axis %d has %d cells, need >= 3", axis, c)
		}
	}

	g := &Grid{counts: counts}
	g.rebuildWrapTables()
	g.cells = make([][]int, counts[0]*counts[1]*counts[2])
	g.cellOf = make([][3]int, n)
	g.present = make([]bool, n)
	return g, nil
}

// ForRange builds a grid, sized to hold n particles, whose cell linear
// size along each axis is at least minCellSize given the box's edge
// lengths. Refuses a minCellSize that would leave fewer than 3 cells
// along any axis.
func ForRange(edgeLengths r3.Vec, minCellSize float64, n int) (*Grid, error) {
	if minCellSize <= 0 {
		return nil, fmt.Errorf("grid: minCellSize must be positive, got %v", minCellSize)
	}
	lengths := [3]float64{edgeLengths.X, edgeLengths.Y, edgeLengths.Z}
	var counts [3]int
	for axis, l := range lengths {
		counts[axis] = int(math.Floor(l / minCellSize))
	}
	return New(counts, n)
}

// CellCountsFor computes the per-axis cell counts ForRange would choose,
// without allocating a grid. Used when deciding whether a proposed box
// rescale would leave the grid unable to satisfy the axis>=3 invariant.
func CellCountsFor(edgeLengths r3.Vec, minCellSize float64) [3]int {
	lengths := [3]float64{edgeLengths.X, edgeLengths.Y, edgeLengths.Z}
	var counts [3]int
	for axis, l := range lengths {
		counts[axis] = int(math.Floor(l / minCellSize))
	}
	return counts
}

func (g *Grid) rebuildWrapTables() {
	for axis, c := range g.counts {
		table := make([]int, c+2)
		for i := -1; i <= c; i++ {
			table[i+1] = ((i % c) + c) % c
		}
		g.wrap[axis] = table
	}
}

// CellCounts returns the per-axis cell counts.
func (g *Grid) CellCounts() [3]int { return g.counts }

func (g *Grid) cellCoord(fracPos r3.Vec) [3]int {
	comp := [3]float64{fracPos.X, fracPos.Y, fracPos.Z}
	var c [3]int
	for axis, x := range comp {
		if x < 0 || x >= 1 {
			panic(fmt.Sprintf("grid: fractional coordinate %v out of [0,1) on axis %d", x, axis))
		}
		idx := int(x * float64(g.counts[axis]))
		if idx >= g.counts[axis] {
			idx = g.counts[axis] - 1
		}
		c[axis] = idx
	}
	return c
}

func (g *Grid) flat(c [3]int) int {
	return c[0] + c[1]*g.counts[0] + c[2]*g.counts[0]*g.counts[1]
}

// Add inserts idx into the cell containing fracPos. Safe to call
// concurrently with Add/Remove/Move for a different idx, provided the
// target cells never coincide.
func (g *Grid) Add(idx int, fracPos r3.Vec) {
	c := g.cellCoord(fracPos)
	flat := g.flat(c)
	g.cells[flat] = append(g.cells[flat], idx)
	g.cellOf[idx] = c
	g.present[idx] = true
}

// Remove deletes idx from the grid. idx must have been previously added.
func (g *Grid) Remove(idx int) {
	if !g.present[idx] {
		panic(fmt.Sprintf("grid: remove of unknown index %d", idx))
	}
	c := g.cellOf[idx]
	flat := g.flat(c)
	bucket := g.cells[flat]
	for i, v := range bucket {
		if v == idx {
			bucket[i] = bucket[len(bucket)-1]
			g.cells[flat] = bucket[:len(bucket)-1]
			break
		}
	}
	g.present[idx] = false
}

// Move relocates idx to the cell containing newFracPos, a no-op on the
// bucket contents if the particle's cell didn't change.
func (g *Grid) Move(idx int, newFracPos r3.Vec) {
	if !g.present[idx] {
		panic(fmt.Sprintf("grid: move of unknown index %d", idx))
	}
	old := g.cellOf[idx]
	next := g.cellCoord(newFracPos)
	if next == old {
		return
	}
	g.Remove(idx)
	g.Add(idx, newFracPos)
}

// CellOf returns the cell coordinate idx currently occupies.
func (g *Grid) CellOf(idx int) ([3]int, bool) {
	if !g.present[idx] {
		return [3]int{}, false
	}
	return g.cellOf[idx], true
}

// Neighbours returns the concatenation of particle indices from the 27
// cells centred on fracPos's cell. Convenience wrapper over
// AppendNeighbours; allocates a fresh slice each call.
func (g *Grid) Neighbours(fracPos r3.Vec) []int {
	return g.AppendNeighbours(nil, fracPos)
}

// AppendNeighbours appends to dst the particle indices from the 27 cells
// centred on fracPos's cell and returns the extended slice. This is the
// hot-path form: callers reuse a scratch slice across trials to avoid
// allocating in the per-particle move loop.
func (g *Grid) AppendNeighbours(dst []int, fracPos r3.Vec) []int {
	center := g.cellCoord(fracPos)
	for dz := -1; dz <= 1; dz++ {
		z := g.wrap[2][center[2]+dz+1]
		for dy := -1; dy <= 1; dy++ {
			y := g.wrap[1][center[1]+dy+1]
			for dx := -1; dx <= 1; dx++ {
				x := g.wrap[0][center[0]+dx+1]
				dst = append(dst, g.cells[g.flat([3]int{x, y, z})]...)
			}
		}
	}
	return dst
}

// Resize recomputes the cell layout for new counts and clears all
// contents; the caller must re-insert every particle. If counts are
// unchanged from the current layout, the bucket slices are only cleared,
// never reallocated (spec §4.2). Resize must never run concurrently with
// Add/Remove/Move — it belongs to the sequential portion of a cycle,
// between domain-decomposed phases.
func (g *Grid) Resize(counts [3]int) error {
	for axis, c := range counts {
		if c < 3 {
			return fmt.Errorf("grid: axis %d has %d cells, need >= 3", axis, c)
		}
	}

	if counts == g.counts {
		for i := range g.cells {
			g.cells[i] = g.cells[i][:0]
		}
		for i := range g.present {
			g.present[i] = false
		}
		return nil
	}

	g.counts = counts
	g.rebuildWrapTables()
	g.cells = make([][]int, counts[0]*counts[1]*counts[2])
	for i := range g.present {
		g.present[i] = false
	}
	return nil
}
