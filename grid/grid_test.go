package grid

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewRejectsFewerThanThreeCells(t *testing.T) {
	_, err := New([3]int{2, 4, 4}, 8)
	assert.Error(t, err)
}

func TestForRangeRefusesTooLargeCellSize(t *testing.T) {
	_, err := ForRange(r3.Vec{X: 10, Y: 10, Z: 10}, 4, 8) // floor(10/4)=2 < 3
	assert.Error(t, err)
}

func TestAddAndNeighboursFindsSameCellOccupant(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)

	g.Add(0, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	g.Add(1, r3.Vec{X: 0.15, Y: 0.1, Z: 0.1})

	n := g.Neighbours(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	assert.ElementsMatch(t, []int{0, 1}, n)
}

func TestNeighboursWrapsAcrossBoundary(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)

	// cell 0 along x is [0, 0.25); cell 3 is [0.75, 1). They are adjacent
	// under periodic wrap, so a particle just inside the far cell must
	// appear in the near cell's neighbourhood.
	g.Add(0, r3.Vec{X: 0.99, Y: 0.1, Z: 0.1})
	n := g.Neighbours(r3.Vec{X: 0.01, Y: 0.1, Z: 0.1})
	assert.Contains(t, n, 0)
}

func TestRemoveDeletesFromBucket(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)

	g.Add(0, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	g.Add(1, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	g.Remove(0)

	n := g.Neighbours(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	assert.Equal(t, []int{1}, n)
}

func TestMoveRelocatesAcrossCells(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)

	// Cell 2 is the one cell per axis not adjacent to cell 0 under the
	// 4-cell periodic wrap.
	g.Add(0, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	g.Move(0, r3.Vec{X: 0.6, Y: 0.6, Z: 0.6})

	c, ok := g.CellOf(0)
	require.True(t, ok)
	assert.Equal(t, [3]int{2, 2, 2}, c)

	n := g.Neighbours(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	assert.NotContains(t, n, 0)
}

func TestMoveWithinSameCellIsNoOp(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)

	g.Add(0, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	g.Move(0, r3.Vec{X: 0.11, Y: 0.1, Z: 0.1})

	c, _ := g.CellOf(0)
	assert.Equal(t, [3]int{0, 0, 0}, c)
}

func TestAddOutOfRangeFractionalPanics(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)

	assert.Panics(t, func() {
		g.Add(0, r3.Vec{X: 1.5, Y: 0, Z: 0})
	})
}

func TestResizeSameCountsClearsWithoutReallocating(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)
	g.Add(0, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})

	before := g.cells
	require.NoError(t, g.Resize([3]int{4, 4, 4}))

	assert.Same(t, &before[0], &g.cells[0])
	n := g.Neighbours(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	assert.Empty(t, n)
}

func TestResizeDifferentCountsReallocates(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)
	require.NoError(t, g.Resize([3]int{5, 5, 5}))
	assert.Equal(t, [3]int{5, 5, 5}, g.CellCounts())
}

func TestAppendNeighboursReusesScratch(t *testing.T) {
	g, err := New([3]int{4, 4, 4}, 8)
	require.NoError(t, err)
	g.Add(0, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	g.Add(5, r3.Vec{X: 0.6, Y: 0.6, Z: 0.6}) // cell 2: outside cell 0's neighbourhood

	scratch := make([]int, 0, 8)
	scratch = g.AppendNeighbours(scratch, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	sort.Ints(scratch)
	assert.Equal(t, []int{0}, scratch)
	assert.Equal(t, 8, cap(scratch), "appending within capacity must reuse the scratch backing array")
}

func TestConcurrentAddToDisjointCellsIsRace_free(t *testing.T) {
	g, err := New([3]int{8, 8, 8}, 2)
	require.NoError(t, err)

	done := make(chan struct{}, 2)
	go func() {
		g.Add(0, r3.Vec{X: 0.01, Y: 0.01, Z: 0.01})
		done <- struct{}{}
	}()
	go func() {
		g.Add(1, r3.Vec{X: 0.99, Y: 0.99, Z: 0.99})
		done <- struct{}{}
	}()
	<-done
	<-done

	_, ok0 := g.CellOf(0)
	_, ok1 := g.CellOf(1)
	assert.True(t, ok0)
	assert.True(t, ok1)
}
