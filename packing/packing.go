// Package packing owns the one piece of mutable state a Monte Carlo move
// actually touches: the particle array, the box it lives in, and the
// neighbour grid that makes overlap queries cheap. It exposes a
// trial/commit/revert contract (see trial.go) so the driver never has to
// reapply an inverse move by hand on rejection.
package packing

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Oolcik/rampack/box"
	"github.com/Oolcik/rampack/grid"
	"github.com/Oolcik/rampack/interaction"

	"github.com/Oolcik/rampack/geom"
)

// Shape is one particle's pose: fractional position and orientation
// relative to the box basis.
type Shape struct {
	Pos    r3.Vec
	Orient geom.Orientation
}

// ActiveRegion restricts where a translation/move trial is allowed to
// land, in fractional coordinates. Defined here rather than imported from
// a domain-decomposition package so packing has no upward dependency;
// domain.Region satisfies this interface.
type ActiveRegion interface {
	Contains(frac r3.Vec) bool
}

// Packing is N oriented particles in a periodic triclinic Box, backed by
// a neighbour Grid sized to the traits' interaction range.
type Packing struct {
	shapes []Shape
	traits interaction.ShapeTraits
	bx     *box.Box
	bc     *box.BoundaryConditions
	grd    *grid.Grid

	rangeRadius float64

	overlapCount int64 // atomic: written from concurrent domain workers

	// energyTotal is the running soft-interaction energy, kept in step
	// with overlapCount: each accepted trial folds its ΔE in rather than
	// recomputing from scratch. Guarded by energyMu instead of an atomic
	// since float64 has no atomic add in this Go version.
	energyMu    sync.Mutex
	energyTotal float64

	rebuilds        int   // grid layout rebuilds; sequential-phase only
	neighbourQuerys int64 // atomic
	neighbourTotal  int64 // atomic
}

// New builds a packing from initial particle poses. Positions are taken
// in absolute coordinates and converted to fractional internally. An
// overlapping initial configuration is not refused: New counts its
// overlapping pairs into OverlapCount, so a caller can pull them out with
// RelaxOverlaps before sampling.
func New(bx *box.Box, traits interaction.ShapeTraits, positions []r3.Vec, orients []geom.Orientation) (*Packing, error) {
	if len(positions) != len(orients) {
		return nil, fmt.Errorf("packing: %d positions but %d orientations", len(positions), len(orients))
	}
	n := len(positions)

	g, err := grid.ForRange(bx.EdgeLengths(), traits.RangeRadius(), n)
	if err != nil {
		return nil, fmt.Errorf("packing: %w", err)
	}

	p := &Packing{
		shapes:      make([]Shape, n),
		traits:      traits,
		bx:          bx,
		bc:          box.NewBoundaryConditions(bx),
		grd:         g,
		rangeRadius: traits.RangeRadius(),
	}
	for i := range positions {
		frac := box.FoldFractional(bx.ToFractional(positions[i]))
		p.shapes[i] = Shape{Pos: frac, Orient: orients[i]}
		p.grd.Add(i, frac)
	}
	p.overlapCount = int64(p.bruteOverlapCount(make([]int, 0, n)))
	if traits.HasSoftPart() {
		p.energyTotal = p.totalEnergy(make([]int, 0, n))
	}
	return p, nil
}

// N returns the particle count.
func (p *Packing) N() int { return len(p.shapes) }

// Box returns the packing's box. Callers must not mutate it directly;
// all box changes go through TryScalingDiag or TryScalingMatrix.
func (p *Packing) Box() *box.Box { return p.bx }

// Shape returns the current pose of particle idx.
func (p *Packing) Shape(idx int) Shape { return p.shapes[idx] }

// AbsolutePosition returns particle idx's position in absolute
// coordinates.
func (p *Packing) AbsolutePosition(idx int) r3.Vec {
	return p.bx.ToAbsolute(p.shapes[idx].Pos)
}

// OverlapCount returns the cached total number of overlapping pairs. It
// reflects any trial currently pending (a Try call updates it eagerly;
// Revert restores it). The driver's relaxation-mode acceptance rule does
// not read this packing-wide count; it uses the trial's own
// Trial.OverlapDelta, which concurrent trials cannot disturb.
func (p *Packing) OverlapCount() int {
	return int(atomic.LoadInt64(&p.overlapCount))
}

// TotalEnergy returns the running soft-interaction energy total, kept
// incrementally in step with every accepted trial. Matches
// traits.HasSoftPart()==false as a constant 0.
func (p *Packing) TotalEnergy() float64 {
	p.energyMu.Lock()
	defer p.energyMu.Unlock()
	return p.energyTotal
}

func (p *Packing) addEnergy(delta float64) {
	p.energyMu.Lock()
	p.energyTotal += delta
	p.energyMu.Unlock()
}

func (p *Packing) setEnergy(total float64) {
	p.energyMu.Lock()
	p.energyTotal = total
	p.energyMu.Unlock()
}

// BruteForceTotalEnergy recomputes the soft energy total from scratch,
// for a caller (a property test, a sanity check) that wants to verify
// TotalEnergy hasn't drifted from the true value.
func (p *Packing) BruteForceTotalEnergy() float64 {
	return p.totalEnergy(make([]int, 0, p.N()))
}

// BruteForceOverlapCount recomputes the overlap count from scratch, for
// the same purpose as BruteForceTotalEnergy.
func (p *Packing) BruteForceOverlapCount() int {
	return p.bruteOverlapCount(make([]int, 0, p.N()))
}

// CellCounts returns the neighbour grid's current per-axis cell counts,
// for a caller (the domain decomposition) that needs to size its regions
// against the same grid the packing uses internally.
func (p *Packing) CellCounts() [3]int { return p.grd.CellCounts() }

// NeighbourGridRebuilds returns how many times the neighbour grid has been
// cleared and re-populated (by a box-scaling trial or by its Revert) since
// the last ResetCounters, whether or not its cell layout changed.
func (p *Packing) NeighbourGridRebuilds() int { return p.rebuilds }

// AverageNumberOfNeighbours returns the mean bucket-query size observed
// since the last ResetCounters, a diagnostic for tuning the neighbour
// grid's minimum cell size.
func (p *Packing) AverageNumberOfNeighbours() float64 {
	queries := atomic.LoadInt64(&p.neighbourQuerys)
	if queries == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&p.neighbourTotal)) / float64(queries)
}

// ResetCounters zeroes the rebuild and neighbour-query diagnostics. Does
// not touch OverlapCount, which is a physical invariant, not a counter.
func (p *Packing) ResetCounters() {
	p.rebuilds = 0
	atomic.StoreInt64(&p.neighbourQuerys, 0)
	atomic.StoreInt64(&p.neighbourTotal, 0)
}

// scanPair counts overlaps and (if traits.HasSoftPart) accumulates soft
// energy between particle idx at the given trial pose and every other
// particle in neighbours. idx itself is skipped if present in neighbours.
func (p *Packing) scanPair(pos r3.Vec, orient geom.Orientation, idx int, neighbours []int) (overlaps int, energy float64) {
	absPos := p.bx.ToAbsolute(pos)
	soft := p.traits.HasSoftPart()
	for _, j := range neighbours {
		if j == idx {
			continue
		}
		other := p.shapes[j]
		absOther := p.bx.ToAbsolute(other.Pos)
		if p.traits.OverlapBetween(absPos, orient, idx, absOther, other.Orient, j, p.bc) {
			overlaps++
		}
		if soft {
			energy += p.traits.EnergyBetween(absPos, orient, idx, absOther, other.Orient, j, p.bc)
		}
	}
	atomic.AddInt64(&p.neighbourQuerys, 1)
	atomic.AddInt64(&p.neighbourTotal, int64(len(neighbours)))
	return overlaps, energy
}

// bruteOverlapCount recomputes the total overlap count from scratch by
// scanning every particle's neighbour-grid bucket. Used after a box
// rescale, where every pair's metric (though not fractional) separation
// changes and the incremental single-particle delta no longer applies.
func (p *Packing) bruteOverlapCount(scratch []int) int {
	total := 0
	for i := range p.shapes {
		buf := p.grd.AppendNeighbours(scratch[:0], p.shapes[i].Pos)
		for _, j := range buf {
			if j <= i {
				continue // count each unordered pair once
			}
			si, sj := p.shapes[i], p.shapes[j]
			if p.traits.OverlapBetween(p.bx.ToAbsolute(si.Pos), si.Orient, i, p.bx.ToAbsolute(sj.Pos), sj.Orient, j, p.bc) {
				total++
			}
		}
		scratch = buf
	}
	return total
}

// totalEnergy sums the soft energy over every pair in the packing, using
// the same each-unordered-pair-once convention as bruteOverlapCount.
func (p *Packing) totalEnergy(scratch []int) float64 {
	if !p.traits.HasSoftPart() {
		return 0
	}
	var total float64
	for i := range p.shapes {
		buf := p.grd.AppendNeighbours(scratch[:0], p.shapes[i].Pos)
		for _, j := range buf {
			if j <= i {
				continue
			}
			si, sj := p.shapes[i], p.shapes[j]
			total += p.traits.EnergyBetween(p.bx.ToAbsolute(si.Pos), si.Orient, i, p.bx.ToAbsolute(sj.Pos), sj.Orient, j, p.bc)
		}
		scratch = buf
	}
	return total
}
