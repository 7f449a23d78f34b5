package packing

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Oolcik/rampack/box"
	"github.com/Oolcik/rampack/geom"
	"github.com/Oolcik/rampack/grid"
)

// Rejected is the sentinel energy change returned for a trial that must
// never be accepted: a hard overlap was created, or the trial fell
// outside its active domain before any state was touched. exp(-Rejected/T)
// underflows to 0 for any positive T, so the driver's ordinary Metropolis
// test rejects it without a special case.
var Rejected = math.Inf(1)

// Trial is a single outstanding mutation: state described by Try* is
// already applied, and the caller must resolve it with Accept or Revert
// before the same particle (or the box, for a scaling trial) is touched
// again. Each Trial is a private handle, not packing-wide state, so
// distinct particles can have independent trials outstanding at once --
// the precondition domain-decomposed concurrent move proposals rely on.
type Trial struct {
	p       *Packing
	kind    string
	idx     int
	applied bool // false only for a domain-rejected, degenerate-box, or too-few-grid-cells trial
	done    bool

	oldPos, newPos       r3.Vec
	oldOrient, newOrient geom.Orientation
	overlapDelta         int
	energyDelta          float64

	oldBox         *box.Box
	oldCellCount   [3]int
	oldOverlap     int
	oldEnergyTotal float64

	// Scratch is the neighbour-query buffer used (and grown) by this
	// trial; reuse it as the scratch argument to the next Try* call on
	// the same goroutine to avoid reallocating every move.
	Scratch []int
}

// OverlapDelta returns the change in overlap count this trial itself
// caused, independent of any other trial concurrently mutating the
// packing-wide atomic counter.
func (t *Trial) OverlapDelta() int { return t.overlapDelta }

// Accept commits a trial: since Try already mutated state in place, this
// only marks the trial resolved. Panics if the trial was already resolved.
// Accept does not check whether the trial's returned ΔE was Rejected;
// accepting such a trial keeps whatever state its Try call applied.
func (t *Trial) Accept() {
	t.guardUnresolved()
	t.done = true
}

// Revert undoes a trial's effect, restoring the packing to its state
// before the corresponding Try* call.
func (t *Trial) Revert() {
	t.guardUnresolved()
	t.done = true
	if !t.applied {
		return
	}

	p := t.p
	switch t.kind {
	case "scale":
		p.bx.RestoreFrom(t.oldBox)
		if err := p.grd.Resize(t.oldCellCount); err != nil {
			panic("packing: revert could not restore neighbour grid: " + err.Error())
		}
		p.rebuilds++
		for i := range p.shapes {
			p.grd.Add(i, p.shapes[i].Pos)
		}
		atomic.StoreInt64(&p.overlapCount, int64(t.oldOverlap))
		p.setEnergy(t.oldEnergyTotal)
	default:
		p.grd.Move(t.idx, t.oldPos)
		p.shapes[t.idx] = Shape{Pos: t.oldPos, Orient: t.oldOrient}
		atomic.AddInt64(&p.overlapCount, -int64(t.overlapDelta))
		if p.traits.HasSoftPart() {
			p.addEnergy(-t.energyDelta)
		}
	}
}

func (t *Trial) guardUnresolved() {
	if t.done {
		panic("packing: trial already resolved with Accept or Revert")
	}
}

// TryTranslation proposes moving particle idx by delta (absolute
// coordinates). If active is non-nil and the destination's fractional
// position falls outside it, the trial is rejected without mutating
// anything (the domain worker is expected to treat this identically to
// any other Metropolis rejection).
func (p *Packing) TryTranslation(idx int, delta r3.Vec, active ActiveRegion, scratch []int) (*Trial, float64) {
	return p.tryMove(idx, delta, geom.Identity(), false, active, scratch)
}

// TryRotation proposes replacing particle idx's orientation R with rot*R.
func (p *Packing) TryRotation(idx int, rot geom.Orientation, scratch []int) (*Trial, float64) {
	return p.tryMove(idx, r3.Vec{}, rot, true, nil, scratch)
}

// TryMove proposes a combined translation and rotation, cheaper than
// calling TryTranslation and TryRotation separately since it scans each
// neighbour only once per pose.
func (p *Packing) TryMove(idx int, delta r3.Vec, rot geom.Orientation, active ActiveRegion, scratch []int) (*Trial, float64) {
	return p.tryMove(idx, delta, rot, true, active, scratch)
}

func (p *Packing) tryMove(idx int, delta r3.Vec, rot geom.Orientation, rotates bool, active ActiveRegion, scratch []int) (*Trial, float64) {
	old := p.shapes[idx]

	newPos := old.Pos
	if delta != (r3.Vec{}) {
		newPos = box.FoldFractional(r3.Add(old.Pos, p.bx.ToFractional(delta)))
	}
	newOrient := old.Orient
	if rotates {
		newOrient = rot.Mul(old.Orient)
	}

	t := &Trial{p: p, kind: "move", idx: idx, oldPos: old.Pos, oldOrient: old.Orient, newPos: newPos, newOrient: newOrient}

	// Both the pre- and post-move pose must stay inside the active domain:
	// the old pose is what the neighbour scan below reads first, and a
	// particle sitting in the halo (bucketed into this region but outside
	// its contracted active domain) would otherwise let that scan reach
	// into a concurrently-mutating neighbour's cells.
	if active != nil && (!active.Contains(old.Pos) || !active.Contains(newPos)) {
		t.Scratch = scratch
		return t, Rejected
	}

	buf := scratch[:0]
	buf = p.grd.AppendNeighbours(buf, old.Pos)
	oldOverlaps, oldEnergy := p.scanPair(old.Pos, old.Orient, idx, buf)

	p.grd.Move(idx, newPos)
	p.shapes[idx] = Shape{Pos: newPos, Orient: newOrient}

	buf = p.grd.AppendNeighbours(buf[:0], newPos)
	newOverlaps, newEnergy := p.scanPair(newPos, newOrient, idx, buf)

	delta2 := newOverlaps - oldOverlaps
	atomic.AddInt64(&p.overlapCount, int64(delta2))

	dEnergy := newEnergy - oldEnergy
	if p.traits.HasSoftPart() {
		p.addEnergy(dEnergy)
	}

	t.applied = true
	t.overlapDelta = delta2
	t.energyDelta = dEnergy
	t.Scratch = buf

	if p.traits.HasHardPart() && delta2 > 0 {
		return t, Rejected
	}
	return t, dEnergy
}

// TryScalingDiag proposes an axis-aligned box rescale: edges' diagonal
// multiplied by (sx, sy, sz). Fractional particle positions are
// unchanged; every particle's metric neighbourhood is rebuilt since
// absolute separations shift for every pair, not just one particle.
func (p *Packing) TryScalingDiag(sx, sy, sz float64, scratch []int) (*Trial, float64) {
	s := mat.NewDense(3, 3, []float64{sx, 0, 0, 0, sy, 0, 0, 0, sz})
	return p.tryScaling(s, scratch)
}

// TryScalingMatrix proposes a general (possibly non-diagonal) box
// rescale B <- S*B, for a TriclinicVolumeScaler.
func (p *Packing) TryScalingMatrix(s *mat.Dense, scratch []int) (*Trial, float64) {
	return p.tryScaling(s, scratch)
}

func (p *Packing) tryScaling(s *mat.Dense, scratch []int) (*Trial, float64) {
	t := &Trial{
		p:              p,
		kind:           "scale",
		oldBox:         p.bx.Clone(),
		oldCellCount:   p.grd.CellCounts(),
		oldOverlap:     p.OverlapCount(),
		oldEnergyTotal: p.TotalEnergy(),
	}

	oldEnergy := t.oldEnergyTotal

	if err := p.bx.Rescale(s); err != nil {
		t.Scratch = scratch
		return t, Rejected // degenerate result; box untouched by box.Rescale on error
	}

	wantCounts := grid.CellCountsFor(p.bx.EdgeLengths(), p.rangeRadius)
	for _, c := range wantCounts {
		if c < 3 {
			// Irrecoverable-during-construction per spec, but mid-run this
			// is just a rejected move: restore the box and stop here.
			p.bx.RestoreFrom(t.oldBox)
			t.Scratch = scratch
			return t, Rejected
		}
	}

	if err := p.grd.Resize(wantCounts); err != nil {
		// Unreachable: wantCounts was just validated above against the
		// same axis>=3 rule Resize enforces.
		panic("packing: grid resize rejected already-validated cell counts: " + err.Error())
	}
	p.rebuilds++
	for i := range p.shapes {
		p.grd.Add(i, p.shapes[i].Pos)
	}

	newOverlap := p.bruteOverlapCount(scratch)
	atomic.StoreInt64(&p.overlapCount, int64(newOverlap))
	newEnergy := p.totalEnergy(scratch)
	p.setEnergy(newEnergy)
	t.applied = true
	t.overlapDelta = newOverlap - t.oldOverlap
	t.Scratch = scratch

	if p.traits.HasHardPart() && newOverlap > t.oldOverlap {
		return t, Rejected
	}
	return t, newEnergy - oldEnergy
}
