// Package mc drives NpT Metropolis sampling over a packing.Packing:
// per-cycle move proposals, the domain-decomposed concurrent particle
// sweep, adaptive step-size control, and the two run modes (ordinary
// Integrate sampling and RelaxOverlaps for pulling an over-packed start
// down to zero overlaps).
package mc

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Oolcik/rampack/domain"
	"github.com/Oolcik/rampack/geom"
	"github.com/Oolcik/rampack/interaction"
	"github.com/Oolcik/rampack/packing"
)

// Driver owns everything a run needs beyond the packing itself: the
// thermodynamic point, the move-proposal distributions, the domain
// decomposition, and the counters the adaptive step control reads.
type Driver struct {
	cfg     Config
	pack    *packing.Packing
	scaler  interaction.VolumeScaler
	tri     interaction.TriclinicVolumeScaler // non-nil if scaler also implements it
	decomp  *domain.Decomposition
	log     *logrus.Logger
	obs     ObservablesCollector
	counter MoveCounters
	timers  Timers

	translationStep float64
	rotationStep    float64
	boxStep         float64

	cycle int
}

// New builds a Driver over an existing packing. scaler may be nil, in
// which case every cycle is a pure NVT particle sweep with no box move
// (the cycle's unconditional box-move phase is skipped entirely). log
// may be nil, in which case a logrus.Logger with default settings is
// used.
func New(cfg Config, pack *packing.Packing, scaler interaction.VolumeScaler, log *logrus.Logger, obs ObservablesCollector) (*Driver, error) {
	if log == nil {
		log = logrus.New()
	}
	if obs == nil {
		obs = ObservablesFunc(func(int, *packing.Packing, *MoveCounters) {})
	}

	d, err := domain.New(cfg.DomainCounts, pack.CellCounts())
	if err != nil {
		return nil, fmt.Errorf("mc: %w", err)
	}

	tri, _ := scaler.(interaction.TriclinicVolumeScaler)

	return &Driver{
		cfg:             cfg,
		pack:            pack,
		scaler:          scaler,
		tri:             tri,
		decomp:          d,
		log:             log,
		obs:             obs,
		translationStep: cfg.TranslationStep,
		rotationStep:    cfg.RotationStep,
		boxStep:         cfg.BoxStep,
	}, nil
}

// Counters exposes the running move-acceptance tallies.
func (d *Driver) Counters() *MoveCounters { return &d.counter }

// Timers exposes the cumulative per-phase wall-clock timings.
func (d *Driver) Timers() *Timers { return &d.timers }

// Packing exposes the driven packing, e.g. for the caller to snapshot it.
func (d *Driver) Packing() *packing.Packing { return d.pack }

// Integrate runs n ordinary Metropolis cycles: a move is accepted iff it
// doesn't increase the cached overlap count and passes the soft-part
// Metropolis test. Returns early with an error if ctx is cancelled.
func (d *Driver) Integrate(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		elapsed := cycleWallClock(func() { d.runCycle(ordinaryAcceptance) })
		d.log.WithFields(logrus.Fields{"cycle": d.cycle, "elapsed": elapsed, "overlaps": d.pack.OverlapCount()}).Debug("cycle complete")
		d.obs.Observe(d.cycle, d.pack, &d.counter)
		d.cycle++
	}
	return nil
}

// RelaxOverlaps runs cycles under the relaxed acceptance rule -- any move
// that strictly decreases the overlap count is forced through regardless
// of its soft-part energy, on top of the ordinary rule otherwise -- until
// the overlap count reaches zero or maxCycles is exhausted. Returns
// whether zero overlaps was reached.
func (d *Driver) RelaxOverlaps(ctx context.Context, maxCycles int) (bool, error) {
	for i := 0; i < maxCycles; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if d.pack.OverlapCount() == 0 {
			return true, nil
		}
		elapsed := cycleWallClock(func() { d.runCycle(relaxAcceptance) })
		d.log.WithFields(logrus.Fields{"cycle": d.cycle, "elapsed": elapsed, "overlaps": d.pack.OverlapCount()}).Debug("relax cycle complete")
		d.obs.Observe(d.cycle, d.pack, &d.counter)
		d.cycle++
	}
	return d.pack.OverlapCount() == 0, nil
}

// acceptance decides whether a trial with the given overlap-count change
// and soft-part ΔE should be accepted, given the RNG draw u in
// [0,1). Both run modes share the same Metropolis machinery; only this
// decision differs.
type acceptanceRule func(overlapDelta int, deltaE, temperature, u float64) bool

func ordinaryAcceptance(_ int, deltaE, temperature, u float64) bool {
	if math.IsInf(deltaE, 1) {
		return false
	}
	if deltaE <= 0 {
		return true
	}
	return u < math.Exp(-deltaE/temperature)
}

// relaxAcceptance forces through any move that strictly decreases the
// overlap count this trial itself caused -- overlapDelta, not a
// before/after read of the packing-wide atomic counter, which under
// D>1 concurrency also reflects other workers' concurrent trials.
func relaxAcceptance(overlapDelta int, deltaE, temperature, u float64) bool {
	if overlapDelta < 0 {
		return true
	}
	return ordinaryAcceptance(overlapDelta, deltaE, temperature, u)
}

func (d *Driver) runCycle(rule acceptanceRule) {
	d.timers.recordParticle(cycleWallClock(func() { d.sweepParticles(rule) }))
	d.maybeAdjustParticleSteps()

	if d.scaler != nil {
		rng := domainRNG(d.cfg.Seed, d.cycle, -2)
		d.timers.recordBox(cycleWallClock(func() { d.attemptBoxMove(rng, rule) }))
		d.maybeAdjustBoxStep()
	}
}

// sweepParticles reseeds the decomposition, partitions particles into
// their owning regions, and lets one goroutine per region attempt a move
// for each of its particles concurrently (spec §5).
func (d *Driver) sweepParticles(rule acceptanceRule) {
	masterRNG := domainRNG(d.cfg.Seed, d.cycle, -1)
	d.decomp.Reseed(masterRNG)

	regionCount := d.decomp.Count()
	buckets := make([][]int, regionCount)
	for i := 0; i < d.pack.N(); i++ {
		frac := d.pack.Shape(i).Pos
		r := d.decomp.RegionIndexOf(frac)
		buckets[r] = append(buckets[r], i)
	}

	var wg sync.WaitGroup
	for region := 0; region < regionCount; region++ {
		particles := buckets[region]
		if len(particles) == 0 {
			continue
		}
		wg.Add(1)
		go func(region int, particles []int) {
			defer wg.Done()
			d.sweepRegion(region, particles, rule)
		}(region, particles)
	}
	wg.Wait()
}

func (d *Driver) sweepRegion(region int, particles []int, rule acceptanceRule) {
	rng := domainRNG(d.cfg.Seed, d.cycle, region)
	var active packing.ActiveRegion
	if d.decomp.Count() > 1 {
		active = d.decomp.ActiveRegion(region)
	}
	var scratch []int

	for _, idx := range particles {
		switch rng.Intn(3) {
		case 0:
			scratch = d.attemptTranslation(idx, rng, active, rule, scratch)
		case 1:
			scratch = d.attemptRotation(idx, rng, rule, scratch)
		default:
			scratch = d.attemptCombinedMove(idx, rng, active, rule, scratch)
		}
	}
}

func (d *Driver) attemptTranslation(idx int, rng *rand.Rand, active packing.ActiveRegion, rule acceptanceRule, scratch []int) []int {
	delta := randomDisplacement(rng, d.translationStep)
	trial, dE := d.pack.TryTranslation(idx, delta, active, scratch)
	accepted := rule(trial.OverlapDelta(), dE, d.cfg.Temperature, rng.Float64())
	resolve(trial, accepted)
	d.counter.recordTranslation(accepted)
	return trial.Scratch
}

func (d *Driver) attemptRotation(idx int, rng *rand.Rand, rule acceptanceRule, scratch []int) []int {
	rot := geom.AxisAngle(geom.RandomUnitVector(rng), geom.ClampAngle((rng.Float64()*2-1)*d.rotationStep))
	trial, dE := d.pack.TryRotation(idx, rot, scratch)
	accepted := rule(trial.OverlapDelta(), dE, d.cfg.Temperature, rng.Float64())
	resolve(trial, accepted)
	d.counter.recordRotation(accepted)
	return trial.Scratch
}

func (d *Driver) attemptCombinedMove(idx int, rng *rand.Rand, active packing.ActiveRegion, rule acceptanceRule, scratch []int) []int {
	delta := randomDisplacement(rng, d.translationStep)
	rot := geom.AxisAngle(geom.RandomUnitVector(rng), geom.ClampAngle((rng.Float64()*2-1)*d.rotationStep))
	trial, dE := d.pack.TryMove(idx, delta, rot, active, scratch)
	accepted := rule(trial.OverlapDelta(), dE, d.cfg.Temperature, rng.Float64())
	resolve(trial, accepted)
	d.counter.recordMove(accepted)
	return trial.Scratch
}

func (d *Driver) attemptBoxMove(rng *rand.Rand, rule acceptanceRule) {
	dims := d.pack.Box().EdgeLengths()
	volBefore := d.pack.Box().Volume()

	var trial *packing.Trial
	var dE float64
	if d.tri != nil {
		s := d.tri.SampleScalingMatrix(dims, d.boxStep, rng)
		trial, dE = d.pack.TryScalingMatrix(s, nil)
	} else {
		fx, fy, fz := d.scaler.SampleScalingFactors(dims, d.boxStep, rng)
		trial, dE = d.pack.TryScalingDiag(fx, fy, fz, nil)
	}

	// The NpT ensemble weight includes the volume Jacobian and PΔV terms
	// on top of ΔE; fold them in before the acceptance rule sees it. Both
	// volumes are the true |det B|, not the edge-length product, since the
	// box may be triclinic.
	n := float64(d.pack.N())
	volAfter := d.pack.Box().Volume()
	weighted := dE + d.cfg.Pressure*(volAfter-volBefore) - n*d.cfg.Temperature*math.Log(volAfter/volBefore)

	accepted := rule(trial.OverlapDelta(), weighted, d.cfg.Temperature, rng.Float64())
	resolve(trial, accepted)
	d.counter.recordBox(accepted)
}

func resolve(trial *packing.Trial, accepted bool) {
	if accepted {
		trial.Accept()
	} else {
		trial.Revert()
	}
}

func randomDisplacement(rng *rand.Rand, step float64) r3.Vec {
	return r3.Scale(step, geom.RandomUnitVector(rng))
}

// maybeAdjustParticleSteps re-evaluates the translation and rotation step
// sizes every cfg.ParticleWindowMultiplier*N particle-move attempts
// (spec §4.6.2), growing or shrinking them to steer the acceptance rate
// into [low, high]. Neither step grows if the grown translation step would
// exceed the box's shortest edge.
func (d *Driver) maybeAdjustParticleSteps() {
	window := int64(d.cfg.ParticleWindowMultiplier) * int64(d.pack.N())
	attempts := d.counter.translationsAttempted + d.counter.rotationsAttempted + d.counter.movesAttempted
	if attempts < window {
		return
	}
	acceptance := d.combinedParticleAcceptance()
	tooLong := d.translationStep*d.cfg.StepAdjustFactor > d.pack.Box().MinEdgeLength()
	if acceptance <= d.cfg.AcceptanceHighWatermark || !tooLong {
		d.translationStep = adjustStep(d.translationStep, acceptance, d.cfg)
		d.rotationStep = clampRotationStep(adjustStep(d.rotationStep, acceptance, d.cfg))
	}
	d.counter.resetParticle()
}

func (d *Driver) combinedParticleAcceptance() float64 {
	accepted := d.counter.translationsAccepted + d.counter.rotationsAccepted + d.counter.movesAccepted
	attempted := d.counter.translationsAttempted + d.counter.rotationsAttempted + d.counter.movesAttempted
	return ratio(accepted, attempted)
}

// maybeAdjustBoxStep is the box-move analogue, re-evaluated every
// cfg.BoxWindowSize attempts.
func (d *Driver) maybeAdjustBoxStep() {
	if d.counter.boxAttempted < int64(d.cfg.BoxWindowSize) {
		return
	}
	d.boxStep = adjustStep(d.boxStep, d.counter.BoxAcceptance(), d.cfg)
	d.counter.resetBox()
}

func adjustStep(step, acceptance float64, cfg Config) float64 {
	switch {
	case acceptance < cfg.AcceptanceLowWatermark:
		return step / cfg.StepAdjustFactor
	case acceptance > cfg.AcceptanceHighWatermark:
		return step * cfg.StepAdjustFactor
	default:
		return step
	}
}

func clampRotationStep(step float64) float64 {
	if step > math.Pi {
		return math.Pi
	}
	return step
}

// cycleWallClock times fn: a whole cycle for the per-cycle debug log line,
// or one phase of a cycle for Timers.
func cycleWallClock(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}
