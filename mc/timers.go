package mc

import (
	"sync/atomic"
	"time"
)

// Timers accumulates wall-clock time spent in the particle-move phase
// versus the box-move phase across a run, so a caller can report
// per-phase throughput the way the adaptive controller reports
// acceptance rates. Updated from whichever goroutine runs runCycle;
// plain int64 nanosecond counters under atomic ops, same convention as
// MoveCounters.
type Timers struct {
	particleNanos int64
	boxNanos      int64
}

func (t *Timers) recordParticle(d time.Duration) { atomic.AddInt64(&t.particleNanos, int64(d)) }
func (t *Timers) recordBox(d time.Duration)      { atomic.AddInt64(&t.boxNanos, int64(d)) }

// ParticleMicros returns the cumulative particle-move phase duration, in
// microseconds.
func (t *Timers) ParticleMicros() int64 {
	return atomic.LoadInt64(&t.particleNanos) / int64(time.Microsecond)
}

// BoxMicros returns the cumulative box-move phase duration, in
// microseconds.
func (t *Timers) BoxMicros() int64 {
	return atomic.LoadInt64(&t.boxNanos) / int64(time.Microsecond)
}

// Reset zeroes both accumulators.
func (t *Timers) Reset() {
	atomic.StoreInt64(&t.particleNanos, 0)
	atomic.StoreInt64(&t.boxNanos, 0)
}
