package mc

import "sync/atomic"

// MoveCounters tallies attempted and accepted moves per move type over a
// run, the raw material for the adaptive step-size control bands and for
// reporting acceptance rates to the caller. All fields are updated
// concurrently from domain workers, so every increment goes through
// atomic ops rather than a mutex -- the counters are independent int64s,
// never read-modify-written as a group.
type MoveCounters struct {
	translationsAttempted int64
	translationsAccepted  int64
	rotationsAttempted    int64
	rotationsAccepted     int64
	movesAttempted        int64
	movesAccepted         int64
	boxAttempted          int64
	boxAccepted           int64
}

func (m *MoveCounters) recordTranslation(accepted bool) {
	atomic.AddInt64(&m.translationsAttempted, 1)
	if accepted {
		atomic.AddInt64(&m.translationsAccepted, 1)
	}
}

func (m *MoveCounters) recordRotation(accepted bool) {
	atomic.AddInt64(&m.rotationsAttempted, 1)
	if accepted {
		atomic.AddInt64(&m.rotationsAccepted, 1)
	}
}

func (m *MoveCounters) recordMove(accepted bool) {
	atomic.AddInt64(&m.movesAttempted, 1)
	if accepted {
		atomic.AddInt64(&m.movesAccepted, 1)
	}
}

func (m *MoveCounters) recordBox(accepted bool) {
	atomic.AddInt64(&m.boxAttempted, 1)
	if accepted {
		atomic.AddInt64(&m.boxAccepted, 1)
	}
}

// TranslationAcceptance returns accepted/attempted translations, or 0 if
// none have been attempted.
func (m *MoveCounters) TranslationAcceptance() float64 {
	return ratio(atomic.LoadInt64(&m.translationsAccepted), atomic.LoadInt64(&m.translationsAttempted))
}

// RotationAcceptance returns accepted/attempted rotations.
func (m *MoveCounters) RotationAcceptance() float64 {
	return ratio(atomic.LoadInt64(&m.rotationsAccepted), atomic.LoadInt64(&m.rotationsAttempted))
}

// MoveAcceptance returns accepted/attempted combined translate+rotate moves.
func (m *MoveCounters) MoveAcceptance() float64 {
	return ratio(atomic.LoadInt64(&m.movesAccepted), atomic.LoadInt64(&m.movesAttempted))
}

// BoxAcceptance returns accepted/attempted box (volume) moves.
func (m *MoveCounters) BoxAcceptance() float64 {
	return ratio(atomic.LoadInt64(&m.boxAccepted), atomic.LoadInt64(&m.boxAttempted))
}

// Reset zeroes every counter. The particle and box windows are
// independent (spec §4.6.2: every 100*N particle attempts, or every 100
// box attempts, on their own schedules), so the adaptive controller uses
// resetParticle/resetBox instead of this -- Reset is for a caller that
// wants to start a fresh reporting interval for the whole run.
func (m *MoveCounters) Reset() {
	m.resetParticle()
	m.resetBox()
}

func (m *MoveCounters) resetParticle() {
	atomic.StoreInt64(&m.translationsAttempted, 0)
	atomic.StoreInt64(&m.translationsAccepted, 0)
	atomic.StoreInt64(&m.rotationsAttempted, 0)
	atomic.StoreInt64(&m.rotationsAccepted, 0)
	atomic.StoreInt64(&m.movesAttempted, 0)
	atomic.StoreInt64(&m.movesAccepted, 0)
}

func (m *MoveCounters) resetBox() {
	atomic.StoreInt64(&m.boxAttempted, 0)
	atomic.StoreInt64(&m.boxAccepted, 0)
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
