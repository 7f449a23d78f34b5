package mc

// Config collects the run-time parameters of an NpT Monte Carlo run: the
// thermodynamic point, the move mix, and the adaptive step-size control
// bands. Zero-value Config is not usable; use DefaultConfig and override.
type Config struct {
	Seed int64

	Temperature float64
	Pressure    float64

	Cycles int

	// DomainCounts is Kx, Ky, Kz: the number of concurrent regions per
	// axis for the particle-move phase of each cycle. {1,1,1} disables
	// decomposition entirely (single goroutine, deterministic ordering).
	DomainCounts [3]int

	// TranslationStep, RotationStep are the initial per-particle move
	// amplitudes (absolute-length displacement, radians of rotation).
	TranslationStep float64
	RotationStep    float64

	// BoxStep is the initial box-move amplitude, interpreted by the
	// VolumeScaler in whatever units it samples scale factors in.
	BoxStep float64

	// AcceptanceLowWatermark/HighWatermark bound the target per-move
	// acceptance rate; StepAdjustFactor is the multiplicative step
	// correction applied when a window falls outside the band.
	AcceptanceLowWatermark  float64
	AcceptanceHighWatermark float64
	StepAdjustFactor        float64

	// ParticleWindowMultiplier * N particle-move attempts (translations
	// plus rotations plus combined moves) between step re-evaluations;
	// BoxWindowSize box-move attempts between box-step re-evaluations.
	ParticleWindowMultiplier int
	BoxWindowSize            int
}

// DefaultConfig returns the spec's default adaptive-control constants;
// the thermodynamic point and move steps still need setting by the
// caller.
func DefaultConfig() Config {
	return Config{
		DomainCounts:             [3]int{1, 1, 1},
		TranslationStep:          0.1,
		RotationStep:             0.1,
		BoxStep:                  0.01,
		AcceptanceLowWatermark:   0.1,
		AcceptanceHighWatermark:  0.2,
		StepAdjustFactor:         1.1,
		ParticleWindowMultiplier: 100,
		BoxWindowSize:            100,
	}
}
