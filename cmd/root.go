package cmd

import (
	"context"
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Oolcik/rampack/box"
	"github.com/Oolcik/rampack/mc"
	"github.com/Oolcik/rampack/packing"
)

var (
	seed                  int64
	numParticles          int
	sphereRadius          float64
	boxLength             float64
	logLevel              string
	temperature           float64
	pressure              float64
	cycles                int
	relaxCycles           int
	domainCounts          []int
	translationStep       float64
	rotationStep          float64
	boxStep               float64
	initialConfigPath     string
	snapshotOutPath       string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "rampack",
	Short: "NpT Monte Carlo packing simulator for anisotropic hard/soft particles",
}

// runCmd drives an mc.Driver over a packing.Packing of identical hard
// spheres, the minimal shape geometry needed to exercise the core engine
// end to end. Anisotropic shapes are a caller's interaction.ShapeTraits
// implementation, not something this command knows how to build.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an NpT Monte Carlo packing simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		log := logrus.New()
		log.SetLevel(level)

		if len(domainCounts) != 3 {
			logrus.Fatalf("--domains must list exactly 3 values (Kx,Ky,Kz), got %v", domainCounts)
		}

		pack, err := buildInitialPacking(log)
		if err != nil {
			logrus.Fatalf("building initial packing: %v", err)
		}

		cfg := mc.DefaultConfig()
		cfg.Seed = seed
		cfg.Temperature = temperature
		cfg.Pressure = pressure
		cfg.DomainCounts = [3]int{domainCounts[0], domainCounts[1], domainCounts[2]}
		cfg.TranslationStep = translationStep
		cfg.RotationStep = rotationStep
		cfg.BoxStep = boxStep

		obs := mc.ObservablesFunc(func(cycle int, p *packing.Packing, counters *mc.MoveCounters) {
			log.WithFields(logrus.Fields{
				"cycle":    cycle,
				"volume":   p.Box().Volume(),
				"overlaps": p.OverlapCount(),
			}).Debug("observable")
		})

		driver, err := mc.New(cfg, pack, isotropicScaler{}, log, obs)
		if err != nil {
			logrus.Fatalf("building driver: %v", err)
		}

		ctx := context.Background()

		if pack.OverlapCount() > 0 {
			log.WithField("overlaps", pack.OverlapCount()).Info("relaxing initial overlaps")
			ok, err := driver.RelaxOverlaps(ctx, relaxCycles)
			if err != nil {
				logrus.Fatalf("relaxing overlaps: %v", err)
			}
			if !ok {
				logrus.Fatalf("failed to reach zero overlaps within %d relaxation cycles", relaxCycles)
			}
		}

		if err := driver.Integrate(ctx, cycles); err != nil {
			logrus.Fatalf("integrating: %v", err)
		}

		log.WithFields(logrus.Fields{
			"translation_acceptance": driver.Counters().TranslationAcceptance(),
			"rotation_acceptance":    driver.Counters().RotationAcceptance(),
			"move_acceptance":        driver.Counters().MoveAcceptance(),
			"box_acceptance":         driver.Counters().BoxAcceptance(),
			"particle_phase_us":      driver.Timers().ParticleMicros(),
			"box_phase_us":           driver.Timers().BoxMicros(),
			"final_volume":           pack.Box().Volume(),
			"final_overlaps":         pack.OverlapCount(),
		}).Info("run complete")

		if snapshotOutPath != "" {
			if err := writeSnapshotFile(pack, snapshotOutPath); err != nil {
				logrus.Fatalf("writing snapshot: %v", err)
			}
		}
	},
}

// buildInitialPacking constructs the starting packing either from the
// YAML file at initialConfigPath or, if none was given, from particles
// scattered uniformly at random (left for RelaxOverlaps to untangle).
func buildInitialPacking(log *logrus.Logger) (*packing.Packing, error) {
	traits := hardSphereTraits{radius: sphereRadius}

	if initialConfigPath != "" {
		ic, err := loadInitialConfig(initialConfigPath)
		if err != nil {
			return nil, err
		}
		bx, err := box.Cubic(ic.BoxLength)
		if err != nil {
			return nil, err
		}
		positions := make([]r3.Vec, len(ic.Particles))
		for i, xyz := range ic.Particles {
			positions[i] = r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		}
		return packing.New(bx, traits, positions, identityOrientations(len(positions)))
	}

	log.WithFields(logrus.Fields{"n": numParticles, "box_length": boxLength}).Info("scattering random initial positions")
	bx, err := box.Cubic(boxLength)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	positions := randomPositions(numParticles, boxLength, rng)
	return packing.New(bx, traits, positions, identityOrientations(numParticles))
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "RNG seed")
	runCmd.Flags().IntVar(&numParticles, "n", 100, "Number of particles (ignored when --config is given)")
	runCmd.Flags().Float64Var(&sphereRadius, "radius", 0.5, "Hard sphere radius for the demo shape traits")
	runCmd.Flags().Float64Var(&boxLength, "box-length", 20, "Edge length of the initial cubic box (ignored when --config is given)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Float64Var(&temperature, "temperature", 1.0, "Thermodynamic temperature")
	runCmd.Flags().Float64Var(&pressure, "pressure", 1.0, "Thermodynamic pressure")
	runCmd.Flags().IntVar(&cycles, "cycles", 1000, "Number of sampling cycles to run")
	runCmd.Flags().IntVar(&relaxCycles, "relax-cycles", 2000, "Max cycles spent relaxing overlaps before sampling starts")
	runCmd.Flags().IntSliceVar(&domainCounts, "domains", []int{1, 1, 1}, "Kx,Ky,Kz domain decomposition for the concurrent particle sweep")

	runCmd.Flags().Float64Var(&translationStep, "translation-step", 0.1, "Initial translation step size")
	runCmd.Flags().Float64Var(&rotationStep, "rotation-step", 0.1, "Initial rotation step size (radians)")
	runCmd.Flags().Float64Var(&boxStep, "box-step", 0.01, "Initial box move step size")

	runCmd.Flags().StringVar(&initialConfigPath, "config", "", "Optional YAML file with an explicit initial configuration")
	runCmd.Flags().StringVar(&snapshotOutPath, "snapshot-out", "", "Optional path to write the final packing snapshot to")

	rootCmd.AddCommand(runCmd)
}
