package cmd

import (
	"fmt"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/Oolcik/rampack/geom"
)

// InitialConfig is the optional YAML file the run command reads its
// starting positions from. Its absence is not an error: the run command
// falls back to scattering particles uniformly at random and letting
// RelaxOverlaps pull any resulting overlaps out before sampling starts.
type InitialConfig struct {
	BoxLength float64      `yaml:"box_length"`
	Particles [][3]float64 `yaml:"particles"`
}

func loadInitialConfig(path string) (*InitialConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: reading initial config: %w", err)
	}
	var cfg InitialConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cmd: parsing initial config: %w", err)
	}
	if cfg.BoxLength <= 0 {
		return nil, fmt.Errorf("cmd: initial config box_length must be positive, got %g", cfg.BoxLength)
	}
	return &cfg, nil
}

// randomPositions scatters n points uniformly at random inside a cubic
// box of the given edge length. Overlaps among the result are expected
// and resolved afterwards by RelaxOverlaps, not avoided here.
func randomPositions(n int, boxLength float64, rng *rand.Rand) []r3.Vec {
	positions := make([]r3.Vec, n)
	for i := range positions {
		positions[i] = r3.Vec{
			X: rng.Float64() * boxLength,
			Y: rng.Float64() * boxLength,
			Z: rng.Float64() * boxLength,
		}
	}
	return positions
}

func identityOrientations(n int) []geom.Orientation {
	orients := make([]geom.Orientation, n)
	for i := range orients {
		orients[i] = geom.Identity()
	}
	return orients
}
