package cmd

import (
	"fmt"
	"os"

	"github.com/Oolcik/rampack/packing"
)

// writeSnapshotFile writes p's snapshot to path, stamping it with the run
// parameters (seed, temperature, pressure, cycles) as aux lines. The file
// is in packing's snapshot format, not the YAML format --config reads.
func writeSnapshotFile(p *packing.Packing, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cmd: creating snapshot file: %w", err)
	}
	defer f.Close()

	aux := map[string]string{
		"seed":        fmt.Sprintf("%d", seed),
		"temperature": fmt.Sprintf("%g", temperature),
		"pressure":    fmt.Sprintf("%g", pressure),
		"cycles":      fmt.Sprintf("%d", cycles),
	}
	return p.WriteSnapshot(f, aux)
}
