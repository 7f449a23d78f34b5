package packing

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Oolcik/rampack/box"
	"github.com/Oolcik/rampack/geom"
	"github.com/Oolcik/rampack/grid"
	"github.com/Oolcik/rampack/interaction"
)

// SnapshotData is the pose information a Packing can be rebuilt from: the
// box matrix and every particle's fractional position and orientation.
// It carries no interaction traits or step sizes -- those are supplied
// separately by the caller reconstructing a run.
type SnapshotData struct {
	Box    [3][3]float64
	Shapes []Shape
}

// WriteSnapshot serialises the packing as newline-delimited ASCII: N, the
// box matrix, N lines of (fractional position, orientation), then the aux
// key=value lines the caller supplies (step sizes, cycle count, and
// anything else the driver wants to round-trip alongside the geometry).
func (p *Packing) WriteSnapshot(w io.Writer, aux map[string]string) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintln(bw, len(p.shapes)); err != nil {
		return err
	}
	m := p.bx.Matrix()
	for i := 0; i < 3; i++ {
		if _, err := fmt.Fprintf(bw, "%.17g %.17g %.17g\n", m[i][0], m[i][1], m[i][2]); err != nil {
			return err
		}
	}
	for _, s := range p.shapes {
		if err := writeShapeLine(bw, s); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(aux))
	for k := range aux {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(bw, "%s=%s\n", k, aux[k]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeShapeLine(w io.Writer, s Shape) error {
	_, err := fmt.Fprintf(w, "%.17g %.17g %.17g  %.17g %.17g %.17g  %.17g %.17g %.17g  %.17g %.17g %.17g\n",
		s.Pos.X, s.Pos.Y, s.Pos.Z,
		s.Orient[0].X, s.Orient[0].Y, s.Orient[0].Z,
		s.Orient[1].X, s.Orient[1].Y, s.Orient[1].Z,
		s.Orient[2].X, s.Orient[2].Y, s.Orient[2].Z,
	)
	return err
}

// ReadSnapshot parses the layout WriteSnapshot produces, returning the raw
// geometry and the trailing aux key=value lines uninterpreted.
func ReadSnapshot(r io.Reader) (*SnapshotData, map[string]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	n, err := scanInt(sc)
	if err != nil {
		return nil, nil, fmt.Errorf("packing: reading particle count: %w", err)
	}

	data := &SnapshotData{Shapes: make([]Shape, n)}
	for i := 0; i < 3; i++ {
		row, err := scanFloats(sc, 3)
		if err != nil {
			return nil, nil, fmt.Errorf("packing: reading box row %d: %w", i, err)
		}
		data.Box[i][0], data.Box[i][1], data.Box[i][2] = row[0], row[1], row[2]
	}

	for i := 0; i < n; i++ {
		f, err := scanFloats(sc, 12)
		if err != nil {
			return nil, nil, fmt.Errorf("packing: reading particle %d: %w", i, err)
		}
		data.Shapes[i] = Shape{
			Pos: r3.Vec{X: f[0], Y: f[1], Z: f[2]},
			Orient: geom.Orientation{
				{X: f[3], Y: f[4], Z: f[5]},
				{X: f[6], Y: f[7], Z: f[8]},
				{X: f[9], Y: f[10], Z: f[11]},
			},
		}
	}

	aux := make(map[string]string)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, nil, fmt.Errorf("packing: malformed aux line %q", line)
		}
		aux[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return data, aux, nil
}

func scanInt(sc *bufio.Scanner) (int, error) {
	if !sc.Scan() {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(strings.TrimSpace(sc.Text()))
}

func scanFloats(sc *bufio.Scanner, want int) ([]float64, error) {
	if !sc.Scan() {
		return nil, io.ErrUnexpectedEOF
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != want {
		return nil, fmt.Errorf("expected %d fields, got %d", want, len(fields))
	}
	out := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// NewFromSnapshot reconstructs a Packing from previously-parsed geometry.
// The neighbour grid's minimum cell size is traits.RangeRadius(), as in
// New.
func NewFromSnapshot(data *SnapshotData, traits interaction.ShapeTraits) (*Packing, error) {
	bx, err := box.New(
		r3.Vec{X: data.Box[0][0], Y: data.Box[1][0], Z: data.Box[2][0]},
		r3.Vec{X: data.Box[0][1], Y: data.Box[1][1], Z: data.Box[2][1]},
		r3.Vec{X: data.Box[0][2], Y: data.Box[1][2], Z: data.Box[2][2]},
	)
	if err != nil {
		return nil, fmt.Errorf("packing: rebuilding box: %w", err)
	}

	g, err := grid.ForRange(bx.EdgeLengths(), traits.RangeRadius(), len(data.Shapes))
	if err != nil {
		return nil, fmt.Errorf("packing: rebuilding grid: %w", err)
	}

	p := &Packing{
		shapes:      make([]Shape, len(data.Shapes)),
		traits:      traits,
		bx:          bx,
		bc:          box.NewBoundaryConditions(bx),
		grd:         g,
		rangeRadius: traits.RangeRadius(),
	}
	for i, s := range data.Shapes {
		frac := box.FoldFractional(s.Pos)
		p.shapes[i] = Shape{Pos: frac, Orient: s.Orient}
		p.grd.Add(i, frac)
	}
	p.overlapCount = int64(p.bruteOverlapCount(make([]int, 0, len(data.Shapes))))
	if traits.HasSoftPart() {
		p.energyTotal = p.totalEnergy(make([]int, 0, len(data.Shapes)))
	}
	return p, nil
}
