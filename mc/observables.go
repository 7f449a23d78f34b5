package mc

import "github.com/Oolcik/rampack/packing"

// ObservablesCollector receives a callback after every completed cycle so
// a caller can sample density, order parameters, or anything else it
// wants to track over the run without the driver knowing about any of
// them. It lives in mc, not packing, so packing never has to import the
// driver's notion of a "cycle".
type ObservablesCollector interface {
	Observe(cycle int, p *packing.Packing, counters *MoveCounters)
}

// ObservablesFunc adapts a plain function to ObservablesCollector.
type ObservablesFunc func(cycle int, p *packing.Packing, counters *MoveCounters)

func (f ObservablesFunc) Observe(cycle int, p *packing.Packing, counters *MoveCounters) {
	f(cycle, p, counters)
}
