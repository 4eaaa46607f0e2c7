package sampler

import (
	"bytes"
	"fmt"
	"runtime"
	"runtime/pprof"

	"github.com/google/pprof/profile"
)

// Heap samples the calling process's heap allocations through the
// runtime's memory profiler.
type Heap struct {
	maxStackDepth int
}

// NewHeap returns a heap sampler backed by the Go runtime profiler.
func NewHeap() *Heap {
	return &Heap{}
}

// Init sets the runtime memory profiling rate and the stack depth cap.
// Only allocations made after Init are sampled at the new rate.
func (h *Heap) Init(bytesBetweenSamples int, maxStackDepth int) {
	if bytesBetweenSamples > 0 {
		runtime.MemProfileRate = bytesBetweenSamples
	}
	h.maxStackDepth = maxStackDepth
}

// Snapshot returns the current heap profile, with stacks truncated to the
// configured depth.
func (h *Heap) Snapshot() (*profile.Profile, error) {
	var buf bytes.Buffer
	if err := pprof.Lookup("heap").WriteTo(&buf, 0); err != nil {
		return nil, fmt.Errorf("write heap profile: %w", err)
	}

	p, err := profile.ParseData(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse heap profile: %w", err)
	}

	if h.maxStackDepth > 0 {
		for _, s := range p.Sample {
			if len(s.Location) > h.maxStackDepth {
				s.Location = s.Location[:h.maxStackDepth]
			}
		}
	}
	return p, nil
}
