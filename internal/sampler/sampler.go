// Package sampler wraps the runtime's sampling profiler behind small
// interfaces so the capture loops can be exercised with stubs.
package sampler

import (
	"context"
	"time"

	"github.com/google/pprof/profile"
)

// CPUSampler produces a CPU profile covering roughly the given duration.
// The call blocks for the duration while samples accrue.
type CPUSampler interface {
	Profile(ctx context.Context, duration time.Duration) (*profile.Profile, error)
}

// HeapSampler produces on-demand snapshots of heap allocation data.
type HeapSampler interface {
	// Init configures the sampler: bytesBetweenSamples is the average number
	// of allocated bytes between two recorded samples, maxStackDepth caps
	// recorded stack length.
	Init(bytesBetweenSamples int, maxStackDepth int)
	// Snapshot returns the current heap profile.
	Snapshot() (*profile.Profile, error)
}
