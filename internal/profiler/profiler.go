// Package profiler implements the continuous capture loops: a
// back-to-back CPU profiling loop and an interval-driven heap profiling
// session. Both hand captured profiles to an uploader and never let a
// failed round stall or kill the loop.
package profiler

import (
	"context"
	"time"

	"github.com/google/pprof/profile"
)

// Fixed capture parameters forming the protocol contract with the
// ingestion endpoint.
const (
	// DefaultCPUDuration is how long one CPU capture round blocks.
	DefaultCPUDuration = 10 * time.Second
	// DefaultHeapInterval is the heap session tick period.
	DefaultHeapInterval = 10 * time.Second
	// HeapSamplingBytes is the average number of allocated bytes between
	// two recorded heap samples.
	HeapSamplingBytes = 512 * 1024
	// HeapMaxStackDepth caps recorded heap stack length.
	HeapMaxStackDepth = 32
)

// Uploader receives captured profiles. Implementations swallow their own
// failures; Upload never reports back to the loop.
type Uploader interface {
	Upload(ctx context.Context, p *profile.Profile)
}
