package sampler

import (
	"bytes"
	"context"
	"fmt"
	"runtime/pprof"
	"time"

	"github.com/google/pprof/profile"
)

// CPU samples the calling process's CPU usage through runtime/pprof.
// The runtime samples at a fixed 10ms interval (100 Hz), which is also
// the sample rate advertised to the ingestion endpoint.
type CPU struct{}

// NewCPU returns a CPU sampler backed by the Go runtime profiler.
func NewCPU() *CPU {
	return &CPU{}
}

// Profile captures CPU samples for the given duration and returns the
// parsed profile. Only one CPU profile can be active per process; a
// second concurrent call fails.
func (c *CPU) Profile(ctx context.Context, duration time.Duration) (*profile.Profile, error) {
	var buf bytes.Buffer
	if err := pprof.StartCPUProfile(&buf); err != nil {
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}
	pprof.StopCPUProfile()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := profile.ParseData(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse cpu profile: %w", err)
	}
	return p, nil
}
