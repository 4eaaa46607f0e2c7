package profiler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	"github.com/driftlabs/driftscope/internal/sampler"
	"github.com/driftlabs/driftscope/internal/symbols"
	"github.com/driftlabs/driftscope/internal/tags"
)

// CPUConfig holds configuration for the CPU profiling loop.
type CPUConfig struct {
	// Duration of one capture round (default: 10s).
	Duration time.Duration
	// Labels embedded into every captured profile.
	Labels []tags.Label
	// Mapper returns the current source mapper, or nil when none has been
	// built yet. The mapper may become available while the loop is already
	// running; it is re-read every round.
	Mapper func() *symbols.Mapper
}

// CPULoop captures CPU profiles in strictly sequential, back-to-back
// rounds. Each round blocks for the capture duration, uploads the result,
// then immediately begins the next round.
type CPULoop struct {
	sampler  sampler.CPUSampler
	uploader Uploader
	logger   zerolog.Logger
	config   CPUConfig

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewCPULoop creates a CPU profiling loop. The loop is created stopped.
func NewCPULoop(s sampler.CPUSampler, u Uploader, cfg CPUConfig, logger zerolog.Logger) *CPULoop {
	if cfg.Duration == 0 {
		cfg.Duration = DefaultCPUDuration
	}
	return &CPULoop{
		sampler:  s,
		uploader: u,
		logger:   logger.With().Str("component", "cpu_loop").Logger(),
		config:   cfg,
	}
}

// Start begins continuous capture. Starting an already running loop is a
// no-op: exactly one capture loop exists per CPULoop.
func (l *CPULoop) Start() {
	if !l.running.CompareAndSwap(false, true) {
		l.logger.Debug().Msg("CPU profiling already running, skipping start")
		return
	}
	l.logger.Info().Dur("round_duration", l.config.Duration).Msg("Starting continuous CPU profiling")
	l.wg.Add(1)
	go l.run()
}

// Stop requests the loop to stop. Stopping is eventual: a capture already
// in flight completes, and its profile is still uploaded, before the loop
// goroutine parks. Use Wait to observe actual cessation.
func (l *CPULoop) Stop() {
	if l.running.CompareAndSwap(true, false) {
		l.logger.Info().Msg("Stopping continuous CPU profiling after in-flight round")
	}
}

// Wait blocks until the loop goroutine has parked and every outstanding
// upload has finished.
func (l *CPULoop) Wait() {
	l.wg.Wait()
}

// Running reports whether the loop is accepting further rounds.
func (l *CPULoop) Running() bool {
	return l.running.Load()
}

func (l *CPULoop) run() {
	defer l.wg.Done()
	for {
		p, err := l.sampler.Profile(context.Background(), l.config.Duration)

		// The continuation decision is made at capture completion, before
		// the upload: a stop that raced the capture still gets this round
		// uploaded.
		stillRunning := l.running.Load()

		if err != nil {
			l.logger.Error().Err(err).Msg("Failed to capture CPU profile")
		} else {
			// Uploads run concurrently with the next capture. A slow or
			// hung upload must never delay the capture cadence, and the
			// round owns its profile outright once captured.
			l.wg.Add(1)
			go l.upload(p)
		}

		if !stillRunning {
			l.logger.Info().Msg("Stopped continuous CPU profiling")
			return
		}
	}
}

func (l *CPULoop) upload(p *profile.Profile) {
	defer l.wg.Done()
	if l.config.Mapper != nil {
		l.config.Mapper().Apply(p)
	}
	tags.Apply(p, l.config.Labels)
	l.uploader.Upload(context.Background(), p)
}
