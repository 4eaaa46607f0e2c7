package profiler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftlabs/driftscope/internal/sampler"
	"github.com/driftlabs/driftscope/internal/symbols"
	"github.com/driftlabs/driftscope/internal/tags"
)

// HeapConfig holds configuration for the heap profiling session.
type HeapConfig struct {
	// Interval between heap snapshots (default: 10s).
	Interval time.Duration
	// SamplingBytes is the average number of allocated bytes between two
	// recorded samples (default: 512 KiB).
	SamplingBytes int
	// MaxStackDepth caps recorded stack length (default: 32).
	MaxStackDepth int
	// Labels embedded into every captured profile.
	Labels []tags.Label
	// SourcePaths are searched when building the session's source mapper
	// (default: current working directory).
	SourcePaths []string
}

// HeapSession captures heap snapshots on a recurring timer. At most one
// session is active at a time; Start is idempotent.
type HeapSession struct {
	sampler  sampler.HeapSampler
	uploader Uploader
	logger   zerolog.Logger
	config   HeapConfig

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while running
	wg     sync.WaitGroup
}

// NewHeapSession creates a heap profiling session. The session is created
// stopped.
func NewHeapSession(s sampler.HeapSampler, u Uploader, cfg HeapConfig, logger zerolog.Logger) *HeapSession {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultHeapInterval
	}
	if cfg.SamplingBytes == 0 {
		cfg.SamplingBytes = HeapSamplingBytes
	}
	if cfg.MaxStackDepth == 0 {
		cfg.MaxStackDepth = HeapMaxStackDepth
	}
	if len(cfg.SourcePaths) == 0 {
		cfg.SourcePaths = []string{"."}
	}
	return &HeapSession{
		sampler:  s,
		uploader: u,
		logger:   logger.With().Str("component", "heap_session").Logger(),
		config:   cfg,
	}
}

// Start initializes the heap sampler and begins snapshotting on a timer.
// Calling Start while the session is already running is a no-op.
func (h *HeapSession) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.logger.Debug().Msg("Heap profiling already running, skipping start")
		return
	}

	mapper, err := symbols.NewMapper(h.config.SourcePaths)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Source mapper unavailable, heap frames will keep recorded paths")
		mapper = nil
	}

	h.sampler.Init(h.config.SamplingBytes, h.config.MaxStackDepth)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.logger.Info().
		Dur("interval", h.config.Interval).
		Int("sampling_bytes", h.config.SamplingBytes).
		Msg("Starting heap profiling")

	h.wg.Add(1)
	go h.run(ctx, mapper)
}

// Stop cancels the recurring timer. Cancellation is immediate at the
// scheduling layer; a tick already in flight runs to completion. Stopping
// a stopped session is a no-op.
func (h *HeapSession) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel == nil {
		return
	}
	h.cancel()
	h.cancel = nil
	h.logger.Info().Msg("Stopped heap profiling")
}

// Wait blocks until the session goroutine has parked.
func (h *HeapSession) Wait() {
	h.wg.Wait()
}

// Running reports whether a timer is currently active.
func (h *HeapSession) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}

func (h *HeapSession) run(ctx context.Context, mapper *symbols.Mapper) {
	defer h.wg.Done()
	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.collectAndUpload(mapper)
		}
	}
}

func (h *HeapSession) collectAndUpload(mapper *symbols.Mapper) {
	p, err := h.sampler.Snapshot()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to capture heap profile")
		return
	}
	mapper.Apply(p)
	tags.Apply(p, h.config.Labels)
	// Deliberately not the session context: a tick that started before
	// Stop still gets its upload attempted.
	h.uploader.Upload(context.Background(), p)
}
