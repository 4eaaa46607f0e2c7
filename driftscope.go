// Package driftscope is a continuous profiling agent: it periodically
// captures CPU and heap profiles of the running process and ships them to
// a remote ingestion endpoint.
//
// Typical usage:
//
//	session, err := driftscope.Start(driftscope.Config{
//		ServerAddress:   "http://pyre.internal:4040",
//		ApplicationName: "billing-api",
//		AutoStart:       true,
//		Tags:            map[string]string{"env": "prod"},
//	})
//
// Profiling never raises into the host application: capture and upload
// failures degrade to log lines and dropped data.
package driftscope

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftlabs/driftscope/internal/logging"
	"github.com/driftlabs/driftscope/internal/profiler"
	"github.com/driftlabs/driftscope/internal/sampler"
	"github.com/driftlabs/driftscope/internal/symbols"
	"github.com/driftlabs/driftscope/internal/tags"
	"github.com/driftlabs/driftscope/internal/upload"
)

// DefaultServerAddress is used when Config.ServerAddress is empty.
const DefaultServerAddress = "http://localhost:4040"

// Config configures a profiling session.
type Config struct {
	// ServerAddress is the base URL of the ingestion endpoint
	// (default: http://localhost:4040).
	ServerAddress string
	// ApplicationName identifies this process on the server
	// (default: base name of the running executable).
	ApplicationName string
	// SourceMapPath lists directories searched to resolve recorded file
	// paths back to local sources. The mapper is built asynchronously;
	// rounds captured before it resolves ship unsymbolicated.
	SourceMapPath []string
	// AutoStart starts CPU and heap profiling immediately.
	AutoStart bool
	// Tags annotate every uploaded profile and the upload URL.
	Tags map[string]string
	// Logger overrides the default logger.
	Logger *zerolog.Logger
	// HTTPClient overrides the default upload client. When set,
	// UploadTimeout is ignored; the client brings its own timeout.
	HTTPClient *http.Client
	// UploadTimeout bounds a single upload request of the default client
	// (default: 10s).
	UploadTimeout time.Duration
}

// DefaultConfig returns the configuration used when fields are omitted.
func DefaultConfig() Config {
	return Config{
		ServerAddress:   DefaultServerAddress,
		ApplicationName: defaultAppName(),
		AutoStart:       true,
		Tags:            map[string]string{},
	}
}

// Session owns a configured pair of profiling loops. All configuration is
// fixed at Start; there is no shared mutable state between sessions.
type Session struct {
	logger zerolog.Logger
	mapper atomic.Pointer[symbols.Mapper]
	cpu    *profiler.CPULoop
	heap   *profiler.HeapSession
}

// sessionDeps are the session's injectable collaborators.
type sessionDeps struct {
	cpu             sampler.CPUSampler
	heap            sampler.HeapSampler
	uploader        profiler.Uploader
	heapSourcePaths []string
}

// Start validates cfg, wires the profiling loops, and, when AutoStart is
// set, begins capturing immediately. The only synchronous failure is an
// unparseable server address.
func Start(cfg Config) (*Session, error) {
	return newSession(cfg, sessionDeps{})
}

func newSession(cfg Config, deps sessionDeps) (*Session, error) {
	if cfg.ServerAddress == "" {
		cfg.ServerAddress = DefaultServerAddress
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = defaultAppName()
	}
	if _, err := url.ParseRequestURI(cfg.ServerAddress); err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", cfg.ServerAddress, err)
	}

	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = logging.New(logging.DefaultConfig())
	}
	logger = logger.With().Str("app", cfg.ApplicationName).Logger()

	if deps.uploader == nil {
		deps.uploader = upload.New(cfg.ServerAddress, cfg.ApplicationName, cfg.Tags, cfg.HTTPClient, cfg.UploadTimeout, logger)
	}
	if deps.cpu == nil {
		deps.cpu = sampler.NewCPU()
	}
	if deps.heap == nil {
		deps.heap = sampler.NewHeap()
	}

	s := &Session{logger: logger}
	labels := tags.Labels(cfg.Tags)
	s.cpu = profiler.NewCPULoop(deps.cpu, deps.uploader, profiler.CPUConfig{
		Labels: labels,
		Mapper: s.currentMapper,
	}, logger)
	s.heap = profiler.NewHeapSession(deps.heap, deps.uploader, profiler.HeapConfig{
		Labels:      labels,
		SourcePaths: deps.heapSourcePaths,
	}, logger)

	if len(cfg.SourceMapPath) > 0 {
		// Fire and forget: the loops pick the mapper up whenever it lands.
		go s.buildMapper(cfg.SourceMapPath)
	}

	if cfg.AutoStart {
		s.StartCPUProfiling()
		s.StartHeapProfiling()
	}
	return s, nil
}

// StartCPUProfiling starts the continuous CPU loop. No-op when running.
func (s *Session) StartCPUProfiling() { s.cpu.Start() }

// StopCPUProfiling requests the CPU loop to stop. The round in flight
// completes and is still uploaded.
func (s *Session) StopCPUProfiling() { s.cpu.Stop() }

// StartHeapProfiling starts the heap session. No-op when running.
func (s *Session) StartHeapProfiling() { s.heap.Start() }

// StopHeapProfiling cancels the heap session's timer.
func (s *Session) StopHeapProfiling() { s.heap.Stop() }

// CPURunning reports whether the CPU loop accepts further rounds.
func (s *Session) CPURunning() bool { return s.cpu.Running() }

// HeapRunning reports whether the heap session's timer is active.
func (s *Session) HeapRunning() bool { return s.heap.Running() }

// Stop stops both loops and waits for their goroutines to park. Profiles
// not yet uploaded when the process exits are discarded; there is no
// flush guarantee beyond the CPU loop's final in-flight round.
func (s *Session) Stop() {
	s.cpu.Stop()
	s.heap.Stop()
	s.cpu.Wait()
	s.heap.Wait()
	s.logger.Info().Msg("Profiling session stopped")
}

func (s *Session) currentMapper() *symbols.Mapper {
	return s.mapper.Load()
}

func (s *Session) buildMapper(paths []string) {
	m, err := symbols.NewMapper(paths)
	if err != nil {
		s.logger.Warn().Err(err).Strs("paths", paths).Msg("Source mapper unavailable, profiles ship unsymbolicated")
		return
	}
	s.mapper.Store(m)
	s.logger.Debug().Strs("paths", paths).Msg("Source mapper ready")
}

func defaultAppName() string {
	exe, err := os.Executable()
	if err != nil {
		return "driftscope"
	}
	return filepath.Base(exe)
}
