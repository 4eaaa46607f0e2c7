package upload

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"
)

// FileSink writes encoded profiles to local files instead of (or next to)
// the ingestion endpoint. Intended as a debug sink.
type FileSink struct {
	dir     string
	appName string
	logger  zerolog.Logger
	chunk   atomic.Uint64
}

// NewFileSink creates a sink writing {name}-{chunk}.pb.gz files into dir.
// An empty dir means the current working directory.
func NewFileSink(dir, appName string, logger zerolog.Logger) *FileSink {
	return &FileSink{
		dir:     dir,
		appName: appName,
		logger:  logger.With().Str("component", "filesink").Logger(),
	}
}

// Write encodes p and writes it to the next chunk file. The chunk counter
// advances on every call. A filesystem write failure is fatal to the
// process; an encoding failure is logged and dropped like an upload
// failure.
func (s *FileSink) Write(p *profile.Profile) {
	var encoded bytes.Buffer
	if err := p.Write(&encoded); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode profile, dropping chunk")
		return
	}

	chunk := s.chunk.Add(1) - 1
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%d.pb.gz", s.appName, chunk))
	if err := os.WriteFile(path, encoded.Bytes(), 0o644); err != nil {
		s.logger.Fatal().Err(err).Str("path", path).Msg("Failed to write profile chunk")
	}

	s.logger.Debug().Str("path", path).Int("bytes", encoded.Len()).Msg("Wrote profile chunk")
}
