package profiler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
)

// newTestProfile builds a minimal profile with one sample.
func newTestProfile() *profile.Profile {
	fn := &profile.Function{ID: 1, Name: "main.work", Filename: "work.go"}
	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn, Line: 7}}}
	return &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{loc}, Value: []int64{1}},
		},
		Location: []*profile.Location{loc},
		Function: []*profile.Function{fn},
	}
}

// stubCPUSampler hands out test profiles and lets tests gate each capture.
type stubCPUSampler struct {
	// started receives one value when a capture begins.
	started chan struct{}
	// release gates capture completion; nil means captures return at once.
	release chan struct{}
	// err is returned by every capture when set.
	err error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	captures    atomic.Int32
}

func (s *stubCPUSampler) Profile(_ context.Context, _ time.Duration) (*profile.Profile, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxInFlight.Load()
		if cur <= prev || s.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	s.captures.Add(1)

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return newTestProfile(), nil
}

// stubHeapSampler records Init parameters and snapshot counts.
type stubHeapSampler struct {
	mu            sync.Mutex
	initCalls     int
	samplingBytes int
	maxDepth      int
	err           error
}

func (s *stubHeapSampler) Init(bytesBetweenSamples, maxStackDepth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalls++
	s.samplingBytes = bytesBetweenSamples
	s.maxDepth = maxStackDepth
}

func (s *stubHeapSampler) Snapshot() (*profile.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return newTestProfile(), nil
}

// blockingUploader parks every upload until release is closed.
type blockingUploader struct {
	entered atomic.Int32
	release chan struct{}
}

func newBlockingUploader() *blockingUploader {
	return &blockingUploader{release: make(chan struct{})}
}

func (u *blockingUploader) Upload(_ context.Context, _ *profile.Profile) {
	u.entered.Add(1)
	<-u.release
}

// recordingUploader collects uploaded profiles and signals each upload.
type recordingUploader struct {
	mu       sync.Mutex
	profiles []*profile.Profile
	uploaded chan struct{}
}

func newRecordingUploader() *recordingUploader {
	return &recordingUploader{uploaded: make(chan struct{}, 64)}
}

func (u *recordingUploader) Upload(_ context.Context, p *profile.Profile) {
	u.mu.Lock()
	u.profiles = append(u.profiles, p)
	u.mu.Unlock()
	select {
	case u.uploaded <- struct{}{}:
	default:
	}
}

func (u *recordingUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.profiles)
}

func (u *recordingUploader) last() *profile.Profile {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.profiles) == 0 {
		return nil
	}
	return u.profiles[len(u.profiles)-1]
}
