package profiler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/driftscope/internal/tags"
	"github.com/driftlabs/driftscope/internal/testutil"
)

func TestCPULoop_StopIsEventualAndInFlightRoundIsUploaded(t *testing.T) {
	s := &stubCPUSampler{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	u := newRecordingUploader()
	l := NewCPULoop(s, u, CPUConfig{Duration: time.Millisecond}, testutil.NewTestLogger(t))

	l.Start()
	<-s.started

	// Stop while the first capture is still in flight.
	l.Stop()
	assert.False(t, l.Running())
	assert.Equal(t, 0, u.count(), "upload must not happen before the capture resolves")

	close(s.release)
	l.Wait()

	assert.Equal(t, 1, u.count(), "the in-flight round's upload must still be attempted")
	assert.EqualValues(t, 1, s.captures.Load(), "no new round may start after stop")
}

func TestCPULoop_RoundsNeverOverlap(t *testing.T) {
	s := &stubCPUSampler{}
	u := newRecordingUploader()
	l := NewCPULoop(s, u, CPUConfig{Duration: time.Millisecond}, testutil.NewTestLogger(t))

	l.Start()
	// Let several back-to-back rounds run.
	for i := 0; i < 5; i++ {
		<-u.uploaded
	}
	l.Stop()
	l.Wait()

	assert.GreaterOrEqual(t, int(s.captures.Load()), 5)
	assert.EqualValues(t, 1, s.maxInFlight.Load(), "round N+1 must not start before round N resolves")
}

func TestCPULoop_StartIsIdempotent(t *testing.T) {
	s := &stubCPUSampler{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	u := newRecordingUploader()
	l := NewCPULoop(s, u, CPUConfig{Duration: time.Millisecond}, testutil.NewTestLogger(t))

	l.Start()
	l.Start()
	<-s.started

	select {
	case <-s.started:
		t.Fatal("second Start spawned a second capture loop")
	case <-time.After(50 * time.Millisecond):
	}

	l.Stop()
	close(s.release)
	l.Wait()
}

func TestCPULoop_SlowUploadDoesNotDelayNextCapture(t *testing.T) {
	s := &stubCPUSampler{}
	u := newBlockingUploader()
	l := NewCPULoop(s, u, CPUConfig{Duration: time.Millisecond}, testutil.NewTestLogger(t))

	l.Start()

	// Captures must keep their back-to-back cadence while every upload so
	// far is still parked inside the uploader.
	require.Eventually(t, func() bool { return u.entered.Load() >= 1 },
		2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return s.captures.Load() >= 3 },
		2*time.Second, time.Millisecond)
	assert.EqualValues(t, 1, s.maxInFlight.Load())

	l.Stop()
	close(u.release)
	l.Wait()

	assert.EqualValues(t, s.captures.Load(), u.entered.Load(),
		"every captured round must still be handed to the uploader")
}

func TestCPULoop_CaptureErrorDoesNotKillLoop(t *testing.T) {
	s := &stubCPUSampler{err: errors.New("profiler busy")}
	u := newRecordingUploader()
	l := NewCPULoop(s, u, CPUConfig{Duration: time.Millisecond}, testutil.NewTestLogger(t))

	l.Start()
	// The loop keeps rescheduling despite every capture failing.
	require.Eventually(t, func() bool { return s.captures.Load() >= 3 },
		2*time.Second, time.Millisecond)
	l.Stop()
	l.Wait()

	assert.Equal(t, 0, u.count(), "failed captures must not be uploaded")
}

func TestCPULoop_LabelsAreEmbedded(t *testing.T) {
	s := &stubCPUSampler{}
	u := newRecordingUploader()
	l := NewCPULoop(s, u, CPUConfig{
		Duration: time.Millisecond,
		Labels:   tags.Labels(map[string]string{"env": "prod"}),
	}, testutil.NewTestLogger(t))

	l.Start()
	<-u.uploaded
	l.Stop()
	l.Wait()

	p := u.last()
	require.NotNil(t, p)
	require.NotEmpty(t, p.Sample)
	assert.Equal(t, []string{"prod"}, p.Sample[0].Label["env"])
}

func TestCPULoop_DefaultDuration(t *testing.T) {
	l := NewCPULoop(&stubCPUSampler{}, newRecordingUploader(), CPUConfig{}, testutil.NewTestLogger(t))
	assert.Equal(t, DefaultCPUDuration, l.config.Duration)
}
