package sampler

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPU_ProfileReturnsParsedProfile(t *testing.T) {
	c := NewCPU()

	done := make(chan struct{})
	go func() {
		// Generate some work so the profiler has something to sample.
		defer close(done)
		x := 0
		for start := time.Now(); time.Since(start) < 300*time.Millisecond; {
			x += x*31 + 1
		}
		_ = x
	}()

	p, err := c.Profile(context.Background(), 300*time.Millisecond)
	<-done

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NoError(t, p.CheckValid())
}

func TestCPU_ProfileHonorsContextCancellation(t *testing.T) {
	c := NewCPU()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := c.Profile(ctx, 10*time.Second)

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHeap_SnapshotTruncatesStacks(t *testing.T) {
	h := NewHeap()
	h.Init(runtime.MemProfileRate, 2)

	p, err := h.Snapshot()

	require.NoError(t, err)
	require.NotNil(t, p)
	for _, s := range p.Sample {
		assert.LessOrEqual(t, len(s.Location), 2)
	}
}

func TestHeap_InitKeepsRateOnZero(t *testing.T) {
	prev := runtime.MemProfileRate
	defer func() { runtime.MemProfileRate = prev }()

	h := NewHeap()
	h.Init(0, 32)

	assert.Equal(t, prev, runtime.MemProfileRate)
}
