package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/flowsched/internal/chunk"
)

func TestSubmitAndPoll(t *testing.T) {
	p := New(2)
	defer p.Shutdown()

	h := p.Submit(func(ctx context.Context) (chunk.Map, error) {
		return chunk.Map{"a": chunk.Of(42)}, nil
	})

	require.Eventually(t, func() bool {
		_, ok := h.Poll()
		return ok
	}, time.Second, time.Millisecond)

	res, ok := h.Poll()
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, 42, res.Chunks["a"].Value)
}

func TestSubmitError(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	wantErr := errors.New("boom")
	h := p.Submit(func(ctx context.Context) (chunk.Map, error) {
		return nil, wantErr
	})

	<-h.Done()
	res, ok := h.Poll()
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, wantErr)
}

func TestPanicBecomesError(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	h := p.Submit(func(ctx context.Context) (chunk.Map, error) {
		panic("kaboom")
	})

	<-h.Done()
	res, _ := h.Poll()
	assert.Error(t, res.Err)
}

func TestWaitAnyReturnsReadySubset(t *testing.T) {
	p := New(4)
	defer p.Shutdown()

	blocker := make(chan struct{})
	slow := p.Submit(func(ctx context.Context) (chunk.Map, error) {
		<-blocker
		return nil, nil
	})
	fast := p.Submit(func(ctx context.Context) (chunk.Map, error) {
		return chunk.Map{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ready := p.WaitAny(ctx, []Handle{slow, fast})
	require.NotEmpty(t, ready)
	assert.Contains(t, ready, fast)
	assert.NotContains(t, ready, slow)

	close(blocker)
}

func TestBoundedConcurrency(t *testing.T) {
	p := New(2)
	defer p.Shutdown()

	running := make(chan struct{}, 10)
	release := make(chan struct{})
	var handles []Handle
	for i := 0; i < 3; i++ {
		handles = append(handles, p.Submit(func(ctx context.Context) (chunk.Map, error) {
			running <- struct{}{}
			<-release
			return chunk.Map{}, nil
		}))
	}

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, running, 2, "only max_workers tasks should run concurrently")
	close(release)
}
