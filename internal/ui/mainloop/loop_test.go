package mainloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInPostingOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New()
	l.Start(ctx)

	var got []int
	for i := 0; i < 50; i++ {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Idle(ctx))

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_IdleWaitsForNestedPosts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New()
	l.Start(ctx)

	var depth atomic.Int32
	var step func()
	step = func() {
		if depth.Add(1) < 5 {
			l.Post(step)
		}
	}
	l.Post(step)

	require.NoError(t, l.Idle(ctx))
	assert.Equal(t, int32(5), depth.Load())
}

func TestLoop_StopRejectsWork(t *testing.T) {
	ctx := context.Background()
	l := New()
	l.Start(ctx)
	l.Stop()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Call(ctx, func() {}), ErrStopped)
}

func TestLoop_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New()
	l.Start(ctx)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}
