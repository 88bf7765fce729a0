package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaiter_RunsFunction(t *testing.T) {
	a := NewAwaiter(slog.New(slog.DiscardHandler))

	done := make(chan struct{})
	a.Go("test", "job-1", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background function never ran")
	}

	assert.True(t, a.Shutdown(time.Second))
}

func TestAwaiter_SwallowsErrors(t *testing.T) {
	a := NewAwaiter(slog.New(slog.DiscardHandler))

	a.Go("test", "job-1", func(ctx context.Context) error {
		return errors.New("wait failed")
	})

	// the error stays inside the awaiter; shutdown still drains cleanly
	assert.True(t, a.Shutdown(time.Second))
}

func TestAwaiter_SwallowsPanics(t *testing.T) {
	a := NewAwaiter(slog.New(slog.DiscardHandler))

	a.Go("test", "job-1", func(ctx context.Context) error {
		panic("wait exploded")
	})

	assert.True(t, a.Shutdown(time.Second))
}

func TestAwaiter_ShutdownCancelsWaits(t *testing.T) {
	a := NewAwaiter(slog.New(slog.DiscardHandler))

	var canceled atomic.Bool
	a.Go("test", "job-1", func(ctx context.Context) error {
		<-ctx.Done()
		canceled.Store(true)
		return ctx.Err()
	})

	require.True(t, a.Shutdown(time.Second))
	assert.True(t, canceled.Load())
}

func TestAwaiter_ShutdownTimesOutOnStuckWait(t *testing.T) {
	a := NewAwaiter(slog.New(slog.DiscardHandler))

	release := make(chan struct{})
	a.Go("test", "job-1", func(ctx context.Context) error {
		<-release
		return nil
	})

	assert.False(t, a.Shutdown(50*time.Millisecond))
	close(release)
}

func TestAwaiter_ConcurrentWaitsAllComplete(t *testing.T) {
	a := NewAwaiter(slog.New(slog.DiscardHandler))

	var completed atomic.Int32
	for i := 0; i < 10; i++ {
		a.Go("test", "job", func(ctx context.Context) error {
			completed.Add(1)
			return nil
		})
	}

	require.True(t, a.Shutdown(time.Second))
	assert.Equal(t, int32(10), completed.Load())
}
