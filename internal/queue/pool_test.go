package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsUpToCapacityConcurrently(t *testing.T) {
	p := NewPool(2)
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			err := p.Run(context.Background(), func(ctx context.Context) error {
				started <- struct{}{}
				<-release
				return nil
			})
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return len(started) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, p.Active())
	close(release)
	wg.Wait()
	assert.Equal(t, 0, p.Active())
}

func TestPool_RejectsBeyondCapacity(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = p.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := p.Run(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not run when pool is at capacity")
		return nil
	})
	assert.ErrorIs(t, err, ErrAtCapacity)
	close(release)
}

func TestPool_PropagatesFnError(t *testing.T) {
	p := NewPool(1)
	sentinel := errors.New("boom")
	err := p.Run(context.Background(), func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, p.Active())
}

func TestPool_StopDrainsInFlightThenRejectsNew(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = p.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
		close(done)
	}()

	<-started
	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop must block while a request is in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-done
	<-stopped

	err := p.Run(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrAtCapacity)
}

func TestNewPool_PanicsOnNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() { NewPool(0) })
	assert.Panics(t, func() { NewPool(-1) })
}
