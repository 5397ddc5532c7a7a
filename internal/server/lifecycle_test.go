package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

// blockingService stands in for a vault component: Start blocks until Stop.
type blockingService struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (s *blockingService) Start() error {
	s.started.Store(true)
	for !s.stopped.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (s *blockingService) Stop() {
	s.stopped.Store(true)
}

func TestLifecycleStartsAndStopsServices(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))

	store := &blockingService{}
	acceptor := &blockingService{}
	lc.Add("store", store)
	lc.Add("acceptor", acceptor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lc.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for !store.started.Load() || !acceptor.started.Load() {
		select {
		case <-deadline:
			t.Fatal("services did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}

	assert.True(t, store.stopped.Load())
	assert.True(t, acceptor.stopped.Load())
}

// A periodic FuncService built on a quit channel, the shape the database
// health loop uses, must leave its Start goroutine when stopped.
func TestLifecycleStopsTickerService(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))

	var checks atomic.Int32
	var exited atomic.Bool
	quit := make(chan struct{})
	lc.Add("health", &FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(5 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					checks.Add(1)
				case <-quit:
					exited.Store(true)
					return nil
				}
			}
		},
		StopFn: func() { close(quit) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lc.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for checks.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("ticker service never ran a check")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}

	deadline = time.After(2 * time.Second)
	for !exited.Load() {
		select {
		case <-deadline:
			t.Fatal("ticker service loop did not exit after Stop")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestFuncServiceDelegates(t *testing.T) {
	started := false
	stopped := false

	svc := &FuncService{
		StartFn: func() error {
			started = true
			return nil
		},
		StopFn: func() {
			stopped = true
		},
	}

	assert.NoError(t, svc.Start())
	assert.True(t, started)

	svc.Stop()
	assert.True(t, stopped)
}
