package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glefebvre/iptvplayer/internal/logger"
)

func newHandler(timeout time.Duration) *Handler {
	return New(timeout, logger.Discard())
}

func TestNew(t *testing.T) {
	timeout := 5 * time.Second
	h := newHandler(timeout)

	if h.timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, h.timeout)
	}
	if h.IsShuttingDown() {
		t.Error("expected IsShuttingDown to be false")
	}
	if len(h.hooks) != 0 {
		t.Errorf("expected 0 hooks, got %d", len(h.hooks))
	}
}

func TestShutdown_ReverseOrder(t *testing.T) {
	h := newHandler(5 * time.Second)

	var order []string
	for _, name := range []string{"store", "cache", "api"} {
		h.Register(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"api", "cache", "store"}
	if len(order) != len(want) {
		t.Fatalf("expected %d hooks to run, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestShutdown_CollectsErrors(t *testing.T) {
	h := newHandler(5 * time.Second)
	errCache := errors.New("redis gone")

	var ran int32
	h.Register("store", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	h.Register("cache", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return errCache
	})

	err := h.Shutdown()
	if !errors.Is(err, errCache) {
		t.Fatalf("expected cache error, got %v", err)
	}
	if atomic.LoadInt32(&ran) != 2 {
		t.Errorf("a failing hook must not stop later hooks, ran %d", ran)
	}
}

func TestShutdown_Timeout(t *testing.T) {
	h := newHandler(50 * time.Millisecond)

	var storeRan int32
	h.Register("store", func(ctx context.Context) error {
		atomic.AddInt32(&storeRan, 1)
		return nil
	})
	h.Register("api", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := h.Shutdown()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if atomic.LoadInt32(&storeRan) != 0 {
		t.Error("hooks after the deadline must be skipped")
	}
}

func TestShutdown_Once(t *testing.T) {
	h := newHandler(5 * time.Second)

	var counter int32
	h.Register("api", func(ctx context.Context) error {
		atomic.AddInt32(&counter, 1)
		return nil
	})

	h.Shutdown()
	h.Shutdown()

	if atomic.LoadInt32(&counter) != 1 {
		t.Errorf("expected hook to run once, ran %d times", counter)
	}
}

func TestShutdownChan(t *testing.T) {
	h := newHandler(5 * time.Second)

	select {
	case <-h.ShutdownChan():
		t.Fatal("channel closed before shutdown")
	default:
	}

	h.Shutdown()

	select {
	case <-h.ShutdownChan():
	case <-time.After(time.Second):
		t.Fatal("channel not closed after shutdown")
	}
}

func TestTriggerShutdown(t *testing.T) {
	h := newHandler(5 * time.Second)

	var ran int32
	h.Register("api", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()

	h.TriggerShutdown()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after TriggerShutdown")
	}

	if atomic.LoadInt32(&ran) != 1 {
		t.Errorf("expected hook to run once, ran %d", ran)
	}
}
