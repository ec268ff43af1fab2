package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/glefebvre/iptvplayer/internal/logger"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Handler releases the API server, the response cache and the account
// store in reverse order of registration once a signal arrives
type Handler struct {
	mu             sync.Mutex
	hooks          []hook
	timeout        time.Duration
	logger         *logger.Logger
	signalChan     chan os.Signal
	shutdownChan   chan struct{}
	isShuttingDown bool
}

// New creates a new shutdown handler
func New(timeout time.Duration, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.AppLogger()
	}
	return &Handler{
		timeout:      timeout,
		logger:       log.Named("shutdown"),
		signalChan:   make(chan os.Signal, 1),
		shutdownChan: make(chan struct{}),
	}
}

// Register adds a named hook. Hooks run one at a time, last registered first.
func (h *Handler) Register(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
}

// Wait blocks until SIGINT, SIGTERM or TriggerShutdown, then runs the hooks
func (h *Handler) Wait() error {
	signal.Notify(h.signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(h.signalChan)

	sig := <-h.signalChan
	h.logger.WithFields(map[string]interface{}{
		"signal": sig.String(),
	}).Info("shutting down")
	return h.Shutdown()
}

// Shutdown runs every hook within the handler timeout. It is a no-op after
// the first call.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	if h.isShuttingDown {
		h.mu.Unlock()
		return nil
	}
	h.isShuttingDown = true
	hooks := make([]hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	close(h.shutdownChan)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, ctx.Err()))
			continue
		}

		start := time.Now()
		err := hooks[i].fn(ctx)
		fields := h.logger.WithFields(map[string]interface{}{
			"hook":        hooks[i].name,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if err != nil {
			fields.Error("shutdown hook failed", err)
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
			continue
		}
		fields.Debug("shutdown hook done")
	}

	return errors.Join(errs...)
}

// IsShuttingDown returns true if shutdown has been initiated
func (h *Handler) IsShuttingDown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isShuttingDown
}

// ShutdownChan returns a channel that is closed when shutdown is initiated
func (h *Handler) ShutdownChan() <-chan struct{} {
	return h.shutdownChan
}

// TriggerShutdown wakes Wait as if SIGTERM had arrived
func (h *Handler) TriggerShutdown() {
	select {
	case h.signalChan <- syscall.SIGTERM:
	default:
	}
}
