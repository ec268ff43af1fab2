package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/glefebvre/iptvplayer/internal/logger"
)

var (
	// ErrOpenState is returned when the circuit breaker is open
	ErrOpenState = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when too many requests are made in half-open state
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed allows all requests through
	StateClosed State = iota

	// StateOpen rejects all requests
	StateOpen

	// StateHalfOpen allows limited requests to test recovery
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	// MaxFailures is the number of consecutive failures before opening the circuit
	MaxFailures uint

	// Timeout is how long to wait in open state before moving to half-open
	Timeout time.Duration

	// MaxHalfOpenRequests is the maximum requests allowed in half-open state
	MaxHalfOpenRequests uint

	// IsFailure decides which errors count against the circuit. Errors it
	// rejects (bad credentials, 404) are returned but leave the state alone.
	IsFailure func(error) bool
}

// DefaultConfig returns defaults suited to IPTV panels
func DefaultConfig() Config {
	return Config{
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 1,
		IsFailure: func(err error) bool {
			return err != nil
		},
	}
}

// CircuitBreaker guards calls to a single upstream host
type CircuitBreaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failures         uint
	successes        uint
	halfOpenRequests uint
	lastStateChange  time.Time
	cfg              Config
	log              *logger.Logger
}

// New creates a new circuit breaker
func New(name string, cfg Config, log *logger.Logger) *CircuitBreaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.MaxHalfOpenRequests == 0 {
		cfg.MaxHalfOpenRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if log == nil {
		log = logger.AppLogger()
	}

	return &CircuitBreaker{
		name:            name,
		state:           StateClosed,
		lastStateChange: time.Now(),
		cfg:             cfg,
		log:             log,
	}
}

// Execute runs fn through the circuit breaker
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	cb.afterRequest(err)

	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastStateChange) < cb.cfg.Timeout {
			return ErrOpenState
		}
		cb.setState(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.halfOpenRequests >= cb.cfg.MaxHalfOpenRequests {
			return ErrTooManyRequests
		}
		cb.halfOpenRequests++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.cfg.IsFailure(err) {
		cb.onSuccess()
		return
	}
	cb.onFailure()
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.MaxHalfOpenRequests {
			cb.setState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(state State) {
	if cb.state != state {
		cb.log.WithFields(map[string]interface{}{
			"breaker": cb.name,
			"from":    cb.state.String(),
			"to":      state.String(),
		}).Warn("circuit breaker state change")
	}

	cb.state = state
	cb.lastStateChange = time.Now()
	cb.successes = 0
	cb.halfOpenRequests = 0
	if state == StateClosed {
		cb.failures = 0
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current failure count
func (cb *CircuitBreaker) Failures() uint {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
}

// Registry hands out one breaker per upstream host so that a dead panel
// does not trip requests going to a healthy one
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	log      *logger.Logger
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty per-host registry
func NewRegistry(cfg Config, log *logger.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		log:      log,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// For returns the breaker for host, creating it on first use
func (r *Registry) For(host string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[host]
	if !ok {
		cb = New(host, r.cfg, r.log)
		r.breakers[host] = cb
	}
	return cb
}

// Reset closes the breaker for host if one exists
func (r *Registry) Reset(host string) {
	r.mu.Lock()
	cb, ok := r.breakers[host]
	r.mu.Unlock()

	if ok {
		cb.Reset()
	}
}

// States returns a snapshot of every known breaker state
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	hosts := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		hosts = append(hosts, cb)
	}
	r.mu.Unlock()

	out := make(map[string]State, len(hosts))
	for _, cb := range hosts {
		out[cb.name] = cb.State()
	}
	return out
}
