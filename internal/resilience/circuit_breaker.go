package resilience

import (
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // wait before a half-open probe
	SuccessThreshold int           `json:"success_threshold"` // half-open successes needed to close

	// IsFailure decides which errors count against the breaker. Nil counts all.
	IsFailure func(error) bool `json:"-"`
	// OnStateChange is called after every transition
	OnStateChange func(from, to CircuitBreakerState) `json:"-"`
}

// CircuitBreaker protects calls to an upstream service
type CircuitBreaker struct {
	config    CircuitBreakerConfig
	state     int32
	failures  int32
	successes int32

	mu          sync.Mutex
	nextAttempt time.Time
}

// NewCircuitBreaker creates a new circuit breaker, filling zero config values
// with defaults
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 3
	}

	return &CircuitBreaker{
		config: config,
		state:  int32(StateClosed),
	}
}

// Call executes a function with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	state := cb.State()

	if state == StateOpen {
		cb.mu.Lock()
		waiting := time.Now().Before(cb.nextAttempt)
		cb.mu.Unlock()
		if waiting {
			return NewCircuitBreakerError("circuit breaker is open", state)
		}
		atomic.StoreInt32(&cb.successes, 0)
		cb.transition(StateOpen, StateHalfOpen)
	}

	err := fn()
	if err != nil && (cb.config.IsFailure == nil || cb.config.IsFailure(err)) {
		cb.onFailure()
		return err
	}

	cb.onSuccess()
	return err
}

func (cb *CircuitBreaker) onFailure() {
	failures := atomic.AddInt32(&cb.failures, 1)
	atomic.StoreInt32(&cb.successes, 0)

	state := cb.State()
	if state == StateHalfOpen || failures >= int32(cb.config.FailureThreshold) {
		cb.mu.Lock()
		cb.nextAttempt = time.Now().Add(cb.config.RecoveryTimeout)
		cb.mu.Unlock()
		cb.transition(state, StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	atomic.StoreInt32(&cb.failures, 0)

	if cb.State() == StateHalfOpen {
		successes := atomic.AddInt32(&cb.successes, 1)
		if successes >= int32(cb.config.SuccessThreshold) {
			cb.transition(StateHalfOpen, StateClosed)
		}
	}
}

func (cb *CircuitBreaker) transition(from, to CircuitBreakerState) {
	if from == to {
		return
	}
	if atomic.CompareAndSwapInt32(&cb.state, int32(from), int32(to)) && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	return int(atomic.LoadInt32(&cb.failures))
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.failures, 0)
	atomic.StoreInt32(&cb.successes, 0)
}

// Stats reports the breaker state for health endpoints
func (cb *CircuitBreaker) Stats() map[string]interface{} {
	return map[string]interface{}{
		"state":    cb.State().String(),
		"failures": cb.Failures(),
	}
}

// CircuitBreakerError represents an error from the circuit breaker
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// NewCircuitBreakerError creates a new circuit breaker error
func NewCircuitBreakerError(message string, state CircuitBreakerState) *CircuitBreakerError {
	return &CircuitBreakerError{
		Message: message,
		State:   state,
	}
}
