package util

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "CLOSED"    // calls flow normally
	CircuitStateOpen     CircuitState = "OPEN"      // calls are skipped
	CircuitStateHalfOpen CircuitState = "HALF_OPEN" // one trial call at a time
)

// String implements Stringer interface
func (s CircuitState) String() string {
	return string(s)
}

// CircuitBreaker tracks consecutive failures of one upstream. It never retries on
// its own; callers ask CanExecute and report outcomes.
type CircuitBreaker struct {
	name             string
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	nextRetryTime    time.Time
	trialInFlight    bool
	now              func() time.Time
	logger           *zap.Logger
	mu               sync.Mutex
}

// NewCircuitBreaker returns nil when failureThreshold is not positive; a nil
// breaker always allows execution.
func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		return nil
	}
	return &CircuitBreaker{
		name:             name,
		state:            CircuitStateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
		logger:           logger,
	}
}

// GetState returns the current circuit state, moving OPEN to HALF_OPEN once the
// reset timeout has elapsed.
func (cb *CircuitBreaker) GetState() CircuitState {
	if cb == nil {
		return CircuitStateClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advance()
	return cb.state
}

// CanExecute reports whether a call may go ahead. While HALF_OPEN a single
// trial call is admitted; others are refused until its outcome is recorded or
// ReleaseTrial is called.
func (cb *CircuitBreaker) CanExecute() bool {
	if cb == nil {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advance()
	switch cb.state {
	case CircuitStateOpen:
		return false
	case CircuitStateHalfOpen:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true
	default:
		return true
	}
}

// ReleaseTrial frees the half-open slot without recording an outcome, for a
// trial call that was abandoned by its caller.
func (cb *CircuitBreaker) ReleaseTrial() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trialInFlight = false
}

// advance moves OPEN to HALF_OPEN once the reset timeout has elapsed (must be
// called with lock held).
func (cb *CircuitBreaker) advance() {
	if cb.state == CircuitStateOpen && !cb.now().Before(cb.nextRetryTime) {
		cb.transitionTo(CircuitStateHalfOpen)
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trialInFlight = false
	if cb.state == CircuitStateHalfOpen {
		cb.logger.Info("Circuit Breaker: upstream recovered", zap.String("upstream", cb.name))
		cb.transitionTo(CircuitStateClosed)
	}
	cb.failureCount = 0
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trialInFlight = false
	cb.failureCount++

	cb.logger.Warn("Circuit Breaker: failure recorded",
		zap.String("upstream", cb.name),
		zap.Int("count", cb.failureCount),
		zap.Int("threshold", cb.failureThreshold),
	)

	if cb.state == CircuitStateHalfOpen || cb.failureCount >= cb.failureThreshold {
		cb.nextRetryTime = cb.now().Add(cb.resetTimeout)
		cb.transitionTo(CircuitStateOpen)
	}
}

// transitionTo changes the circuit state (must be called with lock held)
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState

	nextRetry := "n/a"
	if newState == CircuitStateOpen {
		nextRetry = cb.nextRetryTime.Format(time.RFC3339)
	}

	cb.logger.Info("Circuit Breaker: state transition",
		zap.String("upstream", cb.name),
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
		zap.Int("failure_count", cb.failureCount),
		zap.String("next_retry", nextRetry),
	)
}

// Reset manually resets the circuit breaker
func (cb *CircuitBreaker) Reset() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitStateClosed
	cb.failureCount = 0
	cb.trialInFlight = false
	cb.nextRetryTime = time.Time{}
}

// GetStatus returns the current status
func (cb *CircuitBreaker) GetStatus() CircuitBreakerStatus {
	if cb == nil {
		return CircuitBreakerStatus{State: CircuitStateClosed}
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := CircuitBreakerStatus{
		State:        cb.state,
		FailureCount: cb.failureCount,
	}
	if cb.state == CircuitStateOpen {
		next := cb.nextRetryTime
		status.NextRetryTime = &next
	}
	return status
}

// CircuitBreakerStatus represents the circuit breaker status
type CircuitBreakerStatus struct {
	State         CircuitState
	FailureCount  int
	NextRetryTime *time.Time
}
