package infra

// breaker.go — circuit breaker (Closed → Open → Half-Open) guarding the SMTP
// relay. A downed relay would otherwise block every worker goroutine on
// connection timeouts; with the breaker tripped, sends fail fast and land in
// the DLQ for later inspection.

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by Execute while the breaker is tripped.
var ErrBreakerOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	breakerClosed   breakerState = iota // normal — calls flow
	breakerOpen                         // tripped — fast-fail every call
	breakerHalfOpen                     // probing — one call allowed through
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker trips open after failureThreshold consecutive failures, stays open
// for openTimeout, then allows probe calls; successThreshold consecutive
// probe successes close it again.
type Breaker struct {
	mu               sync.Mutex
	state            breakerState
	failures         int
	successes        int
	lastFailure      time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

// NewBreaker creates a closed breaker. Non-positive arguments fall back to
// 5 failures / 2 successes / 60s.
func NewBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
	}
}

// State returns the current state, auto-transitioning open → half-open once
// the timeout has elapsed.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState().String()
}

func (b *Breaker) currentState() breakerState {
	if b.state == breakerOpen && time.Since(b.lastFailure) >= b.openTimeout {
		b.state = breakerHalfOpen
		b.successes = 0
	}
	return b.state
}

// Execute runs fn through the breaker, returning ErrBreakerOpen immediately
// while tripped.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.currentState() == breakerOpen {
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

func (b *Breaker) recordFailure() {
	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case breakerClosed:
		if b.failures >= b.failureThreshold {
			b.state = breakerOpen
			b.successes = 0
		}
	case breakerHalfOpen:
		// probe failed — back to open
		b.state = breakerOpen
		b.failures = 0
	}
}

func (b *Breaker) recordSuccess() {
	switch b.state {
	case breakerClosed:
		b.failures = 0
	case breakerHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = breakerClosed
			b.failures = 0
			b.successes = 0
		}
	}
}
