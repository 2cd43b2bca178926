// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package siteaudit

import (
	"context"
	"errors"
	"math"
	"net"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a call is rejected without being attempted
// because the origin's circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open - too many failures")

// RetryConfig controls WithRetry. The zero value is not usable; start from
// DefaultRetryConfig.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// Multiplier scales the delay between consecutive retries.
	Multiplier float64
}

// DefaultRetryConfig returns the standard retry policy: 3 retries (4 attempts
// total), 1s base delay doubling per retry, capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
	}
}

// RetryResult records the outcome of a retry-wrapped operation.
type RetryResult struct {
	// Attempts is the number of attempts performed, including the first.
	Attempts int
	// Err is the last error observed, nil on success.
	Err error
}

// Success reports whether the wrapped operation eventually succeeded.
func (r RetryResult) Success() bool { return r.Err == nil }

// retryableStatuses are HTTP statuses worth retrying: request timeout, rate
// limiting and transient server errors.
var retryableStatuses = map[int]bool{
	408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
}

// RetryableStatus reports whether an HTTP status code is retryable.
func RetryableStatus(status int) bool { return retryableStatuses[status] }

// RetryableError classifies an error as retryable. Network-level failures
// (timeouts, refused/reset connections) are retryable; DNS resolution
// failures and everything else are treated as permanent.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// A host that does not resolve will not resolve on the next attempt
	// either; don't burn the retry budget on it.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// retryDelay computes the backoff before retry attempt k (0-based).
func retryDelay(attempt int, cfg RetryConfig) time.Duration {
	d := time.Duration(float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt)))
	if d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}

// WithRetry executes op until it succeeds, fails permanently, or the retry
// budget is exhausted. op returns the error to evaluate plus a retryable
// classification (callers fold HTTP status classification into it). Delays
// honor ctx cancellation.
func WithRetry(ctx context.Context, cfg RetryConfig, op func() (retryable bool, err error)) RetryResult {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		retryable, err := op()
		if err == nil {
			return RetryResult{Attempts: attempt + 1}
		}
		lastErr = err
		if attempt == cfg.MaxRetries {
			break
		}
		if !retryable {
			return RetryResult{Attempts: attempt + 1, Err: err}
		}
		select {
		case <-time.After(retryDelay(attempt, cfg)):
		case <-ctx.Done():
			return RetryResult{Attempts: attempt + 1, Err: ctx.Err()}
		}
	}
	return RetryResult{Attempts: cfg.MaxRetries + 1, Err: lastErr}
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// CircuitBreaker is a fail-fast gate guarding one origin. It starts closed,
// opens after FailureThreshold consecutive-ish failures, and allows a single
// trial call (half-open) after ResetTimeout elapses. A success while closed
// decrements the failure counter so sporadic failures do not accumulate
// indefinitely.
type CircuitBreaker struct {
	mu               sync.Mutex
	failures         int
	lastFailure      time.Time
	state            breakerState
	failureThreshold int
	resetTimeout     time.Duration

	now func() time.Time // test hook
}

// NewCircuitBreaker creates a breaker with the given failure threshold and
// reset timeout. Non-positive arguments fall back to the defaults (5, 60s).
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = time.Minute
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// IsOpen reports whether calls should fail fast. An open breaker whose reset
// timeout has elapsed transitions to half-open (counter reset) and lets the
// next call through as a trial.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == breakerOpen {
		if cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
			cb.state = breakerHalfOpen
			cb.failures = 0
			return false
		}
		return true
	}
	return false
}

// RecordSuccess reports a successful call. Half-open closes the breaker;
// closed decrements the failure counter (never below zero).
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == breakerHalfOpen {
		cb.failures = 0
		cb.state = breakerClosed
		return
	}
	if cb.failures > 0 {
		cb.failures--
	}
}

// RecordFailure reports a failed call. The trial call failing re-opens a
// half-open breaker immediately; otherwise the counter opens the breaker at
// the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == breakerHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = breakerOpen
	}
}

// Failures returns the current failure counter.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Throttle adapts request pacing to rate-limit responses from one origin.
// Each consecutive 429 doubles the delay before the next request; a non-429
// success decrements the counter, and the counter resets entirely after five
// minutes without a new 429.
type Throttle struct {
	mu             sync.Mutex
	consecutive429 int
	last429        time.Time

	baseDelay  time.Duration
	maxDelay   time.Duration
	resetAfter time.Duration

	now func() time.Time // test hook
}

// NewThrottle creates a throttle with the standard pacing: 1s base delay
// doubling per consecutive 429, capped at 60s, with a 5-minute idle reset.
func NewThrottle() *Throttle {
	return &Throttle{
		baseDelay:  time.Second,
		maxDelay:   time.Minute,
		resetAfter: 5 * time.Minute,
		now:        time.Now,
	}
}

// Delay returns the pause to apply before the next request to this origin.
func (t *Throttle) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.consecutive429 > 0 && t.now().Sub(t.last429) > t.resetAfter {
		t.consecutive429 = 0
	}
	if t.consecutive429 == 0 {
		return 0
	}
	d := time.Duration(float64(t.baseDelay) * math.Pow(2, float64(t.consecutive429-1)))
	if d > t.maxDelay {
		return t.maxDelay
	}
	return d
}

// Record429 registers a rate-limit response.
func (t *Throttle) Record429() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive429++
	t.last429 = t.now()
}

// RecordSuccess registers a non-429 success, easing the throttle one step.
func (t *Throttle) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.consecutive429 > 0 {
		t.consecutive429--
	}
}

// ReliabilityRegistry holds the per-origin circuit breakers and throttles for
// one fetch service. State is scoped to the registry owner (normally a single
// audit run), so concurrent audits of different sites stay isolated.
type ReliabilityRegistry struct {
	mu        sync.Mutex
	breakers  map[string]*CircuitBreaker
	throttles map[string]*Throttle
}

// NewReliabilityRegistry creates an empty registry.
func NewReliabilityRegistry() *ReliabilityRegistry {
	return &ReliabilityRegistry{
		breakers:  make(map[string]*CircuitBreaker),
		throttles: make(map[string]*Throttle),
	}
}

// Breaker returns the circuit breaker for an origin, creating it on first use.
func (r *ReliabilityRegistry) Breaker(origin string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[origin]
	if !ok {
		cb = NewCircuitBreaker(0, 0)
		r.breakers[origin] = cb
	}
	return cb
}

// Throttle returns the adaptive throttle for an origin, creating it on first use.
func (r *ReliabilityRegistry) Throttle(origin string) *Throttle {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.throttles[origin]
	if !ok {
		t = NewThrottle()
		r.throttles[origin] = t
	}
	return t
}
