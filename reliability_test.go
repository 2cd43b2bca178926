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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2,
	}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	res := WithRetry(context.Background(), fastRetryConfig(), func() (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	require.True(t, res.Success())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	res := WithRetry(context.Background(), fastRetryConfig(), func() (bool, error) {
		calls++
		return false, permanent
	})
	require.False(t, res.Success())
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, res.Err, permanent)
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	calls := 0
	res := WithRetry(context.Background(), fastRetryConfig(), func() (bool, error) {
		calls++
		return true, errors.New("still failing")
	})
	require.False(t, res.Success())
	// 1 initial attempt + 3 retries.
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 4, calls)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetryConfig()
	cfg.BaseDelay = time.Minute
	res := WithRetry(ctx, cfg, func() (bool, error) {
		cancel()
		return true, errors.New("transient")
	})
	require.False(t, res.Success())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, res.Attempts)
}

func TestRetryableStatus(t *testing.T) {
	for _, s := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, RetryableStatus(s), "status %d", s)
	}
	for _, s := range []int{200, 301, 400, 401, 403, 404, 410, 501} {
		assert.False(t, RetryableStatus(s), "status %d", s)
	}
}

func TestRetryableErrorClassification(t *testing.T) {
	dnsFailure := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &net.DNSError{Err: "no such host", Name: "nonexistent.invalid", IsNotFound: true},
	}
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	assert.False(t, RetryableError(nil))
	assert.False(t, RetryableError(errors.New("parse error")))
	// Unresolvable hosts are permanent; refused connections are transient.
	assert.False(t, RetryableError(dnsFailure))
	assert.True(t, RetryableError(refused))
	assert.True(t, RetryableError(context.DeadlineExceeded))
}

// A dead hostname must fail on the first attempt rather than cycling the
// whole backoff budget.
func TestWithRetryStopsOnDNSFailure(t *testing.T) {
	calls := 0
	res := WithRetry(context.Background(), fastRetryConfig(), func() (bool, error) {
		calls++
		err := &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: &net.DNSError{Err: "no such host", Name: "nonexistent.invalid", IsNotFound: true},
		}
		return RetryableError(err), err
	})
	require.False(t, res.Success())
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, calls)
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Minute)
	for i := 0; i < 4; i++ {
		cb.RecordFailure()
		assert.False(t, cb.IsOpen(), "breaker open after %d failures", i+1)
	}
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	// Open breaker keeps failing fast before the reset timeout.
	assert.True(t, cb.IsOpen())
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	clock := time.Now()
	cb.now = func() time.Time { return clock }

	cb.RecordFailure()
	cb.RecordFailure()
	require.True(t, cb.IsOpen())

	// After the reset timeout the breaker lets one trial call through.
	clock = clock.Add(61 * time.Second)
	require.False(t, cb.IsOpen())
	cb.RecordSuccess()
	assert.False(t, cb.IsOpen())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerHalfOpenTrialFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	clock := time.Now()
	cb.now = func() time.Time { return clock }

	cb.RecordFailure()
	cb.RecordFailure()
	require.True(t, cb.IsOpen())

	clock = clock.Add(61 * time.Second)
	require.False(t, cb.IsOpen())
	// A single trial failure re-opens immediately, threshold or not.
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
}

func TestCircuitBreakerSuccessDecrementsWhileClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	// 2 failures - 1 success + 1 failure = 2, still below threshold 3.
	assert.False(t, cb.IsOpen())
	assert.Equal(t, 2, cb.Failures())
}

func TestThrottleExponentialDelay(t *testing.T) {
	th := NewThrottle()
	assert.Equal(t, time.Duration(0), th.Delay())

	th.Record429()
	assert.Equal(t, time.Second, th.Delay())
	th.Record429()
	assert.Equal(t, 2*time.Second, th.Delay())
	th.Record429()
	assert.Equal(t, 4*time.Second, th.Delay())

	// The cap holds no matter how many 429s pile up.
	for i := 0; i < 20; i++ {
		th.Record429()
	}
	assert.Equal(t, time.Minute, th.Delay())
}

func TestThrottleEasesOnSuccessAndResetsAfterIdle(t *testing.T) {
	th := NewThrottle()
	clock := time.Now()
	th.now = func() time.Time { return clock }

	th.Record429()
	th.Record429()
	th.RecordSuccess()
	assert.Equal(t, time.Second, th.Delay())

	th.Record429()
	clock = clock.Add(6 * time.Minute)
	assert.Equal(t, time.Duration(0), th.Delay())
}

func TestReliabilityRegistryPerOrigin(t *testing.T) {
	reg := NewReliabilityRegistry()
	a := reg.Breaker("https://a.example.com")
	b := reg.Breaker("https://b.example.com")
	require.NotSame(t, a, b)
	assert.Same(t, a, reg.Breaker("https://a.example.com"))

	a.RecordFailure()
	assert.Equal(t, 1, a.Failures())
	assert.Equal(t, 0, b.Failures())

	ta := reg.Throttle("https://a.example.com")
	assert.Same(t, ta, reg.Throttle("https://a.example.com"))
	assert.NotSame(t, ta, reg.Throttle("https://b.example.com"))
}
