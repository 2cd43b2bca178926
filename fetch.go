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
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

var (
	// ErrTooManyRedirects is returned when a fetch exceeds the redirect hop limit.
	ErrTooManyRedirects = errors.New("stopped after 10 redirects")
	// ErrNoHostPattern is the error for HostRules without a glob pattern.
	ErrNoHostPattern = errors.New("no pattern defined in HostRule")
)

const maxRedirectHops = 10

// FetchResult is the observed outcome of fetching one URL, redirects followed.
type FetchResult struct {
	// Status is the final HTTP status code.
	Status int
	// FinalURL is the URL that produced the final response.
	FinalURL string
	// ContentType is the final response's Content-Type header.
	ContentType string
	// Headers are the final response headers.
	Headers http.Header
	// Body is the decoded response body, truncated at the configured byte cap.
	Body string
	// TTFB is the time to first response byte of the first hop.
	TTFB time.Duration
	// RedirectChain lists the ordered hop URLs (requested ... final) when one
	// or more redirects occurred; empty otherwise.
	RedirectChain []string
	// Attempts is the number of attempts the retry layer performed.
	Attempts int
}

// HostRule overrides request pacing for hosts matching a glob pattern.
type HostRule struct {
	// HostGlob is a glob pattern matched against the request host.
	HostGlob string
	// Delay is the extra wait applied before each request to matching hosts.
	Delay time.Duration
	// RandomDelay is an extra randomized wait added on top of Delay.
	RandomDelay time.Duration

	compiledGlob glob.Glob
}

// Init compiles the rule's pattern. Called automatically by the Fetcher.
func (r *HostRule) Init() error {
	if r.HostGlob == "" {
		return ErrNoHostPattern
	}
	g, err := glob.Compile(r.HostGlob)
	if err != nil {
		return err
	}
	r.compiledGlob = g
	return nil
}

// Match reports whether the rule applies to a host.
func (r *HostRule) Match(host string) bool {
	return r.compiledGlob != nil && r.compiledGlob.Match(host)
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// Timeout is the wall-clock budget for one fetch, redirects included.
	Timeout time.Duration
	// MaxBodyBytes caps how much of the response body is read. Reading stops
	// at the cap instead of buffering unbounded data.
	MaxBodyBytes int
	// UserAgent is sent on every request.
	UserAgent string
	// MinOriginInterval, when positive, paces requests to one origin at most
	// one per interval.
	MinOriginInterval time.Duration
	// Retry is the backoff policy for transient failures.
	Retry RetryConfig
	// HostRules apply additional pacing to matching hosts.
	HostRules []*HostRule
}

// DefaultFetcherConfig returns the standard fetch policy used by audits.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:      25 * time.Second,
		MaxBodyBytes: 1_800_000,
		UserAgent:    "siteaudit/1.0 (+https://github.com/agentberlin/siteaudit)",
		Retry:        DefaultRetryConfig(),
	}
}

// Fetcher retrieves HTML pages with the full reliability stack applied: each
// fetch consults the origin's circuit breaker (failing fast when open),
// applies the adaptive throttle delay and origin pacing, runs the retry-
// wrapped request, and reports the outcome back to breaker and throttle.
type Fetcher struct {
	client   *http.Client
	config   FetcherConfig
	registry *ReliabilityRegistry

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a Fetcher with its own reliability registry. If client
// is nil a default http.Client is used; redirects are always handled manually
// so the hop chain can be captured.
func NewFetcher(config FetcherConfig, client *http.Client) (*Fetcher, error) {
	if client == nil {
		client = &http.Client{}
	}
	// Redirects are followed manually in doRequest.
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	for _, r := range config.HostRules {
		if err := r.Init(); err != nil {
			return nil, err
		}
	}
	return &Fetcher{
		client:   client,
		config:   config,
		registry: NewReliabilityRegistry(),
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Registry exposes the fetcher's per-origin reliability state.
func (f *Fetcher) Registry() *ReliabilityRegistry { return f.registry }

// SetClient replaces the underlying HTTP client. Useful for tests with mock
// transports.
func (f *Fetcher) SetClient(client *http.Client) {
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	f.client = client
}

func (f *Fetcher) limiter(origin string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[origin]
	if !ok {
		limit := rate.Inf
		if f.config.MinOriginInterval > 0 {
			limit = rate.Every(f.config.MinOriginInterval)
		}
		l = rate.NewLimiter(limit, 1)
		f.limiters[origin] = l
	}
	return l
}

func (f *Fetcher) matchingRule(host string) *HostRule {
	for _, r := range f.config.HostRules {
		if r.Match(host) {
			return r
		}
	}
	return nil
}

// errRetryableStatus signals the retry layer that the response arrived but
// carried a retryable HTTP status.
type errRetryableStatus struct{ status int }

func (e *errRetryableStatus) Error() string {
	return fmt.Sprintf("retryable http status %d", e.status)
}

// Fetch retrieves one URL. HTTP error statuses are results, not errors: a 404
// yields a FetchResult with Status 404 and a nil error. A non-nil error means
// no usable response was obtained (network failure, open breaker, exhausted
// retries on connection errors).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	origin := OriginOf(rawURL)
	breaker := f.registry.Breaker(origin)
	throttle := f.registry.Throttle(origin)

	if breaker.IsOpen() {
		return nil, ErrCircuitOpen
	}

	if d := throttle.Delay(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.limiter(origin).Wait(ctx); err != nil {
		return nil, err
	}

	var last *FetchResult
	res := WithRetry(ctx, f.config.Retry, func() (bool, error) {
		r, err := f.doRequest(ctx, rawURL)
		if err != nil {
			return RetryableError(err), err
		}
		last = r
		if r.Status == http.StatusTooManyRequests {
			throttle.Record429()
		}
		if RetryableStatus(r.Status) {
			return true, &errRetryableStatus{status: r.Status}
		}
		return false, nil
	})

	if last != nil {
		last.Attempts = res.Attempts
		// A response means the origin is reachable; only retryable server-side
		// statuses count against the breaker.
		if RetryableStatus(last.Status) {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
		// Only a genuine success eases the throttle; a 5xx after exhausted
		// retries is not evidence the origin has recovered.
		if last.Status < 500 && last.Status != http.StatusTooManyRequests {
			throttle.RecordSuccess()
		}
		return last, nil
	}

	breaker.RecordFailure()
	return nil, res.Err
}

// doRequest performs a single fetch attempt: manual redirect following with
// hop capture, TTFB trace on the first hop, capped charset-aware body read.
func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (*FetchResult, error) {
	reqCtx := ctx
	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	if rule := f.matchingRule(hostOf(rawURL)); rule != nil {
		d := rule.Delay
		if rule.RandomDelay > 0 {
			d += time.Duration(rand.Int63n(int64(rule.RandomDelay)))
		}
		if d > 0 {
			select {
			case <-time.After(d):
			case <-reqCtx.Done():
				return nil, reqCtx.Err()
			}
		}
	}

	var chain []string
	currentURL := rawURL
	var ttfb time.Duration

	for hop := 0; hop < maxRedirectHops; hop++ {
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, currentURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.config.UserAgent)
		req.Header.Set("Accept", "text/html,*/*")

		if hop == 0 {
			var start time.Time
			trace := &httptrace.ClientTrace{
				GetConn:              func(string) { start = time.Now() },
				GotFirstResponseByte: func() { ttfb = time.Since(start) },
			}
			req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
		}

		res, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}

		location := res.Header.Get("Location")
		if res.StatusCode >= 300 && res.StatusCode < 400 && location != "" {
			next, err := req.URL.Parse(location)
			if err != nil {
				res.Body.Close()
				return nil, err
			}
			if len(chain) == 0 {
				chain = append(chain, currentURL)
			}
			chain = append(chain, next.String())
			res.Body.Close()
			currentURL = next.String()
			continue
		}

		body, err := f.readBody(res)
		res.Body.Close()
		if err != nil {
			return nil, err
		}
		return &FetchResult{
			Status:        res.StatusCode,
			FinalURL:      currentURL,
			ContentType:   res.Header.Get("Content-Type"),
			Headers:       res.Header,
			Body:          body,
			TTFB:          ttfb,
			RedirectChain: chain,
		}, nil
	}

	return nil, ErrTooManyRedirects
}

// readBody reads the response body up to the configured cap, decoding to
// UTF-8 based on the declared charset. Reading stops at the cap; oversized
// pages are truncated, not rejected.
func (f *Fetcher) readBody(res *http.Response) (string, error) {
	var reader io.Reader = res.Body
	if f.config.MaxBodyBytes > 0 {
		reader = io.LimitReader(reader, int64(f.config.MaxBodyBytes))
	}
	decoded, err := charset.NewReader(reader, res.Header.Get("Content-Type"))
	if err != nil {
		// Fall back to the raw bytes when the charset is undeclared or bogus.
		decoded = reader
	}
	b, err := io.ReadAll(decoded)
	if err != nil && len(b) == 0 {
		return "", err
	}
	return string(b), nil
}

func hostOf(rawURL string) string {
	u, ok := parseLenient(rawURL)
	if !ok {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
