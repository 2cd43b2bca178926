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
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidSeed is returned when the audit's starting URL cannot be parsed.
var ErrInvalidSeed = errors.New("seed URL is not a valid absolute http(s) URL")

// Limits bounds the sampling crawl.
type Limits struct {
	// SampleTotalPages is the page budget, the seed included.
	SampleTotalPages int
	// RequestDelay is the base politeness delay before each fetch.
	RequestDelay time.Duration
	// RequestJitter is the randomized extra delay added to RequestDelay.
	RequestJitter time.Duration
	// PerHostConcurrency bounds in-flight fetches per host.
	PerHostConcurrency int
	// GlobalConcurrency bounds in-flight fetches overall.
	GlobalConcurrency int
	// PerPageTimeout is the wall-clock budget for one page fetch.
	PerPageTimeout time.Duration
	// MaxHTMLBytes caps how much of a page body is read.
	MaxHTMLBytes int
	// MaxLinksPerPage caps link extraction so mega-menus and link farms
	// cannot explode the crawl frontier.
	MaxLinksPerPage int
}

// DefaultLimits returns the standard sample-audit limits.
func DefaultLimits() Limits {
	return Limits{
		SampleTotalPages:   50,
		RequestDelay:       1100 * time.Millisecond,
		RequestJitter:      900 * time.Millisecond,
		PerHostConcurrency: 1,
		GlobalConcurrency:  4,
		PerPageTimeout:     25 * time.Second,
		MaxHTMLBytes:       1_800_000,
		MaxLinksPerPage:    250,
	}
}

// workers is the effective worker-pool size.
func (l Limits) workers() int {
	n := l.GlobalConcurrency
	if l.PerHostConcurrency < n {
		n = l.PerHostConcurrency
	}
	if n < 1 {
		n = 1
	}
	return n
}

// CrawlResult is the outcome of one sampling crawl.
type CrawlResult struct {
	// Pages are the fetched pages, deduplicated by normalized final URL.
	Pages []*Page
	// Seed is the normalized seed URL.
	Seed string
	// Origin is the crawl's origin; only same-origin URLs were considered.
	Origin string
	// Checked is the number of pages fetched.
	Checked int
	// Discovered counts distinct URLs seen: selected plus linked-but-unfetched.
	Discovered int
}

// Crawler performs a politeness-throttled, concurrency-bounded expanding
// sample crawl: a stratified pre-selection from the candidate pool seeds a
// growing work set, and links discovered on fetched pages keep enlarging it
// until the page budget is exhausted or no new URLs appear.
type Crawler struct {
	fetcher *Fetcher
	limits  Limits
	// Robots optionally restricts which URLs may be enqueued. Nil allows all.
	Robots *RobotsPolicy
	// OnProgress, when set, is called with the running page count after each
	// recorded page.
	OnProgress func(n int)

	mu        sync.Mutex
	origin    string
	budget    int
	selected  map[string]bool
	order     []string
	scheduled map[string]bool
	recorded  map[string]bool
	pages     []*Page
}

// NewCrawler creates a crawler that fetches through the given fetcher.
func NewCrawler(fetcher *Fetcher, limits Limits) *Crawler {
	return &Crawler{fetcher: fetcher, limits: limits}
}

// Crawl samples the site starting from seedURL. candidates is an ordered
// priority hint (e.g. from sitemap sampling); every candidate still passes
// normalization and the crawlability policy. siteType selects the stratified
// quota table. Individual page failures degrade to status-0 pages; they
// never abort the crawl. Only an unusable seed returns an error.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, candidates []string, siteType SiteType) (*CrawlResult, error) {
	seed, ok := NormalizeURL(seedURL)
	if !ok {
		return nil, ErrInvalidSeed
	}

	c.mu.Lock()
	c.origin = OriginOf(seed)
	c.budget = c.limits.SampleTotalPages
	if c.budget < 1 {
		c.budget = 1
	}
	c.selected = map[string]bool{seed: true}
	c.order = []string{seed}
	c.scheduled = make(map[string]bool)
	c.recorded = make(map[string]bool)
	c.pages = nil
	c.mu.Unlock()

	// Stratified pre-selection fills the budget with a diverse candidate
	// subset; the seed always occupies slot one.
	pool := c.normalizeCandidates(seed, candidates)
	for _, u := range PickStratified(pool, c.budget-1, siteType) {
		c.enqueue(u)
	}

	// Drain rounds: fetch everything selected-but-unscheduled, wait for the
	// round to finish, then re-check for growth from discovered links.
	for {
		pending := c.takeUnscheduled()
		if len(pending) == 0 {
			break
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.limits.workers())
		for _, u := range pending {
			u := u
			g.Go(func() error {
				c.fetchOne(gctx, u)
				return nil
			})
		}
		g.Wait()
		if ctx.Err() != nil {
			break
		}
		if c.pageCount() >= c.budget {
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	discovered := make(map[string]bool, len(c.selected))
	for u := range c.selected {
		discovered[u] = true
	}
	for _, p := range c.pages {
		for _, l := range p.LinksInternal {
			discovered[l] = true
		}
	}

	return &CrawlResult{
		Pages:      c.pages,
		Seed:       seed,
		Origin:     c.origin,
		Checked:    len(c.pages),
		Discovered: len(discovered),
	}, nil
}

// normalizeCandidates filters the candidate pool down to distinct,
// same-origin, crawlable, normalized URLs, preserving the supplier's order.
func (c *Crawler) normalizeCandidates(seed string, candidates []string) []string {
	seen := map[string]bool{seed: true}
	var out []string
	for _, raw := range candidates {
		nu, ok := NormalizeURL(raw)
		if !ok || seen[nu] {
			continue
		}
		if OriginOf(nu) != c.origin || !IsCrawlable(nu) || !c.Robots.Allowed(nu) {
			continue
		}
		seen[nu] = true
		out = append(out, nu)
	}
	return out
}

// enqueue adds a URL to the selected set if it passes the crawl policy and
// the budget has room. Membership check and insert happen as a single step
// under the lock, so concurrent discovery cannot double-schedule a URL.
func (c *Crawler) enqueue(raw string) bool {
	nu, ok := NormalizeURL(raw)
	if !ok {
		return false
	}
	if OriginOf(nu) != c.origin || !IsCrawlable(nu) || !c.Robots.Allowed(nu) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.selected) >= c.budget || c.selected[nu] {
		return false
	}
	c.selected[nu] = true
	c.order = append(c.order, nu)
	return true
}

// takeUnscheduled returns the selected URLs not yet handed to a worker,
// marking them scheduled.
func (c *Crawler) takeUnscheduled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var pending []string
	for _, u := range c.order {
		if !c.scheduled[u] {
			c.scheduled[u] = true
			pending = append(pending, u)
		}
	}
	return pending
}

func (c *Crawler) pageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

// fetchOne fetches a single selected URL, extracts its signals and links,
// feeds new links back into the work set, and records the finished page.
// Failures degrade to a status-0 page; they never propagate to the pool.
func (c *Crawler) fetchOne(ctx context.Context, u string) {
	delay := c.limits.RequestDelay
	if c.limits.RequestJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(c.limits.RequestJitter)))
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}

	fetchCtx := ctx
	if c.limits.PerPageTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.limits.PerPageTimeout)
		defer cancel()
	}
	res, err := c.fetcher.Fetch(fetchCtx, u)
	if err != nil {
		c.record(&Page{URL: u, FinalURL: u, Status: 0, FetchError: err.Error()})
		return
	}

	finalURL := res.FinalURL
	if nf, ok := NormalizeURL(finalURL); ok {
		finalURL = nf
	}

	body := res.Body
	if c.limits.MaxHTMLBytes > 0 && len(body) > c.limits.MaxHTMLBytes {
		body = body[:c.limits.MaxHTMLBytes]
	}
	signals := ExtractSignals(body, res.FinalURL, c.limits.MaxLinksPerPage)

	var linksInternal []string
	linkSeen := make(map[string]bool)
	for _, raw := range signals.InternalLinks {
		nu, ok := NormalizeURL(raw)
		if !ok || linkSeen[nu] {
			continue
		}
		if OriginOf(nu) != c.origin || !IsCrawlable(nu) {
			continue
		}
		linkSeen[nu] = true
		linksInternal = append(linksInternal, nu)
		// Expand the sample until the page budget is hit.
		c.enqueue(nu)
	}

	page := &Page{
		URL:              u,
		FinalURL:         finalURL,
		Status:           res.Status,
		RedirectChain:    res.RedirectChain,
		Title:            signals.Title,
		MetaDescription:  signals.MetaDescription,
		Canonical:        signals.Canonical,
		MetaRobots:       signals.MetaRobots,
		XRobotsTag:       res.Headers.Get("X-Robots-Tag"),
		H1Count:          signals.H1Count,
		ImagesMissingAlt: signals.ImagesMissingAlt,
		HasViewport:      signals.HasViewport,
		WordCount:        signals.WordCount,
		IsHTTPS:          strings.HasPrefix(finalURL, "https://"),
		HasMixedContent:  signals.HasMixedContent,
		TTFBMillis:       int(res.TTFB.Milliseconds()),
		LinksInternal:    linksInternal,
	}
	page.detectIssues()
	c.record(page)
}

// record stores a finished page, deduplicating by normalized final URL so
// concurrent fetches that land on the same destination produce one entry.
func (c *Crawler) record(p *Page) {
	key := p.FinalURL
	if key == "" {
		key = p.URL
	}

	c.mu.Lock()
	if c.recorded[key] || len(c.pages) >= c.budget {
		c.mu.Unlock()
		return
	}
	c.recorded[key] = true
	c.pages = append(c.pages, p)
	n := len(c.pages)
	progress := c.OnProgress
	c.mu.Unlock()

	if progress != nil {
		progress(n)
	}
}
