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
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Failure reasons surfaced on a Report.
const (
	FailureInvalidSeed     = "invalid_seed"
	FailureSiteUnreachable = "site_unreachable"
)

// Failure distinguishes a whole-audit failure from ordinary per-page
// degradation.
type Failure struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// Coverage summarizes how much of the site the sample saw.
type Coverage struct {
	// CheckedPages is the number of pages actually fetched and analyzed.
	CheckedPages int `json:"checked_pages"`
	// DiscoveredURLs counts distinct same-origin URLs seen during the crawl,
	// fetched or not.
	DiscoveredURLs int `json:"discovered_urls"`
	// ReachablePages is the subset of checked pages that answered with any
	// HTTP status.
	ReachablePages int `json:"reachable_pages"`
}

// Report is the complete outcome of one audit run.
type Report struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	SiteType SiteType `json:"site_type"`

	Coverage Coverage        `json:"coverage"`
	Score    *ScoreBreakdown `json:"score,omitempty"`
	Pages    []*Page         `json:"pages,omitempty"`
	Failure  *Failure        `json:"failure,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// CandidateSource supplies prioritized candidate URLs for the stratified
// sample, typically from a sitemap or a prior discovery pass. Implementations
// return a best-effort list; an empty slice just means the crawl grows from
// the seed alone.
type CandidateSource interface {
	Candidates(ctx context.Context, seed string) ([]string, error)
}

// CandidateFunc adapts a function to the CandidateSource interface.
type CandidateFunc func(ctx context.Context, seed string) ([]string, error)

func (f CandidateFunc) Candidates(ctx context.Context, seed string) ([]string, error) {
	return f(ctx, seed)
}

// AuditOptions carry the optional inputs to one audit run.
type AuditOptions struct {
	// Candidates supplies the stratified-sampling URL pool. Nil means the
	// crawl expands from the seed alone.
	Candidates CandidateSource
	// SiteType, when set, skips heuristic detection.
	SiteType SiteType
	// Freshness and Performance feed the corresponding scoring pillars.
	Freshness   *FreshnessData
	Performance *float64
	// RespectRobots enables robots.txt enforcement during the crawl.
	RespectRobots bool
	// OnProgress, when set, receives the running checked-page count.
	OnProgress func(n int)
}

// Auditor runs complete site audits: pre-flight, sampling crawl, link-graph
// analysis, and scoring.
type Auditor struct {
	fetcher  *Fetcher
	limits   Limits
	detector TypeDetector
}

// NewAuditor creates an auditor. detector may be nil, in which case the
// built-in URL-pattern heuristic is used.
func NewAuditor(fetcher *Fetcher, limits Limits, detector TypeDetector) *Auditor {
	if detector == nil {
		detector = &HeuristicDetector{Fetcher: fetcher}
	}
	return &Auditor{fetcher: fetcher, limits: limits, detector: detector}
}

// Run audits the site at seedURL. An unusable seed is the only hard error;
// everything else degrades into the report (per-page failures become status-0
// pages, a fully unreachable site becomes Failure "site_unreachable").
func (a *Auditor) Run(ctx context.Context, seedURL string, opts AuditOptions) (*Report, error) {
	started := time.Now()
	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: started,
	}

	seed, ok := NormalizeURL(seedURL)
	if !ok {
		report.URL = seedURL
		report.Failure = &Failure{
			Reason:  FailureInvalidSeed,
			Message: fmt.Sprintf("cannot audit %q: %v", seedURL, ErrInvalidSeed),
		}
		report.Duration = time.Since(started)
		return report, ErrInvalidSeed
	}
	report.URL = seed

	var (
		candidates []string
		robots     *RobotsPolicy
		siteType   = opts.SiteType
	)

	// Pre-flight: candidate discovery, robots fetch and site-type detection
	// are independent, so they run concurrently. All of them are best-effort.
	g, gctx := errgroup.WithContext(ctx)
	if opts.Candidates != nil {
		g.Go(func() error {
			urls, err := opts.Candidates.Candidates(gctx, seed)
			if err == nil {
				candidates = urls
			}
			return nil
		})
	}
	if opts.RespectRobots {
		g.Go(func() error {
			policy, err := FetchRobots(gctx, a.fetcher, OriginOf(seed), a.fetcher.config.UserAgent)
			if err == nil {
				robots = policy
			}
			return nil
		})
	}
	g.Wait()

	if siteType == "" || siteType == SiteTypeUnknown {
		siteType = a.detector.Classify(ctx, seed, candidates)
	}
	report.SiteType = siteType

	crawler := NewCrawler(a.fetcher, a.limits)
	crawler.Robots = robots
	crawler.OnProgress = opts.OnProgress

	result, err := crawler.Crawl(ctx, seed, candidates, siteType)
	if err != nil {
		report.Failure = &Failure{Reason: FailureInvalidSeed, Message: err.Error()}
		report.Duration = time.Since(started)
		return report, err
	}

	reachable := 0
	for _, p := range result.Pages {
		if p.Status > 0 {
			reachable++
		}
	}
	report.Coverage = Coverage{
		CheckedPages:   result.Checked,
		DiscoveredURLs: result.Discovered,
		ReachablePages: reachable,
	}
	report.Pages = result.Pages

	if reachable == 0 {
		report.Failure = &Failure{
			Reason:  FailureSiteUnreachable,
			Message: "no page in the sample returned an HTTP response",
		}
		report.Duration = time.Since(started)
		return report, nil
	}

	ApplyGraphIssues(result.Pages, result.Seed)
	report.Score = Score(result.Pages, siteType, ScoreOptions{
		Freshness:   opts.Freshness,
		Performance: opts.Performance,
	})

	report.Duration = time.Since(started)
	return report, nil
}
