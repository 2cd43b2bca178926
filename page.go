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
	"strings"
	"unicode/utf8"
)

// IssueCode identifies one detectable SEO issue.
type IssueCode string

const (
	// IssueNoindex - meta robots or X-Robots-Tag carries "noindex".
	IssueNoindex IssueCode = "noindex_blocked"
	// IssueBrokenPage - HTTP status >= 400.
	IssueBrokenPage IssueCode = "broken_page"
	// IssueRedirectChain - the page was reached through one or more redirects.
	IssueRedirectChain IssueCode = "redirect_chain"
	// IssueCanonicalMismatch - canonical present and pointing elsewhere.
	IssueCanonicalMismatch IssueCode = "canonical_mismatch"
	// IssueMissingTitle - title absent or shorter than 10 characters.
	IssueMissingTitle IssueCode = "missing_title"
	// IssueMissingDescription - meta description absent or shorter than 50 characters.
	IssueMissingDescription IssueCode = "missing_description"
	// IssueMissingH1 - no H1 on the page.
	IssueMissingH1 IssueCode = "missing_h1"
	// IssueMultipleH1 - more than one H1 on the page.
	IssueMultipleH1 IssueCode = "multiple_h1"
	// IssueImagesMissingAlt - one or more images without alt text.
	IssueImagesMissingAlt IssueCode = "images_missing_alt"
	// IssueMissingViewport - no viewport meta tag.
	IssueMissingViewport IssueCode = "missing_viewport"
	// IssueThinContent - fewer than 300 words of visible text.
	IssueThinContent IssueCode = "thin_content"
	// IssueNotHTTPS - final URL is not served over HTTPS.
	IssueNotHTTPS IssueCode = "not_https"
	// IssueMixedContent - HTTPS page referencing http:// resources.
	IssueMixedContent IssueCode = "mixed_content"
	// IssueSlowTTFB - time to first byte above 800ms.
	IssueSlowTTFB IssueCode = "slow_ttfb"
	// IssueOrphanPage - no inbound internal links from other sampled pages.
	IssueOrphanPage IssueCode = "orphan_page"
	// IssueDeepPage - more than 3 link hops from the homepage.
	IssueDeepPage IssueCode = "deep_page"
	// IssueStaleContent - content older than its freshness threshold
	// (measured by an external content API, not per-page crawling).
	IssueStaleContent IssueCode = "stale_content"
)

// Thresholds for crawl-time issue detection.
const (
	minTitleLength       = 10
	minDescriptionLength = 50
	minWordCount         = 300
	slowTTFBMillis       = 800
	deepPageDepth        = 3
)

// Page is the observed state of one crawled URL. Issues is append-only
// during the audit pipeline: crawl-time issues first, then graph-derived
// ones; the page is immutable afterwards.
type Page struct {
	// URL is the normalized URL that was selected for fetching.
	URL string `json:"url"`
	// FinalURL is the normalized URL after redirects.
	FinalURL string `json:"final_url"`
	// Status is the final HTTP status code; 0 means the fetch never produced
	// a response.
	Status int `json:"status"`
	// RedirectChain lists the ordered redirect hops, empty when none occurred.
	RedirectChain []string `json:"redirect_chain"`

	Title           string `json:"title"`
	MetaDescription string `json:"meta_description"`
	Canonical       string `json:"canonical"`
	MetaRobots      string `json:"meta_robots"`
	XRobotsTag      string `json:"x_robots_tag"`

	H1Count          int  `json:"h1_count"`
	ImagesMissingAlt int  `json:"images_missing_alt"`
	HasViewport      bool `json:"has_viewport"`
	WordCount        int  `json:"word_count"`
	IsHTTPS          bool `json:"is_https"`
	HasMixedContent  bool `json:"has_mixed_content"`
	TTFBMillis       int  `json:"ttfb_ms"`

	// LinksInternal holds the page's same-origin, crawlable, normalized
	// outbound links.
	LinksInternal []string `json:"links_internal"`

	// Issues are the detected issue codes.
	Issues []IssueCode `json:"issues"`

	// FetchError carries the failure message for pages with Status 0.
	FetchError string `json:"fetch_error,omitempty"`
}

// HasIssue reports whether the page carries the given issue code.
func (p *Page) HasIssue(code IssueCode) bool {
	for _, c := range p.Issues {
		if c == code {
			return true
		}
	}
	return false
}

// detectIssues runs the crawl-time checks and appends the detected codes.
// Pages without a response (status 0) only carry transport-level facts, so
// the content checks are skipped for them instead of fabricating on-page
// findings from fields that were never extracted.
func (p *Page) detectIssues() {
	if p.Status == 0 {
		return
	}

	robots := strings.ToLower(p.MetaRobots + " " + p.XRobotsTag)
	if strings.Contains(robots, "noindex") {
		p.Issues = append(p.Issues, IssueNoindex)
	}
	if p.Status >= 400 {
		p.Issues = append(p.Issues, IssueBrokenPage)
	}
	if len(p.RedirectChain) > 1 {
		p.Issues = append(p.Issues, IssueRedirectChain)
	}
	if p.Canonical != "" && !SameCanonical(p.Canonical, p.FinalURL) {
		p.Issues = append(p.Issues, IssueCanonicalMismatch)
	}
	// Length thresholds count characters, not bytes, so non-ASCII titles
	// are measured the same as ASCII ones.
	if utf8.RuneCountInString(strings.TrimSpace(p.Title)) < minTitleLength {
		p.Issues = append(p.Issues, IssueMissingTitle)
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.MetaDescription)) < minDescriptionLength {
		p.Issues = append(p.Issues, IssueMissingDescription)
	}
	if p.H1Count == 0 {
		p.Issues = append(p.Issues, IssueMissingH1)
	}
	if p.H1Count > 1 {
		p.Issues = append(p.Issues, IssueMultipleH1)
	}
	if p.ImagesMissingAlt > 0 {
		p.Issues = append(p.Issues, IssueImagesMissingAlt)
	}
	if !p.HasViewport {
		p.Issues = append(p.Issues, IssueMissingViewport)
	}
	if p.WordCount < minWordCount {
		p.Issues = append(p.Issues, IssueThinContent)
	}
	if !p.IsHTTPS {
		p.Issues = append(p.Issues, IssueNotHTTPS)
	}
	if p.HasMixedContent {
		p.Issues = append(p.Issues, IssueMixedContent)
	}
	if p.TTFBMillis > slowTTFBMillis {
		p.Issues = append(p.Issues, IssueSlowTTFB)
	}
}
