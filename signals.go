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
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageSignals are the raw on-page observations extracted from one HTML body.
// Extraction is best-effort: malformed markup degrades to absent/zero fields
// rather than failing the page.
type PageSignals struct {
	Title            string
	MetaDescription  string
	Canonical        string
	MetaRobots       string
	H1Count          int
	ImagesMissingAlt int
	HasViewport      bool
	WordCount        int
	HasMixedContent  bool
	// InternalLinks are the absolute same-origin anchor targets, capped at
	// the per-page link limit. Not yet normalized or policy-filtered.
	InternalLinks []string
}

var mixedContentRe = regexp.MustCompile(`(?i)(href|src)=["']http://`)

const (
	maxTitleLength       = 300
	maxDescriptionLength = 400
)

// ExtractSignals parses an HTML document and pulls out the audit signals.
// baseURL (the final fetch URL) anchors relative links and the mixed-content
// check; maxLinks bounds link extraction so mega-menus and link farms cannot
// explode the crawl frontier.
func ExtractSignals(html, baseURL string, maxLinks int) *PageSignals {
	s := &PageSignals{}
	if html == "" {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return s
	}

	s.Title = truncate(cleanText(doc.Find("title").First().Text()), maxTitleLength)
	if desc, ok := doc.Find(`meta[name='description']`).First().Attr("content"); ok {
		s.MetaDescription = truncate(cleanText(desc), maxDescriptionLength)
	}
	if href, ok := doc.Find(`link[rel='canonical']`).First().Attr("href"); ok {
		s.Canonical = strings.TrimSpace(href)
	}
	if robots, ok := doc.Find(`meta[name='robots']`).First().Attr("content"); ok {
		s.MetaRobots = strings.ToLower(strings.TrimSpace(robots))
	}
	s.HasViewport = doc.Find(`meta[name='viewport']`).Length() > 0
	s.H1Count = doc.Find("h1").Length()

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		alt, ok := img.Attr("alt")
		if !ok || strings.TrimSpace(alt) == "" {
			// Empty alt counts as missing (strict reading).
			s.ImagesMissingAlt++
		}
	})

	s.WordCount = countWords(doc)

	if strings.HasPrefix(baseURL, "https://") && mixedContentRe.MatchString(html) {
		s.HasMixedContent = true
	}

	s.InternalLinks = extractLinks(doc, baseURL, maxLinks)
	return s
}

// extractLinks collects absolute same-origin anchor targets from a document.
func extractLinks(doc *goquery.Document, baseURL string, maxLinks int) []string {
	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return true
		}
		abs := resolveRef(baseURL, href)
		if abs == "" {
			return true
		}
		if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
			return true
		}
		if !SameOrigin(abs, baseURL) {
			return true
		}
		if seen[abs] {
			return true
		}
		seen[abs] = true
		links = append(links, abs)
		return maxLinks <= 0 || len(links) < maxLinks
	})

	return links
}

// countWords counts whitespace-separated words in the document's visible
// text, scripts and styles excluded.
func countWords(doc *goquery.Document) int {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	clone := body.Clone()
	clone.Find("script, style, noscript").Remove()
	return len(strings.Fields(clone.Text()))
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
