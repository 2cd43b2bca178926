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
	"regexp"
	"strings"
)

// SiteType is the detected category of the audited site. It selects the
// crawler's bucket quota table and the scorer's pillar weight table.
type SiteType string

const (
	SiteTypeEcommerce SiteType = "ecommerce"
	SiteTypeCorporate SiteType = "corporate"
	SiteTypeContent   SiteType = "content"
	SiteTypeUnknown   SiteType = "unknown"
)

// PageBucket is the content category a URL is classified into for stratified
// sampling.
type PageBucket string

const (
	BucketProduct  PageBucket = "product"
	BucketCategory PageBucket = "category"
	BucketBlog     PageBucket = "blog"
	BucketPage     PageBucket = "page"
	BucketUtility  PageBucket = "utility"
	BucketOther    PageBucket = "other"
)

var (
	utilityPathRe  = regexp.MustCompile(`/(cart|checkout|my-account|login|register|wp-admin)/`)
	productPathRe  = regexp.MustCompile(`/(product|products|shop)/`)
	categoryPathRe = regexp.MustCompile(`/(product-category|product_cat|category|tag)/`)
	blogPathRe     = regexp.MustCompile(`/(blog|post)/|/\d{4}/\d{2}/`)
	pagePathRe     = regexp.MustCompile(`/(about|contact|services|portfolio|team|faq)`)
)

// ClassifyURL assigns a URL to a sampling bucket by path pattern.
func ClassifyURL(raw string) PageBucket {
	u, ok := parseLenient(raw)
	if !ok {
		return BucketOther
	}
	p := strings.ToLower(u.Path)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	switch {
	case utilityPathRe.MatchString(p):
		return BucketUtility
	case productPathRe.MatchString(p):
		return BucketProduct
	case categoryPathRe.MatchString(p):
		return BucketCategory
	case blogPathRe.MatchString(p):
		return BucketBlog
	case pagePathRe.MatchString(p):
		return BucketPage
	default:
		return BucketOther
	}
}

// bucketQuotas returns the per-site-type quota table. Quotas are heuristics;
// any deficit gets filled round-robin across the remaining buckets.
func bucketQuotas(siteType SiteType) map[PageBucket]int {
	switch siteType {
	case SiteTypeEcommerce:
		return map[PageBucket]int{
			BucketProduct: 20, BucketCategory: 10, BucketBlog: 10,
			BucketPage: 6, BucketOther: 4, BucketUtility: 0,
		}
	case SiteTypeCorporate:
		return map[PageBucket]int{
			BucketPage: 22, BucketBlog: 16, BucketCategory: 4,
			BucketOther: 8, BucketProduct: 0, BucketUtility: 0,
		}
	default:
		return map[PageBucket]int{
			BucketPage: 16, BucketBlog: 16, BucketCategory: 6,
			BucketOther: 12, BucketProduct: 0, BucketUtility: 0,
		}
	}
}

// bucketFillOrder is the fixed order quotas and the round-robin fallback walk
// buckets in. Ecommerce sites fill product and category pages first so the
// sample reflects what actually ranks for such sites; everything else leads
// with pages and posts.
func bucketFillOrder(siteType SiteType) []PageBucket {
	if siteType == SiteTypeEcommerce {
		return []PageBucket{BucketProduct, BucketCategory, BucketBlog, BucketPage, BucketOther, BucketUtility}
	}
	return []PageBucket{BucketPage, BucketBlog, BucketCategory, BucketProduct, BucketOther, BucketUtility}
}

// PickStratified selects up to limit URLs from a candidate pool using
// per-site-type bucket quotas, then fills any remaining slots round-robin
// across buckets so the selection reaches the limit whenever enough
// candidates exist. Candidate order within a bucket is preserved.
func PickStratified(urls []string, limit int, siteType SiteType) []string {
	if limit <= 0 {
		return nil
	}

	buckets := make(map[PageBucket][]string)
	for _, u := range urls {
		b := ClassifyURL(u)
		buckets[b] = append(buckets[b], u)
	}

	quotas := bucketQuotas(siteType)
	order := bucketFillOrder(siteType)
	var out []string

	take := func(b PageBucket) bool {
		if len(buckets[b]) == 0 {
			return false
		}
		out = append(out, buckets[b][0])
		buckets[b] = buckets[b][1:]
		return true
	}

	for _, b := range order {
		for i := 0; i < quotas[b] && len(out) < limit; i++ {
			if !take(b) {
				break
			}
		}
		if len(out) >= limit {
			return out
		}
	}

	// Round-robin fill keeps diversity when quotas are unmet.
	for len(out) < limit {
		progressed := false
		for _, b := range order {
			if take(b) {
				progressed = true
				if len(out) >= limit {
					return out
				}
			}
		}
		if !progressed {
			break
		}
	}

	return out
}

// TypeDetector classifies a site from its seed URL and candidate pool. The
// crawler and scorer depend only on the resulting SiteType, not on how it
// was produced.
type TypeDetector interface {
	Classify(ctx context.Context, seed string, candidates []string) SiteType
}

// HeuristicDetector is the default TypeDetector: URL-pattern scoring over the
// candidate pool plus homepage content sniffing.
type HeuristicDetector struct {
	// Fetcher retrieves the homepage for content sniffing. When nil, only URL
	// patterns contribute.
	Fetcher *Fetcher
}

const detectCandidateLimit = 200

// Classify implements TypeDetector.
func (d *HeuristicDetector) Classify(ctx context.Context, seed string, candidates []string) SiteType {
	pool := candidates
	if len(pool) > detectCandidateLimit {
		pool = pool[:detectCandidateLimit]
	}
	ecommerce, content, corporate := scoreURLPatterns(append([]string{seed}, pool...))

	if d.Fetcher != nil {
		if res, err := d.Fetcher.Fetch(ctx, seed); err == nil && res.Body != "" {
			html := strings.ToLower(res.Body)
			if strings.Contains(html, "woocommerce") ||
				strings.Contains(html, "shopify") ||
				strings.Contains(html, "add-to-cart") ||
				(strings.Contains(html, "cart") && strings.Contains(html, "checkout")) {
				ecommerce += 4
			}
			if strings.Contains(html, "article") &&
				(strings.Contains(html, "author") || strings.Contains(html, "post")) {
				content += 2
			}
			if strings.Contains(html, "services") || strings.Contains(html, "about us") {
				corporate++
			}
		}
	}

	max := ecommerce
	if content > max {
		max = content
	}
	if corporate > max {
		max = corporate
	}
	switch {
	case max < 3:
		return SiteTypeUnknown
	case max == ecommerce:
		return SiteTypeEcommerce
	case max == content:
		return SiteTypeContent
	default:
		return SiteTypeCorporate
	}
}

var (
	ecommerceSignalRe = regexp.MustCompile(`/(product|shop|cart|checkout|my-account|product-category)/`)
	contentSignalRe   = regexp.MustCompile(`/(blog|tag|category)/|/\d{4}/\d{2}/`)
	corporateSignalRe = regexp.MustCompile(`/(about|contact|services|portfolio|team)`)
)

func scoreURLPatterns(urls []string) (ecommerce, content, corporate int) {
	for _, raw := range urls {
		u, ok := parseLenient(raw)
		if !ok {
			continue
		}
		p := strings.ToLower(u.Path)
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		if ecommerceSignalRe.MatchString(p) {
			ecommerce += 2
		}
		if contentSignalRe.MatchString(p) {
			content++
		}
		if corporateSignalRe.MatchString(p) {
			corporate++
		}
	}
	return
}
