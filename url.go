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
	"net/url"
	"regexp"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// stripQueryParams are query parameters that generate near-infinite URL
// variants and/or carry no content meaning (tracking, click IDs, cart markers).
// They are removed during normalization so that two URLs differing only in
// tracking noise compare equal.
var stripQueryParams = map[string]bool{
	"add-to-cart":  true,
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"wbraid":       true,
	"gbraid":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"yclid":        true,
	"ref":          true,
}

// blockIfQueryHas marks a URL non-crawlable regardless of path: these params
// mutate state (cart adds) or expose unpublished drafts (previews).
var blockIfQueryHas = map[string]bool{
	"add-to-cart": true,
	"preview":     true,
}

// staticExtensions are file extensions that never serve auditable HTML pages.
var staticExtensions = map[string]bool{
	".css": true, ".js": true, ".json": true, ".xml": true, ".rss": true, ".atom": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
	".ico": true, ".bmp": true, ".tiff": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".flv": true,
	".webm": true, ".ogg": true, ".wav": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
}

var (
	namedSitemapRe   = regexp.MustCompile(`/[^/]*-sitemap\.xml$`)
	indexedSitemapRe = regexp.MustCompile(`/sitemap\d+\.xml$`)
)

// parseLenient parses a raw URL the way the crawler sees them in the wild:
// first through the WHATWG parser (tolerant of real-world markup sloppiness),
// then re-parsed with net/url for structured manipulation.
func parseLenient(raw string) (*url.URL, bool) {
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return nil, false
	}
	u, err := url.Parse(parsed.Href(false))
	if err != nil {
		return nil, false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

// NormalizeURL returns the canonical form of a URL used for deduplication and
// comparison throughout the audit:
//
//   - fragment removed
//   - tracking/noise query parameters stripped
//   - remaining query parameters sorted lexicographically by key
//   - a single trailing slash stripped, except for the root path
//
// The second return value is false when the input cannot be parsed as an
// absolute http(s) URL. NormalizeURL never panics and is idempotent.
func NormalizeURL(raw string) (string, bool) {
	u, ok := parseLenient(raw)
	if !ok {
		return "", false
	}

	u.Fragment = ""

	q := u.Query()
	for k := range q {
		if stripQueryParams[strings.ToLower(k)] {
			q.Del(k)
		}
	}
	// Encode sorts keys, giving the stable ordering required for comparison.
	u.RawQuery = q.Encode()

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), true
}

// IsCrawlable reports whether a URL is eligible for auditing as a content
// page. Sitemap and feed endpoints, static assets, non-HTML API namespaces
// and cart/preview URLs are excluded. Unparseable input is not crawlable.
func IsCrawlable(raw string) bool {
	u, ok := parseLenient(raw)
	if !ok {
		return false
	}

	p := strings.ToLower(u.Path)

	// Sitemap and feed endpoints routinely have no title/description/H1 and
	// are not meant to rank; auditing them as pages produces noise findings.
	switch {
	case strings.HasSuffix(p, "/sitemap.xml"),
		strings.HasSuffix(p, "/sitemap_index.xml"),
		namedSitemapRe.MatchString(p),
		indexedSitemapRe.MatchString(p),
		p == "/feed", strings.HasSuffix(p, "/feed"), strings.HasSuffix(p, "/feed/"),
		p == "/rss", strings.HasSuffix(p, "/rss"), strings.HasSuffix(p, "/rss/"):
		return false
	}

	if idx := strings.LastIndex(p, "."); idx >= 0 {
		if staticExtensions[p[idx:]] {
			return false
		}
	}

	// Known non-HTML API namespaces.
	if p == "/wp-json" || strings.HasPrefix(p, "/wp-json/") ||
		p == "/xmlrpc.php" || strings.HasPrefix(p, "/xmlrpc.php/") {
		return false
	}

	for k := range u.Query() {
		if blockIfQueryHas[strings.ToLower(k)] {
			return false
		}
	}

	return true
}

// OriginOf returns the canonical origin (scheme://host[:port]) of a URL with
// default ports elided, or "" for unparseable input. Origins key the
// per-origin reliability state and the same-origin crawl restriction.
func OriginOf(raw string) string {
	u, ok := parseLenient(raw)
	if !ok {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		return u.Scheme + "://" + host
	}
	return u.Scheme + "://" + host + ":" + port
}

// SameOrigin reports whether two URLs share scheme, host and port.
func SameOrigin(a, b string) bool {
	oa := OriginOf(a)
	return oa != "" && oa == OriginOf(b)
}

// SameCanonical reports whether two URLs normalize to the same canonical form.
func SameCanonical(a, b string) bool {
	na, ok := NormalizeURL(a)
	if !ok {
		return false
	}
	nb, ok := NormalizeURL(b)
	return ok && na == nb
}

// resolveRef resolves a possibly relative href against a base URL and returns
// the absolute form, or "" if either part is unparseable.
func resolveRef(base, href string) string {
	u, err := urlParser.ParseRef(base, href)
	if err != nil {
		return ""
	}
	return u.Href(false)
}
