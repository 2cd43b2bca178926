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

// Package testutil provides shared test utilities for siteaudit tests.
// This includes a fixture site served over httptest and HTML builders.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

// RobotsFile is served at /robots.txt by the fixture site.
const RobotsFile = `
User-agent: *
Allow: /
Disallow: /private
`

// FillerText returns n space-separated words, for building pages above or
// below the thin-content threshold.
func FillerText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

// PageOptions controls the HTML produced by BuildPage. The zero value plus a
// title yields a page with every content signal healthy.
type PageOptions struct {
	Title       string
	Description string
	Canonical   string
	MetaRobots  string
	H1s         []string
	Links       []string
	Words       int
	NoViewport  bool
	ImagesNoAlt int
	ExtraHead   string
	ExtraBody   string
}

// BuildPage renders a complete HTML page from opts, defaulting every signal
// the options leave unset to a healthy value. Description "-" omits the meta
// description entirely.
func BuildPage(opts PageOptions) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	if opts.Title != "" {
		fmt.Fprintf(&b, "<title>%s</title>\n", opts.Title)
	}
	desc := opts.Description
	if desc == "" {
		desc = "A sufficiently long meta description for the fixture page used in tests."
	}
	if desc != "-" {
		fmt.Fprintf(&b, `<meta name="description" content="%s">`+"\n", desc)
	}
	if !opts.NoViewport {
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	}
	if opts.MetaRobots != "" {
		fmt.Fprintf(&b, `<meta name="robots" content="%s">`+"\n", opts.MetaRobots)
	}
	if opts.Canonical != "" {
		fmt.Fprintf(&b, `<link rel="canonical" href="%s">`+"\n", opts.Canonical)
	}
	b.WriteString(opts.ExtraHead)
	b.WriteString("</head>\n<body>\n")
	h1s := opts.H1s
	if h1s == nil {
		h1s = []string{"Fixture Heading"}
	}
	for _, h := range h1s {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", h)
	}
	for i := 0; i < opts.ImagesNoAlt; i++ {
		fmt.Fprintf(&b, `<img src="/img/%d.png">`+"\n", i)
	}
	for _, l := range opts.Links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`+"\n", l)
	}
	words := opts.Words
	if words == 0 {
		words = 350
	}
	fmt.Fprintf(&b, "<p>%s</p>\n", FillerText(words))
	b.WriteString(opts.ExtraBody)
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func serveHTML(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(200)
	w.Write([]byte(html))
}

// NewAuditSite creates an unstarted HTTP test server behaving like a small
// site with a mix of healthy and defective pages:
//
//	/                  healthy home, links into every section
//	/about             healthy
//	/product/widget    healthy product page
//	/product/gadget    healthy product page
//	/category/tools    category page linking the products
//	/blog/first-post   healthy article
//	/no-title          missing <title>
//	/noindex           meta robots noindex
//	/thin              under the word-count threshold
//	/broken            404
//	/redirect          302 -> /about
//	/redirect-hop      302 -> /redirect (multi-hop chain)
//	/private/area      served fine, but disallowed by robots.txt
//	/orphan            healthy but never linked
func NewAuditSite() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		serveHTML(w, BuildPage(PageOptions{
			Title: "Fixture Shop Homepage",
			Links: []string{
				"/about", "/product/widget", "/product/gadget",
				"/category/tools", "/blog/first-post",
				"/no-title", "/noindex", "/thin",
				"/broken", "/redirect-hop", "/private/area",
			},
		}))
	})

	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title: "About the Fixture Shop",
			Links: []string{"/"},
		}))
	})

	mux.HandleFunc("/product/widget", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title: "Widget Product Page",
			Links: []string{"/", "/category/tools"},
		}))
	})

	mux.HandleFunc("/product/gadget", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title: "Gadget Product Page",
			Links: []string{"/", "/category/tools"},
		}))
	})

	mux.HandleFunc("/category/tools", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title: "Tools Category Listing",
			Links: []string{"/product/widget", "/product/gadget"},
		}))
	})

	mux.HandleFunc("/blog/first-post", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title: "First Post on the Fixture Blog",
			Links: []string{"/"},
		}))
	})

	mux.HandleFunc("/no-title", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Links: []string{"/"},
		}))
	})

	mux.HandleFunc("/noindex", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title:      "Hidden Fixture Page",
			MetaRobots: "noindex, nofollow",
			Links:      []string{"/"},
		}))
	})

	mux.HandleFunc("/thin", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title: "Thin Fixture Page",
			Words: 40,
			Links: []string{"/"},
		}))
	})

	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(404)
		w.Write([]byte("<p>not found</p>"))
	})

	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/about", http.StatusFound)
	})

	mux.HandleFunc("/redirect-hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirect", http.StatusFound)
	})

	mux.HandleFunc("/private/area", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title: "Private Fixture Area",
		}))
	})

	mux.HandleFunc("/orphan", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, BuildPage(PageOptions{
			Title: "Orphaned Fixture Page",
		}))
	})

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte(RobotsFile))
	})

	return httptest.NewUnstartedServer(mux)
}

// NewStartedAuditSite starts the fixture site and returns it.
func NewStartedAuditSite() *httptest.Server {
	srv := NewAuditSite()
	srv.Start()
	return srv
}
