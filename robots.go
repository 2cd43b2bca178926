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

	"github.com/temoto/robotstxt"
)

// RobotsPolicy wraps a site's parsed robots.txt. A nil policy allows
// everything, so audits proceed normally when robots.txt cannot be fetched.
type RobotsPolicy struct {
	group    *robotstxt.Group
	sitemaps []string
}

// FetchRobots retrieves and parses origin's robots.txt through the
// reliability-wrapped fetcher. HTTP error statuses follow the usual
// convention (4xx allows all, 5xx disallows all); a transport-level failure
// returns an error and the caller should fall back to a nil policy.
func FetchRobots(ctx context.Context, f *Fetcher, origin, userAgent string) (*RobotsPolicy, error) {
	res, err := f.Fetch(ctx, origin+"/robots.txt")
	if err != nil {
		return nil, err
	}
	data, err := robotstxt.FromStatusAndBytes(res.Status, []byte(res.Body))
	if err != nil {
		return nil, err
	}
	return &RobotsPolicy{
		group:    data.FindGroup(userAgent),
		sitemaps: data.Sitemaps,
	}, nil
}

// Allowed reports whether the policy permits crawling a URL. Nil-safe.
func (r *RobotsPolicy) Allowed(raw string) bool {
	if r == nil || r.group == nil {
		return true
	}
	u, ok := parseLenient(raw)
	if !ok {
		return false
	}
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return r.group.Test(path)
}

// Sitemaps returns the sitemap URLs advertised by robots.txt. Sitemap
// contents are not parsed here; the URLs serve as hints for an external
// candidate supplier.
func (r *RobotsPolicy) Sitemaps() []string {
	if r == nil {
		return nil
	}
	return r.sitemaps
}
