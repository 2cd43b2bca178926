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

// DepthUnreachable is the sentinel depth for pages the BFS never reached.
const DepthUnreachable = -1

// LinkGraph is the directed internal-link structure derived from one crawl's
// page set: each node is a normalized page URL mapped to the set of
// normalized same-origin URLs it links to. It only reflects sampled pages'
// outbound edges, so reachability results are an estimate bounded by the
// sample, and it is rebuilt per audit rather than persisted.
type LinkGraph struct {
	adjacency map[string]map[string]bool
}

// BuildLinkGraph constructs the graph from the crawled pages.
func BuildLinkGraph(pages []*Page) *LinkGraph {
	g := &LinkGraph{adjacency: make(map[string]map[string]bool, len(pages))}
	for _, p := range pages {
		node := graphKey(p.URL)
		targets, ok := g.adjacency[node]
		if !ok {
			targets = make(map[string]bool, len(p.LinksInternal))
			g.adjacency[node] = targets
		}
		for _, l := range p.LinksInternal {
			targets[graphKey(l)] = true
		}
	}
	return g
}

func graphKey(raw string) string {
	if nu, ok := NormalizeURL(raw); ok {
		return nu
	}
	return raw
}

// Depths computes the breadth-first link distance from the seed to every
// reachable URL, following only outbound edges present in the graph. Pages
// never visited map to DepthUnreachable.
func (g *LinkGraph) Depths(pages []*Page, seed string) map[string]int {
	depths := make(map[string]int, len(g.adjacency))
	start := graphKey(seed)
	depths[start] = 0
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for target := range g.adjacency[current] {
			if _, visited := depths[target]; visited {
				continue
			}
			depths[target] = depths[current] + 1
			queue = append(queue, target)
		}
	}

	for _, p := range pages {
		key := graphKey(p.URL)
		if _, ok := depths[key]; !ok {
			depths[key] = DepthUnreachable
		}
	}
	return depths
}

// InboundCounts returns, for every crawled page, the number of distinct
// sampled pages linking to it.
func (g *LinkGraph) InboundCounts(pages []*Page) map[string]int {
	counts := make(map[string]int, len(pages))
	for _, p := range pages {
		counts[graphKey(p.URL)] = 0
	}
	for source, targets := range g.adjacency {
		for target := range targets {
			if source == target {
				// Self-links do not make a page non-orphan.
				continue
			}
			if _, tracked := counts[target]; tracked {
				counts[target]++
			}
		}
	}
	return counts
}

// ApplyGraphIssues runs the reachability analysis and appends the derived
// issues to each page: orphans (no inbound links, not the seed) and deep
// pages (reachable, not the seed, more than deepPageDepth hops out). Called
// once per audit, after crawl-time detection and before scoring.
func ApplyGraphIssues(pages []*Page, seed string) {
	g := BuildLinkGraph(pages)
	depths := g.Depths(pages, seed)
	inbound := g.InboundCounts(pages)
	seedKey := graphKey(seed)

	for _, p := range pages {
		key := graphKey(p.URL)
		if key == seedKey {
			// The homepage is never an orphan and never deep.
			continue
		}
		if inbound[key] == 0 {
			p.Issues = append(p.Issues, IssueOrphanPage)
		}
		if d := depths[key]; d != DepthUnreachable && d > deepPageDepth {
			p.Issues = append(p.Issues, IssueDeepPage)
		}
	}
}
