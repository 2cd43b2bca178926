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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkedPage(url string, links ...string) *Page {
	return &Page{URL: url, FinalURL: url, Status: 200, LinksInternal: links}
}

func TestDepthsLinearChain(t *testing.T) {
	seed := "https://example.com/"
	pages := []*Page{
		linkedPage(seed, "https://example.com/a"),
		linkedPage("https://example.com/a", "https://example.com/b"),
		linkedPage("https://example.com/b"),
	}
	g := BuildLinkGraph(pages)
	depths := g.Depths(pages, seed)

	assert.Equal(t, 0, depths[seed])
	assert.Equal(t, 1, depths["https://example.com/a"])
	assert.Equal(t, 2, depths["https://example.com/b"])
}

func TestDepthsShortestPathWins(t *testing.T) {
	seed := "https://example.com/"
	// /c is linked both directly from the seed and at the end of a chain;
	// BFS must credit the short path.
	pages := []*Page{
		linkedPage(seed, "https://example.com/a", "https://example.com/c"),
		linkedPage("https://example.com/a", "https://example.com/b"),
		linkedPage("https://example.com/b", "https://example.com/c"),
		linkedPage("https://example.com/c"),
	}
	depths := BuildLinkGraph(pages).Depths(pages, seed)
	assert.Equal(t, 1, depths["https://example.com/c"])
}

func TestDepthsUnreachableSentinel(t *testing.T) {
	seed := "https://example.com/"
	pages := []*Page{
		linkedPage(seed, "https://example.com/a"),
		linkedPage("https://example.com/a"),
		linkedPage("https://example.com/island"),
	}
	depths := BuildLinkGraph(pages).Depths(pages, seed)
	assert.Equal(t, DepthUnreachable, depths["https://example.com/island"])
}

func TestInboundCounts(t *testing.T) {
	seed := "https://example.com/"
	pages := []*Page{
		linkedPage(seed, "https://example.com/a", "https://example.com/b"),
		linkedPage("https://example.com/a", "https://example.com/b"),
		// Self-link must not count.
		linkedPage("https://example.com/b", "https://example.com/b"),
	}
	counts := BuildLinkGraph(pages).InboundCounts(pages)

	assert.Equal(t, 0, counts[seed])
	assert.Equal(t, 1, counts["https://example.com/a"])
	assert.Equal(t, 2, counts["https://example.com/b"])
}

// Graph nodes are normalized, so tracking-noise variants of a URL collapse
// into one node.
func TestGraphNormalizesKeys(t *testing.T) {
	seed := "https://example.com/"
	pages := []*Page{
		linkedPage(seed, "https://example.com/a?utm_source=nav"),
		linkedPage("https://example.com/a"),
	}
	depths := BuildLinkGraph(pages).Depths(pages, seed)
	assert.Equal(t, 1, depths["https://example.com/a"])
}

func TestApplyGraphIssuesOrphanAndDeep(t *testing.T) {
	seed := "https://example.com/"
	pages := []*Page{
		linkedPage(seed, "https://example.com/d1"),
		linkedPage("https://example.com/d1", "https://example.com/d2"),
		linkedPage("https://example.com/d2", "https://example.com/d3"),
		linkedPage("https://example.com/d3", "https://example.com/d4"),
		linkedPage("https://example.com/d4"),
		linkedPage("https://example.com/orphan"),
	}
	ApplyGraphIssues(pages, seed)

	byURL := map[string]*Page{}
	for _, p := range pages {
		byURL[p.URL] = p
	}

	// Depth 4 exceeds the threshold of 3; depth 3 does not.
	assert.False(t, byURL["https://example.com/d3"].HasIssue(IssueDeepPage))
	assert.True(t, byURL["https://example.com/d4"].HasIssue(IssueDeepPage))

	require.True(t, byURL["https://example.com/orphan"].HasIssue(IssueOrphanPage))
	assert.False(t, byURL["https://example.com/orphan"].HasIssue(IssueDeepPage),
		"unreachable pages must not be flagged deep")
	assert.False(t, byURL["https://example.com/d1"].HasIssue(IssueOrphanPage))
}

// The seed is exempt from both graph issues even when nothing links back
// to it.
func TestApplyGraphIssuesSeedExempt(t *testing.T) {
	seed := "https://example.com/"
	pages := []*Page{
		linkedPage(seed, "https://example.com/a"),
		linkedPage("https://example.com/a"),
	}
	ApplyGraphIssues(pages, seed)
	assert.Empty(t, pages[0].Issues)
}
