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
	"fmt"
	"testing"

	"github.com/agentberlin/siteaudit/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSignalsBasicFields(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head>
<title>  Widget   Product  </title>
<meta name="description" content="A fine widget for all your widget needs, available now.">
<meta name="viewport" content="width=device-width">
<meta name="robots" content="INDEX, FOLLOW">
<link rel="canonical" href="https://example.com/product/widget">
</head>
<body>
<h1>Widget</h1>
<img src="/a.png" alt="the widget">
<img src="/b.png">
<img src="/c.png" alt="   ">
<p>Some body copy about the widget.</p>
<script>var hidden = "script text must not count";</script>
</body>
</html>`

	s := ExtractSignals(html, "https://example.com/product/widget", 100)
	assert.Equal(t, "Widget Product", s.Title)
	assert.Equal(t, "A fine widget for all your widget needs, available now.", s.MetaDescription)
	assert.Equal(t, "https://example.com/product/widget", s.Canonical)
	assert.Equal(t, "index, follow", s.MetaRobots)
	assert.True(t, s.HasViewport)
	assert.Equal(t, 1, s.H1Count)
	// Both the alt-less img and the whitespace-only alt count as missing.
	assert.Equal(t, 2, s.ImagesMissingAlt)
	assert.Equal(t, 7, s.WordCount)
	assert.False(t, s.HasMixedContent)
}

func TestExtractSignalsEmptyAndMalformed(t *testing.T) {
	s := ExtractSignals("", "https://example.com/", 100)
	assert.Equal(t, "", s.Title)
	assert.Equal(t, 0, s.H1Count)
	assert.Empty(t, s.InternalLinks)

	// goquery tolerates broken markup; extraction must not panic.
	s = ExtractSignals("<html><body><h1>oops", "https://example.com/", 100)
	assert.Equal(t, 1, s.H1Count)
}

func TestExtractSignalsMixedContent(t *testing.T) {
	html := `<html><body><img src="http://insecure.example.com/x.png" alt="x"></body></html>`

	s := ExtractSignals(html, "https://example.com/", 100)
	assert.True(t, s.HasMixedContent)

	// Pages served over plain HTTP cannot have mixed content by definition.
	s = ExtractSignals(html, "http://example.com/", 100)
	assert.False(t, s.HasMixedContent)
}

func TestExtractSignalsLinks(t *testing.T) {
	html := `<html><body>
<a href="/about">about</a>
<a href="relative">rel</a>
<a href="https://example.com/absolute">abs</a>
<a href="https://other.com/external">ext</a>
<a href="#fragment">frag</a>
<a href="mailto:x@example.com">mail</a>
<a href="tel:+123">tel</a>
<a href="javascript:void(0)">js</a>
<a href="/about">dup</a>
</body></html>`

	s := ExtractSignals(html, "https://example.com/blog/post", 100)
	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/blog/relative",
		"https://example.com/absolute",
	}, s.InternalLinks)
}

func TestExtractSignalsLinkCap(t *testing.T) {
	var body string
	for i := 0; i < 50; i++ {
		body += fmt.Sprintf(`<a href="/page-%d">x</a>`, i)
	}
	s := ExtractSignals("<html><body>"+body+"</body></html>", "https://example.com/", 10)
	assert.Len(t, s.InternalLinks, 10)
}

// The fixture builder must produce pages whose default signals are all
// healthy, so tests that flip one knob observe exactly one issue.
func TestFixturePageIsHealthy(t *testing.T) {
	html := testutil.BuildPage(testutil.PageOptions{Title: "A Perfectly Healthy Fixture Page"})
	s := ExtractSignals(html, "https://example.com/x", 100)
	require.GreaterOrEqual(t, len(s.Title), minTitleLength)
	require.GreaterOrEqual(t, len(s.MetaDescription), minDescriptionLength)
	require.Equal(t, 1, s.H1Count)
	require.True(t, s.HasViewport)
	require.Zero(t, s.ImagesMissingAlt)
	require.GreaterOrEqual(t, s.WordCount, minWordCount)
}
