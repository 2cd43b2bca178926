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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url  string
		want PageBucket
	}{
		{"https://example.com/product/blue-widget", BucketProduct},
		{"https://example.com/shop/sale-item", BucketProduct},
		{"https://example.com/product-category/tools", BucketCategory},
		{"https://example.com/category/news", BucketCategory},
		{"https://example.com/blog/hello-world", BucketBlog},
		{"https://example.com/2024/03/spring-update", BucketBlog},
		{"https://example.com/about", BucketPage},
		{"https://example.com/contact-us", BucketPage},
		{"https://example.com/cart/", BucketUtility},
		{"https://example.com/checkout/step-2", BucketUtility},
		{"https://example.com/", BucketOther},
		{"https://example.com/pricing", BucketOther},
		{"not a url", BucketOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyURL(tt.url), tt.url)
	}
}

// Utility pages win over product classification: /cart/ must never be
// sampled as a product page.
func TestClassifyURLUtilityPrecedence(t *testing.T) {
	assert.Equal(t, BucketUtility, ClassifyURL("https://example.com/shop/cart/"))
}

func TestPickStratifiedRespectsLimit(t *testing.T) {
	var urls []string
	for i := 0; i < 30; i++ {
		urls = append(urls, fmt.Sprintf("https://example.com/blog/post-%d", i))
	}
	got := PickStratified(urls, 10, SiteTypeContent)
	assert.Len(t, got, 10)

	got = PickStratified(urls, 100, SiteTypeContent)
	assert.LessOrEqual(t, len(got), len(urls))
}

// An ecommerce sample must include product pages even under a tiny budget:
// with 2 products and 3 plain pages in the pool and a budget of 5, both
// products make the cut.
func TestPickStratifiedEcommerceIncludesProducts(t *testing.T) {
	urls := []string{
		"https://shop.example.com/about",
		"https://shop.example.com/contact",
		"https://shop.example.com/faq",
		"https://shop.example.com/product/widget",
		"https://shop.example.com/product/gadget",
	}
	got := PickStratified(urls, 5, SiteTypeEcommerce)
	require.Len(t, got, 5)
	assert.Contains(t, got, "https://shop.example.com/product/widget")
	assert.Contains(t, got, "https://shop.example.com/product/gadget")
}

func TestPickStratifiedFillsDeficitAcrossBuckets(t *testing.T) {
	// No products at all: the product quota's deficit must be covered by
	// other buckets instead of shrinking the sample.
	urls := []string{
		"https://example.com/about",
		"https://example.com/blog/a",
		"https://example.com/blog/b",
		"https://example.com/blog/c",
		"https://example.com/pricing",
		"https://example.com/team",
	}
	got := PickStratified(urls, 6, SiteTypeEcommerce)
	assert.Len(t, got, 6)
}

func TestPickStratifiedNoDuplicates(t *testing.T) {
	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/blog/c",
	}
	got := PickStratified(urls, 10, SiteTypeCorporate)
	seen := map[string]bool{}
	for _, u := range got {
		assert.False(t, seen[u], "duplicate %s", u)
		seen[u] = true
	}
	assert.Len(t, got, 3)
}

func TestHeuristicDetectorURLPatternsOnly(t *testing.T) {
	d := &HeuristicDetector{}

	ecommerce := d.Classify(context.Background(), "https://shop.example.com/", []string{
		"https://shop.example.com/product/a",
		"https://shop.example.com/product/b",
		"https://shop.example.com/checkout/",
	})
	assert.Equal(t, SiteTypeEcommerce, ecommerce)

	content := d.Classify(context.Background(), "https://blog.example.com/", []string{
		"https://blog.example.com/blog/a",
		"https://blog.example.com/blog/b",
		"https://blog.example.com/2024/01/c",
	})
	assert.Equal(t, SiteTypeContent, content)

	unknown := d.Classify(context.Background(), "https://example.com/", []string{
		"https://example.com/x",
		"https://example.com/y",
	})
	assert.Equal(t, SiteTypeUnknown, unknown)
}
