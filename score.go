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
	"math"
	"sort"
)

// Pillar is one of the six scoring categories that partition the issue
// catalog.
type Pillar string

const (
	PillarIndexability Pillar = "indexability"
	PillarCrawlability Pillar = "crawlability"
	PillarOnPage       Pillar = "onpage"
	PillarTechnical    Pillar = "technical"
	PillarFreshness    Pillar = "freshness"
	PillarPerformance  Pillar = "performance"
)

// Severity grades how damaging an issue is when present.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityMultiplier = map[Severity]float64{
	SeverityCritical: 1.0,
	SeverityHigh:     0.85,
	SeverityMedium:   0.65,
	SeverityLow:      0.4,
}

// IssueDef is one static catalog entry describing how a detectable issue is
// scored.
type IssueDef struct {
	Code     IssueCode
	Pillar   Pillar
	Severity Severity
	// Weight is the issue's maximum contribution to its pillar's penalty.
	Weight float64
	// MaxRatio caps the prevalence ratio so one noisy, nearly-universal
	// signal cannot dominate the whole score. Zero means uncapped.
	MaxRatio float64
	// QuickWin marks low-effort, high-impact fixes for recommendation ranking.
	QuickWin bool
}

// issueCatalog is the process-wide constant issue table.
var issueCatalog = []IssueDef{
	{Code: IssueNoindex, Pillar: PillarIndexability, Severity: SeverityCritical, Weight: 25, MaxRatio: 1.0, QuickWin: true},

	{Code: IssueBrokenPage, Pillar: PillarCrawlability, Severity: SeverityCritical, Weight: 20, MaxRatio: 1.0, QuickWin: true},
	{Code: IssueRedirectChain, Pillar: PillarCrawlability, Severity: SeverityMedium, Weight: 6, MaxRatio: 0.5},
	{Code: IssueDeepPage, Pillar: PillarCrawlability, Severity: SeverityMedium, Weight: 5, MaxRatio: 1.0},

	{Code: IssueMissingTitle, Pillar: PillarOnPage, Severity: SeverityHigh, Weight: 10, MaxRatio: 1.0, QuickWin: true},
	{Code: IssueMissingDescription, Pillar: PillarOnPage, Severity: SeverityHigh, Weight: 8, MaxRatio: 1.0, QuickWin: true},
	{Code: IssueMissingH1, Pillar: PillarOnPage, Severity: SeverityMedium, Weight: 6, MaxRatio: 1.0, QuickWin: true},
	{Code: IssueMultipleH1, Pillar: PillarOnPage, Severity: SeverityMedium, Weight: 5, MaxRatio: 1.0, QuickWin: true},
	{Code: IssueThinContent, Pillar: PillarOnPage, Severity: SeverityMedium, Weight: 8, MaxRatio: 0.9},

	{Code: IssueCanonicalMismatch, Pillar: PillarTechnical, Severity: SeverityHigh, Weight: 12, MaxRatio: 0.8, QuickWin: true},
	{Code: IssueImagesMissingAlt, Pillar: PillarTechnical, Severity: SeverityLow, Weight: 5, MaxRatio: 0.9, QuickWin: true},
	{Code: IssueMissingViewport, Pillar: PillarTechnical, Severity: SeverityHigh, Weight: 12, MaxRatio: 1.0, QuickWin: true},
	{Code: IssueNotHTTPS, Pillar: PillarTechnical, Severity: SeverityCritical, Weight: 15, MaxRatio: 1.0, QuickWin: true},
	{Code: IssueMixedContent, Pillar: PillarTechnical, Severity: SeverityHigh, Weight: 10, MaxRatio: 0.8, QuickWin: true},
	{Code: IssueSlowTTFB, Pillar: PillarTechnical, Severity: SeverityMedium, Weight: 6, MaxRatio: 0.7},
	{Code: IssueOrphanPage, Pillar: PillarTechnical, Severity: SeverityHigh, Weight: 12, MaxRatio: 1.0, QuickWin: true},

	{Code: IssueStaleContent, Pillar: PillarFreshness, Severity: SeverityHigh, Weight: 18, MaxRatio: 1.0},
}

// IssueCatalog returns a copy of the static issue definition table.
func IssueCatalog() []IssueDef {
	out := make([]IssueDef, len(issueCatalog))
	copy(out, issueCatalog)
	return out
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// penaltyFor maps an issue's prevalence ratio to its penalty. The sub-linear
// exponent keeps low-prevalence issues from over-penalizing while widespread
// issues still dominate. The affine map has a floor: every catalog entry
// charges 0.2·weight·multiplier even at zero prevalence, so pillar scores
// start below 100 and improve as the catalog stays clean across audits.
func penaltyFor(def IssueDef, ratio float64) float64 {
	capped := ratio
	if def.MaxRatio > 0 && capped > def.MaxRatio {
		capped = def.MaxRatio
	}
	r := clamp01(capped)
	scaled := math.Pow(r, 0.75)
	return def.Weight * severityMultiplier[def.Severity] * (0.2 + 2.0*scaled)
}

// FreshnessData is the externally supplied content-age measurement consumed
// by the freshness pillar.
type FreshnessData struct {
	// Score is the 0-100 freshness score derived from content-age distribution.
	Score float64
	// StaleCount is the number of stale content items.
	StaleCount int
	// TotalItems is the number of content items examined.
	TotalItems int
}

// ScoreOptions carry the optional external inputs to scoring.
type ScoreOptions struct {
	// Freshness, when present, drives the freshness pillar; when absent the
	// pillar's weight is redistributed across the other five.
	Freshness *FreshnessData
	// Performance is an optional external 0-100 page-speed score blended
	// into the performance pillar.
	Performance *float64
}

// maxFindingExamples caps the example URLs attached to one finding.
const maxFindingExamples = 5

// Finding is one issue definition's realized measurement for an audit.
type Finding struct {
	Code          IssueCode `json:"code"`
	Pillar        Pillar    `json:"pillar"`
	Severity      Severity  `json:"severity"`
	Weight        float64   `json:"weight"`
	AffectedPages int       `json:"affected_pages"`
	CheckedPages  int       `json:"checked_pages"`
	// Ratio is the prevalence: affected / max(1, checked).
	Ratio    float64 `json:"ratio"`
	Penalty  float64 `json:"penalty"`
	QuickWin bool    `json:"quick_win"`
	// Examples is a capped sample of affected URLs.
	Examples []string `json:"examples,omitempty"`
}

// ScoreBreakdown is the complete scoring result for one audit.
type ScoreBreakdown struct {
	Overall  float64  `json:"overall"`
	Grade    string   `json:"grade"`
	SiteType SiteType `json:"site_type"`

	Pillars map[Pillar]float64 `json:"pillars"`
	// Weights are the pillar weights that produced Overall; they always sum
	// to 1.0, freshness redistribution included.
	Weights map[Pillar]float64 `json:"weights"`

	CheckedPages int `json:"checked_pages"`
	// TotalPenalty sums the pillar penalties, zero-prevalence baselines
	// included, so it is non-zero even for a clean site.
	TotalPenalty    float64            `json:"total_penalty"`
	PillarPenalties map[Pillar]float64 `json:"pillar_penalties"`

	// Findings holds every issue with at least one affected page, ranked by
	// penalty descending.
	Findings []Finding `json:"findings"`
	// TopIssues are the five highest-penalty findings.
	TopIssues []IssueCode `json:"top_issues"`
	// QuickWins are the five highest-penalty quick-win findings.
	QuickWins []IssueCode `json:"quick_wins"`
}

// pillarWeights returns the site-type-dependent base weight table.
func pillarWeights(siteType SiteType) map[Pillar]float64 {
	switch siteType {
	case SiteTypeEcommerce:
		return map[Pillar]float64{
			PillarIndexability: 0.15, PillarCrawlability: 0.12, PillarOnPage: 0.20,
			PillarTechnical: 0.18, PillarFreshness: 0.15, PillarPerformance: 0.20,
		}
	case SiteTypeCorporate:
		return map[Pillar]float64{
			PillarIndexability: 0.14, PillarCrawlability: 0.11, PillarOnPage: 0.22,
			PillarTechnical: 0.19, PillarFreshness: 0.16, PillarPerformance: 0.18,
		}
	default:
		return map[Pillar]float64{
			PillarIndexability: 0.15, PillarCrawlability: 0.12, PillarOnPage: 0.21,
			PillarTechnical: 0.18, PillarFreshness: 0.15, PillarPerformance: 0.19,
		}
	}
}

// Score computes the full multi-pillar breakdown from the finished page set
// (graph-derived issues already applied). It never fails: a zero-page audit
// yields a well-formed, degenerate breakdown.
func Score(pages []*Page, siteType SiteType, opts ScoreOptions) *ScoreBreakdown {
	checked := len(pages)
	divisor := float64(checked)
	if divisor < 1 {
		divisor = 1
	}

	hasFreshness := opts.Freshness != nil && opts.Freshness.TotalItems > 0

	var findings []Finding
	pillarPenalty := map[Pillar]float64{
		PillarIndexability: 0, PillarCrawlability: 0, PillarOnPage: 0,
		PillarTechnical: 0, PillarFreshness: 0, PillarPerformance: 0,
	}

	for _, def := range issueCatalog {
		if def.Pillar == PillarFreshness {
			// Freshness is measured from external content-age data, not from
			// per-page crawling. Without that data the whole pillar is skipped
			// and its weight redistributed below.
			if !hasFreshness {
				continue
			}
			staleRatio := float64(opts.Freshness.StaleCount) / float64(opts.Freshness.TotalItems)
			penalty := penaltyFor(def, staleRatio)
			pillarPenalty[PillarFreshness] += penalty
			if opts.Freshness.StaleCount == 0 {
				continue
			}
			findings = append(findings, Finding{
				Code:          def.Code,
				Pillar:        def.Pillar,
				Severity:      def.Severity,
				Weight:        def.Weight,
				AffectedPages: opts.Freshness.StaleCount,
				CheckedPages:  opts.Freshness.TotalItems,
				Ratio:         staleRatio,
				Penalty:       penalty,
				QuickWin:      def.QuickWin,
			})
			continue
		}

		affected := 0
		var examples []string
		for _, p := range pages {
			if p.HasIssue(def.Code) {
				affected++
				if len(examples) < maxFindingExamples {
					examples = append(examples, p.URL)
				}
			}
		}
		ratio := float64(affected) / divisor
		penalty := penaltyFor(def, ratio)
		pillarPenalty[def.Pillar] += penalty

		if affected > 0 {
			findings = append(findings, Finding{
				Code:          def.Code,
				Pillar:        def.Pillar,
				Severity:      def.Severity,
				Weight:        def.Weight,
				AffectedPages: affected,
				CheckedPages:  checked,
				Ratio:         ratio,
				Penalty:       penalty,
				QuickWin:      def.QuickWin,
				Examples:      examples,
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Penalty > findings[j].Penalty
	})

	pillars := map[Pillar]float64{
		PillarIndexability: math.Max(0, 100-pillarPenalty[PillarIndexability]),
		PillarCrawlability: math.Max(0, 100-pillarPenalty[PillarCrawlability]),
		PillarOnPage:       math.Max(0, 100-pillarPenalty[PillarOnPage]),
		PillarTechnical:    math.Max(0, 100-pillarPenalty[PillarTechnical]),
	}

	// Performance blends the external page-speed score with the penalty
	// formula when available; otherwise it is penalty-only.
	perfPenaltyScore := math.Max(0, 100-pillarPenalty[PillarPerformance])
	if opts.Performance != nil && *opts.Performance > 0 {
		pillars[PillarPerformance] = *opts.Performance*0.4 + perfPenaltyScore*0.6
	} else {
		pillars[PillarPerformance] = perfPenaltyScore
	}

	if hasFreshness {
		pillars[PillarFreshness] = clamp01(opts.Freshness.Score/100) * 100
	} else {
		pillars[PillarFreshness] = 0
	}

	weights := pillarWeights(siteType)
	if !hasFreshness {
		// Redistribute the freshness weight evenly across the other pillars
		// so the weights keep summing to 1.0.
		share := weights[PillarFreshness] / 5
		weights[PillarFreshness] = 0
		for _, p := range []Pillar{PillarIndexability, PillarCrawlability, PillarOnPage, PillarTechnical, PillarPerformance} {
			weights[p] += share
		}
	}

	overall := 0.0
	for p, w := range weights {
		overall += pillars[p] * w
	}

	totalPenalty := 0.0
	for _, p := range pillarPenalty {
		totalPenalty += p
	}

	grade := "F"
	switch {
	case overall >= 90:
		grade = "A"
	case overall >= 80:
		grade = "B"
	case overall >= 70:
		grade = "C"
	case overall >= 60:
		grade = "D"
	}

	for p := range pillars {
		pillars[p] = round1(pillars[p])
	}
	for p := range pillarPenalty {
		pillarPenalty[p] = round2(pillarPenalty[p])
	}

	return &ScoreBreakdown{
		Overall:         round1(overall),
		Grade:           grade,
		SiteType:        siteType,
		Pillars:         pillars,
		Weights:         weights,
		CheckedPages:    checked,
		TotalPenalty:    round2(totalPenalty),
		PillarPenalties: pillarPenalty,
		Findings:        findings,
		TopIssues:       topCodes(findings, 5, false),
		QuickWins:       topCodes(findings, 5, true),
	}
}

// topCodes returns up to n finding codes by penalty rank, optionally
// restricted to quick wins. Findings are already sorted.
func topCodes(findings []Finding, n int, quickWinsOnly bool) []IssueCode {
	var out []IssueCode
	for _, f := range findings {
		if quickWinsOnly && !f.QuickWin {
			continue
		}
		out = append(out, f.Code)
		if len(out) >= n {
			break
		}
	}
	return out
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
