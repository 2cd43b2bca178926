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

// Command audit runs a sampled SEO audit against a single site and prints
// the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentberlin/siteaudit"
)

func main() {
	var (
		budget    = flag.Int("budget", siteaudit.DefaultLimits().SampleTotalPages, "page budget for the sample, seed included")
		siteType  = flag.String("site-type", "", "override site type detection (ecommerce, content, corporate)")
		robots    = flag.Bool("robots", true, "respect robots.txt")
		timeout   = flag.Duration("timeout", 15*time.Minute, "overall audit deadline")
		userAgent = flag.String("user-agent", "", "override the crawl User-Agent")
		pages     = flag.Bool("pages", false, "include per-page detail in the output")
		progress  = flag.Bool("progress", false, "log crawl progress to stderr")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <url>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	seed := flag.Arg(0)

	fcfg := siteaudit.DefaultFetcherConfig()
	if *userAgent != "" {
		fcfg.UserAgent = *userAgent
	}
	fetcher, err := siteaudit.NewFetcher(fcfg, nil)
	if err != nil {
		log.Fatalf("fetcher: %v", err)
	}

	limits := siteaudit.DefaultLimits()
	if *budget > 0 {
		limits.SampleTotalPages = *budget
	}

	opts := siteaudit.AuditOptions{
		RespectRobots: *robots,
		SiteType:      siteaudit.SiteType(*siteType),
	}
	if *progress {
		opts.OnProgress = func(n int) {
			log.Printf("checked %d/%d pages", n, limits.SampleTotalPages)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	auditor := siteaudit.NewAuditor(fetcher, limits, nil)
	report, err := auditor.Run(ctx, seed, opts)
	if err != nil {
		log.Fatalf("audit: %v", err)
	}
	if !*pages {
		report.Pages = nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encode report: %v", err)
	}
	if report.Failure != nil {
		os.Exit(1)
	}
}
