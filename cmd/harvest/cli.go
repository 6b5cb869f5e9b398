package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/harvest"
)

// Dependencies holds the context and configuration shared by all commands.
// Commands build their own services from the config so the crawl and the
// dashboard stay separate processes over the same output files.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config harvest.Config
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config string `short:"c" default:"harvest.yaml" help:"Path to the YAML config file"`

	Crawl     CrawlCmd     `cmd:"" help:"Run the crawl until the frontier is empty or a limit is reached"`
	Dashboard DashboardCmd `cmd:"" help:"Serve the monitoring dashboard over the crawl's output files"`
	Stats     StatsCmd     `cmd:"" help:"Print the latest statistics report"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	Resume       bool          `help:"Resume from the checkpoint file if one exists"`
	Duration     time.Duration `short:"d" help:"Override the configured run duration (e.g. 2h)"`
	Seed         []string      `help:"Extra seed URL; its host joins the allowed domains (repeatable)"`
	SeedSitemaps bool          `help:"Seed the frontier from each site's sitemaps before crawling"`
}

// DashboardCmd is the "dashboard" subcommand.
type DashboardCmd struct {
	Addr string `help:"Override the configured listen address (e.g. :8000)"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct{}
