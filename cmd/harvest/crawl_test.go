package main_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/harvest"
	main "github.com/fwojciec/harvest/cmd/harvest"
	"github.com/fwojciec/harvest/fs"
)

// newTestSite serves a tiny three-page site: an index linking to an about
// page, a Python file and an external page outside the allowed domains.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Docs Home</title></head><body>
<article><p>Welcome to the documentation for the test site. The index page links to every other page we serve.</p></article>
<a href="/about">About</a>
<a href="/code/util.py">Utility module</a>
<a href="http://elsewhere.invalid/page">External</a>
</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>About</title></head><body>
<main><p>This project collects webpages and code files for building datasets. The about page describes that purpose in a few sentences.</p></main>
<a href="/">Home</a>
</body></html>`)
	})
	mux.HandleFunc("/code/util.py", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "def add(a, b):\n    \"\"\"Add two numbers and return the result.\"\"\"\n    return a + b\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlCmd_CrawlsSiteAndResumes(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)
	env := newTestEnv(t, srv.URL)
	ctx := testContext()
	m := main.NewMain()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := m.Run(ctx, []string{"crawl", "--config", env.ConfigPath}, stdout, stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "Crawl finished: frontier_exhausted")
	assert.Contains(t, out, "Saved 3 pages and 1 code files")
	assert.Contains(t, out, "3 URLs visited, 0 queued, 0 failed, 0 duplicates skipped")

	records := fs.NewRecordLog(env.DataFile)
	count, err := records.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	recs, err := records.TailRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	types := map[harvest.RecordType]int{}
	for _, rec := range recs {
		types[rec.RecordType()]++
	}
	assert.Equal(t, 2, types[harvest.RecordWebpage])
	assert.Equal(t, 1, types[harvest.RecordCode])

	cp, err := fs.NewCheckpointStore(env.CheckpointFile).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, cp.Visited, 3)
	assert.Empty(t, cp.Pending)
	assert.Contains(t, cp.Visited, srv.URL+"/about")

	report, err := fs.NewStatsFile(env.StatsFile).LoadReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.PagesCrawled, "code records count as crawled pages")
	assert.Equal(t, int64(1), report.CodeFilesCollected)
	assert.Positive(t, report.TotalBytes)

	logData, err := os.ReadFile(env.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "crawl_started")
	assert.Contains(t, string(logData), "crawl_finished")

	// A resumed run finds everything visited and stops immediately
	// without fetching or writing anything new.
	resumeOut := &bytes.Buffer{}
	err = m.Run(ctx, []string{"crawl", "--config", env.ConfigPath, "--resume"}, resumeOut, stderr)
	require.NoError(t, err)
	assert.Contains(t, resumeOut.String(), "Crawl finished: frontier_exhausted")
	assert.Contains(t, resumeOut.String(), "3 URLs visited, 0 queued")

	count, err = records.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	report, err = fs.NewStatsFile(env.StatsFile).LoadReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.PagesCrawled, "restored counters survive the resumed run")
}

func TestCrawlCmd_ResumeRebuildsFingerprints(t *testing.T) {
	t.Parallel()

	// /copy mirrors the body of / under a different title. The first run
	// never sees it; the resumed run must still recognize it as a
	// duplicate, which only works if the fingerprint set was rebuilt from
	// the record log.
	article := `<article><p>Every copy of this page carries the same paragraph of body text, so whichever copy is crawled later must be recognized as a duplicate.</p></article>`
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprintf(w, `<html><head><title>Original</title></head><body>%s</body></html>`, article)
		case "/copy":
			fmt.Fprintf(w, `<html><head><title>Mirrored</title></head><body>%s</body></html>`, article)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := newTestEnv(t, srv.URL)
	ctx := testContext()
	m := main.NewMain()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := m.Run(ctx, []string{"crawl", "--config", env.ConfigPath}, stdout, stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Saved 1 pages and 0 code files")

	resumeOut := &bytes.Buffer{}
	err = m.Run(ctx, []string{"crawl", "--config", env.ConfigPath, "--resume", "--seed", srv.URL + "/copy"}, resumeOut, stderr)
	require.NoError(t, err)

	assert.Contains(t, resumeOut.String(), "1 duplicates skipped")
	assert.Contains(t, resumeOut.String(), "2 URLs visited, 0 queued, 0 failed")

	count, err := fs.NewRecordLog(env.DataFile).CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "the mirrored page adds no record")

	logData, err := os.ReadFile(env.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "fingerprints_rebuilt")
}

func TestCrawlCmd_StopsAtMaxURLs(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)
	env := newTestEnv(t, srv.URL)
	env.writeConfig(t, "  max_urls: 1", "")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := main.NewMain().Run(testContext(), []string{"crawl", "--config", env.ConfigPath}, stdout, stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Crawl finished: max_urls_reached")
	assert.Contains(t, stdout.String(), "1 URLs visited, 0 queued")

	count, err := fs.NewRecordLog(env.DataFile).CountRecords(testContext())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCrawlCmd_CountsFailedPages(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Start</title></head><body>
<p>The only page here links to a URL the server does not serve anymore.</p>
<a href="/missing">Missing</a>
</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := newTestEnv(t, srv.URL)
	ctx := testContext()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := main.NewMain().Run(ctx, []string{"crawl", "--config", env.ConfigPath}, stdout, stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "2 URLs visited, 0 queued, 1 failed")

	cp, err := fs.NewCheckpointStore(env.CheckpointFile).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cp.FailureCounts[srv.URL+"/missing"])

	report, err := fs.NewStatsFile(env.StatsFile).LoadReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.PagesFailed)
}

func TestCrawlCmd_SkipsDuplicateContent(t *testing.T) {
	t.Parallel()

	page := func(title string) string {
		return fmt.Sprintf(`<html><head><title>%s</title></head><body>
<article><p>Both copies of this article share exactly the same body text, so only the first one is kept.</p></article>
</body></html>`, title)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Index</title></head><body>
<p>An index page pointing at two identical articles published under different URLs.</p>
<a href="/first">First</a>
<a href="/second">Second</a>
</body></html>`)
	})
	mux.HandleFunc("/first", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("First copy"))
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("Second copy"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := newTestEnv(t, srv.URL)
	ctx := testContext()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := main.NewMain().Run(ctx, []string{"crawl", "--config", env.ConfigPath}, stdout, stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "1 duplicates skipped")

	count, err := fs.NewRecordLog(env.DataFile).CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "index plus one of the two identical articles")

	report, err := fs.NewStatsFile(env.StatsFile).LoadReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.DuplicatesSkipped)
}

func TestCrawlCmd_TrafilaturaExtractor(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Single Page</title></head><body>
<nav>Home | Products | Contact</nav>
<article><p>The trafilatura extractor keeps this article text while the navigation noise around it is dropped from the record.</p></article>
</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := newTestEnv(t, srv.URL)
	env.writeConfig(t, "", "  extractor: trafilatura")
	ctx := testContext()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := main.NewMain().Run(ctx, []string{"crawl", "--config", env.ConfigPath}, stdout, stderr)
	require.NoError(t, err)

	recs, err := fs.NewRecordLog(env.DataFile).TailRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	wp, ok := recs[0].(*harvest.WebpageRecord)
	require.True(t, ok)
	assert.Contains(t, wp.Content, "trafilatura extractor keeps this article text")
	assert.NotContains(t, wp.Content, "Home | Products | Contact")
}

func TestCrawlCmd_ReadabilityExtractor(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Release Notes</title></head><body>
<div class="sidebar">Related releases and archive links live over here.</div>
<article>
<p>The readability extractor keeps this release announcement because it reads like
an article: several sentences of running prose describing what the new version
changes and why operators should care about upgrading promptly.</p>
<p>A second paragraph continues the announcement with upgrade instructions and a
reminder to read the migration notes before rolling the release out anywhere.</p>
</article>
</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := newTestEnv(t, srv.URL)
	env.writeConfig(t, "", "  extractor: readability")
	ctx := testContext()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := main.NewMain().Run(ctx, []string{"crawl", "--config", env.ConfigPath}, stdout, stderr)
	require.NoError(t, err)

	recs, err := fs.NewRecordLog(env.DataFile).TailRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	wp, ok := recs[0].(*harvest.WebpageRecord)
	require.True(t, ok)
	assert.Equal(t, "Release Notes", wp.Title)
	assert.Contains(t, wp.Content, "release announcement")
	assert.NotContains(t, wp.Content, "archive links")
}
