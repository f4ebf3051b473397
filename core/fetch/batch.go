package fetch

import (
	"context"
	"net/url"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/gaurav-prasanna/deckpipe/core/normalize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Batch fetches resource URLs independently and reduces each to text.
// A failing URL never affects the others.
type Batch struct {
	fetcher     core.Fetcher
	normalizer  *normalize.Normalizer
	concurrency int
	log         logrus.FieldLogger
}

// NewBatch creates a Batch. concurrency <= 0 uses the default of 4.
func NewBatch(fetcher core.Fetcher, normalizer *normalize.Normalizer, concurrency int, log logrus.FieldLogger) *Batch {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Batch{
		fetcher:     fetcher,
		normalizer:  normalizer,
		concurrency: concurrency,
		log:         log,
	}
}

type outcome struct {
	resource *core.Resource
	err      error
}

// FetchAll reports one entry per input URL, in input order, so N inputs
// with K failures always yield K failures and N-K successes. URLs that are
// equal after normalisation are fetched once and share the outcome.
func (b *Batch) FetchAll(ctx context.Context, urls []string) core.FetchReport {
	var unique []string
	slot := make(map[string]int, len(urls))
	for _, u := range urls {
		key := NormalizeURL(u)
		if _, ok := slot[key]; ok {
			continue
		}
		slot[key] = len(unique)
		unique = append(unique, u)
	}

	// Each goroutine owns one slot, so results need no locking.
	outcomes := make([]outcome, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, u := range unique {
		g.Go(func() error {
			res, err := b.fetchOne(gctx, u)
			outcomes[i] = outcome{resource: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		if o.err != nil {
			b.log.WithFields(logrus.Fields{"url": unique[i], "error": o.err}).Warn("resource fetch failed")
			continue
		}
		b.log.WithFields(logrus.Fields{"url": unique[i], "chars": len([]rune(o.resource.Text))}).Info("resource fetched")
	}

	var report core.FetchReport
	for _, u := range urls {
		o := outcomes[slot[NormalizeURL(u)]]
		if o.err != nil {
			report.Failed = append(report.Failed, core.FetchFailure{URL: u, Err: o.err})
			continue
		}
		res := *o.resource
		res.URL = u
		report.Fetched = append(report.Fetched, res)
	}
	return report
}

// Distinct drops resources whose URL repeats an earlier one after
// normalisation, keeping the first.
func Distinct(resources []core.Resource) []core.Resource {
	seen := make(map[string]bool, len(resources))
	out := make([]core.Resource, 0, len(resources))
	for _, r := range resources {
		key := NormalizeURL(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func (b *Batch) fetchOne(ctx context.Context, rawURL string) (*core.Resource, error) {
	if err := ValidateURL("resource_urls", rawURL); err != nil {
		return nil, &core.FetchError{URL: rawURL, Err: err}
	}

	result, err := b.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, &core.FetchError{URL: rawURL, Err: err}
	}

	pageURL, _ := url.Parse(rawURL)
	page, err := b.normalizer.Normalize(result.Body, result.ContentType, pageURL)
	if err != nil {
		return nil, &core.FetchError{URL: rawURL, Err: err}
	}

	return &core.Resource{URL: rawURL, Title: page.Title, Text: page.Text}, nil
}
