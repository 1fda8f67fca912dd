package gather

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimlens/internal/fetch"
	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/search"
	"github.com/ppiankov/claimlens/internal/sources"
	"github.com/ppiankov/claimlens/internal/worker"
)

var errTooShort = errors.New("extracted text too short")

// DocumentFetcher downloads one reference article
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Document, error)
}

// Request describes one gathering run
type Request struct {
	Query           string
	MaxResults      int
	MaxReferences   int
	PreferReputable bool
}

// Progress reports one finished fetch
type Progress struct {
	Current int
	Total   int
	URL     string
	OK      bool
}

// Result is the evidence for a run plus bookkeeping for the client
type Result struct {
	Evidence model.Evidence
	Summary  model.FetchSummary
	Warnings []string
}

// Options tunes a Gatherer
type Options struct {
	Workers      int
	MinTextChars int
}

// Gatherer turns a query into ordered, deduplicated reference documents
type Gatherer struct {
	searcher   search.Searcher
	fetcher    DocumentFetcher
	classifier *sources.Classifier
	opts       Options
	log        *logrus.Entry
}

// NewGatherer creates a Gatherer
func NewGatherer(searcher search.Searcher, fetcher DocumentFetcher, classifier *sources.Classifier, opts Options, log *logrus.Entry) *Gatherer {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Gatherer{
		searcher:   searcher,
		fetcher:    fetcher,
		classifier: classifier,
		opts:       opts,
		log:        log,
	}
}

type candidate struct {
	rank   int
	result search.Result
	url    string
	tier   model.AuthorityTier
}

// Gather searches, deduplicates, caps and fetches reference documents.
// progress is called from the calling goroutine once per finished fetch.
// Zero usable documents yields model.ErrNoEvidence.
func (g *Gatherer) Gather(ctx context.Context, req Request, progress func(Progress)) (*Result, error) {
	res := &Result{}
	res.Summary.OriginalQuery = req.Query
	res.Summary.UsedReputableSources = req.PreferReputable

	// 1. Search, restricted to reputable outlets when requested
	q := search.Query{Text: req.Query, MaxResults: req.MaxResults}
	if req.PreferReputable {
		q.Domains = g.classifier.ReputableDomains()
	}
	res.Summary.SearchQuery = q.Rendered()

	hits, err := g.searcher.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", g.searcher.Name(), err)
	}
	if len(hits) == 0 && req.PreferReputable {
		res.Warnings = append(res.Warnings, "No results from reputable sources; searching all outlets")
		q.Domains = nil
		res.Summary.SearchQuery = q.Rendered()
		if hits, err = g.searcher.Search(ctx, q); err != nil {
			return nil, fmt.Errorf("search %s: %w", g.searcher.Name(), err)
		}
	}
	res.Summary.SearchResultsCount = len(hits)

	// 2. Deduplicate before capping
	candidates := g.candidates(hits, req.PreferReputable)
	if req.MaxReferences > 0 && len(candidates) > req.MaxReferences {
		candidates = candidates[:req.MaxReferences]
	}
	res.Summary.URLsExtracted = len(candidates)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidate URLs for %q: %w", req.Query, model.ErrNoEvidence)
	}

	// 3. Fetch concurrently; progress is reported here, not in workers
	fetched, err := g.fetchAll(ctx, candidates, progress)
	if err != nil {
		return nil, err
	}

	// 4. Keep rank order
	sort.Slice(fetched, func(i, j int) bool { return fetched[i].cand.rank < fetched[j].cand.rank })
	for _, f := range fetched {
		if f.err != nil {
			res.Summary.ArticlesFailed++
			g.log.WithError(f.err).WithField("url", f.cand.url).Debug("reference fetch failed")
			continue
		}
		res.Evidence = append(res.Evidence, g.reference(f.cand, f.doc))
	}
	res.Evidence.AssignRefIDs()
	res.Summary.ArticlesFetched = len(res.Evidence)

	if len(res.Evidence) == 0 {
		return nil, fmt.Errorf("all %d reference fetches failed: %w", len(candidates), model.ErrNoEvidence)
	}

	g.log.WithFields(logrus.Fields{
		"query":   req.Query,
		"fetched": res.Summary.ArticlesFetched,
		"failed":  res.Summary.ArticlesFailed,
	}).Info("evidence gathered")

	return res, nil
}

func (g *Gatherer) candidates(hits []search.Result, preferReputable bool) []candidate {
	seen := make(map[string]bool, len(hits))
	out := make([]candidate, 0, len(hits))
	for i, hit := range hits {
		normalized, err := NormalizeURL(hit.URL)
		if err != nil || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, candidate{
			rank:   i,
			result: hit,
			url:    hit.URL,
			tier:   g.classifier.Classify(hit.URL),
		})
	}

	if preferReputable {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].tier == model.TierReputable && out[j].tier != model.TierReputable
		})
	}
	for i := range out {
		out[i].rank = i
	}
	return out
}

type fetchJob struct {
	cand     candidate
	fetcher  DocumentFetcher
	minChars int
}

type fetchResult struct {
	cand candidate
	doc  *fetch.Document
	err  error
}

func (r *fetchResult) GetError() error { return r.err }

func (j *fetchJob) Execute(ctx context.Context) worker.Result {
	doc, err := j.fetcher.Fetch(ctx, j.cand.url)
	if err == nil && len(strings.TrimSpace(doc.Text)) < j.minChars {
		err = fmt.Errorf("%s: %w", j.cand.url, errTooShort)
	}
	return &fetchResult{cand: j.cand, doc: doc, err: err}
}

func (g *Gatherer) fetchAll(ctx context.Context, candidates []candidate, progress func(Progress)) ([]*fetchResult, error) {
	pool := worker.NewPool(ctx, g.opts.Workers)
	pool.Start()
	defer pool.Shutdown()

	jobs := make([]worker.Job, 0, len(candidates))
	for _, c := range candidates {
		jobs = append(jobs, &fetchJob{cand: c, fetcher: g.fetcher, minChars: g.opts.MinTextChars})
	}
	pool.SubmitAll(jobs)

	results := make([]*fetchResult, 0, len(candidates))
	for r := range pool.Results() {
		fr := r.(*fetchResult)
		results = append(results, fr)
		if progress != nil {
			progress(Progress{
				Current: len(results),
				Total:   len(candidates),
				URL:     fr.cand.url,
				OK:      fr.err == nil,
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Gatherer) reference(c candidate, doc *fetch.Document) model.ReferenceDocument {
	title := c.result.Title
	if title == "" {
		title = doc.Title
	}
	source := c.result.Source
	if source == "" {
		source = doc.SiteName
	}
	if source == "" {
		if u, err := url.Parse(c.url); err == nil {
			source = strings.TrimPrefix(u.Hostname(), "www.")
		}
	}

	return model.ReferenceDocument{
		Title:         title,
		URL:           c.url,
		Text:          doc.Text,
		PublishedDate: c.result.PublishedDate,
		Source:        source,
		Authority:     c.tier,
	}
}
