package crawler

import (
	"context"
	"fmt"
	"time"

	"sjsage522/dealerworker/config"
	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/internal/translator"
	"sjsage522/dealerworker/logger"
	crawlerrors "sjsage522/dealerworker/pkg/errors"
	"sjsage522/dealerworker/services/cache"
	"sjsage522/dealerworker/services/progress"
	"sjsage522/dealerworker/services/sink"
)

// Summary is the machine-readable outcome of one vendor crawl
type Summary struct {
	RunID          string          `json:"run_id"`
	Vendor         string          `json:"vendor"`
	Resumed        bool            `json:"resumed"`
	Leaves         int             `json:"leaves"`
	FetchCalls     int             `json:"fetch_calls"`
	Records        int             `json:"records"`
	Duplicates     int             `json:"duplicates"`
	FailedBranches []BranchFailure `json:"failed_branches"`
	Duration       time.Duration   `json:"duration"`
}

// Failed reports whether any branch was skipped
func (s *Summary) Failed() bool {
	return len(s.FailedBranches) > 0
}

// SessionOptions carries the state a crawl session threads through
type SessionOptions struct {
	RunID      string
	Settings   config.VendorSettings
	Retry      RetryPolicy
	Pacer      *helpers.Pacer
	Cache      cache.CacheService
	BlockTime  time.Duration
	Translator *translator.LocationTranslator

	// Progress enables resumable crawls; Cursor is the loaded cursor to
	// resume from, nil for a fresh crawl.
	Progress *progress.Store
	Cursor   *progress.CrawlProgress
}

// Session is one crawl of one vendor. It owns every piece of mutable crawl
// state: the dedup set, the progress cursor and the counters.
type Session struct {
	vendor     Vendor
	out        sink.Sink
	opts       SessionOptions
	log        *logger.Logger
	normalizer *Normalizer
	dedup      *Deduper
	cursor     progress.CrawlProgress
	summary    *Summary
}

// NewSession creates a session writing vendor v's records to out
func NewSession(v Vendor, out sink.Sink, opts SessionOptions) *Session {
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryCache()
	}
	if opts.Pacer == nil {
		opts.Pacer = helpers.NewPacer(opts.Settings.PaceBase, opts.Settings.PaceJitter)
	}

	s := &Session{
		vendor:     v,
		out:        out,
		opts:       opts,
		log:        logger.ForVendor(v.Name()),
		normalizer: NewNormalizer(v.Brand(), v.Schema(), opts.Translator),
	}

	s.opts.Retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		s.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying request")
	}
	return s
}

// BlockKey is the cache key marking a rate-limited vendor
func BlockKey(vendor string) string {
	return vendor + "_rate_limited"
}

// Run crawls every facet and leaf and returns the summary. Branch failures
// are collected in the summary; the returned error is set only when the
// crawl as a whole could not finish (cancellation, rate limiting, sink
// failure).
func (s *Session) Run(ctx context.Context) (_ *Summary, err error) {
	start := time.Now()
	name := s.vendor.Name()

	resuming := s.opts.Progress != nil && s.opts.Cursor != nil
	s.summary = &Summary{RunID: s.opts.RunID, Vendor: name, Resumed: resuming}
	defer func() {
		s.summary.Duration = time.Since(start)
	}()

	if _, cacheErr := s.opts.Cache.Get(BlockKey(name)); cacheErr == nil {
		s.out.Close()
		return s.summary, crawlerrors.NewRateLimit(name, s.opts.BlockTime)
	}

	if resuming {
		s.cursor = *s.opts.Cursor
		s.summary.RunID = s.cursor.RunID
		s.log.Info().
			Int("facet", s.cursor.FacetIndex).
			Int("leaf", s.cursor.LeafIndex).
			Int("page", s.cursor.Page).
			Msg("Resuming crawl")
	} else {
		s.cursor = progress.CrawlProgress{Vendor: name, RunID: s.opts.RunID, Page: 1}
	}
	s.dedup = NewDeduper(s.opts.Cache, s.summary.RunID, name)

	if err := s.out.Open(resuming); err != nil {
		s.out.Close()
		return s.summary, err
	}
	defer func() {
		if closeErr := s.out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	enum := NewEnumerator(s.vendor, s.opts.Retry, s.opts.Pacer)
	leaves, err := enum.Leaves(ctx)
	s.summary.FailedBranches = append(s.summary.FailedBranches, enum.Failures...)
	if err != nil {
		return s.summary, s.abort(err)
	}
	s.summary.Leaves = len(leaves)

	facets := s.vendor.Facets()
	if len(facets) == 0 {
		facets = []Facet{{}}
	}

	from := s.cursor
	for fi := from.FacetIndex; fi < len(facets); fi++ {
		facet := facets[fi]
		if facet.Label != "" {
			s.log.Info().Str("facet", facet.Label).Msg("Crawling facet")
		}

		startLeaf := 0
		if fi == from.FacetIndex {
			startLeaf = from.LeafIndex
		}

		for li := startLeaf; li < len(leaves); li++ {
			startPage := 1
			if fi == from.FacetIndex && li == from.LeafIndex && from.Page > 1 {
				startPage = from.Page
			}

			if err := s.crawlLeaf(ctx, fi, facet, li, leaves[li], startPage); err != nil {
				return s.summary, s.abort(err)
			}

			s.cursor.FacetIndex, s.cursor.LeafIndex, s.cursor.Page = fi, li+1, 1
			if err := s.checkpoint(); err != nil {
				return s.summary, err
			}

			s.log.Info().
				Str("facet", facet.Label).
				Str("leaf", leaves[li].Name).
				Msgf("processed %d/%d (%.2f%%)", li+1, len(leaves), float64(li+1)*100/float64(len(leaves)))
		}

		s.cursor.FacetIndex, s.cursor.LeafIndex, s.cursor.Page = fi+1, 0, 1
	}

	if err := s.out.Flush(); err != nil {
		return s.summary, err
	}
	if s.opts.Progress != nil {
		if err := s.opts.Progress.Clear(name); err != nil {
			s.log.Warn().Err(err).Msg("Failed to remove progress file")
		}
	}

	s.log.Info().
		Int("records", s.summary.Records).
		Int("duplicates", s.summary.Duplicates).
		Int("failed_branches", len(s.summary.FailedBranches)).
		Msg("Crawl finished")
	return s.summary, nil
}

func (s *Session) crawlLeaf(ctx context.Context, fi int, facet Facet, li int, leaf *GeographyUnit, startPage int) error {
	settings := s.opts.Settings

	for page := startPage; ; page++ {
		if settings.MaxPages > 0 && page > settings.MaxPages {
			s.log.Debug().Strs("path", leaf.Path()).Int("max_pages", settings.MaxPages).Msg("Page cap reached")
			return nil
		}

		var result Page
		err := s.opts.Retry.Do(ctx, func(ctx context.Context) error {
			s.summary.FetchCalls++
			var err error
			result, err = s.vendor.FetchDealers(ctx, Query{Leaf: leaf, Facet: facet, Page: page, PageSize: settings.PageSize})
			return err
		})
		if paceErr := s.opts.Pacer.Wait(ctx); paceErr != nil {
			return paceErr
		}

		if err != nil {
			if isFatal(ctx, err) {
				return err
			}
			failure := BranchFailure{Stage: "dealers", Path: leaf.Path(), Facet: facet.Label, Page: page, Err: err.Error()}
			s.summary.FailedBranches = append(s.summary.FailedBranches, failure)
			s.log.Warn().Err(err).Strs("path", failure.Path).Int("page", page).Msg("Skipping rest of leaf")
			return nil
		}

		for _, rec := range result.Records {
			if err := s.write(rec); err != nil {
				return err
			}
		}

		s.cursor.FacetIndex, s.cursor.LeafIndex, s.cursor.Page = fi, li, page+1
		if err := s.checkpoint(); err != nil {
			return err
		}

		if !result.HasMore || len(result.Records) == 0 {
			return nil
		}
	}
}

func (s *Session) write(raw DealerRecord) error {
	rec := s.normalizer.Normalize(raw)

	if s.opts.Settings.Dedup {
		key := DefaultDedupKey(rec)
		if keyer, ok := s.vendor.(DedupKeyer); ok {
			key = keyer.DedupKey(rec)
		}
		seen, err := s.dedup.Seen(key)
		if err != nil {
			s.log.Warn().Err(err).Msg("Dedup cache unavailable")
		}
		if seen {
			s.summary.Duplicates++
			s.log.Debug().Str("store", rec.StoreName).Msg("Skipping duplicate")
			return nil
		}
	}

	if err := s.out.Write(s.vendor.Schema().Row(rec)); err != nil {
		return err
	}
	s.summary.Records++
	s.cursor.Records++

	if logger.IsDebugEnabled() {
		s.log.Debug().Str("store", rec.StoreName).Str("city", rec.City).Msg("Record written")
	}
	return nil
}

// checkpoint saves the cursor once no row is left in a sink's batch buffer.
// While rows are buffered the saved cursor stays behind them, so a crawl
// resumed after a crash fetches them again.
func (s *Session) checkpoint() error {
	if s.out.Pending() > 0 {
		return nil
	}
	if err := s.out.Flush(); err != nil {
		return err
	}
	s.saveProgress()
	return nil
}

func (s *Session) saveProgress() {
	if s.opts.Progress == nil {
		return
	}
	if err := s.opts.Progress.Save(&s.cursor); err != nil {
		s.log.Warn().Err(err).Msg("Failed to save progress")
	}
}

// abort marks a rate-limited vendor as blocked and passes err through
func (s *Session) abort(err error) error {
	if crawlerrors.Is(err, crawlerrors.ErrorTypeRateLimit) && s.opts.BlockTime > 0 {
		name := s.vendor.Name()
		value := []byte(fmt.Sprintf("%d", int(s.opts.BlockTime/time.Second)))
		if cacheErr := s.opts.Cache.Set(BlockKey(name), value, s.opts.BlockTime); cacheErr != nil {
			s.log.Warn().Err(cacheErr).Msg("Failed to store rate limit block")
		}
		s.log.Warn().Dur("block", s.opts.BlockTime).Msg("Vendor rate limited, blocking further requests")
	}
	return err
}
