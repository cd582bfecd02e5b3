// internal/discovery/pager.go
package discovery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"niche-finder/internal/common/http"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/common/metrics"
	"niche-finder/internal/models"
)

const (
	DefaultInterPageDelay = 2 * time.Second
	DefaultConcurrency    = 8
)

type State int

const (
	StateSearching State = iota
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

// ProgressFunc receives human-readable status lines.
type ProgressFunc func(status string)

// PageFunc receives the accepted records of each page as soon as the page is joined.
type PageFunc func(page int, records []models.BusinessRecord)

type PagerConfig struct {
	Concurrency    int
	InterPageDelay time.Duration
	MaxPages       int // 0 = unlimited
}

// PageResult is the terminal state of one pager run.
type PageResult struct {
	State   State
	Records []models.BusinessRecord
	Pages   int
	Err     error
}

// SearchPager walks the nearby-search pages for one request.
type SearchPager struct {
	fetcher   http.Fetcher
	enricher  Enricher
	endpoints Endpoints
	cfg       PagerConfig
	logger    logger.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewSearchPager(fetcher http.Fetcher, enricher Enricher, endpoints Endpoints, cfg PagerConfig, log logger.Logger) *SearchPager {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.InterPageDelay < 0 {
		cfg.InterPageDelay = 0
	}
	return &SearchPager{
		fetcher:   fetcher,
		enricher:  enricher,
		endpoints: endpoints,
		cfg:       cfg,
		logger:    log,
		sleep:     sleepCtx,
	}
}

// Run drives the pager from Searching("") to Done or Failed. On Failed the
// records accepted on earlier pages are still returned.
func (p *SearchPager) Run(ctx context.Context, req models.SearchRequest, progress ProgressFunc, onPage PageFunc) PageResult {
	res := PageResult{State: StateSearching}
	token := ""
	limit := p.pageLimit(req)

	for page := 1; res.State == StateSearching; page++ {
		if page > 1 {
			if err := ctx.Err(); err != nil {
				return p.fail(res, err)
			}
			// The continuation token is not valid immediately after it is issued.
			if err := p.sleep(ctx, p.cfg.InterPageDelay); err != nil {
				return p.fail(res, err)
			}
		}

		if progress != nil {
			progress(fmt.Sprintf("Searching page %d...", page))
		}
		res.Pages = page

		body, err := p.fetcher.FetchJSON(ctx, p.endpoints.Search(req, token))
		if err != nil {
			metrics.SearchPagesFetched.WithLabelValues("error").Inc()
			return p.fail(res, fmt.Errorf("search page %d: %w", page, err))
		}

		result, skipped := parseSearchPage(body)
		if !result.HasResults {
			metrics.SearchPagesFetched.WithLabelValues("empty").Inc()
			res.State = StateDone
			break
		}
		metrics.SearchPagesFetched.WithLabelValues("ok").Inc()

		if result.Status != "" && result.Status != "OK" && result.Status != "ZERO_RESULTS" {
			p.logger.Warn("Search returned non-OK status", map[string]interface{}{
				"page":   page,
				"status": describeStatus(body),
			})
		}
		if skipped > 0 {
			p.logger.Warn("Skipping search results without place_id", map[string]interface{}{
				"page":    page,
				"skipped": skipped,
			})
		}

		accepted := p.enrichPage(ctx, result.PlaceIDs, req.Filters)
		res.Records = append(res.Records, accepted...)
		if onPage != nil && len(accepted) > 0 {
			onPage(page, accepted)
		}

		p.logger.Debug("Page processed", map[string]interface{}{
			"page":     page,
			"places":   len(result.PlaceIDs),
			"accepted": len(accepted),
		})

		switch {
		case result.NextPageToken == "":
			res.State = StateDone
		case limit > 0 && page >= limit:
			p.logger.Info("Page limit reached", map[string]interface{}{"maxPages": limit})
			res.State = StateDone
		default:
			token = result.NextPageToken
		}
	}

	return res
}

// pageLimit is the smaller non-zero of the configured and requested caps.
func (p *SearchPager) pageLimit(req models.SearchRequest) int {
	if req.MaxPages > 0 && (p.cfg.MaxPages == 0 || req.MaxPages < p.cfg.MaxPages) {
		return req.MaxPages
	}
	return p.cfg.MaxPages
}

// enrichPage fans out one enrichment per id, at most cfg.Concurrency at a
// time, and joins before returning. Enrichments run detached from ctx so a
// cancellation lets the page finish. Output keeps the order of ids.
func (p *SearchPager) enrichPage(ctx context.Context, ids []string, filters models.FilterSet) []models.BusinessRecord {
	if len(ids) == 0 {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	results := make([]EnrichResult, len(ids))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = p.enricher.Enrich(detached, id, filters)
			return nil
		})
	}
	_ = g.Wait()

	accepted := make([]models.BusinessRecord, 0, len(ids))
	for _, r := range results {
		if r.Outcome == Accepted && r.Record != nil {
			accepted = append(accepted, *r.Record)
		}
	}
	return accepted
}

func (p *SearchPager) fail(res PageResult, err error) PageResult {
	res.State = StateFailed
	res.Err = err
	p.logger.Error("Search aborted", map[string]interface{}{
		"page":    res.Pages,
		"records": len(res.Records),
		"error":   err.Error(),
	})
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
