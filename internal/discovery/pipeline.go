// internal/discovery/pipeline.go
package discovery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"niche-finder/internal/common/http"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/common/observability"
	"niche-finder/internal/models"
)

// Config bundles everything needed to assemble a Pipeline.
type Config struct {
	Endpoints          Endpoints
	Concurrency        int
	InterPageDelay     time.Duration
	MaxPages           int
	RecentReviewWindow time.Duration
}

// Report describes one finished run.
type Report struct {
	RunID      string
	Records    []models.BusinessRecord
	Pages      int
	State      State
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary converts the report into the notification payload.
func (r Report) Summary(req models.SearchRequest) models.RunSummary {
	s := models.RunSummary{
		RunID:       r.RunID,
		Request:     req,
		RecordCount: len(r.Records),
		Pages:       r.Pages,
		Status:      "completed",
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	if r.Err != nil {
		s.Status = "failed"
		s.Error = r.Err.Error()
	}
	return s
}

// Pipeline is the entry point for a discovery run.
type Pipeline struct {
	pager  *SearchPager
	obs    *observability.Observability
	logger logger.Logger
}

// New wires enricher and pager. search is used uncached for result pages;
// details goes through the response cache.
func New(cfg Config, search http.Fetcher, details CachedFetcher, obs *observability.Observability, log logger.Logger) *Pipeline {
	enricher := NewDetailEnricher(details, cfg.Endpoints, NewFilterChain(cfg.RecentReviewWindow), log)
	pager := NewSearchPager(search, enricher, cfg.Endpoints, PagerConfig{
		Concurrency:    cfg.Concurrency,
		InterPageDelay: cfg.InterPageDelay,
		MaxPages:       cfg.MaxPages,
	}, log)
	return NewPipeline(pager, obs, log)
}

func NewPipeline(pager *SearchPager, obs *observability.Observability, log logger.Logger) *Pipeline {
	return &Pipeline{pager: pager, obs: obs, logger: log}
}

// Discover returns all accepted records. On failure the records gathered
// before the failing page are returned together with the error.
func (p *Pipeline) Discover(ctx context.Context, req models.SearchRequest, progress ProgressFunc) ([]models.BusinessRecord, error) {
	report := p.Run(ctx, req, progress, nil)
	return report.Records, report.Err
}

// Stream hands each accepted record to onRecord as soon as its page is joined.
func (p *Pipeline) Stream(ctx context.Context, req models.SearchRequest, progress ProgressFunc, onRecord func(models.BusinessRecord)) error {
	report := p.Run(ctx, req, progress, func(_ int, records []models.BusinessRecord) {
		for _, r := range records {
			onRecord(r)
		}
	})
	return report.Err
}

// Run validates req and drives the pager. A request that fails validation
// causes no network activity.
func (p *Pipeline) Run(ctx context.Context, req models.SearchRequest, progress ProgressFunc, onPage PageFunc) Report {
	report := Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	if err := req.Validate(); err != nil {
		report.State = StateFailed
		report.Err = err
		report.FinishedAt = time.Now().UTC()
		return report
	}

	log := p.logger.With(map[string]interface{}{"runId": report.RunID})
	log.Info("Discovery started", map[string]interface{}{
		"location":     req.Coordinates.String(),
		"radius":       req.Radius,
		"businessType": req.BusinessType,
		"filters":      req.Filters,
	})

	res := p.pager.Run(ctx, req, progress, onPage)

	report.Records = res.Records
	report.Pages = res.Pages
	report.State = res.State
	report.Err = res.Err
	report.FinishedAt = time.Now().UTC()

	status := "completed"
	if res.State == StateFailed {
		status = "failed"
	}
	duration := report.FinishedAt.Sub(report.StartedAt)
	p.obs.RecordRun(context.WithoutCancel(ctx), status, len(report.Records), duration)

	log.Info("Discovery finished", map[string]interface{}{
		"status":     status,
		"records":    len(report.Records),
		"pages":      report.Pages,
		"durationMs": duration.Milliseconds(),
	})

	return report
}
