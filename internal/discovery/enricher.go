// internal/discovery/enricher.go
package discovery

import (
	"context"

	"niche-finder/internal/common/logger"
	"niche-finder/internal/common/metrics"
	"niche-finder/internal/models"
)

type Outcome int

const (
	Accepted Outcome = iota
	Rejected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// EnrichResult is the outcome for one place id. Record is set only when
// Accepted; Reason names the failing check when Rejected; Err is set when Failed.
type EnrichResult struct {
	PlaceID string
	Outcome Outcome
	Record  *models.BusinessRecord
	Reason  string
	Err     error
}

// CachedFetcher is satisfied by cache.ResponseCache.
type CachedFetcher interface {
	FetchCached(ctx context.Context, url string) ([]byte, error)
}

// Enricher turns a place id into an enrichment outcome.
type Enricher interface {
	Enrich(ctx context.Context, placeID string, filters models.FilterSet) EnrichResult
}

type DetailEnricher struct {
	cache     CachedFetcher
	endpoints Endpoints
	filters   FilterChain
	logger    logger.Logger
}

func NewDetailEnricher(cache CachedFetcher, endpoints Endpoints, filters FilterChain, log logger.Logger) *DetailEnricher {
	return &DetailEnricher{
		cache:     cache,
		endpoints: endpoints,
		filters:   filters,
		logger:    log,
	}
}

// Enrich never returns an error: per-place failures are reported as Failed
// and must not abort the page.
func (e *DetailEnricher) Enrich(ctx context.Context, placeID string, filters models.FilterSet) EnrichResult {
	body, err := e.cache.FetchCached(ctx, e.endpoints.Details(placeID))
	if err != nil {
		return e.failed(placeID, "fetch", err)
	}

	details, err := parseDetails(placeID, body)
	if err != nil {
		return e.failed(placeID, "validation", err)
	}

	if ok, check := e.filters.Evaluate(details, filters); !ok {
		metrics.DetailOutcomes.WithLabelValues(Rejected.String(), check).Inc()
		e.logger.Debug("Place rejected by filter", map[string]interface{}{
			"placeId": placeID,
			"filter":  check,
		})
		return EnrichResult{PlaceID: placeID, Outcome: Rejected, Reason: check}
	}

	record := models.NewBusinessRecord(placeID, details)
	metrics.DetailOutcomes.WithLabelValues(Accepted.String(), "").Inc()
	return EnrichResult{PlaceID: placeID, Outcome: Accepted, Record: &record}
}

func (e *DetailEnricher) failed(placeID, reason string, err error) EnrichResult {
	metrics.DetailOutcomes.WithLabelValues(Failed.String(), reason).Inc()
	e.logger.Warn("Failed to fetch business details", map[string]interface{}{
		"placeId": placeID,
		"reason":  reason,
		"error":   err.Error(),
	})
	return EnrichResult{PlaceID: placeID, Outcome: Failed, Reason: reason, Err: err}
}
