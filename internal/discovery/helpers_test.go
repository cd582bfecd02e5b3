package discovery

import (
	"context"
	stderrors "errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/models"
)

var testEndpoints = Endpoints{
	SearchURL:  "https://places.test/nearbysearch/json",
	DetailsURL: "https://places.test/details/json",
	APIKey:     "test-key",
}

// scriptedSearch serves search pages keyed by pagetoken ("" for page 1).
type scriptedSearch struct {
	mu     sync.Mutex
	pages  map[string]string
	fail   map[string]bool
	tokens []string
}

func (s *scriptedSearch) FetchJSON(ctx context.Context, rawURL string) ([]byte, error) {
	u, _ := url.Parse(rawURL)
	token := u.Query().Get("pagetoken")

	s.mu.Lock()
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()

	if s.fail[token] {
		return nil, errors.NewNetworkError(rawURL, stderrors.New("503 from upstream"))
	}
	return []byte(s.pages[token]), nil
}

func (s *scriptedSearch) requestedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// stubEnricher accepts ids listed in accept and tracks peak concurrency.
type stubEnricher struct {
	accept   map[string]bool
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (e *stubEnricher) Enrich(ctx context.Context, placeID string, _ models.FilterSet) EnrichResult {
	e.calls.Add(1)
	n := e.inFlight.Add(1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer e.inFlight.Add(-1)

	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if !e.accept[placeID] {
		return EnrichResult{PlaceID: placeID, Outcome: Rejected, Reason: CheckRequirePhone}
	}
	rec := models.BusinessRecord{PlaceID: placeID, Name: "Business " + placeID, IndustryTags: []string{}}
	return EnrichResult{PlaceID: placeID, Outcome: Accepted, Record: &rec}
}

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func strPtr(s string) *string { return &s }

func idsIn(records []models.BusinessRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.PlaceID
	}
	return out
}
