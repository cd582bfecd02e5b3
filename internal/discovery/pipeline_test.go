package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"

	"niche-finder/internal/cache"
	"niche-finder/internal/common/errors"
	nfhttp "niche-finder/internal/common/http"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/common/observability"
	"niche-finder/internal/models"
)

// fakePlaces serves one search page with five places. Three carry a phone
// field, one of them empty.
type fakePlaces struct {
	searchHits  atomic.Int32
	detailsHits atomic.Int32
	mu          sync.Mutex
	lastSearch  map[string]string
}

func (f *fakePlaces) handler(t *testing.T) http.Handler {
	details := map[string]string{
		"p1": `{"status":"OK","result":{"name":"Acme Plumbing","formatted_phone_number":"(215) 555-0100","formatted_address":"1 Market St","types":["plumber","point_of_interest"],"business_status":"OPERATIONAL"}}`,
		"p2": `{"status":"OK","result":{"name":"No Phone Pipes","types":["plumber"]}}`,
		"p3": `{"status":"OK","result":{"name":"Drain Bros","formatted_phone_number":"(215) 555-0199","website":"https://drainbros.test","types":["plumber"]}}`,
		"p4": `{"status":"OK","result":{"name":"Silent Plumbing","formatted_phone_number":""}}`,
		"p5": `{"status":"NOT_FOUND"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/nearbysearch/json", func(w http.ResponseWriter, r *http.Request) {
		f.searchHits.Add(1)
		q := r.URL.Query()
		f.mu.Lock()
		f.lastSearch = map[string]string{
			"location": q.Get("location"),
			"radius":   q.Get("radius"),
			"type":     q.Get("type"),
		}
		f.mu.Unlock()
		w.Write([]byte(`{"status":"OK","results":[{"place_id":"p1"},{"place_id":"p2"},{"place_id":"p3"},{"place_id":"p4"},{"place_id":"p5"}]}`))
	})
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, r *http.Request) {
		f.detailsHits.Add(1)
		assert.Equal(t, DetailFields, r.URL.Query().Get("fields"))
		body, ok := details[r.URL.Query().Get("place_id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	})
	return mux
}

func newTestPipeline(t *testing.T, baseURL string) *Pipeline {
	t.Helper()
	log := logger.NewTestLogger(t)
	client := nfhttp.NewClient(5 * time.Second)
	obs := observability.NewWithReader(metric.NewManualReader(), "discovery-test")

	cfg := Config{
		Endpoints: Endpoints{
			SearchURL:  baseURL + "/nearbysearch/json",
			DetailsURL: baseURL + "/details/json",
			APIKey:     "test-key",
		},
		Concurrency:    4,
		InterPageDelay: 10 * time.Millisecond,
	}
	return New(cfg, client, cache.New(client, log), obs, log)
}

func TestPipelineDiscover_EndToEnd(t *testing.T) {
	places := &fakePlaces{}
	server := httptest.NewServer(places.handler(t))
	defer server.Close()

	pipeline := newTestPipeline(t, server.URL)

	var progress []string
	records, err := pipeline.Discover(context.Background(), phillyPlumbers, func(s string) {
		progress = append(progress, s)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3", "p4"}, idsIn(records))
	assert.Equal(t, []string{"Searching page 1..."}, progress)
	assert.Equal(t, int32(1), places.searchHits.Load())
	assert.Equal(t, int32(5), places.detailsHits.Load())
	places.mu.Lock()
	assert.Equal(t, map[string]string{"location": "39.95,-75.16", "radius": "10000", "type": "plumber"}, places.lastSearch)
	places.mu.Unlock()

	assert.Equal(t, "Acme Plumbing", records[0].Name)
	assert.Equal(t, "plumber, point_of_interest", records[0].Industry())
	assert.Equal(t, "N/A", models.StringOrNA(records[0].Website))

	// A second run reuses cached details but searches again.
	_, err = pipeline.Discover(context.Background(), phillyPlumbers, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), places.searchHits.Load())
	assert.Equal(t, int32(5), places.detailsHits.Load())
}

func TestPipelineDiscover_InvalidRequestMakesNoCalls(t *testing.T) {
	places := &fakePlaces{}
	server := httptest.NewServer(places.handler(t))
	defer server.Close()

	pipeline := newTestPipeline(t, server.URL)

	bad := phillyPlumbers
	bad.Radius = 0
	records, err := pipeline.Discover(context.Background(), bad, nil)

	assert.Empty(t, records)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigurationError))
	assert.Equal(t, int32(0), places.searchHits.Load())
	assert.Equal(t, int32(0), places.detailsHits.Load())
}

func TestPipelineStream(t *testing.T) {
	places := &fakePlaces{}
	server := httptest.NewServer(places.handler(t))
	defer server.Close()

	pipeline := newTestPipeline(t, server.URL)

	var streamed []string
	err := pipeline.Stream(context.Background(), phillyPlumbers, nil, func(r models.BusinessRecord) {
		streamed = append(streamed, r.PlaceID)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3", "p4"}, streamed)
}

func TestPipelineRun_ReportOnSearchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	pipeline := newTestPipeline(t, server.URL)
	report := pipeline.Run(context.Background(), phillyPlumbers, nil, nil)

	assert.Equal(t, StateFailed, report.State)
	assert.True(t, errors.HasCode(report.Err, errors.ErrCodeNetworkError))
	assert.NotEmpty(t, report.RunID)
	assert.NotContains(t, report.Err.Error(), "test-key")

	summary := report.Summary(phillyPlumbers)
	assert.Equal(t, "failed", summary.Status)
	assert.Equal(t, 0, summary.RecordCount)
	assert.Equal(t, report.RunID, summary.RunID)
	assert.Contains(t, summary.Error, fmt.Sprint(http.StatusBadGateway))
}
