// internal/export/elasticsearch.go
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/models"
)

// ElasticsearchSink indexes each record under its place id, so a place seen
// again in a later run replaces the earlier document.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
	now    func() time.Time
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index, now: time.Now}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

type businessDocument struct {
	models.BusinessRecord
	Industry     string    `json:"industry"`
	RunID        string    `json:"runId"`
	DiscoveredAt time.Time `json:"discoveredAt"`
}

func (s *ElasticsearchSink) Write(ctx context.Context, runID string, records []models.BusinessRecord) error {
	discoveredAt := s.now().UTC()

	for _, r := range records {
		body, err := json.Marshal(businessDocument{
			BusinessRecord: r,
			Industry:       r.Industry(),
			RunID:          runID,
			DiscoveredAt:   discoveredAt,
		})
		if err != nil {
			return errors.NewSinkWriteFailedError(s.Name(), err)
		}

		res, err := s.client.Index(
			s.index,
			bytes.NewReader(body),
			s.client.Index.WithContext(ctx),
			s.client.Index.WithDocumentID(r.PlaceID),
		)
		if err != nil {
			return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("index %s: %w", r.PlaceID, err))
		}
		if res.IsError() {
			msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
			res.Body.Close()
			return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("index %s: %s: %s", r.PlaceID, res.Status(), msg))
		}
		res.Body.Close()
	}
	return nil
}
