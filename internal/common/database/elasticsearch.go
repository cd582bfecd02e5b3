// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"niche-finder/internal/common/config"
	"niche-finder/internal/common/errors"
)

// businessMapping keeps place ids and tags exact-match and the name searchable.
const businessMapping = `{
  "mappings": {
    "properties": {
      "placeId":        {"type": "keyword"},
      "name":           {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "phone":          {"type": "keyword"},
      "website":        {"type": "keyword"},
      "address":        {"type": "text"},
      "industryTags":   {"type": "keyword"},
      "industry":       {"type": "text"},
      "businessStatus": {"type": "keyword"},
      "reviewTimes":    {"type": "date"},
      "runId":          {"type": "keyword"},
      "discoveredAt":   {"type": "date"}
    }
  }
}`

type ElasticsearchClient struct {
	Client *elasticsearch.Client
	addr   string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("elasticsearch: %v", err))
	}
	return &ElasticsearchClient{Client: es, addr: cfg.GetURL()}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return errors.NewNetworkError(c.addr, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewNetworkError(c.addr, fmt.Errorf("ping: %s", res.Status()))
	}
	return nil
}

// EnsureIndex creates index with the business mapping unless it exists.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context, index string) error {
	res, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.NewNetworkError(c.addr, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return errors.NewNetworkError(c.addr, fmt.Errorf("index exists %s: %s", index, res.Status()))
	}

	res, err = c.Client.Indices.Create(index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(businessMapping)),
	)
	if err != nil {
		return errors.NewNetworkError(c.addr, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		// A concurrent creator may have won the race.
		if strings.Contains(string(msg), "resource_already_exists_exception") {
			return nil
		}
		return errors.NewNetworkError(c.addr, fmt.Errorf("create index %s: %s: %s", index, res.Status(), msg))
	}
	return nil
}
