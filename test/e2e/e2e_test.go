// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"niche-finder/internal/app"
	"niche-finder/internal/common/config"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/models"
	discoverbusinesses "niche-finder/internal/workers/discovery/discover-businesses"
)

// These tests need the docker-compose stack (zeebe, postgres, redis,
// elasticsearch) on localhost. The Places API is always faked.
const enableEnv = "NICHE_E2E"

const discoveryProcess = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL"
  xmlns:zeebe="http://camunda.org/schema/zeebe/1.0"
  id="Definitions_niche" targetNamespace="http://bpmn.io/schema/bpmn">
  <bpmn:process id="niche-discovery" isExecutable="true">
    <bpmn:startEvent id="Start" />
    <bpmn:sequenceFlow id="f1" sourceRef="Start" targetRef="Discover" />
    <bpmn:serviceTask id="Discover" name="Discover businesses">
      <bpmn:extensionElements>
        <zeebe:taskDefinition type="discover-businesses" retries="3" />
      </bpmn:extensionElements>
    </bpmn:serviceTask>
    <bpmn:sequenceFlow id="f2" sourceRef="Discover" targetRef="End" />
    <bpmn:endEvent id="End" />
  </bpmn:process>
</bpmn:definitions>`

func TestMain(m *testing.M) {
	if os.Getenv(enableEnv) == "" {
		fmt.Printf("skipping e2e tests, set %s=1 to run them\n", enableEnv)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func fakePlaces(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/nearbysearch/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":[{"place_id":"e2e-1"},{"place_id":"e2e-2"}]}`))
	})
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") == "e2e-1" {
			w.Write([]byte(`{"status":"OK","result":{"name":"E2E Plumbing","formatted_phone_number":"(215) 555-0100","types":["plumber"],"business_status":"OPERATIONAL"}}`))
			return
		}
		w.Write([]byte(`{"status":"OK","result":{"name":"E2E Pipes","website":"https://pipes.test","types":["plumber"]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func e2eConfig(t *testing.T, placesURL string) *config.Config {
	if os.Getenv("PLACES_API_KEY") == "" {
		t.Setenv("PLACES_API_KEY", "e2e-key")
	}
	cfg, err := config.LoadFromFile("../../configs/config.yaml")
	require.NoError(t, err)

	cfg.Places.SearchURL = placesURL + "/nearbysearch/json"
	cfg.Places.DetailsURL = placesURL + "/details/json"
	cfg.Discovery.InterPageDelay = 1
	cfg.Cache.Backend = "redis"
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	cfg.Export.Postgres.Enabled = true
	cfg.Export.Elasticsearch.Enabled = true
	return cfg
}

func TestDiscoveryWritesToAllStores(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := e2eConfig(t, fakePlaces(t).URL)
	stack, err := app.Build(ctx, cfg, logger.NewTestLogger(t), app.Options{ConnectAttempts: 3, ConnectDelay: time.Second})
	require.NoError(t, err)
	defer stack.Close()

	req := models.SearchRequest{
		Coordinates: models.Coordinates{Latitude: 39.9526, Longitude: -75.1652},
		Radius:      5000,
		Filters:     models.FilterSet{WithoutWebsite: true},
	}
	report := stack.Pipeline.Run(ctx, req, nil, nil)
	require.NoError(t, report.Err)
	require.Len(t, report.Records, 1)
	require.NoError(t, stack.Sinks.Write(ctx, report.RunID, report.Records))

	var rows int
	err = stack.Postgres.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s WHERE run_id = $1", cfg.Export.Postgres.Table), report.RunID).Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	es := stack.Elasticsearch.Client
	res, err := es.Get(cfg.Database.Elasticsearch.Index, "e2e-1", es.Get.WithContext(ctx))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.False(t, res.IsError(), res.String())

	keys, err := stack.Redis.Client.Keys(ctx, "niche:http:*").Result()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(keys), 2)
}

func TestDiscoveryWorkerCompletesProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := e2eConfig(t, fakePlaces(t).URL)
	cfg.Export.Postgres.Enabled = false
	cfg.Export.Elasticsearch.Enabled = false

	log := logger.NewTestLogger(t)
	stack, err := app.Build(ctx, cfg, log, app.Options{})
	require.NoError(t, err)
	defer stack.Close()

	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
	})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.NewDeployResourceCommand().
		AddResource([]byte(discoveryProcess), "niche-discovery.bpmn").
		Send(ctx)
	require.NoError(t, err)

	handler, err := discoverbusinesses.NewHandler(discoverbusinesses.HandlerOptions{
		AppConfig: cfg,
		Logger:    log,
		Pipeline:  stack.Pipeline,
		Sink:      stack.Sinks,
		Notifier:  stack.Notifier,
	})
	require.NoError(t, err)
	handler.Register(client)
	defer handler.Close()

	cmd, err := client.NewCreateInstanceCommand().
		BPMNProcessId("niche-discovery").
		LatestVersion().
		VariablesFromMap(map[string]interface{}{
			"location": map[string]interface{}{"latitude": 39.9526, "longitude": -75.1652},
			"radius":   5000,
			"filters":  map[string]interface{}{"requirePhone": true},
		})
	require.NoError(t, err)

	result, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err)

	var vars struct {
		RunID       string                  `json:"runId"`
		RecordCount int                     `json:"recordCount"`
		Records     []models.BusinessRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.GetVariables()), &vars))
	assert.NotEmpty(t, vars.RunID)
	assert.Equal(t, 1, vars.RecordCount)
	require.Len(t, vars.Records, 1)
	assert.Equal(t, "E2E Plumbing", vars.Records[0].Name)
}
