// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"niche-finder/internal/cache"
	"niche-finder/internal/common/aws"
	"niche-finder/internal/common/config"
	"niche-finder/internal/common/database"
	"niche-finder/internal/common/geocoding"
	nfhttp "niche-finder/internal/common/http"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/common/observability"
	"niche-finder/internal/discovery"
	"niche-finder/internal/export"
	"niche-finder/internal/notify"
)

// Options tune how Build connects to backing services.
type Options struct {
	ServiceName string
	// CSVPath adds a CSV sink when set.
	CSVPath string
	// ConnectAttempts bounds the retries for redis, postgres and
	// elasticsearch. Zero means a single attempt.
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// App holds the assembled discovery stack shared by the CLI and the worker.
type App struct {
	Config   *config.Config
	Logger   logger.Logger
	Obs      *observability.Observability
	Pipeline *discovery.Pipeline
	Geocoder *geocoding.Nominatim
	Sinks    *export.MultiSink
	Notifier *notify.Notifier

	Redis         *database.RedisClient
	Postgres      *database.PostgresClient
	Elasticsearch *database.ElasticsearchClient

	closers []func() error
}

// NewLogger builds the zap logger described by the logging section.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, logger.Logger) {
	zapLog := logger.NewWithOptions(logger.Options{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
		File: logger.FileOptions{
			Filename:   cfg.File,
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	})
	return zapLog, logger.NewZapAdapter(zapLog)
}

// Build wires cache, pipeline, geocoder, sinks and notifier from cfg. On
// error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	if err := a.build(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}

	log.Info("Discovery stack ready", map[string]interface{}{
		"cache":         cfg.Cache.Backend,
		"sinks":         a.Sinks.Len(),
		"notifications": a.Notifier.Enabled(),
	})
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg, log := a.Config, a.Logger

	if opts.ServiceName != "" {
		a.Obs = observability.New(opts.ServiceName)
		a.closers = append(a.closers, func() error { a.Obs.Shutdown(); return nil })
	}

	store, err := a.cacheStore(ctx, opts)
	if err != nil {
		return err
	}

	places := nfhttp.NewClient(config.GetDuration(cfg.Places.Timeout))
	responses := cache.New(places, log,
		cache.WithStore(store),
		cache.WithTTL(time.Duration(cfg.Cache.TTL)*time.Second),
	)

	a.Pipeline = discovery.New(discovery.Config{
		Endpoints: discovery.Endpoints{
			SearchURL:  cfg.Places.SearchURL,
			DetailsURL: cfg.Places.DetailsURL,
			APIKey:     cfg.Places.APIKey,
		},
		Concurrency:        cfg.Discovery.Concurrency,
		InterPageDelay:     config.GetDuration(cfg.Discovery.InterPageDelay),
		MaxPages:           cfg.Discovery.MaxPages,
		RecentReviewWindow: time.Duration(cfg.Discovery.RecentReviewDays) * 24 * time.Hour,
	}, places, responses, a.Obs, log)

	geoClient := nfhttp.NewClient(config.GetDuration(cfg.Geocoding.Timeout)).WithUserAgent(cfg.Geocoding.UserAgent)
	a.Geocoder = geocoding.NewNominatim(cfg.Geocoding.BaseURL, geoClient)

	sinks, err := a.sinks(ctx, opts)
	if err != nil {
		return err
	}
	a.Sinks = export.NewMultiSink(log, sinks...)

	a.Notifier, err = a.notifier(ctx)
	return err
}

func (a *App) cacheStore(ctx context.Context, opts Options) (cache.Store, error) {
	if a.Config.Cache.Backend != "redis" {
		return cache.NewMemoryStore(), nil
	}

	a.Redis = database.NewRedis(a.Config.Database.Redis, a.Config.Discovery.Concurrency)
	a.closers = append(a.closers, a.Redis.Close)
	err := RetryWithBackoff(ctx, func() error {
		return a.Redis.Ping(ctx)
	}, opts.ConnectAttempts, opts.ConnectDelay, a.Logger, "Redis connection")
	if err != nil {
		return nil, err
	}
	return cache.NewRedisStore(a.Redis.Client), nil
}

func (a *App) sinks(ctx context.Context, opts Options) ([]export.Sink, error) {
	cfg := a.Config
	var sinks []export.Sink

	if opts.CSVPath != "" {
		sinks = append(sinks, export.NewCSVSink(opts.CSVPath))
	}

	if cfg.Export.Postgres.Enabled {
		err := RetryWithBackoff(ctx, func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			a.Postgres = pg
			return nil
		}, opts.ConnectAttempts, opts.ConnectDelay, a.Logger, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.Postgres.Close)

		pgSink := export.NewPostgresSink(a.Postgres.DB, cfg.Export.Postgres.Table)
		if err := pgSink.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, pgSink)
	}

	if cfg.Export.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		err = RetryWithBackoff(ctx, func() error {
			return es.Ping(ctx)
		}, opts.ConnectAttempts, opts.ConnectDelay, a.Logger, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		a.Elasticsearch = es
		if err := es.EnsureIndex(ctx, cfg.Database.Elasticsearch.Index); err != nil {
			return nil, err
		}
		sinks = append(sinks, export.NewElasticsearchSink(es.Client, cfg.Database.Elasticsearch.Index))
	}

	if cfg.Export.S3.Enabled {
		s3Client, err := aws.NewS3Client(ctx, cfg.Export.S3.Region)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		sinks = append(sinks, export.NewS3Sink(s3Client, cfg.Export.S3.Bucket, cfg.Export.S3.Prefix))
	}

	return sinks, nil
}

func (a *App) notifier(ctx context.Context) (*notify.Notifier, error) {
	n := a.Config.Notifications
	ncfg := notify.Config{
		SNSEnabled: n.SNS.Enabled,
		TopicARN:   n.SNS.TopicARN,
		SESEnabled: n.SES.Enabled,
		FromEmail:  n.SES.FromEmail,
		To:         n.SES.To,
	}
	if !ncfg.SNSEnabled && !ncfg.SESEnabled {
		return notify.NewNotifier(ncfg, nil, nil, a.Logger), nil
	}

	awsCfg, err := aws.LoadConfig(ctx, n.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return notify.NewNotifier(ncfg, aws.NewSNSClientFromConfig(awsCfg), aws.NewSESClientFromConfig(awsCfg), a.Logger), nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}
