// internal/workers/discovery/discover-businesses/handler.go
package discoverbusinesses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"niche-finder/internal/common/camunda"
	"niche-finder/internal/common/config"
	"niche-finder/internal/common/errors"
	"niche-finder/internal/common/geocoding"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/common/metrics"
	"niche-finder/internal/discovery"
	"niche-finder/internal/export"
	"niche-finder/internal/models"
)

const TaskType = "discover-businesses"

// Discoverer runs one discovery. *discovery.Pipeline satisfies it.
type Discoverer interface {
	Run(ctx context.Context, req models.SearchRequest, progress discovery.ProgressFunc, onPage discovery.PageFunc) discovery.Report
}

type RunNotifier interface {
	RunFinished(ctx context.Context, summary models.RunSummary) ([]models.Notification, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	pipeline     Discoverer
	geocoder     geocoding.Geocoder
	sink         export.Sink
	notifier     RunNotifier
	errorHandler *errors.ErrorHandler
	jobWorker    *camunda.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Logger       logger.Logger
	Pipeline     Discoverer
	// Geocoder is required only for jobs that pass placeName.
	Geocoder geocoding.Geocoder
	Sink     export.Sink
	Notifier RunNotifier
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("%s: pipeline is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.With(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:       workerConfig,
		logger:       log,
		pipeline:     opts.Pipeline,
		geocoder:     opts.Geocoder,
		sink:         opts.Sink,
		notifier:     opts.Notifier,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	log := h.logger.With(map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})
	log.Info("Processing discovery job", nil)

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		output, err = h.execute(ctx, input, log)
		if err == nil {
			h.completeJob(ctx, client, job, output, log)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.NormalizeError(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result, err := GetInputSchema().Validate(variables)
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	if !result.Valid {
		return nil, errors.NewInputSchemaMismatchError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := job.GetVariablesAs(&input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	return &input, nil
}

// Execute runs one discovery for input using the handler's logger.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input, h.logger)
}

// execute resolves the location, runs the pipeline, then hands the records
// to the sink and the notifier. Partial records from a failed run are still
// exported before the run error is returned.
func (h *Handler) execute(ctx context.Context, input *Input, log logger.Logger) (*Output, error) {
	coords, err := h.resolveLocation(ctx, input)
	if err != nil {
		return nil, err
	}

	req := models.SearchRequest{
		Coordinates:  coords,
		Radius:       input.RadiusMeters(),
		BusinessType: input.BusinessType,
		Filters:      input.Filters,
		MaxPages:     input.MaxPages,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	report := h.pipeline.Run(ctx, req, func(status string) {
		log.Info(status, nil)
	}, func(page int, records []models.BusinessRecord) {
		log.Debug("Page joined", map[string]interface{}{
			"page":     page,
			"accepted": len(records),
		})
	})

	if h.sink != nil && len(report.Records) > 0 {
		if err := h.sink.Write(context.WithoutCancel(ctx), report.RunID, report.Records); err != nil {
			if report.Err == nil {
				return nil, err
			}
			log.Error("Export of partial results failed", map[string]interface{}{
				"runId": report.RunID,
				"error": err.Error(),
			})
		}
	}

	var notes []models.Notification
	if h.notifier != nil {
		notes, err = h.notifier.RunFinished(context.WithoutCancel(ctx), report.Summary(req))
		if err != nil {
			log.Warn("Run notification failed", map[string]interface{}{
				"runId": report.RunID,
				"error": err.Error(),
			})
		}
	}

	if report.Err != nil {
		return nil, report.Err
	}

	records := report.Records
	if records == nil {
		records = []models.BusinessRecord{}
	}
	return &Output{
		RunID:         report.RunID,
		Status:        "completed",
		Records:       records,
		RecordCount:   len(records),
		Pages:         report.Pages,
		Notifications: notes,
	}, nil
}

func (h *Handler) resolveLocation(ctx context.Context, input *Input) (models.Coordinates, error) {
	if input.Location != nil {
		return *input.Location, nil
	}
	if h.geocoder == nil {
		return models.Coordinates{}, errors.NewConfigurationError("placeName given but no geocoder is configured")
	}
	return h.geocoder.Resolve(ctx, input.PlaceName)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, log logger.Logger) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		log.Error("Failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		log.Error("Failed to complete job", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	log.Info("Discovery job completed", map[string]interface{}{
		"runId":   output.RunID,
		"records": output.RecordCount,
		"pages":   output.Pages,
	})
}

func (h *Handler) Register(client zbc.Client) {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return
	}
	h.jobWorker = camunda.OpenWorker(client, camunda.WorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
		Handler:       h.Handle,
	}, h.logger)
}

func (h *Handler) Close() {
	h.jobWorker.Close()
	h.jobWorker = nil
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetTaskType() string {
	return TaskType
}
