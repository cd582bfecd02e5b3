// internal/common/camunda/worker.go
package camunda

import (
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"niche-finder/internal/common/logger"
)

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	Handler       worker.JobHandler
}

// JobWorker is an open job subscription for one task type.
type JobWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

func OpenWorker(client zbc.Client, opts WorkerOptions, log logger.Logger) *JobWorker {
	jobWorker := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(opts.Handler).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name(fmt.Sprintf("%s-worker", opts.TaskType)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      opts.TaskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})

	return &JobWorker{worker: jobWorker, logger: log, taskType: opts.TaskType}
}

func (w *JobWorker) Close() {
	if w == nil || w.worker == nil {
		return
	}
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.worker.Close()
	w.worker.AwaitClose()
	w.worker = nil
}
