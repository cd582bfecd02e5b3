// internal/export/sink.go
package export

import (
	"context"
	stderrors "errors"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/common/metrics"
	"niche-finder/internal/models"
)

// Sink persists the records of one run.
type Sink interface {
	Name() string
	Write(ctx context.Context, runID string, records []models.BusinessRecord) error
}

// MultiSink writes to every sink and joins their failures. A failing sink
// does not stop the others.
type MultiSink struct {
	sinks  []Sink
	logger logger.Logger
}

func NewMultiSink(log logger.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: log}
}

func (m *MultiSink) Name() string { return "multi" }

// Len reports how many sinks are configured.
func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) Write(ctx context.Context, runID string, records []models.BusinessRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, runID, records); err != nil {
			metrics.SinkWrites.WithLabelValues(s.Name(), "error").Inc()
			m.logger.Error("Sink write failed", map[string]interface{}{
				"sink":  s.Name(),
				"runId": runID,
				"error": err.Error(),
			})
			if !errors.HasCode(err, errors.ErrCodeSinkWriteFailed) {
				err = errors.NewSinkWriteFailedError(s.Name(), err)
			}
			errs = append(errs, err)
			continue
		}
		metrics.SinkWrites.WithLabelValues(s.Name(), "ok").Inc()
		m.logger.Info("Records written", map[string]interface{}{
			"sink":    s.Name(),
			"runId":   runID,
			"records": len(records),
		})
	}
	return stderrors.Join(errs...)
}
