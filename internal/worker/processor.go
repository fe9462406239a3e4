// Package worker holds the asynq handlers run by cmd/worker.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/metrics"
	"github.com/dharsanguruparan/witverse/internal/queue"
)

// ObjectRemover deletes one object; *s3storage.Storage implements it.
type ObjectRemover interface {
	RemoveObject(ctx context.Context, bucket, name string) error
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	store   ObjectRemover
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewProcessor constructs a worker processor. m may be nil.
func NewProcessor(store ObjectRemover, log logrus.FieldLogger, m *metrics.Metrics) *Processor {
	return &Processor{store: store, log: log, metrics: m}
}

// Handler registers the cleanup job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.CleanupOrphansTask, p.HandleCleanup)
	return mux
}

// HandleCleanup deletes every object in the payload. Objects that fail are
// retried by asynq on the next attempt; already deleted ones are skipped
// because removal of a missing object succeeds.
func (p *Processor) HandleCleanup(ctx context.Context, task *asynq.Task) error {
	var payload queue.CleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	log := p.log.WithField("reason", payload.Reason)
	var failed int
	for _, obj := range payload.Objects {
		if err := p.store.RemoveObject(ctx, obj.Bucket, obj.Name); err != nil {
			failed++
			p.count("failed")
			log.WithError(err).WithFields(logrus.Fields{"bucket": obj.Bucket, "object": obj.Name}).Warn("remove orphan failed")
			continue
		}
		p.count("removed")
	}
	if failed > 0 {
		return fmt.Errorf("cleanup: %d of %d objects not removed", failed, len(payload.Objects))
	}
	log.WithField("objects", len(payload.Objects)).Info("orphaned objects removed")
	return nil
}

func (p *Processor) count(result string) {
	if p.metrics != nil {
		p.metrics.CleanupObjectsTotal.WithLabelValues(result).Inc()
	}
}
