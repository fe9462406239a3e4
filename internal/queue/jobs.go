// Package queue defines the background tasks exchanged between the API and
// the worker through Redis.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/witverse/internal/model"
)

const (
	// CleanupOrphansTask is scheduled each time a submission fails after at
	// least one object was uploaded.
	CleanupOrphansTask = "assets:cleanup-orphans"
)

// CleanupPayload is serialized into the task payload so the worker knows which
// objects to delete from MinIO.
type CleanupPayload struct {
	Objects    []model.ObjectRef `json:"objects"`
	Reason     string            `json:"reason"`
	ReportedAt time.Time         `json:"reported_at"`
}

// Enqueuer is the subset of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewCleanupTask builds the cleanup task for payload.
func NewCleanupTask(payload CleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(CleanupOrphansTask, data), nil
}

// EnqueueCleanup enqueues an orphan cleanup job, delayed by delay.
func EnqueueCleanup(ctx context.Context, client Enqueuer, payload CleanupPayload, delay time.Duration) error {
	task, err := NewCleanupTask(payload)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.ProcessIn(delay)); err != nil {
		return fmt.Errorf("enqueue cleanup task: %w", err)
	}
	return nil
}

// Janitor reports orphaned objects by enqueueing cleanup tasks.
type Janitor struct {
	client Enqueuer
	delay  time.Duration
	now    func() time.Time
}

// NewJanitor constructs a Janitor.
func NewJanitor(client Enqueuer, delay time.Duration) *Janitor {
	return &Janitor{client: client, delay: delay, now: time.Now}
}

// ReportOrphans implements remote.OrphanSink.
func (j *Janitor) ReportOrphans(ctx context.Context, objects []model.ObjectRef, reason string) error {
	if len(objects) == 0 {
		return nil
	}
	return EnqueueCleanup(ctx, j.client, CleanupPayload{
		Objects:    objects,
		Reason:     reason,
		ReportedAt: j.now().UTC(),
	}, j.delay)
}
