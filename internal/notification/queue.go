// Copyright (c) 2026 Xit. All rights reserved.

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
)

// Queue wiring. Dispatch jobs are small and idempotent-ish (re-running one
// duplicates rows but never corrupts them), so a modest retry budget with
// asynq's default exponential backoff is enough. Exhausted jobs land in the
// asynq archive for operator inspection.
const (
	// TaskDispatch is the task type for a fan-out job.
	TaskDispatch = "notification:create"

	// QueueName is the asynq queue the dispatch jobs ride on.
	QueueName = "notifications"

	// maxRetry bounds how many times a failed dispatch is retried.
	maxRetry = 5
)

// DispatchTask is the payload of a [TaskDispatch] job.
type DispatchTask struct {
	Kind     Kind   `json:"kind"`
	SourceID string `json:"source_id,omitempty"`
	Title    string `json:"title,omitempty"` // Used when the kind has no source to resolve a title from.
	Body     string `json:"body"`
}

// Enqueuer hands fan-out jobs to the queue. Producers depend on this type
// only; they never see the worker side.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// Enqueue submits a dispatch job.
func (enqueuer *Enqueuer) Enqueue(ctx context.Context, task DispatchTask) error {
	if !task.Kind.Valid() {
		return apperr.ValidationError("Unknown notification kind")
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("notification_enqueue_marshal_failed: %w", err)
	}

	_, err = enqueuer.client.EnqueueContext(ctx,
		asynq.NewTask(TaskDispatch, payload),
		asynq.Queue(QueueName),
		asynq.MaxRetry(maxRetry),
	)
	if err != nil {
		return fmt.Errorf("notification_enqueue_failed: %w", err)
	}

	return nil
}

// NewServeMux builds the worker-side handler mux.
//
// # Retry Semantics
//
// Transient failures (database down, Redis down) return plain errors and
// asynq retries with backoff. A gone source entity wraps [asynq.SkipRetry]:
// the job is archived immediately because no retry can succeed.
func NewServeMux(service *Service, logger *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskDispatch, func(ctx context.Context, task *asynq.Task) error {
		var payload DispatchTask
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			// A payload we wrote ourselves but cannot read will never parse
			// on retry either.
			return fmt.Errorf("notification_dispatch_bad_payload: %v: %w", err, asynq.SkipRetry)
		}

		if err := service.Dispatch(ctx, payload); err != nil {
			if apperr.HasCode(err, "SOURCE_ENTITY_GONE") {
				logger.WarnContext(ctx, "notification_dispatch_cancelled",
					slog.String("kind", string(payload.Kind)),
					slog.String("source_id", payload.SourceID),
				)
				return fmt.Errorf("source entity gone: %w", asynq.SkipRetry)
			}
			return err
		}

		return nil
	})

	return mux
}
