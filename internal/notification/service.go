// Copyright (c) 2026 Xit. All rights reserved.

package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// Service owns the worker side of the pipeline plus the recipient-facing
// feed reads.
type Service struct {
	store      Store
	resolver   SourceResolver
	recipients RecipientLister
	sink       PushSink
	logger     *slog.Logger
}

// NewService creates a notification service.
func NewService(store Store, resolver SourceResolver, recipients RecipientLister, sink PushSink, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		resolver:   resolver,
		recipients: recipients,
		sink:       sink,
		logger:     logger,
	}
}

// Dispatch executes one fan-out job.
//
// Returns [ErrSourceEntityGone] when the announced entity has disappeared,
// which the queue layer translates into a permanent cancellation. Any other
// error is transient and the job retries.
func (service *Service) Dispatch(ctx context.Context, task DispatchTask) error {
	// ── 1. Resolve the source entity ──
	owner, title, err := service.resolver.Resolve(ctx, task.Kind, task.SourceID)
	if err != nil {
		return err
	}
	if title == "" {
		title = task.Title
	}

	// ── 2. Enumerate recipients, excluding the owner ──
	identifiers, err := service.recipients.ListIdentifiers(ctx, owner)
	if err != nil {
		return fmt.Errorf("notification_dispatch_recipients_failed: %w", err)
	}
	if len(identifiers) == 0 {
		return nil
	}

	// ── 3. Persist one row per recipient ──
	now := time.Now().UTC()
	notifications := make([]Notification, 0, len(identifiers))
	for _, identifier := range identifiers {
		notifications = append(notifications, Notification{
			RecipientID: identifier,
			Kind:        task.Kind,
			Title:       title,
			Body:        task.Body,
			SourceID:    task.SourceID,
			IsRead:      false,
			CreatedAt:   now,
		})
	}

	if err := service.store.CreateBatch(ctx, notifications); err != nil {
		return err
	}

	// ── 4. Best-effort real-time push ──
	// Rows are already durable. A dead channel for one recipient must not
	// fail the job or starve the others, so failures are logged and skipped.
	for i := range notifications {
		notification := &notifications[i]
		if err := service.sink.Publish(ctx, notification.RecipientID, notification); err != nil {
			service.logger.WarnContext(ctx, "notification_push_failed",
				slog.String("recipient", notification.RecipientID),
				slog.String("kind", string(notification.Kind)),
				slog.Any("error", err),
			)
		}
	}

	service.logger.InfoContext(ctx, "notification_dispatched",
		slog.String("kind", string(task.Kind)),
		slog.String("source_id", task.SourceID),
		slog.Int("recipients", len(identifiers)),
	)

	return nil
}

// # Feed Reads

// List returns a page of the recipient's feed, newest first.
func (service *Service) List(ctx context.Context, recipient string, filter ListFilter, page pagination.Params) ([]Notification, int, error) {
	return service.store.ListForRecipient(ctx, recipient, filter, page)
}

// UnreadCount returns the recipient's unread badge count.
func (service *Service) UnreadCount(ctx context.Context, recipient string) (int, error) {
	return service.store.UnreadCount(ctx, recipient)
}

// MarkRead flags a single notification as read.
func (service *Service) MarkRead(ctx context.Context, recipient string, id int64) error {
	return service.store.MarkRead(ctx, recipient, id)
}

// MarkAllRead flags the recipient's entire feed as read.
func (service *Service) MarkAllRead(ctx context.Context, recipient string) error {
	return service.store.MarkAllRead(ctx, recipient)
}
