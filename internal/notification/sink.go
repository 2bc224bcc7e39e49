// Copyright (c) 2026 Xit. All rights reserved.

package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/moa-mel/xit-backend/internal/platform/constants"
)

// RedisPushSink implements [PushSink] over Redis Pub/Sub.
//
// Each recipient has a channel at push:<identifier>. Edge servers holding a
// client's socket subscribe to that channel and forward whatever arrives.
// Pub/Sub is fire-and-forget by design; the durable row is the guarantee,
// the push is the latency optimization.
type RedisPushSink struct {
	client *redis.Client
}

// NewRedisPushSink wraps a Redis client.
func NewRedisPushSink(client *redis.Client) *RedisPushSink {
	return &RedisPushSink{client: client}
}

// Publish sends the notification down the recipient's channel.
func (sink *RedisPushSink) Publish(ctx context.Context, recipient string, notification *Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("redis_push_sink_marshal_failed: %w", err)
	}

	channel := constants.RedisPrefixPushChannel + recipient
	if err := sink.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis_push_sink_publish_failed: %w", err)
	}

	return nil
}
