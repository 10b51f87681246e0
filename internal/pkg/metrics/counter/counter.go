package counter

import (
	"context"
	"strconv"

	"github.com/fxpiphub/signalhub/internal/pkg/cache"
)

const (
	webhookReceivedKey = "webhooks:counters:received"
	webhookFailedKey   = "webhooks:counters:failed"
)

// AddWebhookReceived increments the received counter for an event type in
// Redis. Counter writes are best-effort and never block webhook handling.
func AddWebhookReceived(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookReceivedKey, eventType, 1).Err()
}

// AddWebhookFailed increments the failure counter for an event type in Redis.
func AddWebhookFailed(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookFailedKey, eventType, 1).Err()
}

// WebhookStats returns the received and failed counts per event type.
func WebhookStats() (received, failed map[string]int64, err error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	rawReceived, err := rdb.HGetAll(ctx, webhookReceivedKey).Result()
	if err != nil {
		return nil, nil, err
	}
	rawFailed, err := rdb.HGetAll(ctx, webhookFailedKey).Result()
	if err != nil {
		return nil, nil, err
	}
	return parseCounts(rawReceived), parseCounts(rawFailed), nil
}

func parseCounts(raw map[string]string) map[string]int64 {
	out := make(map[string]int64, len(raw))
	for eventType, value := range raw {
		count, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		out[eventType] = count
	}
	return out
}
