package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

const (
	defaultDispatchBatchSize = 25
	notificationMaxAttempts  = 8
	notificationBaseBackoff  = 30 * time.Second
	notificationMaxBackoff   = time.Hour
)

// LogNotifier is the default notification channel: it writes the order
// confirmation to the log. Deployments plug a real channel in through
// WithNotifier.
type LogNotifier struct {
	Logger core.Logger
}

func (n LogNotifier) Notify(ctx context.Context, event core.OutboxEvent) error {
	if n.Logger == nil {
		return nil
	}
	logger := n.Logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(map[string]any{
			"kind":       event.Kind,
			"session_id": event.SessionID,
			"payload":    event.Payload,
		})
	}
	logger.Info("order confirmation")
	return nil
}

// DispatchNotifications drains due outbox events through the notifier.
// Failed deliveries are nacked with exponential backoff until the store
// dead-letters them at the attempt cap.
func (p *Pipeline) DispatchNotifications(ctx context.Context, limit int) (delivered int, err error) {
	startedAt := p.clock()
	defer func() {
		p.observeOperation(ctx, startedAt, "dispatch_notifications", err, map[string]any{
			"delivered": delivered,
		})
	}()

	if p == nil || p.outbox == nil || p.notifier == nil {
		return 0, fmt.Errorf("fulfillment: pipeline is not configured")
	}
	if limit <= 0 {
		limit = defaultDispatchBatchSize
	}

	events, err := p.outbox.ClaimBatch(ctx, limit)
	if err != nil {
		err = p.mapError(err)
		return 0, err
	}

	for _, event := range events {
		notifyErr := p.notifier.Notify(ctx, event)
		if notifyErr == nil {
			if ackErr := p.outbox.Ack(ctx, event.ID); ackErr != nil {
				p.logError(ctx, "ack outbox event", map[string]any{
					"outbox_id": event.ID,
					"error":     ackErr.Error(),
				})
				continue
			}
			delivered++
			continue
		}

		nextAttempt := p.clock().Add(notificationBackoff(event.Attempts))
		if nackErr := p.outbox.Nack(ctx, event.ID, notifyErr, nextAttempt, notificationMaxAttempts); nackErr != nil {
			p.logError(ctx, "nack outbox event", map[string]any{
				"outbox_id": event.ID,
				"error":     nackErr.Error(),
			})
		}
	}
	return delivered, nil
}

func notificationBackoff(attempts int) time.Duration {
	backoff := notificationBaseBackoff
	for i := 0; i < attempts; i++ {
		backoff *= 2
		if backoff >= notificationMaxBackoff {
			return notificationMaxBackoff
		}
	}
	return backoff
}
