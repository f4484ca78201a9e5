package notify

import (
	"context"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// NoopChannel drops events without error. It keeps the dispatch loop draining
// the outbox in deployments that have no customer-facing channel yet.
type NoopChannel struct{}

func (NoopChannel) Notify(context.Context, core.OutboxEvent) error {
	return nil
}

// LogChannel writes confirmations to the log. A nil logger behaves like noop.
type LogChannel struct {
	Logger core.Logger
}

func (c LogChannel) Notify(ctx context.Context, event core.OutboxEvent) error {
	if c.Logger == nil {
		return nil
	}
	logger := c.Logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(map[string]any{
			"outbox_id":  event.ID,
			"kind":       event.Kind,
			"session_id": event.SessionID,
		})
	}
	logger.Info("order confirmation delivered")
	return nil
}

var (
	_ core.Notifier = NoopChannel{}
	_ core.Notifier = LogChannel{}
)
