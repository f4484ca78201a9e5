package barberworld

import (
	"time"

	"github.com/Elanstech/barberworld-fulfillment/carrier"
	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/notify"
	"github.com/Elanstech/barberworld-fulfillment/webhooks"
)

// Convenience constructors for the concrete components the pipeline accepts.
// Embedders compose them with the With* options instead of importing each
// subpackage.

func StripeVerifier(signingSecret string, tolerance time.Duration) webhooks.TimestampHMACVerifier {
	return webhooks.NewTimestampHMACVerifier(signingSecret, tolerance)
}

func ShippoCarrier(cfg core.CarrierConfig) core.CarrierClient {
	return carrier.NewClient(cfg)
}

func WebhookNotifier(url string, signingSecret string) core.Notifier {
	return notify.NewWebhookChannel(url, signingSecret, nil)
}

func LogNotifier(logger core.Logger) core.Notifier {
	return notify.LogChannel{Logger: logger}
}

func MemoryLedger() core.DeliveryLedger {
	return core.NewMemoryDeliveryLedger()
}

func MemoryFulfillmentStore() core.FulfillmentStore {
	return core.NewMemoryFulfillmentStore()
}

func MemoryOutboxStore() core.OutboxStore {
	return core.NewMemoryOutboxStore()
}
