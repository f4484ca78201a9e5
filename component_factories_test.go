package barberworld

import (
	"context"
	"testing"
	"time"

	"github.com/Elanstech/barberworld-fulfillment/carrier"
	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/notify"
	"github.com/Elanstech/barberworld-fulfillment/webhooks"
)

func TestStripeVerifier_AcceptsSignedPayload(t *testing.T) {
	now := time.Unix(1_723_000_000, 0).UTC()
	verifier := StripeVerifier("whsec_test", 5*time.Minute)
	verifier.Now = func() time.Time { return now }

	body := []byte(`{"id":"evt_1"}`)
	err := verifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{
			webhooks.SignatureHeader: webhooks.SignPayload("whsec_test", now, body),
		},
		Body: body,
	})
	if err != nil {
		t.Fatalf("expected signed payload to verify, got %v", err)
	}
}

func TestShippoCarrier_AppliesConfig(t *testing.T) {
	client := ShippoCarrier(core.CarrierConfig{
		BaseURL:     "https://api.goshippo.com/",
		APIToken:    "shippo_test_token",
		CallTimeout: 10 * time.Second,
	})
	shippo, ok := client.(*carrier.Client)
	if !ok {
		t.Fatalf("expected carrier client, got %T", client)
	}
	if shippo.BaseURL != "https://api.goshippo.com" || shippo.APIToken != "shippo_test_token" {
		t.Fatalf("unexpected carrier client config: %#v", shippo)
	}
}

func TestNotifierFactories(t *testing.T) {
	if _, ok := WebhookNotifier("https://hooks.example.test/orders", "whsec_test").(*notify.WebhookChannel); !ok {
		t.Fatalf("expected webhook channel from factory")
	}
	if err := LogNotifier(nil).Notify(context.Background(), core.OutboxEvent{}); err != nil {
		t.Fatalf("expected log notifier with nil logger to no-op, got %v", err)
	}
}

func TestMemoryStoreFactories(t *testing.T) {
	ledger := MemoryLedger()
	if _, duplicate, err := ledger.Reserve(context.Background(), "stripe", "evt_1", nil); err != nil || duplicate {
		t.Fatalf("expected fresh reservation, duplicate=%v err=%v", duplicate, err)
	}

	store := MemoryFulfillmentStore()
	if _, err := store.Upsert(context.Background(), core.FulfillmentRecord{
		SessionID: "cs_test_123",
		Status:    core.FulfillmentStatusShipmentCreated,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	outbox := MemoryOutboxStore()
	if _, err := outbox.Enqueue(context.Background(), core.OutboxEvent{
		Kind:      core.OutboxKindOrderConfirmation,
		SessionID: "cs_test_123",
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}
