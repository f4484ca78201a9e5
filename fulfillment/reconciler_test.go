package fulfillment

import (
	"context"
	"fmt"
	"testing"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

func testDestination() core.Address {
	return core.Address{
		Name:       "Jane Doe",
		Street1:    "1 Main St",
		City:       "New York",
		State:      "NY",
		PostalCode: "10001",
		Country:    "US",
	}
}

func TestReconcileUnlabeled_ResumesAtPurchaseWhenRateKnown(t *testing.T) {
	fake := newFakeCarrier()
	store := core.NewMemoryFulfillmentStore()
	pipeline, err := NewPipeline(testConfig(), WithCarrierClient(fake), WithFulfillmentStore(store))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	if _, err := store.Upsert(context.Background(), core.FulfillmentRecord{
		SessionID:   "cs_stuck",
		ShipmentID:  "shp_1",
		RateID:      "r2",
		Status:      core.FulfillmentStatusFailed,
		LastError:   "carrier: provider returned status 503",
		Destination: testDestination(),
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	recovered, err := pipeline.ReconcileUnlabeled(context.Background(), 10)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("expected one record recovered, got %d", recovered)
	}
	if fake.createCalls != 0 {
		t.Fatalf("expected no new shipment when a rate is already held, got %d", fake.createCalls)
	}
	if fake.purchasedRate != "r2" {
		t.Fatalf("expected held rate purchased, got %q", fake.purchasedRate)
	}

	record, err := store.GetBySession(context.Background(), "cs_stuck")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != core.FulfillmentStatusLabelPurchased || record.LastError != "" {
		t.Fatalf("expected recovered record, got %+v", record)
	}
}

func TestReconcileUnlabeled_ReratesRecordsWithoutRate(t *testing.T) {
	fake := newFakeCarrier()
	store := core.NewMemoryFulfillmentStore()
	pipeline, err := NewPipeline(testConfig(), WithCarrierClient(fake), WithFulfillmentStore(store))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	if _, err := store.Upsert(context.Background(), core.FulfillmentRecord{
		SessionID:   "cs_unrated",
		Status:      core.FulfillmentStatusFailed,
		LastError:   "carrier: shipment returned no rates",
		Destination: testDestination(),
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	recovered, err := pipeline.ReconcileUnlabeled(context.Background(), 10)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("expected one record recovered, got %d", recovered)
	}
	if fake.createCalls != 1 {
		t.Fatalf("expected a fresh shipment for rateless records, got %d", fake.createCalls)
	}

	record, err := store.GetBySession(context.Background(), "cs_unrated")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.RateID != "r2" || record.Status != core.FulfillmentStatusLabelPurchased {
		t.Fatalf("expected cheapest rate purchased on retry, got %+v", record)
	}
}

func TestReconcileUnlabeled_LeavesFailingRecordsForNextSweep(t *testing.T) {
	fake := newFakeCarrier()
	fake.purchaseErr = fmt.Errorf("carrier: rate limited by provider")
	store := core.NewMemoryFulfillmentStore()
	pipeline, err := NewPipeline(testConfig(), WithCarrierClient(fake), WithFulfillmentStore(store))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	if _, err := store.Upsert(context.Background(), core.FulfillmentRecord{
		SessionID:   "cs_stuck",
		RateID:      "r2",
		Status:      core.FulfillmentStatusFailed,
		Destination: testDestination(),
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	recovered, err := pipeline.ReconcileUnlabeled(context.Background(), 10)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if recovered != 0 {
		t.Fatalf("expected no recovery while the carrier fails, got %d", recovered)
	}

	record, err := store.GetBySession(context.Background(), "cs_stuck")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != core.FulfillmentStatusFailed || record.LastError == "" {
		t.Fatalf("expected record left failed with cause, got %+v", record)
	}
}
