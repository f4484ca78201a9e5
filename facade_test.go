package barberworld

import (
	"context"
	"testing"

	fulfillmentcommand "github.com/Elanstech/barberworld-fulfillment/command"
	"github.com/Elanstech/barberworld-fulfillment/core"
	fulfillmentquery "github.com/Elanstech/barberworld-fulfillment/query"
)

type stubFacadeService struct {
	lastBody      []byte
	lastSignature string

	reconcileLimit int
	dispatchLimit  int
	purgeCalls     int

	store  core.FulfillmentStore
	ledger core.DeliveryLedger
}

func (s *stubFacadeService) HandleEvent(_ context.Context, body []byte, signatureHeader string) (core.InboundResult, error) {
	s.lastBody = append([]byte(nil), body...)
	s.lastSignature = signatureHeader
	return core.InboundResult{Accepted: true, StatusCode: 200}, nil
}

func (s *stubFacadeService) ReconcileUnlabeled(_ context.Context, limit int) (int, error) {
	s.reconcileLimit = limit
	return 1, nil
}

func (s *stubFacadeService) DispatchNotifications(_ context.Context, limit int) (int, error) {
	s.dispatchLimit = limit
	return 1, nil
}

func (s *stubFacadeService) PurgeLedger(context.Context) (int, error) {
	s.purgeCalls++
	return 0, nil
}

func (s *stubFacadeService) GetFulfillment(_ context.Context, sessionID string) (core.FulfillmentRecord, error) {
	return core.FulfillmentRecord{SessionID: sessionID, Status: core.FulfillmentStatusLabelPurchased}, nil
}

func (s *stubFacadeService) Store() core.FulfillmentStore {
	return s.store
}

func (s *stubFacadeService) Ledger() core.DeliveryLedger {
	return s.ledger
}

var _ CommandQueryService = (*stubFacadeService)(nil)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc := &stubFacadeService{
		store:  core.NewMemoryFulfillmentStore(),
		ledger: core.NewMemoryDeliveryLedger(),
	}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.ProcessDelivery == nil || commands.ReconcileUnlabeled == nil ||
		commands.DispatchNotifications == nil || commands.PurgeLedger == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetFulfillment == nil || queries.ListUnlabeled == nil || queries.GetDeliveryRecord == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	store := core.NewMemoryFulfillmentStore()
	svc := &stubFacadeService{
		store:  store,
		ledger: core.NewMemoryDeliveryLedger(),
	}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	if err := facade.Commands().ProcessDelivery.Execute(context.Background(), fulfillmentcommand.ProcessDeliveryMessage{
		Body:            []byte(`{"id":"evt_1"}`),
		SignatureHeader: "t=1,v1=abc",
	}); err != nil {
		t.Fatalf("execute process delivery: %v", err)
	}
	if svc.lastSignature != "t=1,v1=abc" {
		t.Fatalf("unexpected delivery delegation payload: %q", svc.lastSignature)
	}

	if err := facade.Commands().ReconcileUnlabeled.Execute(context.Background(), fulfillmentcommand.ReconcileUnlabeledMessage{
		Limit: 10,
	}); err != nil {
		t.Fatalf("execute reconcile: %v", err)
	}
	if svc.reconcileLimit != 10 {
		t.Fatalf("unexpected reconcile delegation limit: %d", svc.reconcileLimit)
	}

	record, err := facade.Queries().GetFulfillment.Query(context.Background(), fulfillmentquery.GetFulfillmentMessage{
		SessionID: "cs_test_123",
	})
	if err != nil {
		t.Fatalf("query fulfillment: %v", err)
	}
	if record.SessionID != "cs_test_123" || record.Status != core.FulfillmentStatusLabelPurchased {
		t.Fatalf("unexpected fulfillment query result: %#v", record)
	}

	if _, err := store.Upsert(context.Background(), core.FulfillmentRecord{
		SessionID: "cs_pending",
		Status:    core.FulfillmentStatusFailed,
		Destination: core.Address{
			Name:       "Jane Doe",
			Street1:    "1 Main St",
			City:       "New York",
			PostalCode: "10001",
			Country:    "US",
		},
	}); err != nil {
		t.Fatalf("seed unlabeled order: %v", err)
	}
	unlabeled, err := facade.Queries().ListUnlabeled.Query(context.Background(), fulfillmentquery.ListUnlabeledMessage{Limit: 5})
	if err != nil {
		t.Fatalf("query unlabeled: %v", err)
	}
	if len(unlabeled) != 1 || unlabeled[0].SessionID != "cs_pending" {
		t.Fatalf("expected unlabeled reader resolved from store, got %#v", unlabeled)
	}
}

func TestFacade_ResolvesDeliveryReaderFromLedger(t *testing.T) {
	ledger := core.NewMemoryDeliveryLedger()
	svc := &stubFacadeService{
		store:  core.NewMemoryFulfillmentStore(),
		ledger: ledger,
	}

	if _, _, err := ledger.Reserve(context.Background(), "stripe", "evt_1", []byte(`{}`)); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	record, err := facade.Queries().GetDeliveryRecord.Query(context.Background(), fulfillmentquery.GetDeliveryRecordMessage{
		ProviderID: "stripe",
		DeliveryID: "evt_1",
	})
	if err != nil {
		t.Fatalf("query delivery record: %v", err)
	}
	if record.DeliveryID != "evt_1" || record.Status != core.DeliveryStatusPending {
		t.Fatalf("unexpected delivery record: %#v", record)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}
