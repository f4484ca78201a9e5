package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

type stubVerifier struct {
	err   error
	calls int
}

func (s *stubVerifier) Verify(_ context.Context, _ core.InboundRequest) error {
	s.calls++
	return s.err
}

type stubHandler struct {
	mu     sync.Mutex
	calls  int
	record core.FulfillmentRecord
	err    error
}

func (s *stubHandler) Handle(_ context.Context, _ Event) (core.FulfillmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return core.FulfillmentRecord{}, s.err
	}
	return s.record, nil
}

func (s *stubHandler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type captureMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
	outcomes []string
}

func (c *captureMetrics) IncCounter(_ context.Context, name string, delta int64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counters == nil {
		c.counters = map[string]int64{}
	}
	c.counters[name] += delta
	c.outcomes = append(c.outcomes, tags["outcome"])
}

func (c *captureMetrics) ObserveHistogram(_ context.Context, _ string, _ float64, _ map[string]string) {
}

func (c *captureMetrics) lastOutcome() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.outcomes) == 0 {
		return ""
	}
	return c.outcomes[len(c.outcomes)-1]
}

func checkoutRequest() core.InboundRequest {
	return core.InboundRequest{
		ProviderID: "stripe",
		Body:       []byte(checkoutCompletedBody),
	}
}

func newTestProcessor(verifier Verifier, handler Handler) (*Processor, *captureMetrics) {
	metrics := &captureMetrics{}
	processor := NewProcessor(verifier, core.NewMemoryDeliveryLedger(), handler)
	processor.Metrics = metrics
	return processor, metrics
}

func TestProcessor_RejectsInvalidSignatureWithoutHandlingEvent(t *testing.T) {
	verifier := &stubVerifier{err: fmt.Errorf("webhooks: signature verification failed")}
	handler := &stubHandler{}
	processor, metrics := newTestProcessor(verifier, handler)

	result, err := processor.Process(context.Background(), checkoutRequest())
	if err == nil {
		t.Fatalf("expected signature failure to surface an error")
	}
	if result.Accepted {
		t.Fatalf("expected rejected delivery not to be accepted")
	}
	if result.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", result.StatusCode)
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if rich.Category != goerrors.CategoryAuth {
		t.Fatalf("expected auth category, got %v", rich.Category)
	}
	if rich.TextCode != core.FulfillmentErrorBadSignature {
		t.Fatalf("expected bad signature text code, got %q", rich.TextCode)
	}
	if handler.callCount() != 0 {
		t.Fatalf("expected handler untouched on signature failure, got %d calls", handler.callCount())
	}
	if metrics.lastOutcome() != "rejected" {
		t.Fatalf("expected rejected outcome recorded, got %q", metrics.lastOutcome())
	}
}

func TestProcessor_AcknowledgesUndecodablePayload(t *testing.T) {
	handler := &stubHandler{}
	processor, metrics := newTestProcessor(&stubVerifier{}, handler)

	req := checkoutRequest()
	req.Body = []byte("not json")
	result, err := processor.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("expected undecodable payload to be acknowledged: %v", err)
	}
	if !result.Accepted || result.StatusCode != http.StatusOK {
		t.Fatalf("expected accepted 200 result, got %+v", result)
	}
	if result.Metadata["error_code"] != core.FulfillmentErrorBadInput {
		t.Fatalf("expected bad input error code in metadata, got %v", result.Metadata["error_code"])
	}
	if handler.callCount() != 0 {
		t.Fatalf("expected handler untouched for undecodable payload")
	}
	if metrics.lastOutcome() != "undecodable" {
		t.Fatalf("expected undecodable outcome, got %q", metrics.lastOutcome())
	}
}

func TestProcessor_IgnoresOtherEventTypes(t *testing.T) {
	handler := &stubHandler{}
	ledger := core.NewMemoryDeliveryLedger()
	processor := NewProcessor(&stubVerifier{}, ledger, handler)

	req := checkoutRequest()
	req.Body = []byte(`{"id":"evt_refund","type":"charge.refunded","data":{"object":{}}}`)
	result, err := processor.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("expected ignored event to be acknowledged: %v", err)
	}
	if !result.Accepted || result.StatusCode != http.StatusOK {
		t.Fatalf("expected accepted 200 result, got %+v", result)
	}
	if result.Metadata["ignored"] != true {
		t.Fatalf("expected ignored marker in metadata, got %v", result.Metadata)
	}
	if handler.callCount() != 0 {
		t.Fatalf("expected handler untouched for ignored event types")
	}
	if _, err := ledger.Get(context.Background(), "stripe", "evt_refund"); err == nil {
		t.Fatalf("expected ignored events to leave no ledger entry")
	}
}

func TestProcessor_DeduplicatesRedeliveries(t *testing.T) {
	handler := &stubHandler{
		record: core.FulfillmentRecord{
			SessionID: "cs_test_123",
			Status:    core.FulfillmentStatusLabelPurchased,
		},
	}
	processor, _ := newTestProcessor(&stubVerifier{}, handler)

	first, err := processor.Process(context.Background(), checkoutRequest())
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if !first.Accepted || first.Metadata["session_id"] != "cs_test_123" {
		t.Fatalf("expected first delivery fulfilled, got %+v", first)
	}

	second, err := processor.Process(context.Background(), checkoutRequest())
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !second.Accepted || second.Metadata["deduped"] != true {
		t.Fatalf("expected redelivery acknowledged as duplicate, got %+v", second)
	}
	if handler.callCount() != 1 {
		t.Fatalf("expected exactly one handler call across redeliveries, got %d", handler.callCount())
	}
}

func TestProcessor_AcknowledgesHandlerFailureAndRecordsIt(t *testing.T) {
	handler := &stubHandler{err: fmt.Errorf("carrier rate request failed")}
	ledger := core.NewMemoryDeliveryLedger()
	metrics := &captureMetrics{}
	processor := NewProcessor(&stubVerifier{}, ledger, handler)
	processor.Metrics = metrics

	result, err := processor.Process(context.Background(), checkoutRequest())
	if err != nil {
		t.Fatalf("expected handler failure to be acknowledged: %v", err)
	}
	if !result.Accepted || result.StatusCode != http.StatusOK {
		t.Fatalf("expected accepted 200 result, got %+v", result)
	}
	if result.Metadata["error_code"] != core.FulfillmentErrorCarrierFailed {
		t.Fatalf("expected carrier error code in metadata, got %v", result.Metadata["error_code"])
	}

	record, getErr := ledger.Get(context.Background(), "stripe", "evt_1")
	if getErr != nil {
		t.Fatalf("expected ledger entry for failed delivery: %v", getErr)
	}
	if record.Status != core.DeliveryStatusFailed {
		t.Fatalf("expected failed ledger status, got %q", record.Status)
	}
	if record.LastError == "" {
		t.Fatalf("expected handler error captured on the ledger entry")
	}
	if metrics.lastOutcome() != "failed" {
		t.Fatalf("expected failed outcome, got %q", metrics.lastOutcome())
	}
}

func TestProcessor_RedeliveryRetriesAfterFailure(t *testing.T) {
	handler := &stubHandler{err: fmt.Errorf("carrier rate request failed")}
	ledger := core.NewMemoryDeliveryLedger()
	processor := NewProcessor(&stubVerifier{}, ledger, handler)

	first, err := processor.Process(context.Background(), checkoutRequest())
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if !first.Accepted || first.Metadata["error_code"] != core.FulfillmentErrorCarrierFailed {
		t.Fatalf("expected acknowledged failure, got %+v", first)
	}

	handler.mu.Lock()
	handler.err = nil
	handler.record = core.FulfillmentRecord{
		SessionID: "cs_test_123",
		Status:    core.FulfillmentStatusLabelPurchased,
	}
	handler.mu.Unlock()

	second, err := processor.Process(context.Background(), checkoutRequest())
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !second.Accepted || second.Metadata["deduped"] == true {
		t.Fatalf("expected redelivery of failed event to be retried, got %+v", second)
	}
	if handler.callCount() != 2 {
		t.Fatalf("expected handler retried on redelivery, got %d calls", handler.callCount())
	}

	record, err := ledger.Get(context.Background(), "stripe", "evt_1")
	if err != nil {
		t.Fatalf("get ledger entry: %v", err)
	}
	if record.Status != core.DeliveryStatusProcessed || record.Attempts != 2 {
		t.Fatalf("expected processed entry after retry, got %#v", record)
	}
}

func TestProcessor_MarksProcessedOnSuccess(t *testing.T) {
	handler := &stubHandler{
		record: core.FulfillmentRecord{
			SessionID: "cs_test_123",
			Status:    core.FulfillmentStatusLabelPurchased,
			LabelURL:  "https://labels.example.com/r2.pdf",
		},
	}
	ledger := core.NewMemoryDeliveryLedger()
	processor := NewProcessor(&stubVerifier{}, ledger, handler)

	result, err := processor.Process(context.Background(), checkoutRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Metadata["status"] != core.FulfillmentStatusLabelPurchased {
		t.Fatalf("expected fulfillment status in metadata, got %v", result.Metadata)
	}
	record, err := ledger.Get(context.Background(), "stripe", "evt_1")
	if err != nil {
		t.Fatalf("ledger get: %v", err)
	}
	if record.Status != core.DeliveryStatusProcessed {
		t.Fatalf("expected processed ledger status, got %q", record.Status)
	}
}

func TestProcessor_SurfacesLedgerFailuresForRedelivery(t *testing.T) {
	handler := &stubHandler{}
	processor := NewProcessor(&stubVerifier{}, failingLedger{}, handler)

	_, err := processor.Process(context.Background(), checkoutRequest())
	if err == nil {
		t.Fatalf("expected ledger failure to surface so the provider redelivers")
	}
	if handler.callCount() != 0 {
		t.Fatalf("expected handler untouched when the claim fails")
	}
}

type failingLedger struct{}

func (failingLedger) Reserve(context.Context, string, string, []byte) (core.DeliveryRecord, bool, error) {
	return core.DeliveryRecord{}, false, fmt.Errorf("core: ledger store unavailable")
}

func (failingLedger) Get(context.Context, string, string) (core.DeliveryRecord, error) {
	return core.DeliveryRecord{}, fmt.Errorf("core: ledger store unavailable")
}

func (failingLedger) MarkProcessed(context.Context, string, string) error {
	return fmt.Errorf("core: ledger store unavailable")
}

func (failingLedger) MarkFailed(context.Context, string, string, error) error {
	return fmt.Errorf("core: ledger store unavailable")
}
