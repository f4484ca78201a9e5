package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/webhooks"
)

func TestWebhookChannel_DeliversSignedConfirmation(t *testing.T) {
	now := time.Unix(1_723_000_000, 0).UTC()

	var gotBody []byte
	var gotSignature string
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(OutboundSignatureHeader)
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewWebhookChannel(server.URL, "whsec_test", nil)
	channel.Now = func() time.Time { return now }

	err := channel.Notify(context.Background(), core.OutboxEvent{
		ID:        "out_1",
		Kind:      core.OutboxKindOrderConfirmation,
		SessionID: "cs_test_123",
		Payload:   map[string]any{"tracking_number": "9400100000000000000001"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}

	var payload map[string]any
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decode delivered payload: %v", err)
	}
	if payload["session_id"] != "cs_test_123" || payload["kind"] != core.OutboxKindOrderConfirmation {
		t.Fatalf("unexpected payload %#v", payload)
	}

	verifier := webhooks.TimestampHMACVerifier{
		Header: OutboundSignatureHeader,
		Secret: "whsec_test",
		Now:    func() time.Time { return now },
	}
	verifyErr := verifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{OutboundSignatureHeader: gotSignature},
		Body:    gotBody,
	})
	if verifyErr != nil {
		t.Fatalf("expected delivered signature to verify, got %v", verifyErr)
	}
}

func TestWebhookChannel_SkipsSignatureWithoutSecret(t *testing.T) {
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(OutboundSignatureHeader)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	channel := NewWebhookChannel(server.URL, "", nil)
	if err := channel.Notify(context.Background(), core.OutboxEvent{ID: "out_1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotSignature != "" {
		t.Fatalf("expected unsigned delivery, got signature %q", gotSignature)
	}
}

func TestWebhookChannel_ReturnsExternalErrorOnFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "downstream unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	channel := NewWebhookChannel(server.URL, "", nil)
	err := channel.Notify(context.Background(), core.OutboxEvent{ID: "out_1"})
	if err == nil {
		t.Fatalf("expected failure status to surface as error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal || rich.TextCode != core.FulfillmentErrorNotifyFailed {
		t.Fatalf("unexpected error envelope: category=%v text=%q", rich.Category, rich.TextCode)
	}
}

func TestWebhookChannel_RequiresURL(t *testing.T) {
	channel := NewWebhookChannel("", "", nil)
	err := channel.Notify(context.Background(), core.OutboxEvent{ID: "out_1"})
	if err == nil {
		t.Fatalf("expected missing url to fail")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input envelope, got %v", err)
	}
}
