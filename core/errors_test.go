package core

import (
	stderrors "errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestFulfillmentErrorMapper_AssignsStableCodes(t *testing.T) {
	mapped := FulfillmentErrorMapper(stderrors.New("webhooks: signature verification failed"))
	if mapped.TextCode != FulfillmentErrorBadSignature {
		t.Fatalf("expected bad signature text code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryAuth {
		t.Fatalf("expected auth category, got %q", mapped.Category)
	}
	if mapped.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on auth errors, got %d", mapped.Code)
	}

	mapped = FulfillmentErrorMapper(stderrors.New("carrier: create shipment request failed"))
	if mapped.TextCode != FulfillmentErrorCarrierFailed {
		t.Fatalf("expected carrier text code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", mapped.Category)
	}

	mapped = FulfillmentErrorMapper(stderrors.New("core: address street1 is required"))
	if mapped.TextCode != FulfillmentErrorBadSessionData {
		t.Fatalf("expected session data text code, got %q", mapped.TextCode)
	}
}

func TestFulfillmentErrorMapper_PreservesRichErrors(t *testing.T) {
	original := goerrors.New("carrier: quota exceeded", goerrors.CategoryRateLimit).
		WithTextCode("CUSTOM_CODE")
	mapped := FulfillmentErrorMapper(original)
	if mapped.TextCode != "CUSTOM_CODE" {
		t.Fatalf("expected existing text code preserved, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 filled in from category, got %d", mapped.Code)
	}
}

func TestFulfillmentErrorMapper_NilIsNil(t *testing.T) {
	if FulfillmentErrorMapper(nil) != nil {
		t.Fatalf("expected nil mapping for nil error")
	}
}
