package webhooks

import (
	"testing"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

const checkoutCompletedBody = `{
	"id": "evt_1",
	"type": "checkout.session.completed",
	"data": {
		"object": {
			"id": "cs_test_123",
			"payment_status": "paid",
			"amount_total": 4500,
			"currency": "usd",
			"customer_details": {"name": "Jane Doe", "email": "jane@example.com"},
			"shipping": {
				"name": "Jane Doe",
				"address": {
					"line1": "1 Main St",
					"city": "New York",
					"state": "NY",
					"postal_code": "10001",
					"country": "US"
				}
			}
		}
	}
}`

func TestDecodeEvent(t *testing.T) {
	event, err := DecodeEvent([]byte(checkoutCompletedBody))
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.ID != "evt_1" {
		t.Fatalf("expected event id evt_1, got %q", event.ID)
	}
	if !event.IsCheckoutCompleted() {
		t.Fatalf("expected checkout completion to classify as such")
	}
	if len(event.Data.Object) == 0 {
		t.Fatalf("expected raw session payload retained")
	}
}

func TestDecodeEvent_RejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "checkout"},
		{"missing id", `{"type":"checkout.session.completed"}`},
		{"missing type", `{"id":"evt_1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeEvent([]byte(tc.body)); err == nil {
				t.Fatalf("expected decode failure")
			}
		})
	}
}

func TestDecodeSession_MapsProviderFields(t *testing.T) {
	event, err := DecodeEvent([]byte(checkoutCompletedBody))
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	session, err := DecodeSession(event.Data.Object)
	if err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.ID != "cs_test_123" {
		t.Fatalf("expected session id, got %q", session.ID)
	}
	if session.CustomerEmail != "jane@example.com" {
		t.Fatalf("expected customer email, got %q", session.CustomerEmail)
	}
	if session.AmountTotal != 4500 || session.Currency != "usd" {
		t.Fatalf("expected amount mapping, got %d %q", session.AmountTotal, session.Currency)
	}
	want := core.Address{
		Name:       "Jane Doe",
		Street1:    "1 Main St",
		City:       "New York",
		State:      "NY",
		PostalCode: "10001",
		Country:    "US",
		Email:      "jane@example.com",
	}
	if session.Shipping != want {
		t.Fatalf("expected shipping address %+v, got %+v", want, session.Shipping)
	}
	if err := session.ValidateShipping(); err != nil {
		t.Fatalf("expected shipping to validate: %v", err)
	}
}

func TestDecodeSession_AcceptsShippingDetailsVariant(t *testing.T) {
	payload := []byte(`{
		"id": "cs_test_456",
		"payment_status": "paid",
		"customer_details": {"name": "Sam Roe", "email": "sam@example.com"},
		"shipping_details": {
			"name": "Sam Roe",
			"address": {
				"line1": "9 Elm Rd",
				"city": "Boston",
				"state": "MA",
				"postal_code": "02108",
				"country": "US"
			}
		}
	}`)
	session, err := DecodeSession(payload)
	if err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Shipping.Street1 != "9 Elm Rd" {
		t.Fatalf("expected shipping_details variant mapped, got %+v", session.Shipping)
	}
}

func TestDecodeSession_MissingAddressFailsShippingValidation(t *testing.T) {
	payload := []byte(`{
		"id": "cs_test_789",
		"payment_status": "paid",
		"customer_details": {"name": "Kim Lee", "email": "kim@example.com"}
	}`)
	session, err := DecodeSession(payload)
	if err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if err := session.ValidateShipping(); err == nil {
		t.Fatalf("expected shipping validation to fail without address")
	}
}
