package webhooks

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// Event is the provider's envelope around one state change. Data.Object is
// kept raw: only checkout completions are ever decoded further, and the
// session schema differs per event type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func DecodeEvent(body []byte) (Event, error) {
	event := Event{}
	if len(body) == 0 {
		return Event{}, fmt.Errorf("webhooks: event body is required")
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("webhooks: parse event envelope: %w", err)
	}
	if strings.TrimSpace(event.ID) == "" {
		return Event{}, fmt.Errorf("webhooks: event id is required for dedupe")
	}
	if strings.TrimSpace(event.Type) == "" {
		return Event{}, fmt.Errorf("webhooks: event type is required")
	}
	return event, nil
}

func (e Event) IsCheckoutCompleted() bool {
	return strings.TrimSpace(e.Type) == core.EventTypeCheckoutCompleted
}

type rawSession struct {
	ID              string `json:"id"`
	PaymentStatus   string `json:"payment_status"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerDetails struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer_details"`
	Shipping struct {
		Name    string     `json:"name"`
		Address rawAddress `json:"address"`
	} `json:"shipping"`
	ShippingDetails struct {
		Name    string     `json:"name"`
		Address rawAddress `json:"address"`
	} `json:"shipping_details"`
}

type rawAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// DecodeSession maps a checkout session payload to the domain model. The
// provider has shipped the shipping block under both "shipping" and
// "shipping_details" across API versions; either is accepted.
func DecodeSession(raw json.RawMessage) (core.PaymentSession, error) {
	if len(raw) == 0 {
		return core.PaymentSession{}, fmt.Errorf("webhooks: session payload is required")
	}
	payload := rawSession{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return core.PaymentSession{}, fmt.Errorf("webhooks: parse session payload: %w", err)
	}

	shippingName := firstNonEmpty(payload.Shipping.Name, payload.ShippingDetails.Name, payload.CustomerDetails.Name)
	address := payload.Shipping.Address
	if address == (rawAddress{}) {
		address = payload.ShippingDetails.Address
	}

	session := core.PaymentSession{
		ID:            strings.TrimSpace(payload.ID),
		PaymentStatus: strings.TrimSpace(payload.PaymentStatus),
		CustomerName:  strings.TrimSpace(payload.CustomerDetails.Name),
		CustomerEmail: strings.TrimSpace(payload.CustomerDetails.Email),
		AmountTotal:   payload.AmountTotal,
		Currency:      strings.ToLower(strings.TrimSpace(payload.Currency)),
		Shipping: core.Address{
			Name:       shippingName,
			Street1:    strings.TrimSpace(address.Line1),
			Street2:    strings.TrimSpace(address.Line2),
			City:       strings.TrimSpace(address.City),
			State:      strings.TrimSpace(address.State),
			PostalCode: strings.TrimSpace(address.PostalCode),
			Country:    strings.TrimSpace(address.Country),
			Email:      strings.TrimSpace(payload.CustomerDetails.Email),
		},
	}
	return session, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
