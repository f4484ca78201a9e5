package core

import (
	"fmt"
	"strings"
	"time"
)

// EventTypeCheckoutCompleted is the only payment provider event type that
// triggers fulfillment. Every other type is acknowledged without side effects.
const EventTypeCheckoutCompleted = "checkout.session.completed"

const (
	FulfillmentStatusShipmentCreated = "shipment_created"
	FulfillmentStatusLabelPurchased  = "label_purchased"
	FulfillmentStatusFailed          = "failed"
)

type Address struct {
	Name       string `koanf:"name" mapstructure:"name" json:"name"`
	Street1    string `koanf:"street1" mapstructure:"street1" json:"street1"`
	Street2    string `koanf:"street2" mapstructure:"street2" json:"street2,omitempty"`
	City       string `koanf:"city" mapstructure:"city" json:"city"`
	State      string `koanf:"state" mapstructure:"state" json:"state,omitempty"`
	PostalCode string `koanf:"postal_code" mapstructure:"postal_code" json:"postal_code"`
	Country    string `koanf:"country" mapstructure:"country" json:"country"`
	Phone      string `koanf:"phone" mapstructure:"phone" json:"phone,omitempty"`
	Email      string `koanf:"email" mapstructure:"email" json:"email,omitempty"`
}

// Validate reports the first missing required field. Street2, State, Phone and
// Email are optional; carriers reject the rest when absent, so we fail early.
func (a Address) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", a.Name},
		{"street1", a.Street1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			return fmt.Errorf("core: address %s is required", item.field)
		}
	}
	return nil
}

type Parcel struct {
	Length       float64 `koanf:"length" mapstructure:"length" json:"length"`
	Width        float64 `koanf:"width" mapstructure:"width" json:"width"`
	Height       float64 `koanf:"height" mapstructure:"height" json:"height"`
	DistanceUnit string  `koanf:"distance_unit" mapstructure:"distance_unit" json:"distance_unit"`
	Weight       float64 `koanf:"weight" mapstructure:"weight" json:"weight"`
	MassUnit     string  `koanf:"mass_unit" mapstructure:"mass_unit" json:"mass_unit"`
}

func (p Parcel) Validate() error {
	if p.Length <= 0 || p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("core: parcel dimensions must be positive")
	}
	if p.Weight <= 0 {
		return fmt.Errorf("core: parcel weight must be positive")
	}
	if strings.TrimSpace(p.DistanceUnit) == "" || strings.TrimSpace(p.MassUnit) == "" {
		return fmt.Errorf("core: parcel units are required")
	}
	return nil
}

// PaymentSession is the provider's record of one checkout attempt. The
// pipeline reads it from the event payload and never mutates provider state.
type PaymentSession struct {
	ID            string
	PaymentStatus string
	CustomerName  string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
	Shipping      Address
}

// ValidateShipping enforces the fields fulfillment cannot proceed without.
// A failure here is a data-quality problem the provider cannot fix by
// redelivering, so callers log it and still acknowledge the event.
func (s PaymentSession) ValidateShipping() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("core: payment session id is required")
	}
	if err := s.Shipping.Validate(); err != nil {
		return err
	}
	return nil
}

type ShipmentRequest struct {
	From   Address
	To     Address
	Parcel Parcel
}

// RateQuote is one carrier price/service option. Amount is the provider's
// decimal string, preserved verbatim so selection stays bound to provider
// ordering on ties.
type RateQuote struct {
	ID            string
	ShipmentID    string
	Amount        string
	Currency      string
	Carrier       string
	ServiceLevel  string
	EstimatedDays int
}

type LabelTransaction struct {
	ID             string
	RateID         string
	Status         string
	LabelURL       string
	TrackingNumber string
}

// FulfillmentRecord is the persisted outcome of one fulfillment attempt,
// keyed by the originating payment session.
type FulfillmentRecord struct {
	ID             string
	SessionID      string
	ShipmentID     string
	RateID         string
	Status         string
	LabelURL       string
	TrackingNumber string
	CustomerName   string
	CustomerEmail  string
	AmountTotal    int64
	Currency       string
	Destination    Address
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
