package core

import (
	"strings"
	"testing"
)

func TestAddressValidate_RequiresCarrierFields(t *testing.T) {
	addr := Address{
		Name:       "Jane Doe",
		Street1:    "1 Main St",
		City:       "New York",
		State:      "NY",
		PostalCode: "10001",
		Country:    "US",
	}
	if err := addr.Validate(); err != nil {
		t.Fatalf("expected complete address to validate: %v", err)
	}

	cases := []struct {
		name  string
		clear func(*Address)
		field string
	}{
		{"missing name", func(a *Address) { a.Name = "" }, "name"},
		{"missing street1", func(a *Address) { a.Street1 = " " }, "street1"},
		{"missing city", func(a *Address) { a.City = "" }, "city"},
		{"missing postal code", func(a *Address) { a.PostalCode = "" }, "postal_code"},
		{"missing country", func(a *Address) { a.Country = "" }, "country"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			broken := addr
			tc.clear(&broken)
			err := broken.Validate()
			if err == nil {
				t.Fatalf("expected validation error for %s", tc.field)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("expected error to name %s, got %q", tc.field, err.Error())
			}
		})
	}
}

func TestAddressValidate_OptionalFieldsMayBeEmpty(t *testing.T) {
	addr := Address{
		Name:       "Jane Doe",
		Street1:    "1 Main St",
		City:       "New York",
		PostalCode: "10001",
		Country:    "US",
	}
	if err := addr.Validate(); err != nil {
		t.Fatalf("street2/state/phone/email are optional: %v", err)
	}
}

func TestPaymentSessionValidateShipping(t *testing.T) {
	session := PaymentSession{
		ID:            "cs_test_123",
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		Shipping: Address{
			Name:       "Jane Doe",
			Street1:    "1 Main St",
			City:       "New York",
			State:      "NY",
			PostalCode: "10001",
			Country:    "US",
		},
	}
	if err := session.ValidateShipping(); err != nil {
		t.Fatalf("expected valid session: %v", err)
	}

	session.ID = ""
	if err := session.ValidateShipping(); err == nil {
		t.Fatalf("expected error for missing session id")
	}

	session.ID = "cs_test_123"
	session.Shipping.Street1 = ""
	if err := session.ValidateShipping(); err == nil {
		t.Fatalf("expected error for missing street")
	}
}

func TestParcelValidate(t *testing.T) {
	parcel := DefaultConfig().Parcel
	if err := parcel.Validate(); err != nil {
		t.Fatalf("default parcel must validate: %v", err)
	}

	parcel.Weight = 0
	if err := parcel.Validate(); err == nil {
		t.Fatalf("expected error for zero weight")
	}

	parcel = DefaultConfig().Parcel
	parcel.MassUnit = ""
	if err := parcel.Validate(); err == nil {
		t.Fatalf("expected error for missing mass unit")
	}
}

func TestConfigValidate_RejectsMissingSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Origin = Address{
		Name:       "BarberWorld Warehouse",
		Street1:    "240 Industrial Ave",
		City:       "Queens",
		State:      "NY",
		PostalCode: "11101",
		Country:    "US",
	}
	cfg.Webhook.SigningSecret = "whsec_test"
	cfg.Carrier.APIToken = "shippo_test_token"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected complete config to validate: %v", err)
	}

	broken := cfg
	broken.Webhook.SigningSecret = ""
	if err := broken.Validate(); err == nil {
		t.Fatalf("expected error for missing signing secret")
	}

	broken = cfg
	broken.Carrier.APIToken = " "
	if err := broken.Validate(); err == nil {
		t.Fatalf("expected error for missing carrier token")
	}

	broken = cfg
	broken.Origin.Country = ""
	if err := broken.Validate(); err == nil {
		t.Fatalf("expected error for incomplete origin address")
	}
}
