package core

import (
	"fmt"
	"strings"
	"time"
)

type WebhookConfig struct {
	SigningSecret string        `koanf:"signing_secret" mapstructure:"signing_secret"`
	Tolerance     time.Duration `koanf:"tolerance" mapstructure:"tolerance"`
}

type CarrierConfig struct {
	BaseURL     string        `koanf:"base_url" mapstructure:"base_url"`
	APIToken    string        `koanf:"api_token" mapstructure:"api_token"`
	CallTimeout time.Duration `koanf:"call_timeout" mapstructure:"call_timeout"`
}

type LedgerConfig struct {
	Retention time.Duration `koanf:"retention" mapstructure:"retention"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Origin      Address       `koanf:"origin" mapstructure:"origin"`
	Parcel      Parcel        `koanf:"parcel" mapstructure:"parcel"`
	Webhook     WebhookConfig `koanf:"webhook" mapstructure:"webhook"`
	Carrier     CarrierConfig `koanf:"carrier" mapstructure:"carrier"`
	Ledger      LedgerConfig  `koanf:"ledger" mapstructure:"ledger"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "fulfillment",
		Parcel: Parcel{
			Length:       12,
			Width:        9,
			Height:       3,
			DistanceUnit: "in",
			Weight:       1,
			MassUnit:     "lb",
		},
		Webhook: WebhookConfig{
			Tolerance: 5 * time.Minute,
		},
		Carrier: CarrierConfig{
			BaseURL:     "https://api.goshippo.com",
			CallTimeout: 15 * time.Second,
		},
		// Retention must cover the payment provider's maximum redelivery
		// interval, otherwise a late redelivery slips past the ledger.
		Ledger: LedgerConfig{
			Retention: 72 * time.Hour,
		},
	}
}

// Validate checks the credentials needed to build the webhook verifier from
// configuration.
func (c WebhookConfig) Validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("core: webhook.signing_secret is required")
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("core: webhook.tolerance must be positive")
	}
	return nil
}

// Validate checks the credentials needed to build the carrier client from
// configuration.
func (c CarrierConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("core: carrier.base_url is required")
	}
	if strings.TrimSpace(c.APIToken) == "" {
		return fmt.Errorf("core: carrier.api_token is required")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("core: carrier.call_timeout must be positive")
	}
	return nil
}

// Validate checks the complete configuration, credentials included. Use it
// when every component is built from configuration alone.
func (c Config) Validate() error {
	if err := c.ValidateSettings(); err != nil {
		return err
	}
	if err := c.Webhook.Validate(); err != nil {
		return err
	}
	if err := c.Carrier.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateSettings checks the settings every assembly relies on. Webhook and
// carrier credentials are left to the consumer that builds those components
// from configuration: an assembly with an injected verifier or carrier client
// does not need them.
func (c Config) ValidateSettings() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Webhook.Tolerance <= 0 {
		return fmt.Errorf("core: webhook.tolerance must be positive")
	}
	if err := c.Origin.Validate(); err != nil {
		return fmt.Errorf("core: origin address: %w", err)
	}
	if err := c.Parcel.Validate(); err != nil {
		return fmt.Errorf("core: default parcel: %w", err)
	}
	if c.Carrier.CallTimeout <= 0 {
		return fmt.Errorf("core: carrier.call_timeout must be positive")
	}
	if c.Ledger.Retention <= 0 {
		return fmt.Errorf("core: ledger.retention must be positive")
	}
	return nil
}
