package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// envRawConfigLoader materializes the nested raw config map from environment
// variables. Only set variables land in the map so defaults survive.
type envRawConfigLoader struct{}

func (envRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	raw := map[string]any{}
	putEnv(raw, "service_name", "FULFILLMENT_SERVICE_NAME")

	webhook := map[string]any{}
	putEnv(webhook, "signing_secret", "FULFILLMENT_SIGNING_SECRET")
	putEnv(webhook, "tolerance", "FULFILLMENT_WEBHOOK_TOLERANCE")
	putSection(raw, "webhook", webhook)

	carrier := map[string]any{}
	putEnv(carrier, "api_token", "SHIPPO_API_TOKEN")
	putEnv(carrier, "base_url", "SHIPPO_BASE_URL")
	putEnv(carrier, "call_timeout", "SHIPPO_CALL_TIMEOUT")
	putSection(raw, "carrier", carrier)

	ledger := map[string]any{}
	putEnv(ledger, "retention", "FULFILLMENT_LEDGER_RETENTION")
	putSection(raw, "ledger", ledger)

	origin := map[string]any{}
	putEnv(origin, "name", "FULFILLMENT_ORIGIN_NAME")
	putEnv(origin, "street1", "FULFILLMENT_ORIGIN_STREET1")
	putEnv(origin, "street2", "FULFILLMENT_ORIGIN_STREET2")
	putEnv(origin, "city", "FULFILLMENT_ORIGIN_CITY")
	putEnv(origin, "state", "FULFILLMENT_ORIGIN_STATE")
	putEnv(origin, "postal_code", "FULFILLMENT_ORIGIN_POSTAL_CODE")
	putEnv(origin, "country", "FULFILLMENT_ORIGIN_COUNTRY")
	putEnv(origin, "phone", "FULFILLMENT_ORIGIN_PHONE")
	putEnv(origin, "email", "FULFILLMENT_ORIGIN_EMAIL")
	putSection(raw, "origin", origin)

	return raw, nil
}

func putEnv(section map[string]any, key string, envName string) {
	value := strings.TrimSpace(os.Getenv(envName))
	if value != "" {
		section[key] = value
	}
}

func putSection(raw map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		raw[key] = section
	}
}

var _ core.RawConfigLoader = envRawConfigLoader{}

// persistenceConfig satisfies the go-persistence-bun config contract for the
// daemon's database handle.
type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "barberworld-fulfillment"
}

func getEnv(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}
