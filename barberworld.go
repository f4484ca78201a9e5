// Package barberworld re-exports the fulfillment pipeline's public surface
// so embedding applications depend on one import path.
package barberworld

import (
	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/fulfillment"
)

type Config = core.Config

type Address = core.Address
type Parcel = core.Parcel

type InboundRequest = core.InboundRequest
type InboundResult = core.InboundResult
type DeliveryRecord = core.DeliveryRecord
type FulfillmentRecord = core.FulfillmentRecord
type OutboxEvent = core.OutboxEvent

type DeliveryLedger = core.DeliveryLedger
type CarrierClient = core.CarrierClient
type FulfillmentStore = core.FulfillmentStore
type OutboxStore = core.OutboxStore
type Notifier = core.Notifier

type Option = fulfillment.Option

type Pipeline = fulfillment.Pipeline

var (
	WithLogger           = fulfillment.WithLogger
	WithLoggerProvider   = fulfillment.WithLoggerProvider
	WithMetricsRecorder  = fulfillment.WithMetricsRecorder
	WithErrorMapper      = fulfillment.WithErrorMapper
	WithVerifier         = fulfillment.WithVerifier
	WithLedger           = fulfillment.WithLedger
	WithCarrierClient    = fulfillment.WithCarrierClient
	WithFulfillmentStore = fulfillment.WithFulfillmentStore
	WithOutboxStore      = fulfillment.WithOutboxStore
	WithNotifier         = fulfillment.WithNotifier
	WithConfigProvider   = fulfillment.WithConfigProvider
	WithOptionsResolver  = fulfillment.WithOptionsResolver
	WithClock            = fulfillment.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// New assembles a pipeline from the given runtime overrides and options.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	return fulfillment.NewPipeline(cfg, opts...)
}
