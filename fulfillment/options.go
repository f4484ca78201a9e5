package fulfillment

import (
	"time"

	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/webhooks"
)

type pipelineBuilder struct {
	runtimeConfig   core.Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	errorMapper     core.ErrorMapper
	verifier        webhooks.Verifier
	ledger          core.DeliveryLedger
	carrierClient   core.CarrierClient
	store           core.FulfillmentStore
	outbox          core.OutboxStore
	notifier        core.Notifier
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	now             func() time.Time
}

type Option func(*pipelineBuilder)

func defaultPipelineBuilder(cfg core.Config) pipelineBuilder {
	return pipelineBuilder{runtimeConfig: cfg}
}

func WithLogger(logger core.Logger) Option {
	return func(b *pipelineBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *pipelineBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *pipelineBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper core.ErrorMapper) Option {
	return func(b *pipelineBuilder) {
		b.errorMapper = mapper
	}
}

func WithVerifier(verifier webhooks.Verifier) Option {
	return func(b *pipelineBuilder) {
		b.verifier = verifier
	}
}

func WithLedger(ledger core.DeliveryLedger) Option {
	return func(b *pipelineBuilder) {
		b.ledger = ledger
	}
}

func WithCarrierClient(client core.CarrierClient) Option {
	return func(b *pipelineBuilder) {
		b.carrierClient = client
	}
}

func WithFulfillmentStore(store core.FulfillmentStore) Option {
	return func(b *pipelineBuilder) {
		b.store = store
	}
}

func WithOutboxStore(outbox core.OutboxStore) Option {
	return func(b *pipelineBuilder) {
		b.outbox = outbox
	}
}

func WithNotifier(notifier core.Notifier) Option {
	return func(b *pipelineBuilder) {
		b.notifier = notifier
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *pipelineBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *pipelineBuilder) {
		b.optionsResolver = resolver
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *pipelineBuilder) {
		b.now = now
	}
}
