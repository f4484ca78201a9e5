package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/Elanstech/barberworld-fulfillment/carrier"
	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/webhooks"
)

// WebhookProviderID identifies the payment provider on the ledger. There is
// one provider today; the ledger is keyed to allow more.
const WebhookProviderID = "stripe"

// Pipeline is the assembled fulfillment service. Construct it through
// NewPipeline; the zero value is not usable.
type Pipeline struct {
	config          core.Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	errorMapper     core.ErrorMapper
	processor       *webhooks.Processor
	handler         *Handler
	carrierClient   core.CarrierClient
	ledger          core.DeliveryLedger
	store           core.FulfillmentStore
	outbox          core.OutboxStore
	notifier        core.Notifier
	now             func() time.Time
}

func NewPipeline(cfg core.Config, opts ...Option) (*Pipeline, error) {
	builder := defaultPipelineBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("fulfillment", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("fulfillment"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = core.NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = core.FulfillmentErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = core.GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.verifier == nil {
		if err := finalConfig.Webhook.Validate(); err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
		builder.verifier = webhooks.NewTimestampHMACVerifier(
			finalConfig.Webhook.SigningSecret,
			finalConfig.Webhook.Tolerance,
		)
	}
	if builder.ledger == nil {
		builder.ledger = core.NewMemoryDeliveryLedger()
	}
	if builder.carrierClient == nil {
		if err := finalConfig.Carrier.Validate(); err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
		builder.carrierClient = carrier.NewClient(finalConfig.Carrier)
	}
	if builder.store == nil {
		builder.store = core.NewMemoryFulfillmentStore()
	}
	if builder.outbox == nil {
		builder.outbox = core.NewMemoryOutboxStore()
	}
	if builder.notifier == nil {
		builder.notifier = LogNotifier{Logger: logger}
	}

	handler := &Handler{
		Origin:        finalConfig.Origin,
		Parcel:        finalConfig.Parcel,
		CarrierClient: builder.carrierClient,
		Store:         builder.store,
		Outbox:        builder.outbox,
		Logger:        logger,
		CallTimeout:   finalConfig.Carrier.CallTimeout,
		Now:           builder.now,
	}
	processor := webhooks.NewProcessor(builder.verifier, builder.ledger, handler)
	processor.Logger = logger
	processor.Metrics = builder.metricsRecorder
	processor.Now = builder.now

	return &Pipeline{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		processor:       processor,
		handler:         handler,
		carrierClient:   builder.carrierClient,
		ledger:          builder.ledger,
		store:           builder.store,
		outbox:          builder.outbox,
		notifier:        builder.notifier,
		now:             builder.now,
	}, nil
}

func Setup(cfg core.Config, opts ...Option) (*Pipeline, error) {
	return NewPipeline(cfg, opts...)
}

func mapBuildError(mapper core.ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (p *Pipeline) Config() core.Config {
	if p == nil {
		return core.Config{}
	}
	return p.config
}

func (p *Pipeline) Store() core.FulfillmentStore {
	if p == nil {
		return nil
	}
	return p.store
}

func (p *Pipeline) Outbox() core.OutboxStore {
	if p == nil {
		return nil
	}
	return p.outbox
}

func (p *Pipeline) Ledger() core.DeliveryLedger {
	if p == nil {
		return nil
	}
	return p.ledger
}

// HandleEvent runs one raw webhook delivery through the pipeline. The body
// must be the exact request bytes; the signature is bound to them.
func (p *Pipeline) HandleEvent(ctx context.Context, body []byte, signatureHeader string) (core.InboundResult, error) {
	if p == nil || p.processor == nil {
		return core.InboundResult{}, fmt.Errorf("fulfillment: pipeline is not configured")
	}
	req := core.InboundRequest{
		ProviderID: WebhookProviderID,
		Headers:    map[string]string{webhooks.SignatureHeader: signatureHeader},
		Body:       body,
	}
	return p.Process(ctx, req)
}

func (p *Pipeline) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if p == nil || p.processor == nil {
		return core.InboundResult{}, fmt.Errorf("fulfillment: pipeline is not configured")
	}
	result, err := p.processor.Process(ctx, req)
	if err != nil {
		return result, p.mapError(err)
	}
	return result, nil
}

// GetFulfillment looks up the persisted outcome for one payment session.
func (p *Pipeline) GetFulfillment(ctx context.Context, sessionID string) (record core.FulfillmentRecord, err error) {
	startedAt := p.clock()
	defer func() {
		p.observeOperation(ctx, startedAt, "get_fulfillment", err, map[string]any{
			"session_id": sessionID,
		})
	}()

	if p == nil || p.store == nil {
		return core.FulfillmentRecord{}, fmt.Errorf("fulfillment: pipeline is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return core.FulfillmentRecord{}, p.mapError(fmt.Errorf("fulfillment: session id is required"))
	}
	record, err = p.store.GetBySession(ctx, sessionID)
	if err != nil {
		err = p.mapError(err)
		return core.FulfillmentRecord{}, err
	}
	return record, nil
}

// PurgeLedger trims processed ledger entries older than the configured
// retention. Ledgers without purge support make this a no-op.
func (p *Pipeline) PurgeLedger(ctx context.Context) (pruned int, err error) {
	startedAt := p.clock()
	defer func() {
		p.observeOperation(ctx, startedAt, "purge_ledger", err, map[string]any{
			"pruned": pruned,
		})
	}()

	if p == nil || p.ledger == nil {
		return 0, fmt.Errorf("fulfillment: pipeline is not configured")
	}
	janitor, ok := p.ledger.(core.LedgerJanitor)
	if !ok {
		return 0, nil
	}
	cutoff := p.clock().Add(-p.config.Ledger.Retention)
	pruned, err = janitor.PurgeProcessedBefore(ctx, cutoff)
	if err != nil {
		err = p.mapError(err)
		return 0, err
	}
	return pruned, nil
}

func (p *Pipeline) mapError(err error) error {
	if err == nil {
		return nil
	}
	if p == nil || p.errorMapper == nil {
		return err
	}
	mapped := p.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (p *Pipeline) clock() time.Time {
	if p != nil && p.now != nil {
		return p.now().UTC()
	}
	return time.Now().UTC()
}
