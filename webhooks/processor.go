package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// Handler runs fulfillment for one authenticated checkout completion.
type Handler interface {
	Handle(ctx context.Context, event Event) (core.FulfillmentRecord, error)
}

// Processor drives one delivery through verify, classify, claim, fulfill and
// acknowledge. Outcomes other than a signature failure are acknowledged as
// received: local errors are recorded on the ledger and logged, never pushed
// back to the provider where they would trigger redelivery.
type Processor struct {
	Verifier Verifier
	Ledger   core.DeliveryLedger
	Handler  Handler
	Logger   core.Logger
	Metrics  core.MetricsRecorder
	Now      func() time.Time
}

func NewProcessor(verifier Verifier, ledger core.DeliveryLedger, handler Handler) *Processor {
	return &Processor{
		Verifier: verifier,
		Ledger:   ledger,
		Handler:  handler,
		Logger:   glog.Nop(),
		Metrics:  core.NopMetricsRecorder{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (p *Processor) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if p == nil || p.Handler == nil || p.Ledger == nil {
		return core.InboundResult{}, fmt.Errorf("webhooks: processor requires handler and ledger")
	}
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		return core.InboundResult{}, fmt.Errorf("webhooks: provider id is required")
	}
	req.ProviderID = providerID
	startedAt := p.now()

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, req); err != nil {
			p.observe(ctx, startedAt, "rejected", map[string]any{
				"provider_id": providerID,
				"error":       err.Error(),
			})
			return core.InboundResult{
					Accepted:   false,
					StatusCode: http.StatusBadRequest,
					Metadata: map[string]any{
						"provider_id": providerID,
						"rejected":    true,
					},
				}, goerrors.Wrap(err, goerrors.CategoryAuth, "webhooks: signature verification failed").
					WithCode(http.StatusBadRequest).
					WithTextCode(core.FulfillmentErrorBadSignature)
		}
	}

	event, err := DecodeEvent(req.Body)
	if err != nil {
		// Authenticated but unparseable: redelivery cannot fix the payload,
		// so record the problem locally and acknowledge.
		p.observe(ctx, startedAt, "undecodable", map[string]any{
			"provider_id": providerID,
			"error":       err.Error(),
		})
		return acceptedResult(providerID, map[string]any{
			"error_code": core.FulfillmentErrorBadInput,
		}), nil
	}

	if !event.IsCheckoutCompleted() {
		p.observe(ctx, startedAt, "ignored", map[string]any{
			"provider_id": providerID,
			"delivery_id": event.ID,
			"event_type":  event.Type,
		})
		return acceptedResult(providerID, map[string]any{
			"delivery_id": event.ID,
			"event_type":  event.Type,
			"ignored":     true,
		}), nil
	}

	delivery, duplicate, err := p.Ledger.Reserve(ctx, providerID, event.ID, req.Body)
	if err != nil {
		// Ledger failures are infrastructure trouble: surfacing them makes
		// the provider redeliver once the ledger is back, which is the one
		// case where redelivery is wanted.
		return core.InboundResult{}, err
	}
	if duplicate {
		p.observe(ctx, startedAt, "deduped", map[string]any{
			"provider_id": providerID,
			"delivery_id": event.ID,
			"status":      delivery.Status,
		})
		return acceptedResult(providerID, map[string]any{
			"delivery_id": event.ID,
			"deduped":     true,
			"status":      delivery.Status,
		}), nil
	}

	record, err := p.Handler.Handle(ctx, event)
	if err != nil {
		mapped := core.FulfillmentErrorMapper(err)
		if markErr := p.Ledger.MarkFailed(ctx, providerID, event.ID, err); markErr != nil {
			return core.InboundResult{}, markErr
		}
		p.observe(ctx, startedAt, "failed", map[string]any{
			"provider_id": providerID,
			"delivery_id": event.ID,
			"error":       mapped.Message,
			"error_code":  mapped.TextCode,
		})
		return acceptedResult(providerID, map[string]any{
			"delivery_id": event.ID,
			"error_code":  mapped.TextCode,
		}), nil
	}

	if err := p.Ledger.MarkProcessed(ctx, providerID, event.ID); err != nil {
		return core.InboundResult{}, err
	}
	p.observe(ctx, startedAt, "processed", map[string]any{
		"provider_id": providerID,
		"delivery_id": event.ID,
		"session_id":  record.SessionID,
		"label_url":   record.LabelURL,
	})
	return acceptedResult(providerID, map[string]any{
		"delivery_id": event.ID,
		"session_id":  record.SessionID,
		"status":      record.Status,
	}), nil
}

func acceptedResult(providerID string, metadata map[string]any) core.InboundResult {
	merged := map[string]any{"provider_id": providerID}
	for key, value := range metadata {
		merged[key] = value
	}
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata:   merged,
	}
}

func (p *Processor) observe(ctx context.Context, startedAt time.Time, outcome string, fields map[string]any) {
	duration := p.now().Sub(startedAt)
	tags := map[string]string{"outcome": outcome}
	if provider, ok := fields["provider_id"].(string); ok && provider != "" {
		tags["provider_id"] = provider
	}
	if p.Metrics != nil {
		p.Metrics.IncCounter(ctx, "fulfillment.webhook.total", 1, tags)
		p.Metrics.ObserveHistogram(ctx, "fulfillment.webhook.duration_ms", float64(duration.Milliseconds()), tags)
	}
	logger := p.Logger
	if logger == nil {
		return
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(fields)
	}
	switch outcome {
	case "rejected", "failed", "undecodable":
		logger.Error("webhook delivery " + outcome)
	default:
		logger.Info("webhook delivery " + outcome)
	}
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
