package fulfillment

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Elanstech/barberworld-fulfillment/carrier"
	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/webhooks"
)

const defaultCarrierCallTimeout = 15 * time.Second

// Handler fulfills one authenticated checkout completion: decode the session,
// create the shipment, pick the cheapest rate, purchase the label and record
// the outcome. Every attempt persists a fulfillment record, failed attempts
// included, so the reconciliation sweep can pick them back up.
type Handler struct {
	Origin        core.Address
	Parcel        core.Parcel
	CarrierClient core.CarrierClient
	Store         core.FulfillmentStore
	Outbox        core.OutboxStore
	Logger        core.Logger
	CallTimeout   time.Duration
	Now           func() time.Time
}

func (h *Handler) Handle(ctx context.Context, event webhooks.Event) (core.FulfillmentRecord, error) {
	if h == nil || h.CarrierClient == nil || h.Store == nil {
		return core.FulfillmentRecord{}, fmt.Errorf("fulfillment: handler requires a carrier client and store")
	}

	session, err := webhooks.DecodeSession(event.Data.Object)
	if err != nil {
		return core.FulfillmentRecord{}, goerrors.Wrap(
			err,
			goerrors.CategoryValidation,
			"fulfillment: decode session payload",
		).WithTextCode(core.FulfillmentErrorBadSessionData)
	}
	if err := session.ValidateShipping(); err != nil {
		return core.FulfillmentRecord{}, goerrors.Wrap(
			err,
			goerrors.CategoryValidation,
			"fulfillment: session is missing shipping data",
		).WithTextCode(core.FulfillmentErrorBadSessionData)
	}

	// The ledger dedupes deliveries, not sessions. A session can arrive again
	// under a fresh event id after a provider resend; a finished record means
	// there is nothing left to buy.
	if existing, getErr := h.Store.GetBySession(ctx, session.ID); getErr == nil {
		if existing.Status == core.FulfillmentStatusLabelPurchased {
			return existing, nil
		}
	} else if !isNotFound(getErr) {
		return core.FulfillmentRecord{}, getErr
	}

	record := core.FulfillmentRecord{
		SessionID:     session.ID,
		CustomerName:  session.CustomerName,
		CustomerEmail: session.CustomerEmail,
		AmountTotal:   session.AmountTotal,
		Currency:      session.Currency,
		Destination:   session.Shipping,
	}

	rates, err := h.createShipment(ctx, core.ShipmentRequest{
		From:   h.Origin,
		To:     session.Shipping,
		Parcel: h.Parcel,
	})
	if err != nil {
		return core.FulfillmentRecord{}, h.recordFailure(ctx, record, err)
	}

	best, err := carrier.CheapestRate(rates)
	if err != nil {
		return core.FulfillmentRecord{}, h.recordFailure(ctx, record, err)
	}
	record.ShipmentID = best.ShipmentID
	record.RateID = best.ID
	record.Status = core.FulfillmentStatusShipmentCreated
	record, err = h.Store.Upsert(ctx, record)
	if err != nil {
		return core.FulfillmentRecord{}, err
	}

	label, err := h.purchaseLabel(ctx, best.ID)
	if err != nil {
		return core.FulfillmentRecord{}, h.recordFailure(ctx, record, err)
	}

	record.Status = core.FulfillmentStatusLabelPurchased
	record.LabelURL = label.LabelURL
	record.TrackingNumber = label.TrackingNumber
	record.LastError = ""
	record, err = h.Store.Upsert(ctx, record)
	if err != nil {
		return core.FulfillmentRecord{}, err
	}

	h.enqueueConfirmation(ctx, record)
	return record, nil
}

func (h *Handler) createShipment(ctx context.Context, req core.ShipmentRequest) ([]core.RateQuote, error) {
	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	return h.CarrierClient.CreateShipment(callCtx, req)
}

func (h *Handler) purchaseLabel(ctx context.Context, rateID string) (core.LabelTransaction, error) {
	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	return h.CarrierClient.PurchaseLabel(callCtx, rateID)
}

func (h *Handler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := h.CallTimeout
	if timeout <= 0 {
		timeout = defaultCarrierCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// recordFailure persists the failed attempt and hands the cause back. The
// stored record keeps whatever progress was made, the rate id in particular,
// so a later sweep can resume from the purchase step.
func (h *Handler) recordFailure(ctx context.Context, record core.FulfillmentRecord, cause error) error {
	record.Status = core.FulfillmentStatusFailed
	record.LastError = cause.Error()
	if _, err := h.Store.Upsert(ctx, record); err != nil {
		h.logError(ctx, "persist failed fulfillment record", map[string]any{
			"session_id": record.SessionID,
			"error":      err.Error(),
		})
	}
	return cause
}

// enqueueConfirmation queues the customer notification. The label is already
// bought at this point; an outbox hiccup is logged, not surfaced, so the
// delivery still acks and the purchase is not retried.
func (h *Handler) enqueueConfirmation(ctx context.Context, record core.FulfillmentRecord) {
	if h.Outbox == nil {
		return
	}
	_, err := h.Outbox.Enqueue(ctx, core.OutboxEvent{
		Kind:      core.OutboxKindOrderConfirmation,
		SessionID: record.SessionID,
		Payload: map[string]any{
			"session_id":      record.SessionID,
			"customer_email":  record.CustomerEmail,
			"label_url":       record.LabelURL,
			"tracking_number": record.TrackingNumber,
			"carrier_status":  record.Status,
		},
	})
	if err != nil {
		h.logError(ctx, "enqueue order confirmation", map[string]any{
			"session_id": record.SessionID,
			"error":      err.Error(),
		})
	}
}

func (h *Handler) logError(ctx context.Context, message string, fields map[string]any) {
	if h == nil || h.Logger == nil {
		return
	}
	logger := h.Logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(fields)
	}
	logger.Error(message)
}

func isNotFound(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == goerrors.CategoryNotFound
}

var _ webhooks.Handler = (*Handler)(nil)
