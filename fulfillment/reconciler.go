package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/Elanstech/barberworld-fulfillment/carrier"
	"github.com/Elanstech/barberworld-fulfillment/core"
)

const defaultReconcileBatchSize = 25

// ReconcileUnlabeled retries records that never reached label purchase.
// Records that already hold a rate id resume at the purchase step; records
// that failed before rating get a fresh shipment from the stored destination.
// Failures are logged and left for the next sweep.
func (p *Pipeline) ReconcileUnlabeled(ctx context.Context, limit int) (recovered int, err error) {
	startedAt := p.clock()
	defer func() {
		p.observeOperation(ctx, startedAt, "reconcile", err, map[string]any{
			"recovered": recovered,
		})
	}()

	if p == nil || p.store == nil || p.handler == nil {
		return 0, fmt.Errorf("fulfillment: pipeline is not configured")
	}
	if limit <= 0 {
		limit = defaultReconcileBatchSize
	}

	records, err := p.store.ListUnlabeled(ctx, limit)
	if err != nil {
		err = p.mapError(err)
		return 0, err
	}

	for _, record := range records {
		if retryErr := p.retryRecord(ctx, record); retryErr != nil {
			p.logError(ctx, "reconcile fulfillment record", map[string]any{
				"session_id": record.SessionID,
				"error":      retryErr.Error(),
			})
			continue
		}
		recovered++
	}
	return recovered, nil
}

func (p *Pipeline) retryRecord(ctx context.Context, record core.FulfillmentRecord) error {
	rateID := strings.TrimSpace(record.RateID)
	if rateID == "" {
		if validateErr := record.Destination.Validate(); validateErr != nil {
			return validateErr
		}
		rates, shipErr := p.handler.createShipment(ctx, core.ShipmentRequest{
			From:   p.handler.Origin,
			To:     record.Destination,
			Parcel: p.handler.Parcel,
		})
		if shipErr != nil {
			return p.persistRetryFailure(ctx, record, shipErr)
		}
		best, rateErr := carrier.CheapestRate(rates)
		if rateErr != nil {
			return p.persistRetryFailure(ctx, record, rateErr)
		}
		record.ShipmentID = best.ShipmentID
		record.RateID = best.ID
		rateID = best.ID
	}

	label, purchaseErr := p.handler.purchaseLabel(ctx, rateID)
	if purchaseErr != nil {
		return p.persistRetryFailure(ctx, record, purchaseErr)
	}

	record.Status = core.FulfillmentStatusLabelPurchased
	record.LabelURL = label.LabelURL
	record.TrackingNumber = label.TrackingNumber
	record.LastError = ""
	updated, err := p.store.Upsert(ctx, record)
	if err != nil {
		return err
	}
	p.handler.enqueueConfirmation(ctx, updated)
	return nil
}

func (p *Pipeline) persistRetryFailure(ctx context.Context, record core.FulfillmentRecord, cause error) error {
	record.Status = core.FulfillmentStatusFailed
	record.LastError = cause.Error()
	if _, err := p.store.Upsert(ctx, record); err != nil {
		return err
	}
	return cause
}
