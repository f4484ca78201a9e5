package query

import (
	"context"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

type FulfillmentReader interface {
	GetFulfillment(ctx context.Context, sessionID string) (core.FulfillmentRecord, error)
}

type UnlabeledReader interface {
	ListUnlabeled(ctx context.Context, limit int) ([]core.FulfillmentRecord, error)
}

type DeliveryReader interface {
	Get(ctx context.Context, providerID string, deliveryID string) (core.DeliveryRecord, error)
}

type GetFulfillmentQuery struct {
	reader FulfillmentReader
}

func NewGetFulfillmentQuery(reader FulfillmentReader) *GetFulfillmentQuery {
	return &GetFulfillmentQuery{reader: reader}
}

func (q *GetFulfillmentQuery) Query(ctx context.Context, msg GetFulfillmentMessage) (core.FulfillmentRecord, error) {
	if q == nil || q.reader == nil {
		return core.FulfillmentRecord{}, queryDependencyError("query: fulfillment reader is required")
	}
	return q.reader.GetFulfillment(ctx, msg.SessionID)
}

type ListUnlabeledQuery struct {
	reader UnlabeledReader
}

func NewListUnlabeledQuery(reader UnlabeledReader) *ListUnlabeledQuery {
	return &ListUnlabeledQuery{reader: reader}
}

func (q *ListUnlabeledQuery) Query(ctx context.Context, msg ListUnlabeledMessage) ([]core.FulfillmentRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: unlabeled reader is required")
	}
	return q.reader.ListUnlabeled(ctx, msg.Limit)
}

type GetDeliveryRecordQuery struct {
	reader DeliveryReader
}

func NewGetDeliveryRecordQuery(reader DeliveryReader) *GetDeliveryRecordQuery {
	return &GetDeliveryRecordQuery{reader: reader}
}

func (q *GetDeliveryRecordQuery) Query(ctx context.Context, msg GetDeliveryRecordMessage) (core.DeliveryRecord, error) {
	if q == nil || q.reader == nil {
		return core.DeliveryRecord{}, queryDependencyError("query: delivery reader is required")
	}
	return q.reader.Get(ctx, msg.ProviderID, msg.DeliveryID)
}
