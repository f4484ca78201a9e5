package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

var (
	_ gocmd.Querier[GetFulfillmentMessage, core.FulfillmentRecord]  = (*GetFulfillmentQuery)(nil)
	_ gocmd.Querier[ListUnlabeledMessage, []core.FulfillmentRecord] = (*ListUnlabeledQuery)(nil)
	_ gocmd.Querier[GetDeliveryRecordMessage, core.DeliveryRecord]  = (*GetDeliveryRecordQuery)(nil)
)
