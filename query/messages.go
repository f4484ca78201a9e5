package query

import (
	"fmt"
	"strings"
)

const (
	TypeGetFulfillment    = "fulfillment.query.order.get"
	TypeListUnlabeled     = "fulfillment.query.orders.unlabeled"
	TypeGetDeliveryRecord = "fulfillment.query.delivery.get"
)

type GetFulfillmentMessage struct {
	SessionID string
}

func (GetFulfillmentMessage) Type() string { return TypeGetFulfillment }

func (m GetFulfillmentMessage) Validate() error {
	if strings.TrimSpace(m.SessionID) == "" {
		return fmt.Errorf("query: session id is required")
	}
	return nil
}

type ListUnlabeledMessage struct {
	Limit int
}

func (ListUnlabeledMessage) Type() string { return TypeListUnlabeled }

func (m ListUnlabeledMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	return nil
}

type GetDeliveryRecordMessage struct {
	ProviderID string
	DeliveryID string
}

func (GetDeliveryRecordMessage) Type() string { return TypeGetDeliveryRecord }

func (m GetDeliveryRecordMessage) Validate() error {
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("query: provider id is required")
	}
	if strings.TrimSpace(m.DeliveryID) == "" {
		return fmt.Errorf("query: delivery id is required")
	}
	return nil
}
