package command

import (
	"fmt"
	"strings"
)

const (
	TypeProcessDelivery       = "fulfillment.command.delivery.process"
	TypeReconcileUnlabeled    = "fulfillment.command.orders.reconcile"
	TypeDispatchNotifications = "fulfillment.command.notifications.dispatch"
	TypePurgeLedger           = "fulfillment.command.ledger.purge"
)

// ProcessDeliveryMessage carries one raw provider delivery: the payload bytes
// exactly as received and the signature header that authenticates them.
type ProcessDeliveryMessage struct {
	Body            []byte
	SignatureHeader string
}

func (ProcessDeliveryMessage) Type() string { return TypeProcessDelivery }

func (m ProcessDeliveryMessage) Validate() error {
	if len(m.Body) == 0 {
		return fmt.Errorf("command: delivery body is required")
	}
	if strings.TrimSpace(m.SignatureHeader) == "" {
		return fmt.Errorf("command: signature header is required")
	}
	return nil
}

// ReconcileUnlabeledMessage sweeps orders that never reached a purchased
// label. Limit bounds the batch; zero uses the service default.
type ReconcileUnlabeledMessage struct {
	Limit int
}

func (ReconcileUnlabeledMessage) Type() string { return TypeReconcileUnlabeled }

func (m ReconcileUnlabeledMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("command: limit must be >= 0")
	}
	return nil
}

type DispatchNotificationsMessage struct {
	Limit int
}

func (DispatchNotificationsMessage) Type() string { return TypeDispatchNotifications }

func (m DispatchNotificationsMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("command: limit must be >= 0")
	}
	return nil
}

type PurgeLedgerMessage struct{}

func (PurgeLedgerMessage) Type() string { return TypePurgeLedger }

func (PurgeLedgerMessage) Validate() error { return nil }
