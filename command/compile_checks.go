package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessDeliveryMessage]       = (*ProcessDeliveryCommand)(nil)
	_ gocmd.Commander[ReconcileUnlabeledMessage]    = (*ReconcileUnlabeledCommand)(nil)
	_ gocmd.Commander[DispatchNotificationsMessage] = (*DispatchNotificationsCommand)(nil)
	_ gocmd.Commander[PurgeLedgerMessage]           = (*PurgeLedgerCommand)(nil)
)
