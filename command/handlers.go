package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// WebhookService receives raw provider deliveries and produces the
// acknowledgement outcome for each one.
type WebhookService interface {
	HandleEvent(ctx context.Context, body []byte, signatureHeader string) (core.InboundResult, error)
}

// MaintenanceService covers the background sweeps that keep the pipeline
// healthy between deliveries.
type MaintenanceService interface {
	ReconcileUnlabeled(ctx context.Context, limit int) (int, error)
	DispatchNotifications(ctx context.Context, limit int) (int, error)
	PurgeLedger(ctx context.Context) (int, error)
}

type ProcessDeliveryCommand struct {
	service WebhookService
}

func NewProcessDeliveryCommand(service WebhookService) *ProcessDeliveryCommand {
	return &ProcessDeliveryCommand{service: service}
}

func (c *ProcessDeliveryCommand) Execute(ctx context.Context, msg ProcessDeliveryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	out, err := c.service.HandleEvent(ctx, msg.Body, msg.SignatureHeader)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ReconcileUnlabeledCommand struct {
	service MaintenanceService
}

func NewReconcileUnlabeledCommand(service MaintenanceService) *ReconcileUnlabeledCommand {
	return &ReconcileUnlabeledCommand{service: service}
}

func (c *ReconcileUnlabeledCommand) Execute(ctx context.Context, msg ReconcileUnlabeledMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: maintenance service is required")
	}
	recovered, err := c.service.ReconcileUnlabeled(ctx, msg.Limit)
	if err != nil {
		return err
	}
	storeResult(ctx, recovered)
	return nil
}

type DispatchNotificationsCommand struct {
	service MaintenanceService
}

func NewDispatchNotificationsCommand(service MaintenanceService) *DispatchNotificationsCommand {
	return &DispatchNotificationsCommand{service: service}
}

func (c *DispatchNotificationsCommand) Execute(ctx context.Context, msg DispatchNotificationsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: maintenance service is required")
	}
	delivered, err := c.service.DispatchNotifications(ctx, msg.Limit)
	if err != nil {
		return err
	}
	storeResult(ctx, delivered)
	return nil
}

type PurgeLedgerCommand struct {
	service MaintenanceService
}

func NewPurgeLedgerCommand(service MaintenanceService) *PurgeLedgerCommand {
	return &PurgeLedgerCommand{service: service}
}

func (c *PurgeLedgerCommand) Execute(ctx context.Context, _ PurgeLedgerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: maintenance service is required")
	}
	pruned, err := c.service.PurgeLedger(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, pruned)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
