package barberworld

import (
	"fmt"

	fulfillmentcommand "github.com/Elanstech/barberworld-fulfillment/command"
	"github.com/Elanstech/barberworld-fulfillment/core"
	fulfillmentquery "github.com/Elanstech/barberworld-fulfillment/query"
)

// CommandQueryService is the surface the facade dispatches against. The
// fulfillment pipeline satisfies it directly.
type CommandQueryService interface {
	fulfillmentcommand.WebhookService
	fulfillmentcommand.MaintenanceService
	fulfillmentquery.FulfillmentReader
}

type Commands struct {
	ProcessDelivery       *fulfillmentcommand.ProcessDeliveryCommand
	ReconcileUnlabeled    *fulfillmentcommand.ReconcileUnlabeledCommand
	DispatchNotifications *fulfillmentcommand.DispatchNotificationsCommand
	PurgeLedger           *fulfillmentcommand.PurgeLedgerCommand
}

type Queries struct {
	GetFulfillment    *fulfillmentquery.GetFulfillmentQuery
	ListUnlabeled     *fulfillmentquery.ListUnlabeledQuery
	GetDeliveryRecord *fulfillmentquery.GetDeliveryRecordQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	unlabeledReader fulfillmentquery.UnlabeledReader
	deliveryReader  fulfillmentquery.DeliveryReader
}

func WithUnlabeledReader(reader fulfillmentquery.UnlabeledReader) FacadeOption {
	return func(options *facadeOptions) {
		options.unlabeledReader = reader
	}
}

func WithDeliveryReader(reader fulfillmentquery.DeliveryReader) FacadeOption {
	return func(options *facadeOptions) {
		options.deliveryReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("barberworld: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	unlabeledReader := cfg.unlabeledReader
	if unlabeledReader == nil {
		unlabeledReader = resolveUnlabeledReader(service)
	}
	deliveryReader := cfg.deliveryReader
	if deliveryReader == nil {
		deliveryReader = resolveDeliveryReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ProcessDelivery:       fulfillmentcommand.NewProcessDeliveryCommand(service),
		ReconcileUnlabeled:    fulfillmentcommand.NewReconcileUnlabeledCommand(service),
		DispatchNotifications: fulfillmentcommand.NewDispatchNotificationsCommand(service),
		PurgeLedger:           fulfillmentcommand.NewPurgeLedgerCommand(service),
	}
	facade.queries = Queries{
		GetFulfillment:    fulfillmentquery.NewGetFulfillmentQuery(service),
		ListUnlabeled:     fulfillmentquery.NewListUnlabeledQuery(unlabeledReader),
		GetDeliveryRecord: fulfillmentquery.NewGetDeliveryRecordQuery(deliveryReader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveUnlabeledReader finds a store capable of listing unlabeled orders.
// The pipeline does not expose the listing directly; its store does.
func resolveUnlabeledReader(service CommandQueryService) fulfillmentquery.UnlabeledReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(fulfillmentquery.UnlabeledReader); ok {
		return reader
	}
	provider, ok := service.(interface{ Store() core.FulfillmentStore })
	if !ok {
		return nil
	}
	store := provider.Store()
	if store == nil {
		return nil
	}
	return store
}

func resolveDeliveryReader(service CommandQueryService) fulfillmentquery.DeliveryReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(fulfillmentquery.DeliveryReader); ok {
		return reader
	}
	provider, ok := service.(interface{ Ledger() core.DeliveryLedger })
	if !ok {
		return nil
	}
	ledger := provider.Ledger()
	if ledger == nil {
		return nil
	}
	return ledger
}
