package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// RepositoryFactory builds the SQL-backed stores off one bun handle. It
// accepts either a raw *bun.DB or the persistence client wrapping one.
type RepositoryFactory struct {
	db *bun.DB

	deliveryStore *WebhookDeliveryStore
	orderStore    *FulfillmentOrderStore
	outboxStore   *NotificationOutboxStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.deliveryStore != nil && f.orderStore != nil && f.outboxStore != nil {
		return nil
	}

	deliveryStore, err := NewWebhookDeliveryStore(f.db)
	if err != nil {
		return err
	}
	orderStore, err := NewFulfillmentOrderStore(f.db)
	if err != nil {
		return err
	}
	outboxStore, err := NewNotificationOutboxStore(f.db)
	if err != nil {
		return err
	}

	f.deliveryStore = deliveryStore
	f.orderStore = orderStore
	f.outboxStore = outboxStore
	return nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) DeliveryLedger() core.DeliveryLedger {
	if f == nil || f.deliveryStore == nil {
		return nil
	}
	return f.deliveryStore
}

func (f *RepositoryFactory) FulfillmentStore() core.FulfillmentStore {
	if f == nil || f.orderStore == nil {
		return nil
	}
	return f.orderStore
}

func (f *RepositoryFactory) OutboxStore() core.OutboxStore {
	if f == nil || f.outboxStore == nil {
		return nil
	}
	return f.outboxStore
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
