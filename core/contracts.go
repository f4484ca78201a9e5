package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

// InboundRequest carries one provider delivery exactly as received. Body is
// the raw bytes; signature verification is bound to them byte for byte.
type InboundRequest struct {
	ProviderID string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Metadata   map[string]any
}

const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusProcessed = "processed"
	DeliveryStatusFailed    = "failed"
)

type DeliveryRecord struct {
	ID         string
	ProviderID string
	DeliveryID string
	Status     string
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DeliveryLedger is the durable idempotency store guarding fulfillment
// side effects. Reserve claims a delivery atomically: the second return is
// true when the delivery id was already claimed, in which case the caller
// must acknowledge without acting.
type DeliveryLedger interface {
	Reserve(ctx context.Context, providerID string, deliveryID string, payload []byte) (DeliveryRecord, bool, error)
	Get(ctx context.Context, providerID string, deliveryID string) (DeliveryRecord, error)
	MarkProcessed(ctx context.Context, providerID string, deliveryID string) error
	MarkFailed(ctx context.Context, providerID string, deliveryID string, cause error) error
}

// LedgerJanitor trims processed entries older than the provider's maximum
// redelivery interval.
type LedgerJanitor interface {
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// CarrierClient is the outbound contract to the carrier rate provider. Both
// calls are potentially chargeable; callers must dedupe before invoking them.
type CarrierClient interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) ([]RateQuote, error)
	PurchaseLabel(ctx context.Context, rateID string) (LabelTransaction, error)
}

type FulfillmentStore interface {
	Upsert(ctx context.Context, record FulfillmentRecord) (FulfillmentRecord, error)
	GetBySession(ctx context.Context, sessionID string) (FulfillmentRecord, error)
	ListUnlabeled(ctx context.Context, limit int) ([]FulfillmentRecord, error)
}

const (
	OutboxStatusPending   = "pending"
	OutboxStatusDelivered = "delivered"
	OutboxStatusDead      = "dead"
)

const OutboxKindOrderConfirmation = "order.confirmation"

type OutboxEvent struct {
	ID            string
	Kind          string
	SessionID     string
	Payload       map[string]any
	Status        string
	Attempts      int
	LastError     string
	NextAttemptAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OutboxStore interface {
	Enqueue(ctx context.Context, event OutboxEvent) (OutboxEvent, error)
	ClaimBatch(ctx context.Context, limit int) ([]OutboxEvent, error)
	Ack(ctx context.Context, id string) error
	Nack(ctx context.Context, id string, cause error, nextAttemptAt time.Time, maxAttempts int) error
}

// Notifier delivers one claimed outbox event to the customer-facing channel.
type Notifier interface {
	Notify(ctx context.Context, event OutboxEvent) error
}

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}
