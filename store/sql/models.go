package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type webhookDeliveryRecord struct {
	bun.BaseModel `bun:"table:fulfillment_webhook_deliveries,alias:fwd"`

	ID         string    `bun:"id,pk"`
	ProviderID string    `bun:"provider_id,notnull"`
	DeliveryID string    `bun:"delivery_id,notnull"`
	Status     string    `bun:"status,notnull"`
	Attempts   int       `bun:"attempts,notnull"`
	LastError  string    `bun:"last_error"`
	Payload    []byte    `bun:"payload"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type fulfillmentOrderRecord struct {
	bun.BaseModel `bun:"table:fulfillment_orders,alias:fo"`

	ID             string         `bun:"id,pk"`
	SessionID      string         `bun:"session_id,notnull"`
	ShipmentID     string         `bun:"shipment_id"`
	RateID         string         `bun:"rate_id"`
	Status         string         `bun:"status,notnull"`
	LabelURL       string         `bun:"label_url"`
	TrackingNumber string         `bun:"tracking_number"`
	CustomerName   string         `bun:"customer_name"`
	CustomerEmail  string         `bun:"customer_email"`
	AmountTotal    int64          `bun:"amount_total,notnull"`
	Currency       string         `bun:"currency"`
	Destination    map[string]any `bun:"destination,type:jsonb,notnull"`
	LastError      string         `bun:"last_error"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type notificationOutboxRecord struct {
	bun.BaseModel `bun:"table:fulfillment_notification_outbox,alias:fno"`

	ID            string         `bun:"id,pk"`
	Kind          string         `bun:"kind,notnull"`
	SessionID     string         `bun:"session_id"`
	Payload       map[string]any `bun:"payload,type:jsonb,notnull"`
	Status        string         `bun:"status,notnull"`
	Attempts      int            `bun:"attempts,notnull"`
	LastError     string         `bun:"last_error"`
	NextAttemptAt *time.Time     `bun:"next_attempt_at,nullzero"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
