package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// WebhookDeliveryStore is the durable idempotency ledger. The unique index on
// (provider_id, delivery_id) makes Reserve a race-safe claim: the losing
// insert reads the winner's row and reports a duplicate, unless the row is
// failed, in which case the redelivery reclaims it for another attempt.
type WebhookDeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookDeliveryRecord]
}

func NewWebhookDeliveryStore(db *bun.DB) (*WebhookDeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookDeliveryRecord](db, webhookDeliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook delivery repository wiring: %w", err)
		}
	}
	return &WebhookDeliveryStore{db: db, repo: repo}, nil
}

func (s *WebhookDeliveryStore) Reserve(
	ctx context.Context,
	providerID string,
	deliveryID string,
	payload []byte,
) (core.DeliveryRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.DeliveryRecord{}, false, fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	providerID = strings.TrimSpace(providerID)
	deliveryID = strings.TrimSpace(deliveryID)
	if providerID == "" || deliveryID == "" {
		return core.DeliveryRecord{}, false, fmt.Errorf("sqlstore: provider id and delivery id are required")
	}

	now := time.Now().UTC()
	record := &webhookDeliveryRecord{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		DeliveryID: deliveryID,
		Status:     core.DeliveryStatusPending,
		Attempts:   1,
		Payload:    append([]byte(nil), payload...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			reclaimed, claimErr := s.reclaimFailed(ctx, providerID, deliveryID)
			if claimErr != nil {
				return core.DeliveryRecord{}, false, claimErr
			}
			existing, getErr := s.Get(ctx, providerID, deliveryID)
			if getErr != nil {
				return core.DeliveryRecord{}, false, getErr
			}
			return existing, !reclaimed, nil
		}
		return core.DeliveryRecord{}, false, err
	}
	return webhookDeliveryToDomain(record), false, nil
}

// reclaimFailed flips a failed delivery back to pending so the provider's
// redelivery can retry it. The status predicate makes the flip race-safe:
// only one concurrent redelivery wins the claim.
func (s *WebhookDeliveryStore) reclaimFailed(ctx context.Context, providerID string, deliveryID string) (bool, error) {
	result, err := s.db.NewUpdate().
		Model((*webhookDeliveryRecord)(nil)).
		Set("status = ?", core.DeliveryStatusPending).
		Set("last_error = ?", "").
		Set("attempts = attempts + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("provider_id = ?", providerID).
		Where("delivery_id = ?", deliveryID).
		Where("status = ?", core.DeliveryStatusFailed).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *WebhookDeliveryStore) Get(
	ctx context.Context,
	providerID string,
	deliveryID string,
) (core.DeliveryRecord, error) {
	if s == nil || s.db == nil {
		return core.DeliveryRecord{}, fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	record := &webhookDeliveryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider_id = ?", strings.TrimSpace(providerID)).
		Where("?TableAlias.delivery_id = ?", strings.TrimSpace(deliveryID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.DeliveryRecord{}, goerrors.New(
				fmt.Sprintf("sqlstore: webhook delivery not found for provider %q delivery %q", providerID, deliveryID),
				goerrors.CategoryNotFound,
			)
		}
		return core.DeliveryRecord{}, err
	}
	return webhookDeliveryToDomain(record), nil
}

func (s *WebhookDeliveryStore) MarkProcessed(
	ctx context.Context,
	providerID string,
	deliveryID string,
) error {
	return s.transition(ctx, providerID, deliveryID, core.DeliveryStatusProcessed, "")
}

func (s *WebhookDeliveryStore) MarkFailed(
	ctx context.Context,
	providerID string,
	deliveryID string,
	cause error,
) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return s.transition(ctx, providerID, deliveryID, core.DeliveryStatusFailed, message)
}

func (s *WebhookDeliveryStore) transition(
	ctx context.Context,
	providerID string,
	deliveryID string,
	status string,
	lastError string,
) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	result, err := s.db.NewUpdate().
		Model((*webhookDeliveryRecord)(nil)).
		Set("status = ?", status).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", time.Now().UTC()).
		Where("provider_id = ?", strings.TrimSpace(providerID)).
		Where("delivery_id = ?", strings.TrimSpace(deliveryID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf(
			"sqlstore: webhook delivery not found for provider %q delivery %q",
			providerID,
			deliveryID,
		)
	}
	return nil
}

// PurgeProcessedBefore deletes resolved deliveries older than the cutoff.
// Pending rows stay regardless of age.
func (s *WebhookDeliveryStore) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*webhookDeliveryRecord)(nil)).
		Where("status != ?", core.DeliveryStatusPending).
		Where("updated_at < ?", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func webhookDeliveryToDomain(record *webhookDeliveryRecord) core.DeliveryRecord {
	if record == nil {
		return core.DeliveryRecord{}
	}
	return core.DeliveryRecord{
		ID:         record.ID,
		ProviderID: record.ProviderID,
		DeliveryID: record.DeliveryID,
		Status:     record.Status,
		Attempts:   record.Attempts,
		LastError:  record.LastError,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var (
	_ core.DeliveryLedger = (*WebhookDeliveryStore)(nil)
	_ core.LedgerJanitor  = (*WebhookDeliveryStore)(nil)
)
