package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// outboxStatusProcessing marks claimed rows. It never leaves this package;
// the domain only sees pending, delivered and dead.
const outboxStatusProcessing = "processing"

type NotificationOutboxStore struct {
	db   *bun.DB
	repo repository.Repository[*notificationOutboxRecord]
}

func NewNotificationOutboxStore(db *bun.DB) (*NotificationOutboxStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*notificationOutboxRecord](db, notificationOutboxHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid notification outbox repository wiring: %w", err)
		}
	}
	return &NotificationOutboxStore{db: db, repo: repo}, nil
}

func (s *NotificationOutboxStore) Enqueue(ctx context.Context, event core.OutboxEvent) (core.OutboxEvent, error) {
	if s == nil || s.repo == nil {
		return core.OutboxEvent{}, fmt.Errorf("sqlstore: notification outbox store is not configured")
	}
	if strings.TrimSpace(event.Kind) == "" {
		return core.OutboxEvent{}, fmt.Errorf("sqlstore: outbox event kind is required")
	}

	now := time.Now().UTC()
	record := &notificationOutboxRecord{
		ID:        strings.TrimSpace(event.ID),
		Kind:      strings.TrimSpace(event.Kind),
		SessionID: strings.TrimSpace(event.SessionID),
		Payload:   copyAnyMap(event.Payload),
		Status:    core.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		return core.OutboxEvent{}, err
	}
	return notificationOutboxToDomain(record), nil
}

func (s *NotificationOutboxStore) ClaimBatch(ctx context.Context, limit int) ([]core.OutboxEvent, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: notification outbox store is not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	now := time.Now().UTC()
	var records []notificationOutboxRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		query := `
WITH claimed AS (
	SELECT id
	FROM fulfillment_notification_outbox
	WHERE status = ?
	  AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
	ORDER BY created_at ASC
	LIMIT ?
)
UPDATE fulfillment_notification_outbox
SET status = ?, updated_at = ?
WHERE id IN (SELECT id FROM claimed)
  AND status = ?
RETURNING
	id,
	kind,
	session_id,
	payload,
	status,
	attempts,
	last_error,
	next_attempt_at,
	created_at,
	updated_at
`
		return tx.NewRaw(
			query,
			core.OutboxStatusPending,
			now,
			limit,
			outboxStatusProcessing,
			now,
			core.OutboxStatusPending,
		).Scan(ctx, &records)
	})
	if err != nil {
		return nil, err
	}

	events := make([]core.OutboxEvent, 0, len(records))
	for i := range records {
		event := notificationOutboxToDomain(&records[i])
		// Claimed rows keep their pending face toward callers.
		event.Status = core.OutboxStatusPending
		events = append(events, event)
	}
	return events, nil
}

func (s *NotificationOutboxStore) Ack(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: notification outbox store is not configured")
	}
	result, err := s.db.NewUpdate().
		Model((*notificationOutboxRecord)(nil)).
		Set("status = ?", core.OutboxStatusDelivered).
		Set("last_error = ?", "").
		Set("next_attempt_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireOutboxRow(result, id)
}

func (s *NotificationOutboxStore) Nack(
	ctx context.Context,
	id string,
	cause error,
	nextAttemptAt time.Time,
	maxAttempts int,
) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: notification outbox store is not configured")
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &notificationOutboxRecord{}
		if err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", strings.TrimSpace(id)).
			Limit(1).
			Scan(ctx); err != nil {
			return goerrors.New(
				fmt.Sprintf("sqlstore: no outbox event %q", id),
				goerrors.CategoryNotFound,
			)
		}

		attempts := record.Attempts + 1
		status := core.OutboxStatusPending
		var retryAt *time.Time
		if maxAttempts > 0 && attempts >= maxAttempts {
			status = core.OutboxStatusDead
		} else {
			at := nextAttemptAt.UTC()
			retryAt = &at
		}

		_, err := tx.NewUpdate().
			Model((*notificationOutboxRecord)(nil)).
			Set("status = ?", status).
			Set("attempts = ?", attempts).
			Set("last_error = ?", message).
			Set("next_attempt_at = ?", retryAt).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", record.ID).
			Exec(ctx)
		return err
	})
}

func requireOutboxRow(result interface{ RowsAffected() (int64, error) }, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return goerrors.New(
			fmt.Sprintf("sqlstore: no outbox event %q", id),
			goerrors.CategoryNotFound,
		)
	}
	return nil
}

func notificationOutboxToDomain(record *notificationOutboxRecord) core.OutboxEvent {
	if record == nil {
		return core.OutboxEvent{}
	}
	return core.OutboxEvent{
		ID:            record.ID,
		Kind:          record.Kind,
		SessionID:     record.SessionID,
		Payload:       copyAnyMap(record.Payload),
		Status:        record.Status,
		Attempts:      record.Attempts,
		LastError:     record.LastError,
		NextAttemptAt: record.NextAttemptAt,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func copyAnyMap(values map[string]any) map[string]any {
	if len(values) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(values))
	for key, value := range values {
		copied[key] = value
	}
	return copied
}

var _ core.OutboxStore = (*NotificationOutboxStore)(nil)
