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

// FulfillmentOrderStore persists fulfillment outcomes keyed by payment
// session. Upsert keeps one row per session; the unique index on session_id
// resolves concurrent writers.
type FulfillmentOrderStore struct {
	db   *bun.DB
	repo repository.Repository[*fulfillmentOrderRecord]
}

func NewFulfillmentOrderStore(db *bun.DB) (*FulfillmentOrderStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*fulfillmentOrderRecord](db, fulfillmentOrderHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid fulfillment order repository wiring: %w", err)
		}
	}
	return &FulfillmentOrderStore{db: db, repo: repo}, nil
}

func (s *FulfillmentOrderStore) Upsert(ctx context.Context, record core.FulfillmentRecord) (core.FulfillmentRecord, error) {
	if s == nil || s.db == nil {
		return core.FulfillmentRecord{}, fmt.Errorf("sqlstore: fulfillment order store is not configured")
	}
	sessionID := strings.TrimSpace(record.SessionID)
	if sessionID == "" {
		return core.FulfillmentRecord{}, fmt.Errorf("sqlstore: fulfillment record requires a session id")
	}
	record.SessionID = sessionID

	var out core.FulfillmentRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()
		existing := &fulfillmentOrderRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.session_id = ?", sessionID).
			Limit(1).
			Scan(ctx)
		switch {
		case err == sql.ErrNoRows:
			row := fulfillmentOrderFromDomain(record)
			if strings.TrimSpace(row.ID) == "" {
				row.ID = uuid.NewString()
			}
			row.CreatedAt = now
			row.UpdatedAt = now
			if _, insertErr := tx.NewInsert().Model(row).Exec(ctx); insertErr != nil {
				if !isUniqueViolation(insertErr) {
					return insertErr
				}
				// Lost the insert race; fall through to an update against
				// the winner's row.
				if scanErr := tx.NewSelect().
					Model(existing).
					Where("?TableAlias.session_id = ?", sessionID).
					Limit(1).
					Scan(ctx); scanErr != nil {
					return insertErr
				}
			} else {
				out = fulfillmentOrderToDomain(row)
				return nil
			}
		case err != nil:
			return err
		}

		row := fulfillmentOrderFromDomain(record)
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		row.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().
			Model(row).
			WherePK().
			Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = fulfillmentOrderToDomain(row)
		return nil
	})
	if err != nil {
		return core.FulfillmentRecord{}, err
	}
	return out, nil
}

func (s *FulfillmentOrderStore) GetBySession(ctx context.Context, sessionID string) (core.FulfillmentRecord, error) {
	if s == nil || s.db == nil {
		return core.FulfillmentRecord{}, fmt.Errorf("sqlstore: fulfillment order store is not configured")
	}
	record := &fulfillmentOrderRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.session_id = ?", strings.TrimSpace(sessionID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.FulfillmentRecord{}, goerrors.New(
				fmt.Sprintf("sqlstore: no fulfillment record for session %q", sessionID),
				goerrors.CategoryNotFound,
			)
		}
		return core.FulfillmentRecord{}, err
	}
	return fulfillmentOrderToDomain(record), nil
}

func (s *FulfillmentOrderStore) ListUnlabeled(ctx context.Context, limit int) ([]core.FulfillmentRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: fulfillment order store is not configured")
	}
	if limit <= 0 {
		limit = 25
	}
	var records []fulfillmentOrderRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status != ?", core.FulfillmentStatusLabelPurchased).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.FulfillmentRecord, 0, len(records))
	for i := range records {
		out = append(out, fulfillmentOrderToDomain(&records[i]))
	}
	return out, nil
}

func fulfillmentOrderFromDomain(record core.FulfillmentRecord) *fulfillmentOrderRecord {
	return &fulfillmentOrderRecord{
		ID:             strings.TrimSpace(record.ID),
		SessionID:      record.SessionID,
		ShipmentID:     record.ShipmentID,
		RateID:         record.RateID,
		Status:         record.Status,
		LabelURL:       record.LabelURL,
		TrackingNumber: record.TrackingNumber,
		CustomerName:   record.CustomerName,
		CustomerEmail:  record.CustomerEmail,
		AmountTotal:    record.AmountTotal,
		Currency:       record.Currency,
		Destination:    addressToMap(record.Destination),
		LastError:      record.LastError,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func fulfillmentOrderToDomain(record *fulfillmentOrderRecord) core.FulfillmentRecord {
	if record == nil {
		return core.FulfillmentRecord{}
	}
	return core.FulfillmentRecord{
		ID:             record.ID,
		SessionID:      record.SessionID,
		ShipmentID:     record.ShipmentID,
		RateID:         record.RateID,
		Status:         record.Status,
		LabelURL:       record.LabelURL,
		TrackingNumber: record.TrackingNumber,
		CustomerName:   record.CustomerName,
		CustomerEmail:  record.CustomerEmail,
		AmountTotal:    record.AmountTotal,
		Currency:       record.Currency,
		Destination:    addressFromMap(record.Destination),
		LastError:      record.LastError,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func addressToMap(address core.Address) map[string]any {
	return map[string]any{
		"name":        address.Name,
		"street1":     address.Street1,
		"street2":     address.Street2,
		"city":        address.City,
		"state":       address.State,
		"postal_code": address.PostalCode,
		"country":     address.Country,
		"phone":       address.Phone,
		"email":       address.Email,
	}
}

func addressFromMap(values map[string]any) core.Address {
	get := func(key string) string {
		value, ok := values[key].(string)
		if !ok {
			return ""
		}
		return value
	}
	return core.Address{
		Name:       get("name"),
		Street1:    get("street1"),
		Street2:    get("street2"),
		City:       get("city"),
		State:      get("state"),
		PostalCode: get("postal_code"),
		Country:    get("country"),
		Phone:      get("phone"),
		Email:      get("email"),
	}
}

var _ core.FulfillmentStore = (*FulfillmentOrderStore)(nil)
