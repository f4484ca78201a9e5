package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MemoryFulfillmentStore keeps fulfillment records in process, keyed by
// payment session. Tests and single-instance deployments use it; everything
// else uses the SQL-backed store.
type MemoryFulfillmentStore struct {
	mu      sync.Mutex
	records map[string]FulfillmentRecord
	Now     func() time.Time
}

func NewMemoryFulfillmentStore() *MemoryFulfillmentStore {
	return &MemoryFulfillmentStore{
		records: map[string]FulfillmentRecord{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *MemoryFulfillmentStore) Upsert(_ context.Context, record FulfillmentRecord) (FulfillmentRecord, error) {
	if s == nil {
		return FulfillmentRecord{}, fmt.Errorf("core: fulfillment store is not configured")
	}
	sessionID := strings.TrimSpace(record.SessionID)
	if sessionID == "" {
		return FulfillmentRecord{}, fmt.Errorf("core: fulfillment record requires a session id")
	}
	record.SessionID = sessionID
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[sessionID]
	if ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		if strings.TrimSpace(record.ID) == "" {
			record.ID = uuid.NewString()
		}
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	s.records[sessionID] = record
	return record, nil
}

func (s *MemoryFulfillmentStore) GetBySession(_ context.Context, sessionID string) (FulfillmentRecord, error) {
	if s == nil {
		return FulfillmentRecord{}, fmt.Errorf("core: fulfillment store is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[sessionID]
	if !ok {
		return FulfillmentRecord{}, goerrors.New(
			fmt.Sprintf("core: no fulfillment record for session %q", sessionID),
			goerrors.CategoryNotFound,
		)
	}
	return record, nil
}

// ListUnlabeled returns records stuck before label purchase, oldest first, so
// the reconciliation sweep retries them in arrival order.
func (s *MemoryFulfillmentStore) ListUnlabeled(_ context.Context, limit int) ([]FulfillmentRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("core: fulfillment store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := make([]FulfillmentRecord, 0)
	for _, record := range s.records {
		if record.Status == FulfillmentStatusLabelPurchased {
			continue
		}
		matches = append(matches, record)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *MemoryFulfillmentStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// MemoryOutboxStore is the in-process notification outbox. ClaimBatch leases
// due pending events; a claimed event stays invisible until acked or nacked.
type MemoryOutboxStore struct {
	mu      sync.Mutex
	events  map[string]*OutboxEvent
	claimed map[string]bool
	Now     func() time.Time
}

func NewMemoryOutboxStore() *MemoryOutboxStore {
	return &MemoryOutboxStore{
		events:  map[string]*OutboxEvent{},
		claimed: map[string]bool{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *MemoryOutboxStore) Enqueue(_ context.Context, event OutboxEvent) (OutboxEvent, error) {
	if s == nil {
		return OutboxEvent{}, fmt.Errorf("core: outbox store is not configured")
	}
	if strings.TrimSpace(event.Kind) == "" {
		return OutboxEvent{}, fmt.Errorf("core: outbox event kind is required")
	}
	now := s.now()
	if strings.TrimSpace(event.ID) == "" {
		event.ID = uuid.NewString()
	}
	event.Status = OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := event
	s.events[event.ID] = &stored
	return stored, nil
}

func (s *MemoryOutboxStore) ClaimBatch(_ context.Context, limit int) ([]OutboxEvent, error) {
	if s == nil {
		return nil, fmt.Errorf("core: outbox store is not configured")
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]OutboxEvent, 0)
	for id, event := range s.events {
		if event.Status != OutboxStatusPending || s.claimed[id] {
			continue
		}
		if event.NextAttemptAt != nil && event.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, *event)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for _, event := range due {
		s.claimed[event.ID] = true
	}
	return due, nil
}

func (s *MemoryOutboxStore) Ack(_ context.Context, id string) error {
	return s.resolve(id, func(event *OutboxEvent) {
		event.Status = OutboxStatusDelivered
		event.LastError = ""
		event.NextAttemptAt = nil
	})
}

func (s *MemoryOutboxStore) Nack(_ context.Context, id string, cause error, nextAttemptAt time.Time, maxAttempts int) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return s.resolve(id, func(event *OutboxEvent) {
		event.Attempts++
		event.LastError = message
		if maxAttempts > 0 && event.Attempts >= maxAttempts {
			event.Status = OutboxStatusDead
			event.NextAttemptAt = nil
			return
		}
		at := nextAttemptAt.UTC()
		event.NextAttemptAt = &at
	})
}

func (s *MemoryOutboxStore) resolve(id string, apply func(event *OutboxEvent)) error {
	if s == nil {
		return fmt.Errorf("core: outbox store is not configured")
	}
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return goerrors.New(
			fmt.Sprintf("core: no outbox event %q", id),
			goerrors.CategoryNotFound,
		)
	}
	apply(event)
	event.UpdatedAt = s.now()
	delete(s.claimed, id)
	return nil
}

func (s *MemoryOutboxStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var (
	_ FulfillmentStore = (*MemoryFulfillmentStore)(nil)
	_ OutboxStore      = (*MemoryOutboxStore)(nil)
)
