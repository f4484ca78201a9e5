package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultMemoryLedgerMaxEntries = 8192

// MemoryDeliveryLedger is the in-process DeliveryLedger used by tests and
// single-instance deployments. Production deployments behind more than one
// replica need the SQL-backed ledger; this one dedupes only within a process.
type MemoryDeliveryLedger struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*DeliveryRecord
	Now        func() time.Time
}

func NewMemoryDeliveryLedger() *MemoryDeliveryLedger {
	return NewMemoryDeliveryLedgerWithLimits(defaultMemoryLedgerMaxEntries)
}

func NewMemoryDeliveryLedgerWithLimits(maxEntries int) *MemoryDeliveryLedger {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryLedgerMaxEntries
	}
	return &MemoryDeliveryLedger{
		maxEntries: maxEntries,
		entries:    map[string]*DeliveryRecord{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryDeliveryLedger) Reserve(
	_ context.Context,
	providerID string,
	deliveryID string,
	_ []byte,
) (DeliveryRecord, bool, error) {
	if l == nil {
		return DeliveryRecord{}, false, fmt.Errorf("core: delivery ledger is not configured")
	}
	key, err := ledgerKey(providerID, deliveryID)
	if err != nil {
		return DeliveryRecord{}, false, err
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.entries[key]; ok {
		if existing.Status != DeliveryStatusFailed {
			return *existing, true, nil
		}
		// A failed delivery releases its claim: the provider redelivers the
		// same event id and the retry gets a fresh attempt.
		existing.Status = DeliveryStatusPending
		existing.LastError = ""
		existing.Attempts++
		existing.UpdatedAt = now
		return *existing, false, nil
	}
	l.enforceCapacityLocked(1)
	record := &DeliveryRecord{
		ID:         uuid.NewString(),
		ProviderID: strings.TrimSpace(providerID),
		DeliveryID: strings.TrimSpace(deliveryID),
		Status:     DeliveryStatusPending,
		Attempts:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	l.entries[key] = record
	return *record, false, nil
}

func (l *MemoryDeliveryLedger) Get(
	_ context.Context,
	providerID string,
	deliveryID string,
) (DeliveryRecord, error) {
	if l == nil {
		return DeliveryRecord{}, fmt.Errorf("core: delivery ledger is not configured")
	}
	key, err := ledgerKey(providerID, deliveryID)
	if err != nil {
		return DeliveryRecord{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.entries[key]
	if !ok {
		return DeliveryRecord{}, fmt.Errorf(
			"core: delivery not found for provider %q delivery %q",
			providerID,
			deliveryID,
		)
	}
	return *record, nil
}

func (l *MemoryDeliveryLedger) MarkProcessed(
	_ context.Context,
	providerID string,
	deliveryID string,
) error {
	return l.transition(providerID, deliveryID, DeliveryStatusProcessed, "")
}

func (l *MemoryDeliveryLedger) MarkFailed(
	_ context.Context,
	providerID string,
	deliveryID string,
	cause error,
) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return l.transition(providerID, deliveryID, DeliveryStatusFailed, message)
}

func (l *MemoryDeliveryLedger) PurgeProcessedBefore(_ context.Context, cutoff time.Time) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("core: delivery ledger is not configured")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for key, record := range l.entries {
		if record.Status == DeliveryStatusPending {
			continue
		}
		if record.UpdatedAt.Before(cutoff) {
			delete(l.entries, key)
			pruned++
		}
	}
	return pruned, nil
}

func (l *MemoryDeliveryLedger) transition(providerID string, deliveryID string, status string, lastError string) error {
	if l == nil {
		return fmt.Errorf("core: delivery ledger is not configured")
	}
	key, err := ledgerKey(providerID, deliveryID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.entries[key]
	if !ok {
		return fmt.Errorf(
			"core: delivery not found for provider %q delivery %q",
			providerID,
			deliveryID,
		)
	}
	record.Status = status
	record.LastError = lastError
	record.UpdatedAt = l.now()
	return nil
}

func (l *MemoryDeliveryLedger) enforceCapacityLocked(incoming int) {
	target := l.maxEntries - incoming
	if target < 0 {
		target = 0
	}
	for len(l.entries) > target {
		var oldestKey string
		var oldestAt time.Time
		for key, record := range l.entries {
			if oldestKey == "" || record.CreatedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = record.CreatedAt
			}
		}
		if oldestKey == "" {
			return
		}
		delete(l.entries, oldestKey)
	}
}

func (l *MemoryDeliveryLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func ledgerKey(providerID string, deliveryID string) (string, error) {
	providerID = strings.TrimSpace(providerID)
	deliveryID = strings.TrimSpace(deliveryID)
	if providerID == "" || deliveryID == "" {
		return "", fmt.Errorf("core: provider id and delivery id are required")
	}
	return providerID + "::" + deliveryID, nil
}

var (
	_ DeliveryLedger = (*MemoryDeliveryLedger)(nil)
	_ LedgerJanitor  = (*MemoryDeliveryLedger)(nil)
)
