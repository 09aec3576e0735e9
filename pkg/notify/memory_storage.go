package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage in process memory. It backs the test
// suites and local development; production deployments use the pgstore
// implementation.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Notification
	order   []uuid.UUID // insertion order, used as the created_at tie-break
}

// NewMemoryStorage creates a new in-memory storage implementation.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[uuid.UUID]*Notification),
	}
}

// CreateBatch implements Storage. The write happens under one lock
// acquisition, so readers observe either the whole fan-out or none of it.
func (ms *MemoryStorage) CreateBatch(ctx context.Context, records []Notification) error {
	if len(records) == 0 {
		return nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	for i := range records {
		if _, exists := ms.records[records[i].ID]; exists {
			return ErrAlreadyExists
		}
	}
	for i := range records {
		rec := records[i]
		ms.records[rec.ID] = &rec
		ms.order = append(ms.order, rec.ID)
	}
	return nil
}

// ClaimBatch implements Storage. Selection is priority-first with
// oldest-first tie-break, and the transition to processing happens under
// the same lock as the selection, so concurrent claims partition the
// eligible set without overlap. Processing records whose lock has
// expired are claimed again, so a crashed worker cannot strand them.
func (ms *MemoryStorage) ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int, lockFor time.Duration) ([]Notification, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()

	eligible := make([]*Notification, 0, limit)
	for _, id := range ms.order {
		rec := ms.records[id]
		if rec.Eligible(now) {
			eligible = append(eligible, rec)
		}
	}

	// ms.order preserves creation order, so a stable sort by priority
	// keeps the oldest record first within each priority tier.
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority < eligible[j].Priority
	})

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	lockUntil := now.Add(lockFor)
	claimed := make([]Notification, 0, len(eligible))
	for _, rec := range eligible {
		rec.Status = StatusProcessing
		rec.LockedUntil = &lockUntil
		rec.LockedBy = &workerID
		claimed = append(claimed, *rec)
	}

	return claimed, nil
}

// MarkSent implements Storage.
func (ms *MemoryStorage) MarkSent(ctx context.Context, id uuid.UUID, delivered bool) error {
	return ms.finish(id, func(rec *Notification) {
		now := time.Now()
		if delivered {
			rec.Status = StatusDelivered
		} else {
			rec.Status = StatusSent
		}
		rec.SentAt = &now
		rec.LastError = nil
	})
}

// Fail implements Storage.
func (ms *MemoryStorage) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	return ms.finish(id, func(rec *Notification) {
		rec.Status = StatusFailed
		rec.LastError = &reason
	})
}

// Release implements Storage.
func (ms *MemoryStorage) Release(ctx context.Context, id uuid.UUID, reason string, notBefore time.Time) error {
	return ms.finish(id, func(rec *Notification) {
		rec.Status = StatusPending
		rec.LastError = &reason
		rec.ScheduledAt = notBefore
	})
}

// finish applies a transition out of the processing state. The condition
// check and the mutation share one lock acquisition, which is what makes
// the transition atomic per record.
func (ms *MemoryStorage) finish(id uuid.UUID, apply func(*Notification)) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, exists := ms.records[id]
	if !exists {
		return ErrNotFound
	}
	if rec.Status != StatusProcessing {
		return ErrNotClaimable
	}

	rec.Attempts++
	rec.LockedUntil = nil
	rec.LockedBy = nil
	apply(rec)
	return nil
}

// Requeue implements Storage.
func (ms *MemoryStorage) Requeue(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, exists := ms.records[id]
	if !exists {
		return ErrNotFound
	}
	if rec.Status != StatusFailed {
		return ErrNotFailed
	}

	rec.Status = StatusPending
	rec.Attempts = 0
	rec.LastError = nil
	rec.ScheduledAt = time.Now()
	return nil
}

// Get implements Storage.
func (ms *MemoryStorage) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, exists := ms.records[id]
	if !exists {
		return nil, ErrNotFound
	}

	cp := *rec
	return &cp, nil
}

// List implements Storage. Records are returned newest first.
func (ms *MemoryStorage) List(ctx context.Context, filter Filter) ([]Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	matched := make([]Notification, 0, len(ms.order))
	// Walk insertion order backwards: newest first without a sort.
	for i := len(ms.order) - 1; i >= 0; i-- {
		rec := ms.records[ms.order[i]]
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && rec.Channel != filter.Channel {
			continue
		}
		if filter.Type != "" && rec.Type != filter.Type {
			continue
		}
		matched = append(matched, *rec)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

// Stats implements Storage.
func (ms *MemoryStorage) Stats(ctx context.Context) (*Stats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	stats := &Stats{
		Total:     len(ms.records),
		ByStatus:  make(map[Status]int),
		ByChannel: make(map[Channel]int),
		ByType:    make(map[Type]int),
	}
	for _, rec := range ms.records {
		stats.ByStatus[rec.Status]++
		stats.ByChannel[rec.Channel]++
		stats.ByType[rec.Type]++
	}
	return stats, nil
}
