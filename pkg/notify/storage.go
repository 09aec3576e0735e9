package notify

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Storage is the system of record for notification lifecycle state.
// All mutation happens through single-record conditional transitions, so
// implementations need no cross-record locking beyond the batch insert.
type Storage interface {
	// CreateBatch persists the full fan-out matrix atomically: either
	// every record becomes visible or none does.
	CreateBatch(ctx context.Context, records []Notification) error

	// ClaimBatch atomically selects up to limit eligible records
	// (pending/scheduled with an elapsed not-before gate), transitions
	// them to processing and locks them for the given worker. Ordering
	// is priority ascending, then created_at ascending. Two concurrent
	// claims never return the same record.
	ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int, lockFor time.Duration) ([]Notification, error)

	// MarkSent finishes a processing record as sent, or delivered when
	// the adapter confirmed receipt synchronously. Sets sent_at exactly
	// once and increments the attempt counter.
	MarkSent(ctx context.Context, id uuid.UUID, delivered bool) error

	// Fail terminally fails a processing record, recording the reason
	// and incrementing the attempt counter.
	Fail(ctx context.Context, id uuid.UUID, reason string) error

	// Release returns a processing record to pending for a later claim,
	// recording the failure reason, incrementing the attempt counter and
	// gating the next claim behind notBefore.
	Release(ctx context.Context, id uuid.UUID, reason string, notBefore time.Time) error

	// Requeue is the operator override for failed records: resets the
	// attempt counter and returns the record to pending. It is the only
	// transition out of a terminal state.
	Requeue(ctx context.Context, id uuid.UUID) error

	// Get retrieves a single record.
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)

	// List returns records matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]Notification, error)

	// Stats returns aggregate counts for the reporting views.
	Stats(ctx context.Context) (*Stats, error)
}

// Filter narrows List results. Zero values mean no filtering.
type Filter struct {
	Status  Status
	Channel Channel
	Type    Type
	Limit   int
	Offset  int
}

// Stats is a read-only reporting view over the repository. It must never
// drive dispatch decisions.
type Stats struct {
	Total     int             `json:"total"`
	ByStatus  map[Status]int  `json:"by_status"`
	ByChannel map[Channel]int `json:"by_channel"`
	ByType    map[Type]int    `json:"by_type"`
}

// TypeCount pairs a notification type with its record count.
type TypeCount struct {
	Type  Type `json:"type"`
	Count int  `json:"count"`
}

// TopTypes returns the n highest-volume notification types, descending.
// Ties break alphabetically so the output is stable.
func (s *Stats) TopTypes(n int) []TypeCount {
	counts := make([]TypeCount, 0, len(s.ByType))
	for t, c := range s.ByType {
		counts = append(counts, TypeCount{Type: t, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Type < counts[j].Type
	})
	if n > 0 && n < len(counts) {
		counts = counts[:n]
	}
	return counts
}
