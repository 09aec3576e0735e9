package pgstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// Storage implements notify.Storage on PostgreSQL. Claim exclusivity
// comes from FOR UPDATE SKIP LOCKED inside a single conditional update,
// so concurrent processing runs partition the eligible set without
// blocking each other.
type Storage struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL-backed notification storage.
func New(pool *pgxpool.Pool) (*Storage, error) {
	if pool == nil {
		return nil, notify.ErrStorageNil
	}
	return &Storage{pool: pool}, nil
}

const insertQuery = `
	INSERT INTO notifications (
		id, recipient_user_id, type, channel, title, message, status,
		priority, scope, attempts, max_attempts, scheduled_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// CreateBatch implements notify.Storage. All records are inserted inside
// one transaction, so a partial fan-out is never visible to the claim query.
func (s *Storage) CreateBatch(ctx context.Context, records []notify.Notification) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin fan-out transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertQuery,
			rec.ID, rec.RecipientUserID, rec.Type, rec.Channel, rec.Title,
			rec.Message, rec.Status, rec.Priority, rec.Scope, rec.Attempts,
			rec.MaxAttempts, rec.ScheduledAt, rec.CreatedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return notify.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert fan-out batch: %w", err)
	}

	return tx.Commit(ctx)
}

const claimQuery = `
	UPDATE notifications
	SET status = 'processing', locked_until = $2, locked_by = $3
	WHERE id IN (
		SELECT id FROM notifications
		WHERE (status IN ('pending', 'scheduled') AND scheduled_at <= now())
			OR (status = 'processing' AND locked_until < now())
		ORDER BY priority ASC, created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, recipient_user_id, type, channel, title, message, status,
		priority, scope, attempts, max_attempts, scheduled_at, locked_until,
		locked_by, last_error, sent_at, created_at`

// ClaimBatch implements notify.Storage.
func (s *Storage) ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int, lockFor time.Duration) ([]notify.Notification, error) {
	rows, err := s.pool.Query(ctx, claimQuery, limit, time.Now().Add(lockFor), workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim batch: %w", err)
	}
	defer rows.Close()

	claimed, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	// RETURNING does not guarantee row order; restore the claim ordering.
	sort.SliceStable(claimed, func(i, j int) bool {
		if claimed[i].Priority != claimed[j].Priority {
			return claimed[i].Priority < claimed[j].Priority
		}
		return claimed[i].CreatedAt.Before(claimed[j].CreatedAt)
	})

	return claimed, nil
}

// MarkSent implements notify.Storage.
func (s *Storage) MarkSent(ctx context.Context, id uuid.UUID, delivered bool) error {
	status := notify.StatusSent
	if delivered {
		status = notify.StatusDelivered
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2, sent_at = now(), attempts = attempts + 1,
			last_error = NULL, locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status = 'processing'`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s sent: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notify.ErrNotClaimable
	}
	return nil
}

// Fail implements notify.Storage.
func (s *Storage) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed', attempts = attempts + 1, last_error = $2,
			locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status = 'processing'`,
		id, reason)
	if err != nil {
		return fmt.Errorf("failed to fail notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notify.ErrNotClaimable
	}
	return nil
}

// Release implements notify.Storage.
func (s *Storage) Release(ctx context.Context, id uuid.UUID, reason string, notBefore time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'pending', attempts = attempts + 1, last_error = $2,
			scheduled_at = $3, locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status = 'processing'`,
		id, reason, notBefore)
	if err != nil {
		return fmt.Errorf("failed to release notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notify.ErrNotClaimable
	}
	return nil
}

// Requeue implements notify.Storage.
func (s *Storage) Requeue(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'pending', attempts = 0, last_error = NULL, scheduled_at = now()
		WHERE id = $1 AND status = 'failed'`,
		id)
	if err != nil {
		return fmt.Errorf("failed to requeue notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing record from a record in the wrong state.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return notify.ErrNotFailed
	}
	return nil
}

const selectColumns = `id, recipient_user_id, type, channel, title, message, status,
	priority, scope, attempts, max_attempts, scheduled_at, locked_until,
	locked_by, last_error, sent_at, created_at`

// Get implements notify.Storage.
func (s *Storage) Get(ctx context.Context, id uuid.UUID) (*notify.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification %s: %w", id, err)
	}
	defer rows.Close()

	records, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, notify.ErrNotFound
	}
	return &records[0], nil
}

// List implements notify.Storage.
func (s *Storage) List(ctx context.Context, filter notify.Filter) ([]notify.Notification, error) {
	var (
		conds []string
		args  []any
	)
	addCond := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.Status != "" {
		addCond("status", filter.Status)
	}
	if filter.Channel != "" {
		addCond("channel", filter.Channel)
	}
	if filter.Type != "" {
		addCond("type", filter.Type)
	}

	query := `SELECT ` + selectColumns + ` FROM notifications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	return scanAll(rows)
}

// Stats implements notify.Storage.
func (s *Storage) Stats(ctx context.Context) (*notify.Stats, error) {
	stats := &notify.Stats{
		ByStatus:  make(map[notify.Status]int),
		ByChannel: make(map[notify.Channel]int),
		ByType:    make(map[notify.Type]int),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, channel, type, count(*) FROM notifications GROUP BY status, channel, type`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status  notify.Status
			channel notify.Channel
			typ     notify.Type
			count   int
		)
		if err := rows.Scan(&status, &channel, &typ, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.ByStatus[status] += count
		stats.ByChannel[channel] += count
		stats.ByType[typ] += count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats rows: %w", err)
	}

	return stats, nil
}

// scanAll drains rows into notification records.
func scanAll(rows pgx.Rows) ([]notify.Notification, error) {
	var records []notify.Notification
	for rows.Next() {
		var rec notify.Notification
		if err := rows.Scan(
			&rec.ID, &rec.RecipientUserID, &rec.Type, &rec.Channel, &rec.Title,
			&rec.Message, &rec.Status, &rec.Priority, &rec.Scope, &rec.Attempts,
			&rec.MaxAttempts, &rec.ScheduledAt, &rec.LockedUntil, &rec.LockedBy,
			&rec.LastError, &rec.SentAt, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notification rows: %w", err)
	}
	return records, nil
}
