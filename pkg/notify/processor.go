package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// DefaultBatchSize is used when a processing run does not specify a limit.
const DefaultBatchSize = 50

// Result summarizes one processing run.
type Result struct {
	Processed int `json:"processed"`  // records claimed by this run
	Succeeded int `json:"successful"` // transitioned to sent or delivered
	Failed    int `json:"failed"`     // transitioned to failed
	Retried   int `json:"retried"`    // released back to pending with backoff
}

// Processor drains the queue on demand: it claims a bounded batch,
// dispatches each record through the channel router with a bounded pool
// of concurrent transport calls, and persists the outcome of every
// record before returning. Multiple runs may execute concurrently; the
// conditional claim in storage keeps them from stepping on each other.
type Processor struct {
	storage  Storage
	router   *Router
	workerID uuid.UUID
	logger   *slog.Logger

	dispatchTimeout time.Duration
	lockTimeout     time.Duration
	maxConcurrent   int
	backoffBase     time.Duration
	backoffCeiling  time.Duration
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the logger for the Processor.
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDispatchTimeout bounds a single transport invocation.
func WithDispatchTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.dispatchTimeout = d
		}
	}
}

// WithLockTimeout sets how long claimed records stay locked.
func WithLockTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.lockTimeout = d
		}
	}
}

// WithMaxConcurrent bounds parallel dispatches within one run.
func WithMaxConcurrent(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.maxConcurrent = n
		}
	}
}

// WithBackoff sets the exponential backoff curve for transient failures.
func WithBackoff(base, ceiling time.Duration) ProcessorOption {
	return func(p *Processor) {
		if base > 0 {
			p.backoffBase = base
		}
		if ceiling > 0 {
			p.backoffCeiling = ceiling
		}
	}
}

// NewProcessor creates a queue processor over the given storage and router.
func NewProcessor(storage Storage, router *Router, opts ...ProcessorOption) (*Processor, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if router == nil {
		return nil, ErrRouterNil
	}

	p := &Processor{
		storage:         storage,
		router:          router,
		workerID:        uuid.New(),
		logger:          slog.Default(),
		dispatchTimeout: 10 * time.Second,
		lockTimeout:     5 * time.Minute,
		maxConcurrent:   10,
		backoffBase:     30 * time.Second,
		backoffCeiling:  time.Hour,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Run claims up to limit eligible records and processes them to
// completion. Every claimed record leaves the processing state before
// Run returns. Transport failures are absorbed into record state and
// surface only in the aggregate counts; only the claim itself can fail
// the run.
func (p *Processor) Run(ctx context.Context, limit int) (Result, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	batch, err := p.storage.ClaimBatch(ctx, p.workerID, limit, p.lockTimeout)
	if err != nil {
		return Result{}, fmt.Errorf("failed to claim batch: %w", err)
	}

	if len(batch) == 0 {
		return Result{}, nil
	}

	p.logger.LogAttrs(ctx, slog.LevelDebug, "claimed batch",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("batch_size", len(batch)))

	var succeeded, failed, retried atomic.Int64

	sem := make(chan struct{}, p.maxConcurrent)
	var wg sync.WaitGroup
	for _, n := range batch {
		sem <- struct{}{}
		wg.Add(1)
		go func(n Notification) {
			defer wg.Done()
			defer func() { <-sem }()

			switch p.process(ctx, n) {
			case StatusSent, StatusDelivered:
				succeeded.Add(1)
			case StatusFailed:
				failed.Add(1)
			case StatusPending:
				retried.Add(1)
			}
		}(n)
	}
	wg.Wait()

	result := Result{
		Processed: len(batch),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Retried:   int(retried.Load()),
	}

	p.logger.LogAttrs(ctx, slog.LevelInfo, "processing run finished",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("processed", result.Processed),
		slog.Int("successful", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("retried", result.Retried))

	return result, nil
}

// process dispatches one claimed record and persists its next state.
// It returns the status the record was moved to, or the empty status if
// the persistence write failed and the record kept its prior state.
func (p *Processor) process(ctx context.Context, n Notification) Status {
	confirmed, err := p.dispatch(ctx, n)

	next, notBefore := p.decide(n, confirmed, err)

	var persistErr error
	switch next {
	case StatusSent, StatusDelivered:
		persistErr = p.storage.MarkSent(ctx, n.ID, confirmed)
	case StatusFailed:
		persistErr = p.storage.Fail(ctx, n.ID, err.Error())
	case StatusPending:
		persistErr = p.storage.Release(ctx, n.ID, err.Error(), notBefore)
	}

	if persistErr != nil {
		// The record keeps its prior state; the rest of the batch continues.
		p.logger.LogAttrs(ctx, slog.LevelError, "failed to persist outcome",
			logger.NotificationID(n.ID),
			slog.String("channel", string(n.Channel)),
			slog.String("next_status", string(next)),
			logger.Error(persistErr))
		return ""
	}

	switch next {
	case StatusFailed:
		p.logger.LogAttrs(ctx, slog.LevelWarn, "notification failed",
			logger.NotificationID(n.ID),
			slog.String("channel", string(n.Channel)),
			logger.Attempts(int(n.Attempts)+1),
			logger.Error(err))
	case StatusPending:
		p.logger.LogAttrs(ctx, slog.LevelInfo, "notification scheduled for retry",
			logger.NotificationID(n.ID),
			slog.String("channel", string(n.Channel)),
			logger.Attempts(int(n.Attempts)+1),
			slog.Time("not_before", notBefore),
			logger.Error(err))
	default:
		p.logger.LogAttrs(ctx, slog.LevelDebug, "notification dispatched",
			logger.NotificationID(n.ID),
			slog.String("channel", string(n.Channel)),
			slog.Bool("confirmed", confirmed))
	}

	return next
}

// dispatch invokes the transport with a hard timeout. A call that does
// not return within the bound counts as a transient timeout failure. A
// panicking adapter must not take the whole run down with it.
func (p *Processor) dispatch(ctx context.Context, n Notification) (confirmed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			confirmed = false
			err = Transientf("panic in adapter: %v", r)
			p.logger.LogAttrs(ctx, slog.LevelError, "adapter panicked",
				logger.NotificationID(n.ID),
				slog.String("channel", string(n.Channel)),
				slog.Any("panic", r))
		}
	}()

	dctx, cancel := context.WithTimeout(ctx, p.dispatchTimeout)
	defer cancel()

	confirmed, err = p.router.Dispatch(dctx, n)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = Transientf("timeout after %s", p.dispatchTimeout)
	}
	return confirmed, err
}
