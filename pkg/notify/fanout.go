package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Resolver turns a (scope, target) pair into the concrete set of user
// identities currently valid for that scope. It is treated as a pure
// function at call time: records already fanned out are not retracted
// when membership changes later.
type Resolver interface {
	Resolve(ctx context.Context, scope Scope, targetID string) ([]string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, scope Scope, targetID string) ([]string, error)

func (f ResolverFunc) Resolve(ctx context.Context, scope Scope, targetID string) ([]string, error) {
	return f(ctx, scope, targetID)
}

// SendRequest describes one logical notification before fan-out.
type SendRequest struct {
	Scope       Scope      `json:"scope"`
	TargetID    string     `json:"target_id"`
	Type        Type       `json:"type"`
	Title       string     `json:"title,omitempty"`
	Message     string     `json:"message"`
	Channels    []Channel  `json:"channels"`
	Priority    Priority   `json:"priority,omitempty"`
	NotBefore   *time.Time `json:"not_before,omitempty"`
	MaxAttempts int8       `json:"max_attempts,omitempty"`
}

// Fanout expands send requests into one pending record per
// (recipient, channel) pair and persists them atomically.
type Fanout struct {
	storage         Storage
	resolver        Resolver
	types           map[Type]struct{}
	defaultPriority Priority
	maxAttempts     int8
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithTypes registers additional notification types beyond the built-in set.
func WithTypes(types ...Type) FanoutOption {
	return func(f *Fanout) {
		for _, t := range types {
			if t != "" {
				f.types[t] = struct{}{}
			}
		}
	}
}

// WithDefaultPriority overrides the priority applied when a request omits one.
func WithDefaultPriority(p Priority) FanoutOption {
	return func(f *Fanout) {
		if p.Valid() {
			f.defaultPriority = p
		}
	}
}

// WithMaxAttempts overrides the default attempt budget for new records.
func WithMaxAttempts(n int8) FanoutOption {
	return func(f *Fanout) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// NewFanout creates a fan-out writer over the given storage and resolver.
func NewFanout(storage Storage, resolver Resolver, opts ...FanoutOption) (*Fanout, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}

	f := &Fanout{
		storage:  storage,
		resolver: resolver,
		types: map[Type]struct{}{
			TypeHubAnnouncement:        {},
			TypeTeamUpdate:             {},
			TypeWeekflowReminder:       {},
			TypeMicrolearningAvailable: {},
			TypeSystemUpdate:           {},
			TypeAchievementUnlocked:    {},
			TypeLevelUp:                {},
			TypeTaskAssigned:           {},
			TypeHubInvitation:          {},
		},
		defaultPriority: PriorityDefault,
		maxAttempts:     5,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Send validates the request, resolves the audience and writes the full
// recipient x channel matrix in one atomic batch. It returns the number
// of records created, which equals |recipients| * |channels|.
//
// Nothing is persisted on any error: validation and resolution failures
// leave the repository untouched, and the batch write itself is
// all-or-nothing.
func (f *Fanout) Send(ctx context.Context, req SendRequest) (int, error) {
	req, err := f.validate(req)
	if err != nil {
		return 0, err
	}

	recipients, err := f.audience(ctx, req)
	if err != nil {
		return 0, err
	}

	records := f.expand(req, recipients)
	if err := f.storage.CreateBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to persist fan-out of %d records: %w", len(records), err)
	}

	return len(records), nil
}

// validate normalizes the request and rejects it before any write.
func (f *Fanout) validate(req SendRequest) (SendRequest, error) {
	if req.Message == "" {
		return req, ErrEmptyMessage
	}
	if !req.Scope.Valid() {
		return req, fmt.Errorf("%w: %q", ErrInvalidScope, req.Scope)
	}
	if req.TargetID == "" {
		return req, ErrMissingTarget
	}
	if len(req.Channels) == 0 {
		return req, ErrNoChannels
	}
	for _, ch := range req.Channels {
		if !ch.Valid() {
			return req, fmt.Errorf("%w: %q", ErrInvalidChannel, ch)
		}
	}
	if _, ok := f.types[req.Type]; !ok {
		return req, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}

	if req.Priority == 0 {
		req.Priority = f.defaultPriority
	}
	if !req.Priority.Valid() {
		return req, fmt.Errorf("%w: got %d", ErrInvalidPriority, req.Priority)
	}
	if req.MaxAttempts <= 0 {
		req.MaxAttempts = f.maxAttempts
	}

	return req, nil
}

// audience resolves the recipient set. USER scope skips the resolver and
// targets the given user directly.
func (f *Fanout) audience(ctx context.Context, req SendRequest) ([]string, error) {
	if req.Scope == ScopeUser {
		return []string{req.TargetID}, nil
	}

	recipients, err := f.resolver.Resolve(ctx, req.Scope, req.TargetID)
	if err != nil {
		return nil, errors.Join(ErrAudienceResolution, err)
	}

	recipients = dedupe(recipients)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: scope %s target %s", ErrEmptyAudience, req.Scope, req.TargetID)
	}

	return recipients, nil
}

// expand builds the recipient x channel matrix of pending records.
func (f *Fanout) expand(req SendRequest, recipients []string) []Notification {
	now := time.Now()

	status := StatusPending
	scheduledAt := now
	if req.NotBefore != nil && req.NotBefore.After(now) {
		status = StatusScheduled
		scheduledAt = *req.NotBefore
	}

	records := make([]Notification, 0, len(recipients)*len(req.Channels))
	for _, recipient := range recipients {
		for _, ch := range req.Channels {
			records = append(records, Notification{
				ID:              uuid.New(),
				RecipientUserID: recipient,
				Type:            req.Type,
				Channel:         ch,
				Title:           req.Title,
				Message:         req.Message,
				Status:          status,
				Priority:        req.Priority,
				Scope:           req.Scope,
				MaxAttempts:     req.MaxAttempts,
				ScheduledAt:     scheduledAt,
				CreatedAt:       now,
			})
		}
	}
	return records
}

// dedupe removes duplicate recipients while preserving order. The
// resolver promises a deduplicated set, but a duplicate here would break
// the matrix-count guarantee, so it is enforced locally as well.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
