package notify

import "errors"

// Common errors
var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrResolverNil is returned when a nil recipient resolver is provided.
	ErrResolverNil = errors.New("recipient resolver cannot be nil")

	// ErrRouterNil is returned when a nil channel router is provided.
	ErrRouterNil = errors.New("channel router cannot be nil")

	// ErrEmptyMessage is returned when a send request carries no message body.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrNoChannels is returned when a send request names no channels.
	ErrNoChannels = errors.New("at least one channel is required")

	// ErrInvalidChannel is returned when a send request names an unknown channel.
	ErrInvalidChannel = errors.New("unknown channel")

	// ErrInvalidType is returned when a send request uses an unregistered notification type.
	ErrInvalidType = errors.New("unregistered notification type")

	// ErrInvalidScope is returned when a send request carries an unknown scope.
	ErrInvalidScope = errors.New("unknown scope")

	// ErrInvalidPriority is returned when priority is outside the 1-10 range.
	ErrInvalidPriority = errors.New("priority must be between 1 and 10")

	// ErrMissingTarget is returned when a send request has no target to resolve.
	ErrMissingTarget = errors.New("target id is required")

	// ErrEmptyAudience is returned when the resolver yields no recipients.
	// Surfaced as an error so misconfigured scopes do not silently no-op.
	ErrEmptyAudience = errors.New("resolved audience is empty")

	// ErrAudienceResolution is returned when the recipient resolver fails.
	ErrAudienceResolution = errors.New("failed to resolve audience")

	// ErrNotFound is returned when a notification record does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrAlreadyExists is returned when a batch insert collides with an
	// existing record ID.
	ErrAlreadyExists = errors.New("notification already exists")

	// ErrNotClaimable is returned when a conditional status transition finds
	// the record in a state other than the one required.
	ErrNotClaimable = errors.New("notification is not in the required state")

	// ErrNotFailed is returned when an operator requeue targets a record
	// that is not in the failed state.
	ErrNotFailed = errors.New("only failed notifications can be requeued")

	// ErrNoAdapter is returned when a record's channel has no registered adapter.
	ErrNoAdapter = errors.New("no adapter registered for channel")
)
