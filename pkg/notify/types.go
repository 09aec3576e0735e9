package notify

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery lifecycle state of a notification record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

// Valid checks if the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusProcessing, StatusSent, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further mutation
// (operator requeue excepted).
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// Channel identifies the transport a record is delivered over.
type Channel string

const (
	ChannelInApp    Channel = "in_app"
	ChannelPush     Channel = "push"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSlack    Channel = "slack"
	ChannelTeams    Channel = "teams"
)

// Valid checks if the channel is one of the supported transports.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelPush, ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelSlack, ChannelTeams:
		return true
	}
	return false
}

// Type represents the business event a notification was issued for.
// The set is open-ended; unknown types must be registered with the
// fan-out writer before use.
type Type string

const (
	TypeHubAnnouncement        Type = "hub_announcement"
	TypeTeamUpdate             Type = "team_update"
	TypeWeekflowReminder       Type = "weekflow_reminder"
	TypeMicrolearningAvailable Type = "microlearning_available"
	TypeSystemUpdate           Type = "system_update"
	TypeAchievementUnlocked    Type = "achievement_unlocked"
	TypeLevelUp                Type = "level_up"
	TypeTaskAssigned           Type = "task_assigned"
	TypeHubInvitation          Type = "hub_invitation"
)

// RegisteredTypes returns the built-in business event types, suitable
// for seeding the fan-out writer's registry.
func RegisteredTypes() []Type {
	return []Type{
		TypeHubAnnouncement,
		TypeTeamUpdate,
		TypeWeekflowReminder,
		TypeMicrolearningAvailable,
		TypeSystemUpdate,
		TypeAchievementUnlocked,
		TypeLevelUp,
		TypeTaskAssigned,
		TypeHubInvitation,
	}
}

// Scope is the organizational breadth a send request was issued at.
// Each stored record targets a single user; the scope is retained for
// audit and stats grouping.
type Scope string

const (
	ScopeHub    Scope = "hub"
	ScopeTenant Scope = "tenant"
	ScopeUser   Scope = "user"
)

// Valid checks if the scope is one of the known audience scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeHub, ScopeTenant, ScopeUser:
		return true
	}
	return false
}

// Priority represents dispatch urgency (1-10, 1 is most urgent).
// Using int8 provides sufficient range while keeping memory footprint minimal.
type Priority int8

const (
	PriorityHighest Priority = 1
	PriorityDefault Priority = 5
	PriorityLowest  Priority = 10
)

// Valid checks if the priority is within valid range.
func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityLowest
}

// Notification is a single delivery attempt unit: one recipient on one
// channel. Group audiences are expanded into per-recipient records at
// write time.
type Notification struct {
	ID              uuid.UUID  `json:"id"`
	RecipientUserID string     `json:"recipient_user_id"`
	Type            Type       `json:"type"`
	Channel         Channel    `json:"channel"`
	Title           string     `json:"title,omitempty"`
	Message         string     `json:"message"`
	Status          Status     `json:"status"`
	Priority        Priority   `json:"priority"`
	Scope           Scope      `json:"scope"`
	Attempts        int8       `json:"attempts"`
	MaxAttempts     int8       `json:"max_attempts"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	LockedUntil     *time.Time `json:"locked_until,omitempty"`
	LockedBy        *uuid.UUID `json:"locked_by,omitempty"`
	LastError       *string    `json:"last_error,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Eligible reports whether the record can be claimed for processing at t.
// A processing record whose claim lock has expired counts as eligible:
// the worker that held it is presumed dead and the record goes back into
// the claimable pool.
func (n *Notification) Eligible(t time.Time) bool {
	switch n.Status {
	case StatusPending, StatusScheduled:
		return !n.ScheduledAt.After(t)
	case StatusProcessing:
		return n.LockedUntil != nil && n.LockedUntil.Before(t)
	}
	return false
}
