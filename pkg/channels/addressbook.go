package channels

import (
	"context"
	"errors"
)

// ErrNoContact is returned when a user has no contact entry in the
// directory. Adapters translate it into a permanent failure: retrying
// cannot produce an address.
var ErrNoContact = errors.New("no contact entry for user")

// Contact holds the per-channel addresses known for a user. Empty
// fields mean the user has no address for that transport.
type Contact struct {
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	PushToken       string `json:"push_token,omitempty"`
	SlackWebhookURL string `json:"slack_webhook_url,omitempty"`
	TeamsWebhookURL string `json:"teams_webhook_url,omitempty"`
}

// AddressBook resolves a user identity to their per-channel addresses.
type AddressBook interface {
	Contact(ctx context.Context, userID string) (*Contact, error)
}

// AddressBookFunc adapts a function to the AddressBook interface.
type AddressBookFunc func(ctx context.Context, userID string) (*Contact, error)

func (f AddressBookFunc) Contact(ctx context.Context, userID string) (*Contact, error) {
	return f(ctx, userID)
}
