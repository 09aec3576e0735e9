package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// defaultEmailSubject is used when a notification carries no title;
// the email transport requires a non-empty subject line.
const defaultEmailSubject = "You have a new notification"

// Email delivers notifications over transactional email. The sender
// gives no synchronous receipt, so successful sends stay at "sent".
type Email struct {
	sender email.EmailSender
	book   AddressBook
}

// NewEmail creates the email channel adapter.
func NewEmail(sender email.EmailSender, book AddressBook) (*Email, error) {
	if sender == nil {
		return nil, errors.New("email sender cannot be nil")
	}
	if book == nil {
		return nil, errors.New("address book cannot be nil")
	}
	return &Email{sender: sender, book: book}, nil
}

// Channel implements notify.Adapter.
func (e *Email) Channel() notify.Channel { return notify.ChannelEmail }

// Send implements notify.Adapter.
func (e *Email) Send(ctx context.Context, n notify.Notification) (bool, error) {
	contact, err := lookupContact(ctx, e.book, n.RecipientUserID)
	if err != nil {
		return false, err
	}
	if contact.Email == "" {
		return false, notify.Permanentf("user %s has no email address", n.RecipientUserID)
	}

	subject := n.Title
	if subject == "" {
		subject = defaultEmailSubject
	}

	if err := e.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   contact.Email,
		Subject:  subject,
		BodyHTML: n.Message,
		Tag:      string(n.Type),
	}); err != nil {
		if errors.Is(err, email.ErrInvalidParams) {
			return false, notify.Permanent(err)
		}
		// Provider and network errors are worth retrying.
		return false, notify.Transient(err)
	}

	return false, nil
}

// lookupContact fetches the user's contact entry and classifies lookup
// failures: a missing entry is permanent, directory unavailability is
// transient.
func lookupContact(ctx context.Context, book AddressBook, userID string) (*Contact, error) {
	contact, err := book.Contact(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoContact) {
			return nil, notify.Permanent(fmt.Errorf("%w: %s", ErrNoContact, userID))
		}
		return nil, notify.Transient(fmt.Errorf("contact lookup failed for %s: %w", userID, err))
	}
	return contact, nil
}
