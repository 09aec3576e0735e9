package channels_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channels"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

type mockSender struct {
	sendFunc func(ctx context.Context, params email.SendEmailParams) error
}

func (m *mockSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	return m.sendFunc(ctx, params)
}

func bookWith(contact *channels.Contact) channels.AddressBookFunc {
	return func(ctx context.Context, userID string) (*channels.Contact, error) {
		if contact == nil {
			return nil, channels.ErrNoContact
		}
		return contact, nil
	}
}

func emailRecord() notify.Notification {
	rec := notify.Notification{
		RecipientUserID: "u1",
		Type:            notify.TypeTeamUpdate,
		Channel:         notify.ChannelEmail,
		Title:           "Weekly digest",
		Message:         "<p>Hello</p>",
	}
	return rec
}

func TestEmail_Send(t *testing.T) {
	t.Parallel()

	t.Run("sends without confirmed receipt", func(t *testing.T) {
		t.Parallel()
		var got email.SendEmailParams
		sender := &mockSender{sendFunc: func(ctx context.Context, params email.SendEmailParams) error {
			got = params
			return nil
		}}

		adapter, err := channels.NewEmail(sender, bookWith(&channels.Contact{Email: "user@example.com"}))
		require.NoError(t, err)

		confirmed, err := adapter.Send(context.Background(), emailRecord())
		require.NoError(t, err)
		assert.False(t, confirmed, "email has no synchronous receipt")
		assert.Equal(t, "user@example.com", got.SendTo)
		assert.Equal(t, "Weekly digest", got.Subject)
		assert.Equal(t, string(notify.TypeTeamUpdate), got.Tag)
	})

	t.Run("falls back to the default subject", func(t *testing.T) {
		t.Parallel()
		var got email.SendEmailParams
		sender := &mockSender{sendFunc: func(ctx context.Context, params email.SendEmailParams) error {
			got = params
			return nil
		}}

		adapter, err := channels.NewEmail(sender, bookWith(&channels.Contact{Email: "user@example.com"}))
		require.NoError(t, err)

		rec := emailRecord()
		rec.Title = ""
		_, err = adapter.Send(context.Background(), rec)
		require.NoError(t, err)
		assert.NotEmpty(t, got.Subject)
	})

	t.Run("missing contact entry is permanent", func(t *testing.T) {
		t.Parallel()
		sender := &mockSender{sendFunc: func(ctx context.Context, params email.SendEmailParams) error {
			t.Error("sender must not be called")
			return nil
		}}

		adapter, err := channels.NewEmail(sender, bookWith(nil))
		require.NoError(t, err)

		_, err = adapter.Send(context.Background(), emailRecord())
		require.Error(t, err)
		assert.True(t, notify.IsPermanent(err))
		assert.ErrorIs(t, err, channels.ErrNoContact)
	})

	t.Run("empty email address is permanent", func(t *testing.T) {
		t.Parallel()
		sender := &mockSender{sendFunc: func(ctx context.Context, params email.SendEmailParams) error {
			return nil
		}}

		adapter, err := channels.NewEmail(sender, bookWith(&channels.Contact{}))
		require.NoError(t, err)

		_, err = adapter.Send(context.Background(), emailRecord())
		require.Error(t, err)
		assert.True(t, notify.IsPermanent(err))
	})

	t.Run("directory outage is transient", func(t *testing.T) {
		t.Parallel()
		book := channels.AddressBookFunc(func(ctx context.Context, userID string) (*channels.Contact, error) {
			return nil, errors.New("directory unreachable")
		})
		sender := &mockSender{sendFunc: func(ctx context.Context, params email.SendEmailParams) error {
			return nil
		}}

		adapter, err := channels.NewEmail(sender, book)
		require.NoError(t, err)

		_, err = adapter.Send(context.Background(), emailRecord())
		require.Error(t, err)
		assert.True(t, notify.IsTransient(err))
	})

	t.Run("invalid params from the sender are permanent", func(t *testing.T) {
		t.Parallel()
		sender := &mockSender{sendFunc: func(ctx context.Context, params email.SendEmailParams) error {
			return email.ErrInvalidParams
		}}

		adapter, err := channels.NewEmail(sender, bookWith(&channels.Contact{Email: "user@example.com"}))
		require.NoError(t, err)

		_, err = adapter.Send(context.Background(), emailRecord())
		require.Error(t, err)
		assert.True(t, notify.IsPermanent(err))
	})

	t.Run("provider errors are transient", func(t *testing.T) {
		t.Parallel()
		sender := &mockSender{sendFunc: func(ctx context.Context, params email.SendEmailParams) error {
			return errors.New("postmark 503")
		}}

		adapter, err := channels.NewEmail(sender, bookWith(&channels.Contact{Email: "user@example.com"}))
		require.NoError(t, err)

		_, err = adapter.Send(context.Background(), emailRecord())
		require.Error(t, err)
		assert.True(t, notify.IsTransient(err))
	})

	t.Run("constructor validation", func(t *testing.T) {
		t.Parallel()
		_, err := channels.NewEmail(nil, bookWith(&channels.Contact{}))
		assert.Error(t, err)

		_, err = channels.NewEmail(&mockSender{}, nil)
		assert.Error(t, err)
	})
}
