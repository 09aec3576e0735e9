package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// feedLimit caps the per-user in-app feed so an inactive account does
// not accumulate an unbounded backlog.
const feedLimit = 200

// InApp delivers notifications into the recipient's in-app feed backed
// by Redis. Writing the feed entry is the delivery, so a successful
// send counts as a confirmed receipt.
type InApp struct {
	client redis.UniversalClient
}

// NewInApp creates the in-app channel adapter.
func NewInApp(client redis.UniversalClient) (*InApp, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	return &InApp{client: client}, nil
}

// Channel implements notify.Adapter.
func (a *InApp) Channel() notify.Channel { return notify.ChannelInApp }

// feedEntry is the JSON payload stored in the user's feed and published
// for live UI pickup.
type feedEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Send implements notify.Adapter.
func (a *InApp) Send(ctx context.Context, n notify.Notification) (bool, error) {
	payload, err := json.Marshal(feedEntry{
		ID:        n.ID.String(),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return false, notify.Permanent(fmt.Errorf("failed to encode feed entry: %w", err))
	}

	feedKey := FeedKey(n.RecipientUserID)
	pipe := a.client.TxPipeline()
	pipe.LPush(ctx, feedKey, payload)
	pipe.LTrim(ctx, feedKey, 0, feedLimit-1)
	pipe.Publish(ctx, EventKey(n.RecipientUserID), payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, notify.Transient(fmt.Errorf("failed to write feed entry: %w", err))
	}

	return true, nil
}

// FeedKey returns the Redis key holding the user's in-app feed.
func FeedKey(userID string) string {
	return "notify:feed:" + userID
}

// EventKey returns the Redis pub/sub channel announcing new feed entries.
func EventKey(userID string) string {
	return "notify:events:" + userID
}
