package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// Webhook delivers notifications to Slack or Teams incoming webhooks.
// Both platforms accept a plain JSON POST per message, differing only
// in payload shape, so one adapter type serves both channels.
type Webhook struct {
	channel notify.Channel
	book    AddressBook
	client  *http.Client
	limiter *rate.Limiter
}

// WebhookOption configures a Webhook adapter.
type WebhookOption func(*Webhook)

// WithHTTPClient overrides the HTTP client used for webhook posts.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithRateLimit caps outgoing webhook posts per second. Both Slack and
// Teams throttle aggressively; staying under their limit avoids burning
// the retry budget on self-inflicted 429s.
func WithRateLimit(rps float64, burst int) WebhookOption {
	return func(w *Webhook) {
		if rps > 0 && burst > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewSlack creates the Slack channel adapter.
func NewSlack(book AddressBook, opts ...WebhookOption) (*Webhook, error) {
	return newWebhook(notify.ChannelSlack, book, opts...)
}

// NewTeams creates the Teams channel adapter.
func NewTeams(book AddressBook, opts ...WebhookOption) (*Webhook, error) {
	return newWebhook(notify.ChannelTeams, book, opts...)
}

func newWebhook(channel notify.Channel, book AddressBook, opts ...WebhookOption) (*Webhook, error) {
	if book == nil {
		return nil, errors.New("address book cannot be nil")
	}

	w := &Webhook{
		channel: channel,
		book:    book,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Channel implements notify.Adapter.
func (w *Webhook) Channel() notify.Channel { return w.channel }

// Send implements notify.Adapter.
func (w *Webhook) Send(ctx context.Context, n notify.Notification) (bool, error) {
	contact, err := lookupContact(ctx, w.book, n.RecipientUserID)
	if err != nil {
		return false, err
	}

	url := contact.SlackWebhookURL
	if w.channel == notify.ChannelTeams {
		url = contact.TeamsWebhookURL
	}
	if url == "" {
		return false, notify.Permanentf("user %s has no %s webhook", n.RecipientUserID, w.channel)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return false, notify.Transient(fmt.Errorf("rate limiter: %w", err))
	}

	body, err := json.Marshal(w.payload(n))
	if err != nil {
		return false, notify.Permanent(fmt.Errorf("failed to encode webhook payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, notify.Permanent(fmt.Errorf("failed to build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return false, notify.Transient(fmt.Errorf("webhook post failed: %w", err))
	}
	defer resp.Body.Close()

	return false, classifyStatus(resp)
}

// payload builds the platform-specific message body.
func (w *Webhook) payload(n notify.Notification) any {
	text := n.Message
	if w.channel == notify.ChannelTeams {
		return map[string]string{
			"@type":   "MessageCard",
			"title":   n.Title,
			"text":    text,
			"summary": firstNonEmpty(n.Title, text),
		}
	}

	if n.Title != "" {
		text = "*" + n.Title + "*\n" + text
	}
	return map[string]string{"text": text}
}

// classifyStatus converts an HTTP response into a dispatch outcome:
// 2xx succeeds, throttling and server errors are transient, any other
// client error means the endpoint rejected the message for good.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Bounded read keeps hostile or broken endpoints from flooding logs.
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	err := fmt.Errorf("endpoint answered %d: %s", resp.StatusCode, bytes.TrimSpace(detail))

	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return notify.Transient(err)
	default:
		return notify.Permanent(err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
