package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// GatewayConfig holds the connection settings for the external comms
// gateway that fronts the SMS, WhatsApp and push providers.
type GatewayConfig struct {
	BaseURL string        `env:"GATEWAY_BASE_URL"`
	APIKey  string        `env:"GATEWAY_API_KEY"`
	Timeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
}

// Gateway delivers notifications through the external comms gateway.
// One gateway instance serves exactly one channel; register a separate
// instance per channel it should carry.
type Gateway struct {
	channel notify.Channel
	book    AddressBook
	baseURL string
	apiKey  string
	client  *http.Client
}

// GatewayOption configures a Gateway adapter.
type GatewayOption func(*Gateway)

// WithGatewayHTTPClient overrides the HTTP client used for gateway calls.
func WithGatewayHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// NewGateway creates a comms gateway adapter for the given channel.
// Supported channels are SMS, WhatsApp and push; anything else the
// gateway does not carry.
func NewGateway(channel notify.Channel, cfg GatewayConfig, book AddressBook, opts ...GatewayOption) (*Gateway, error) {
	switch channel {
	case notify.ChannelSMS, notify.ChannelWhatsApp, notify.ChannelPush:
	default:
		return nil, fmt.Errorf("gateway does not carry channel %q", channel)
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base URL cannot be empty")
	}
	if book == nil {
		return nil, errors.New("address book cannot be nil")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	g := &Gateway{
		channel: channel,
		book:    book,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Channel implements notify.Adapter.
func (g *Gateway) Channel() notify.Channel { return g.channel }

// gatewayMessage is the request body of the gateway's send endpoint.
type gatewayMessage struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Title   string `json:"title,omitempty"`
	Body    string `json:"body"`
}

// Send implements notify.Adapter.
func (g *Gateway) Send(ctx context.Context, n notify.Notification) (bool, error) {
	contact, err := lookupContact(ctx, g.book, n.RecipientUserID)
	if err != nil {
		return false, err
	}

	to := g.address(contact)
	if to == "" {
		return false, notify.Permanentf("user %s has no %s address", n.RecipientUserID, g.channel)
	}

	body, err := json.Marshal(gatewayMessage{
		Channel: string(g.channel),
		To:      to,
		Title:   n.Title,
		Body:    n.Message,
	})
	if err != nil {
		return false, notify.Permanent(fmt.Errorf("failed to encode gateway message: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return false, notify.Permanent(fmt.Errorf("failed to build gateway request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false, notify.Transient(fmt.Errorf("gateway call failed: %w", err))
	}
	defer resp.Body.Close()

	return false, classifyStatus(resp)
}

// address picks the destination field matching the adapter's channel.
func (g *Gateway) address(c *Contact) string {
	switch g.channel {
	case notify.ChannelSMS, notify.ChannelWhatsApp:
		return c.Phone
	case notify.ChannelPush:
		return c.PushToken
	default:
		return ""
	}
}
