package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channels"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// ErrUnexpectedStatus is returned when the directory answers with a
// status code the client does not know how to handle.
var ErrUnexpectedStatus = errors.New("unexpected directory response status")

// Config holds the connection settings for the membership directory.
type Config struct {
	BaseURL string        `env:"DIRECTORY_BASE_URL"`
	APIKey  string        `env:"DIRECTORY_API_KEY"`
	Timeout time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"5s"`
}

// Client is an HTTP client for the membership directory. It resolves
// audience scopes to member user IDs and looks up per-channel contact
// addresses, implementing both notify.Resolver and channels.AddressBook.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for directory calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// New creates a directory client from config.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("directory base URL cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// membersResponse is the body of the hub and tenant member endpoints.
type membersResponse struct {
	UserIDs []string `json:"user_ids"`
}

// Resolve implements notify.Resolver. Hub and tenant scopes expand to
// the member list; the user scope never reaches the directory because
// the fan-out layer short-circuits it.
func (c *Client) Resolve(ctx context.Context, scope notify.Scope, targetID string) ([]string, error) {
	var path string
	switch scope {
	case notify.ScopeHub:
		path = "/v1/hubs/" + targetID + "/members"
	case notify.ScopeTenant:
		path = "/v1/tenants/" + targetID + "/members"
	case notify.ScopeUser:
		return []string{targetID}, nil
	default:
		return nil, fmt.Errorf("%w: %s", notify.ErrInvalidScope, scope)
	}

	var body membersResponse
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}
	return body.UserIDs, nil
}

// Contact implements channels.AddressBook.
func (c *Client) Contact(ctx context.Context, userID string) (*channels.Contact, error) {
	var contact channels.Contact
	if err := c.get(ctx, "/v1/users/"+userID+"/contact", &contact); err != nil {
		if errors.Is(err, errStatusNotFound) {
			return nil, fmt.Errorf("%w: %s", channels.ErrNoContact, userID)
		}
		return nil, err
	}
	return &contact, nil
}

// errStatusNotFound marks a 404 from the directory so callers can map
// it onto their own missing-entity sentinel.
var errStatusNotFound = errors.New("directory entity not found")

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory call failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", errStatusNotFound, path)
	default:
		return fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode directory response: %w", err)
	}
	return nil
}
