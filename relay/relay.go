// Package relay delivers typed orchestration events to the external
// workflow-automation service over HTTP. The relay fans events out to email,
// SMS and storage automations; this client only publishes and forgets.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lonestardev/dialcore/core"
)

// Config holds the webhook endpoint settings, loaded from the environment.
type Config struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Client publishes events as JSON POSTs to a single webhook base URL. The
// event name is appended as the final path segment so the receiving
// automation can route on it.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient validates the config and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("relay url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// MustNew builds a Client and panics on invalid config.
func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// envelope is the wire format for one published event.
type envelope struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Publish POSTs the event payload. A non-2xx response is an error; callers
// log and move on, they never retry here.
func (c *Client) Publish(ctx context.Context, event core.RelayEvent, payload any) error {
	body, err := json.Marshal(envelope{
		Event:     string(event),
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode relay event %s: %w", event, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+string(event), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish relay event %s: %w", event, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay event %s rejected: status %d", event, resp.StatusCode)
	}
	return nil
}

// NoOp is a Relay that drops every event. Used when no automation endpoint
// is configured.
type NoOp struct{}

// Publish discards the event.
func (NoOp) Publish(context.Context, core.RelayEvent, any) error { return nil }
