package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	requestTimeout = 10 * time.Second
	maxRetries     = 3
)

// Route binds one channel to a webhook endpoint.
type Route struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// WebhookSink posts Discord-style embed payloads to per-channel webhook
// endpoints. Channels without a route are dropped with a local warning.
type WebhookSink struct {
	routes map[Channel]Route
	client *http.Client
}

// NewWebhookSink creates a sink over the given channel routes.
func NewWebhookSink(routes map[Channel]Route) *WebhookSink {
	return &WebhookSink{
		routes: routes,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// embed payload shapes, matching the webhook wire format.
type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []Field      `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

// Deliver posts n to the channel's endpoint, retrying on 5xx with linear
// backoff. 4xx responses are terminal. Returns an error on failure; the
// caller decides whether that error matters.
func (s *WebhookSink) Deliver(ctx context.Context, ch Channel, n Notification) error {
	route, ok := s.routes[ch]
	if !ok || route.URL == "" {
		log.Warn().Str("channel", string(ch)).Msg("notify: no webhook route configured, dropping notification")
		return nil
	}

	ts := n.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	e := embed{
		Title:       n.Title,
		Description: n.Description,
		Color:       n.Color,
		Fields:      n.Fields,
		Timestamp:   ts.Format(time.RFC3339),
	}
	if n.Footer != "" {
		e.Footer = &embedFooter{Text: n.Footer}
	}
	body, err := json.Marshal(webhookPayload{Content: n.Mention, Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, route.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("notify: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range route.Headers {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("notify: webhook rejected: HTTP %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("notify: webhook server error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("notify: webhook failed after %d attempts: %w", maxRetries, lastErr)
}

// Channels lists the configured channels, for connectivity tests.
func (s *WebhookSink) Channels() []Channel {
	out := make([]Channel, 0, len(s.routes))
	for ch := range s.routes {
		out = append(out, ch)
	}
	return out
}
