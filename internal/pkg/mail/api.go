package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrAPIEndpointRequired is returned when the provider endpoint is missing.
var ErrAPIEndpointRequired = errors.New("mail api endpoint is required")

// API is a Mail implementation backed by an HTTP transactional email
// provider (JSON POST, bearer-token auth).
type API struct {
	endpoint    string
	token       string
	defaultFrom string
	client      *http.Client
	maxRetries  uint64
}

// APIConfig configures the HTTP provider.
type APIConfig struct {
	// Endpoint is the provider's send URL.
	Endpoint string
	// Token is the provider API token.
	Token string
	// From is the default sender when Message.From is empty.
	From string
	// Timeout bounds a single send, retries included.
	Timeout time.Duration
	// MaxRetries is the number of retry attempts on transient failures.
	MaxRetries uint64
}

type apiPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// NewAPI constructs an HTTP API mail sender.
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.Endpoint == "" {
		return nil, ErrAPIEndpointRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &API{
		endpoint:    cfg.Endpoint,
		token:       cfg.Token,
		defaultFrom: cfg.From,
		client:      &http.Client{Timeout: timeout},
		maxRetries:  cfg.MaxRetries,
	}, nil
}

// Send delivers a message through the provider, retrying transient failures
// with exponential backoff until the configured timeout elapses.
func (a *API) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = a.defaultFrom
	}
	if from == "" {
		return ErrNoSender
	}

	body, err := json.Marshal(apiPayload{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.client.Timeout)
	defer cancel()

	backoff := retry.WithMaxRetries(a.maxRetries, retry.NewExponential(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if a.token != "" {
			req.Header.Set("Authorization", "Bearer "+a.token)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("mail api responded %s", resp.Status))
		default:
			return fmt.Errorf("mail api responded %s", resp.Status)
		}
	})
}

// Close implements io.Closer for interface compatibility.
func (a *API) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
