package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/retry"
)

// ErrWebhookStatus is returned for a non-2xx webhook response.
var ErrWebhookStatus = errors.New("webhook returned an error status")

// WebhookSubmitter POSTs submissions as JSON. Transport errors and 5xx
// responses are retried with backoff; 4xx responses are not. Repeated
// failures open a circuit breaker so a dead endpoint is not hammered.
type WebhookSubmitter struct {
	url     string
	client  *http.Client
	retry   *retry.Config
	breaker *retry.Breaker
	header  http.Header
	logger  logging.Logger
}

// WebhookOption configures a WebhookSubmitter.
type WebhookOption func(*WebhookSubmitter)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookSubmitter) { w.client = c }
}

// WithRetry sets the retry policy.
func WithRetry(cfg *retry.Config) WebhookOption {
	return func(w *WebhookSubmitter) { w.retry = cfg }
}

// WithBreaker sets the circuit breaker. Nil disables it.
func WithBreaker(b *retry.Breaker) WebhookOption {
	return func(w *WebhookSubmitter) { w.breaker = b }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) WebhookOption {
	return func(w *WebhookSubmitter) { w.header.Add(key, value) }
}

// WithWebhookLogger sets the logger.
func WithWebhookLogger(l logging.Logger) WebhookOption {
	return func(w *WebhookSubmitter) { w.logger = l }
}

// NewWebhookSubmitter creates a submitter posting to url.
func NewWebhookSubmitter(url string, opts ...WebhookOption) *WebhookSubmitter {
	w := &WebhookSubmitter{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		retry:   retry.DefaultConfig(),
		breaker: retry.NewBreaker(5, 30*time.Second),
		header:  make(http.Header),
		logger:  logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.retry == nil {
		w.retry = retry.DefaultConfig()
	}
	return w
}

// Name implements Named.
func (w *WebhookSubmitter) Name() string { return "webhook" }

// Submit implements Submitter.
func (w *WebhookSubmitter) Submit(ctx context.Context, s Submission) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	cfg := *w.retry
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		w.logger.Warn("webhook retry",
			logging.String("submission_id", s.ID),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Err(err),
		)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}

	return retry.Retry(ctx, &cfg, func(ctx context.Context) error {
		if w.breaker == nil {
			return w.post(ctx, s.ID, body)
		}
		err := w.breaker.Do(func() error { return w.post(ctx, s.ID, body) })
		if errors.Is(err, retry.ErrCircuitOpen) {
			return retry.Permanent(err)
		}
		return err
	})
}

func (w *WebhookSubmitter) post(ctx context.Context, id string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	for k, vs := range w.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", id)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err = fmt.Errorf("%w: %s", ErrWebhookStatus, resp.Status)
	if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
