// Package collector forwards completion reports to the downstream collector
// service.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/NanzeRT/queues-demo/pkg/log"
)

const (
	// DefaultTimeout bounds a single submit attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAttempts is how many times a completion is offered to the
	// collector before it is dropped with an error log. The queue state is
	// already final by then; forwarding is best effort.
	DefaultMaxAttempts = 5
)

// Completion is the report sent for every finished task.
type Completion struct {
	SubmissionID string `json:"submission_id"`
	Info         string `json:"info"`
}

// Client posts completions to the collector with bounded exponential
// backoff.
type Client struct {
	base        string
	http        *http.Client
	logger      log.Logger
	maxAttempts int

	// initialInterval shortens the first backoff pause in tests.
	initialInterval time.Duration
}

// NewClient creates a collector client against baseURL, e.g.
// "http://localhost:3002".
func NewClient(baseURL string, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Client{
		base:            strings.TrimRight(baseURL, "/"),
		http:            &http.Client{Timeout: DefaultTimeout},
		logger:          logger.With(log.Component("collector")),
		maxAttempts:     DefaultMaxAttempts,
		initialInterval: 500 * time.Millisecond,
	}
}

// Submit delivers one completion. Transient failures (transport errors, 5xx)
// are retried with exponential backoff up to the attempt budget; a 4xx means
// the collector rejected the report and retrying cannot help.
func (c *Client) Submit(ctx context.Context, comp Completion) error {
	body, err := json.Marshal(comp)
	if err != nil {
		return fmt.Errorf("collector: encode completion: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/submit", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("collector: build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn("collector submit failed",
				log.Str("submission_id", comp.SubmissionID),
				log.Int("attempt", attempt),
				log.Err(err))
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("collector: submit rejected: status %d", resp.StatusCode))
		default:
			c.logger.Warn("collector submit failed",
				log.Str("submission_id", comp.SubmissionID),
				log.Int("attempt", attempt),
				log.Int("status", resp.StatusCode))
			return fmt.Errorf("collector: submit: status %d", resp.StatusCode)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("collector: giving up after %d attempts: %w", attempt, err)
	}
	return nil
}
