// Package exploits talks to the storage service that holds exploit payloads.
package exploits

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NanzeRT/queues-demo/pkg/log"
)

// DefaultTimeout bounds a single payload fetch.
const DefaultTimeout = 10 * time.Second

// Client fetches exploit payloads by submission id.
type Client struct {
	base   string
	http   *http.Client
	logger log.Logger
}

// NewClient creates a storage client against baseURL, e.g.
// "http://localhost:3001".
func NewClient(baseURL string, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: logger.With(log.Component("exploits")),
	}
}

// GetExploit returns the payload stored for submissionID. Any transport
// failure or non-200 status is an error; the caller decides whether to
// requeue the task it was fetching for.
func (c *Client) GetExploit(ctx context.Context, submissionID string) (string, error) {
	u := c.base + "/get_exploit/" + url.PathEscape(submissionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("exploits: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("exploits: get %s: %w", submissionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("exploits: get %s: status %d", submissionID, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("exploits: read body: %w", err)
	}
	return string(body), nil
}
