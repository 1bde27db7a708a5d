// Package carrier fetches raw shipment status text from an external tracking service.
package carrier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// Tracker returns the carrier's raw status text for a tracking number. Calls may block.
type Tracker interface {
	FetchStatus(ctx context.Context, trackingNumber string) (string, error)
}

// HTTPTracker calls GET {base}/tracking/{number} and reads {"status": "..."}.
type HTTPTracker struct {
	baseURL string
	timeout time.Duration
}

type statusResponse struct {
	Status string `json:"status"`
}

// NewHTTPTracker creates a tracker for the given API base URL.
func NewHTTPTracker(baseURL string, timeout time.Duration) *HTTPTracker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTracker{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

func (t *HTTPTracker) FetchStatus(ctx context.Context, trackingNumber string) (string, error) {
	if trackingNumber == "" {
		return "", errors.New("tracking number is empty")
	}
	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	agent := fiber.Get(t.baseURL + "/tracking/" + url.PathEscape(trackingNumber)).Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("tracking request failed: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return "", fmt.Errorf("tracking request returned status %d", code)
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode tracking response: %w", err)
	}
	return strings.TrimSpace(resp.Status), nil
}
