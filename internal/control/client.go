// Package control talks to the backend's HTTP side: demo event triggers
// and the site alert status.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rockwatch/internal/logger"
)

// AlertStatus is the backend's current alert posture
type AlertStatus struct {
	Mode     string `json:"mode"`
	Location string `json:"location"`
}

// Client issues control requests against one backend base URL
type Client struct {
	base string
	http *http.Client
	log  *logger.Logger
}

// NewClient creates a control client. base is the backend's HTTP base URL,
// e.g. "http://backend-a:8000".
func NewClient(base string, log *logger.Logger) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
		log:  log,
	}
}

// TriggerEvent asks the backend to simulate one event. The event type is
// validated server-side; a rejected type comes back as an error.
func (c *Client) TriggerEvent(ctx context.Context, eventType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/trigger_event/"+eventType, nil)
	if err != nil {
		return fmt.Errorf("failed to build trigger request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trigger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trigger rejected: %s", readError(resp))
	}
	c.log.Info("event trigger accepted", "type", eventType)
	return nil
}

// AlertStatus fetches the backend's current alert mode and location
func (c *Client) AlertStatus(ctx context.Context) (AlertStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/alert", nil)
	if err != nil {
		return AlertStatus{}, fmt.Errorf("failed to build alert request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return AlertStatus{}, fmt.Errorf("alert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AlertStatus{}, fmt.Errorf("alert request rejected: %s", readError(resp))
	}

	var status AlertStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return AlertStatus{}, fmt.Errorf("failed to decode alert status: %w", err)
	}
	return status, nil
}

// SetAlertMode updates the backend's alert mode (safe, warning, emergency)
func (c *Client) SetAlertMode(ctx context.Context, mode string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/alert/"+mode, nil)
	if err != nil {
		return fmt.Errorf("failed to build alert update: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("alert update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alert update rejected: %s", readError(resp))
	}
	return nil
}

// readError pulls the {"error": ...} body out of a failed response,
// falling back to the HTTP status line.
func readError(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return resp.Status
}
