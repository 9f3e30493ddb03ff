// Package apiclient provides the HTTP client the CLI uses to talk to a
// running aircheck daemon.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aircheck/internal/api"
)

// ErrDaemonUnavailable marks connection failures so callers can suggest
// starting the daemon.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Client talks to the daemon's HTTP API.
type Client struct {
	base *url.URL
	http *http.Client
}

// New constructs a client for the given bind address ("host:port" or a full
// URL).
func New(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""

	return &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Record submits a recording request.
func (c *Client) Record(ctx context.Context, show string, durationMinutes int) (api.Job, error) {
	body, err := json.Marshal(api.SubmitRequest{Show: show, DurationMinutes: durationMinutes})
	if err != nil {
		return api.Job{}, err
	}
	var job api.Job
	err = c.do(ctx, http.MethodPost, "/api/record", bytes.NewReader(body), &job)
	return job, err
}

// Job fetches one job by identifier.
func (c *Client) Job(ctx context.Context, id string) (api.Job, error) {
	var job api.Job
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job)
	return job, err
}

// Jobs lists jobs, optionally filtered by status values.
func (c *Client) Jobs(ctx context.Context, statuses ...string) ([]api.Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var list api.JobList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Jobs, nil
}

// Failed lists jobs retained for manual recovery.
func (c *Client) Failed(ctx context.Context) ([]api.Job, error) {
	var list api.JobList
	if err := c.do(ctx, http.MethodGet, "/api/failed", nil, &list); err != nil {
		return nil, err
	}
	return list.Jobs, nil
}

// Status fetches daemon diagnostics.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	target := *c.base
	parsed, err := url.Parse(path)
	if err != nil {
		return err
	}
	target.Path = parsed.Path
	target.RawQuery = parsed.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.Error
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
