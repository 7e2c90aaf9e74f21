package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultAPIURL is the hosted Conveyor API.
const DefaultAPIURL = "https://api.conveyor.build"

// Build statuses reported by Conveyor.
const (
	StatusOnHold    = "on_hold"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// AppDetails is the Conveyor-side record of a connected repository.
type AppDetails struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	RepoURL       string `json:"repo_url"`
	DefaultBranch string `json:"default_branch"`
}

// Build is Conveyor's view of a triggered build.
type Build struct {
	Slug   string `json:"build_slug"`
	Number int    `json:"build_number"`
	URL    string `json:"build_url"`
	Status string `json:"status"`
}

// Finished reports whether the build reached a terminal status.
func (b *Build) Finished() bool {
	switch b.Status {
	case StatusSucceeded, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// BuildLog is one page of build output.
type BuildLog struct {
	Chunks   []LogChunk `json:"chunks"`
	Cursor   string     `json:"cursor"`
	Archived bool       `json:"archived"`
}

type LogChunk struct {
	Data     string `json:"data"`
	Position int    `json:"position"`
}

// Client talks to the Conveyor REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// App fetches the app record, including the repository URL override
// resolution needs.
func (c *Client) App(ctx context.Context, app string) (*AppDetails, error) {
	details := &AppDetails{}
	if err := c.do(ctx, http.MethodGet, "/v1/apps/"+url.PathEscape(app), nil, details); err != nil {
		return nil, fmt.Errorf("could not fetch app %s: %w", app, err)
	}
	return details, nil
}

type triggerRequest struct {
	BuildParams *BuildOptions `json:"build_params"`
	TriggeredBy string        `json:"triggered_by"`
	RequestID   string        `json:"request_id"`
}

// TriggerBuild submits the build request. The request id makes
// retried submissions idempotent on the Conveyor side.
func (c *Client) TriggerBuild(ctx context.Context, app string, opts *BuildOptions) (*Build, error) {
	body := triggerRequest{
		BuildParams: opts,
		TriggeredBy: "conveyor-trigger/" + Version,
		RequestID:   uuid.NewString(),
	}
	build := &Build{}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/apps/%s/builds", url.PathEscape(app)), body, build); err != nil {
		return nil, fmt.Errorf("could not trigger build: %w", err)
	}
	return build, nil
}

// BuildStatus fetches the current state of a build.
func (c *Client) BuildStatus(ctx context.Context, app, build string) (*Build, error) {
	b := &Build{}
	path := fmt.Sprintf("/v1/apps/%s/builds/%s", url.PathEscape(app), url.PathEscape(build))
	if err := c.do(ctx, http.MethodGet, path, nil, b); err != nil {
		return nil, fmt.Errorf("could not fetch build %s: %w", build, err)
	}
	return b, nil
}

// BuildLog fetches build output after the given cursor. An empty
// cursor starts from the beginning.
func (c *Client) BuildLog(ctx context.Context, app, build, cursor string) (*BuildLog, error) {
	path := fmt.Sprintf("/v1/apps/%s/builds/%s/log", url.PathEscape(app), url.PathEscape(build))
	if cursor != "" {
		path += "?after=" + url.QueryEscape(cursor)
	}
	log := &BuildLog{}
	if err := c.do(ctx, http.MethodGet, path, nil, log); err != nil {
		return nil, fmt.Errorf("could not fetch build log: %w", err)
	}
	return log, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}
