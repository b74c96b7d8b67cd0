package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// transportRetries is the number of extra attempts for transport-level
// failures (connection reset, DNS, timeout) on idempotent requests before
// giving up. HTTP error statuses are never retried here; rate limits get
// their own single retry.
const transportRetries = 2

// Client calls the GitHub REST API. The zero value is not usable; construct
// with NewClient.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with the default endpoint and timeout.
func NewClient(token string) *Client {
	return &Client{
		Token:   token,
		BaseURL: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithBaseURL returns a copy of the client pointed at a custom base URL
// (tests, GitHub Enterprise).
func (c *Client) WithBaseURL(baseURL string) *Client {
	out := *c
	out.BaseURL = baseURL
	return &out
}

// WithHTTPClient returns a copy of the client using a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	out := *c
	out.HTTPClient = httpClient
	return &out
}

func (c *Client) buildURL(path string, params map[string]string) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}
	return u
}

// doRequest performs one API call with auth headers and a single rate-limit
// retry. It returns the response body and headers on 2xx and an *APIError
// otherwise.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, payload any) ([]byte, http.Header, error) {
	var jsonBody []byte
	if payload != nil {
		var err error
		jsonBody, err = json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, urlStr, jsonBody)
		if err != nil {
			return nil, nil, err
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, resp.Header, nil
		}

		if delay, ok := rateLimitDelay(resp.StatusCode, resp.Header); ok && attempt == 0 {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		return nil, nil, newAPIError(resp.StatusCode, respBody)
	}
}

// send issues a single HTTP request, retrying transport failures with
// exponential backoff on GET requests only. A timed-out POST or PATCH may
// already have been applied server-side; retrying it could create duplicate
// remote resources, so mutating calls surface their first transport error.
// The request is rebuilt per attempt so the body reader is fresh.
func (c *Client) send(ctx context.Context, method, urlStr string, jsonBody []byte) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		var reqBody io.Reader
		if jsonBody != nil {
			reqBody = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "planhub")

		r, err := c.HTTPClient.Do(req)
		if err != nil {
			if method != http.MethodGet {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), transportRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, urlStr, err)
	}
	return resp, nil
}

// rateLimitDelay decides whether a response is retryable under the
// rate-limit policy and how long to wait. A secondary rate limit (429, or
// 403 with Retry-After) waits the server-specified interval capped at
// MaxRateLimitWait. A primary limit (403 with zero remaining quota) waits
// until the reset time only when that is within MaxRateLimitWait.
func rateLimitDelay(status int, headers http.Header) (time.Duration, bool) {
	retryAfter := headers.Get("Retry-After")
	if status == http.StatusTooManyRequests || (status == http.StatusForbidden && retryAfter != "") {
		delay := MaxRateLimitWait
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
			delay = time.Duration(seconds) * time.Second
		}
		if delay > MaxRateLimitWait {
			delay = MaxRateLimitWait
		}
		return delay, true
	}

	if status == http.StatusForbidden && headers.Get("X-RateLimit-Remaining") == "0" {
		reset, err := strconv.ParseInt(headers.Get("X-RateLimit-Reset"), 10, 64)
		if err != nil {
			return 0, false
		}
		wait := time.Until(time.Unix(reset, 0))
		if wait < 0 {
			wait = 0
		}
		if wait > MaxRateLimitWait {
			return 0, false
		}
		return wait, true
	}

	return 0, false
}

func newAPIError(status int, body []byte) *APIError {
	message := "unknown error"
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}
	return &APIError{StatusCode: status, Message: message, Body: body}
}

func repoPath(owner, repo string) string {
	return "/repos/" + owner + "/" + repo
}

// CreateIssue creates an issue and returns its API representation. A
// response without an issue number is surfaced as an *APIError.
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, opts IssueCreate) (*Issue, error) {
	payload := map[string]any{"title": opts.Title}
	if opts.Body != "" {
		payload["body"] = opts.Body
	}
	if opts.Labels != nil {
		payload["labels"] = opts.Labels
	}
	if opts.Assignees != nil {
		payload["assignees"] = opts.Assignees
	}
	if opts.Milestone > 0 {
		payload["milestone"] = opts.Milestone
	}
	if opts.Type != "" {
		payload["type"] = opts.Type
	}

	urlStr := c.buildURL(repoPath(owner, repo)+"/issues", nil)
	respBody, _, err := c.doRequest(ctx, http.MethodPost, urlStr, payload)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return decodeIssue(respBody)
}

// UpdateIssue patches an existing issue. ClearMilestone transmits an
// explicit null milestone, which the API requires to detach an issue from
// its milestone; leaving both Milestone and ClearMilestone zero omits the
// field entirely, leaving the remote value unchanged.
func (c *Client) UpdateIssue(ctx context.Context, owner, repo string, number int, opts IssueUpdate) (*Issue, error) {
	payload := map[string]any{"title": opts.Title}
	if opts.Body != "" {
		payload["body"] = opts.Body
	}
	if opts.Labels != nil {
		payload["labels"] = opts.Labels
	}
	if opts.Assignees != nil {
		payload["assignees"] = opts.Assignees
	}
	switch {
	case opts.ClearMilestone:
		payload["milestone"] = nil
	case opts.Milestone > 0:
		payload["milestone"] = opts.Milestone
	}
	if opts.Type != "" {
		payload["type"] = opts.Type
	}
	if opts.State != "" {
		payload["state"] = opts.State
	}
	if opts.StateReason != "" {
		payload["state_reason"] = opts.StateReason
	}

	urlStr := c.buildURL(repoPath(owner, repo)+"/issues/"+strconv.Itoa(number), nil)
	respBody, _, err := c.doRequest(ctx, http.MethodPatch, urlStr, payload)
	if err != nil {
		return nil, fmt.Errorf("update issue #%d: %w", number, err)
	}
	var issue Issue
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return nil, fmt.Errorf("update issue #%d: parse response: %w", number, err)
	}
	return &issue, nil
}

// UpdateIssueState transitions an issue between open and closed, optionally
// with a state reason. The create endpoint cannot set closed state, so
// closed issues take this as a follow-up call after creation.
func (c *Client) UpdateIssueState(ctx context.Context, owner, repo string, number int, state, stateReason string) error {
	payload := map[string]any{"state": state}
	if stateReason != "" {
		payload["state_reason"] = stateReason
	}
	urlStr := c.buildURL(repoPath(owner, repo)+"/issues/"+strconv.Itoa(number), nil)
	if _, _, err := c.doRequest(ctx, http.MethodPatch, urlStr, payload); err != nil {
		return fmt.Errorf("update issue #%d state: %w", number, err)
	}
	return nil
}

// linkNextPattern matches the "next" relation in a GitHub Link header.
var linkNextPattern = regexp.MustCompile(`<[^>]+>;\s*rel="next"`)

func hasNextPage(headers http.Header) bool {
	return linkNextPattern.MatchString(headers.Get("Link"))
}

// ListIssues retrieves every issue in the repository for the given state
// filter, following Link-header pagination until exhausted. The raw listing
// includes pull requests; callers filter them via the PullRequest field.
func (c *Client) ListIssues(ctx context.Context, owner, repo, state string) ([]Issue, error) {
	var all []Issue
	for page := 1; ; page++ {
		if page > MaxPages {
			return nil, fmt.Errorf("list issues: pagination exceeded %d pages", MaxPages)
		}
		params := map[string]string{
			"state":    state,
			"per_page": strconv.Itoa(MaxPageSize),
			"page":     strconv.Itoa(page),
		}
		urlStr := c.buildURL(repoPath(owner, repo)+"/issues", params)
		respBody, headers, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, fmt.Errorf("list issues: %w", err)
		}
		var issues []Issue
		if err := json.Unmarshal(respBody, &issues); err != nil {
			return nil, fmt.Errorf("list issues: parse response: %w", err)
		}
		all = append(all, issues...)
		if !hasNextPage(headers) {
			return all, nil
		}
	}
}

// CreateMilestone creates a milestone and returns its API representation. A
// response without a milestone number is surfaced as an *APIError.
func (c *Client) CreateMilestone(ctx context.Context, owner, repo string, opts MilestoneParams) (*Milestone, error) {
	urlStr := c.buildURL(repoPath(owner, repo)+"/milestones", nil)
	respBody, _, err := c.doRequest(ctx, http.MethodPost, urlStr, milestonePayload(opts))
	if err != nil {
		return nil, fmt.Errorf("create milestone: %w", err)
	}
	return decodeMilestone(respBody)
}

// UpdateMilestone patches an existing milestone.
func (c *Client) UpdateMilestone(ctx context.Context, owner, repo string, number int, opts MilestoneParams) (*Milestone, error) {
	urlStr := c.buildURL(repoPath(owner, repo)+"/milestones/"+strconv.Itoa(number), nil)
	respBody, _, err := c.doRequest(ctx, http.MethodPatch, urlStr, milestonePayload(opts))
	if err != nil {
		return nil, fmt.Errorf("update milestone #%d: %w", number, err)
	}
	var milestone Milestone
	if err := json.Unmarshal(respBody, &milestone); err != nil {
		return nil, fmt.Errorf("update milestone #%d: parse response: %w", number, err)
	}
	return &milestone, nil
}

func milestonePayload(opts MilestoneParams) map[string]any {
	payload := map[string]any{"title": opts.Title}
	if opts.Description != "" {
		payload["description"] = opts.Description
	}
	if opts.DueOn != "" {
		payload["due_on"] = opts.DueOn
	}
	if opts.State != "" {
		payload["state"] = opts.State
	}
	return payload
}

func decodeIssue(body []byte) (*Issue, error) {
	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil || issue.Number == 0 {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    "response did not contain an issue number",
			Body:       body,
		}
	}
	return &issue, nil
}

func decodeMilestone(body []byte) (*Milestone, error) {
	var milestone Milestone
	if err := json.Unmarshal(body, &milestone); err != nil || milestone.Number == 0 {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    "response did not contain a milestone number",
			Body:       body,
		}
	}
	return &milestone, nil
}
