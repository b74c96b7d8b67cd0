// Package github provides a small client for the GitHub REST issue and
// milestone endpoints: bearer-token auth, JSON payloads, Link-header
// pagination, and rate-limit-aware retry.
package github

import (
	"fmt"
	"time"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the number of issues requested per page.
	MaxPageSize = 100

	// MaxPages bounds pagination to protect against malformed Link headers.
	MaxPages = 1000

	// MaxRateLimitWait caps how long the client sleeps before its single
	// rate-limit retry. Longer server-requested waits surface as errors.
	MaxRateLimitWait = 60 * time.Second
)

// APIError is a non-2xx response from the GitHub API. Message is extracted
// from the error body when present; Body keeps the raw response for
// diagnostics.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error %d: %s", e.StatusCode, e.Message)
}

// Issue is the API representation of an issue. PullRequest is non-nil when
// the record is actually a pull request; the issues listing endpoint
// returns both and callers filter.
type Issue struct {
	ID          int        `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	State       string     `json:"state"`
	StateReason string     `json:"state_reason,omitempty"`
	Labels      []Label    `json:"labels"`
	Assignees   []User     `json:"assignees"`
	Milestone   *Milestone `json:"milestone,omitempty"`
	HTMLURL     string     `json:"html_url"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	PullRequest *PullRef   `json:"pull_request,omitempty"`
}

// PullRef marks an issue record as a pull request.
type PullRef struct {
	URL string `json:"url,omitempty"`
}

// Label is the API representation of a label.
type Label struct {
	Name string `json:"name"`
}

// User is the API representation of a user.
type User struct {
	Login string `json:"login"`
}

// Milestone is the API representation of a milestone. DueOn is kept as the
// raw timestamp string so it can round-trip through front matter untouched.
type Milestone struct {
	ID          int    `json:"id"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	DueOn       string `json:"due_on,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
}

// IssueCreate is the payload for creating an issue. A nil Labels or
// Assignees slice omits the field; a non-nil empty slice transmits an
// explicit empty list. Milestone is transmitted when positive.
type IssueCreate struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
	Milestone int
	Type      string
}

// IssueUpdate is the payload for updating an issue. Nil-vs-empty slice
// semantics match IssueCreate. ClearMilestone transmits an explicit null
// milestone, which the API requires to detach an issue from a milestone.
type IssueUpdate struct {
	Title          string
	Body           string
	Labels         []string
	Assignees      []string
	Milestone      int
	ClearMilestone bool
	Type           string
	State          string
	StateReason    string
}

// MilestoneParams is the payload for creating or updating a milestone.
// Empty fields are omitted.
type MilestoneParams struct {
	Title       string
	Description string
	DueOn       string
	State       string
}
