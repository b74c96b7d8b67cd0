package document

import (
	"os"
	"strconv"
	"strings"
)

// State is an issue or milestone lifecycle state.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// StateReason qualifies why an issue is closed (or that it was reopened).
type StateReason string

const (
	ReasonCompleted  StateReason = "completed"
	ReasonNotPlanned StateReason = "not_planned"
	ReasonReopened   StateReason = "reopened"
)

// MilestoneRef is the three-way milestone reference of an issue document:
// the key may be absent (Set=false), an explicit null meaning clear the
// milestone (Set=true, no title, no number), a title string, or a number.
type MilestoneRef struct {
	Set    bool
	Title  string
	Number int
}

// IsClear reports an explicit "milestone: null" reference.
func (r MilestoneRef) IsClear() bool {
	return r.Set && r.Title == "" && r.Number == 0
}

// Issue is a parsed issue document. Zero Number means the issue has not
// been created remotely yet. LabelsSet/AssigneesSet record whether the key
// was present, distinguishing "leave unchanged" from "explicitly empty".
type Issue struct {
	Path         string
	Title        string
	Body         string
	ID           string
	Number       int
	Labels       []string
	LabelsSet    bool
	Milestone    MilestoneRef
	Assignees    []string
	AssigneesSet bool
	Type         string
	State        State
	StateReason  StateReason
}

// LoadIssue reads and parses an issue document from disk.
func LoadIssue(path string) (*Issue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := Parse(path, string(raw))
	if err != nil {
		return nil, err
	}
	return ParseIssue(file)
}

// ParseIssue builds a typed issue from an already-parsed file.
func ParseIssue(file *File) (*Issue, error) {
	issue := &Issue{Path: file.Path, Body: file.Body}
	var err error
	if issue.Title, err = requireString(file, "title"); err != nil {
		return nil, err
	}
	if issue.ID, err = optionalString(file, "id"); err != nil {
		return nil, err
	}
	if issue.Number, err = optionalInt(file, "number"); err != nil {
		return nil, err
	}
	if issue.Labels, err = optionalStringList(file, "labels"); err != nil {
		return nil, err
	}
	issue.LabelsSet = file.Meta.Has("labels")
	if issue.Milestone, err = optionalMilestone(file); err != nil {
		return nil, err
	}
	if issue.Assignees, err = optionalStringList(file, "assignees"); err != nil {
		return nil, err
	}
	issue.AssigneesSet = file.Meta.Has("assignees")
	if issue.Type, err = optionalString(file, "type"); err != nil {
		return nil, err
	}
	if issue.State, err = optionalState(file, "state"); err != nil {
		return nil, err
	}
	if issue.StateReason, err = optionalStateReason(file, "state_reason"); err != nil {
		return nil, err
	}
	return issue, nil
}

// Metadata rebuilds the front matter for the issue's explicitly-set fields,
// in canonical key order. Used as the cached representation when writing a
// remote-assigned number back without re-reading the file.
func (i *Issue) Metadata() *FrontMatter {
	meta := NewFrontMatter()
	meta.Set("title", i.Title)
	if i.ID != "" {
		meta.Set("id", i.ID)
	}
	if i.Number != 0 {
		meta.Set("number", i.Number)
	}
	if i.LabelsSet {
		meta.Set("labels", stringsToAny(i.Labels))
	}
	if i.Milestone.Set {
		switch {
		case i.Milestone.Number != 0:
			meta.Set("milestone", i.Milestone.Number)
		case i.Milestone.Title != "":
			meta.Set("milestone", i.Milestone.Title)
		default:
			meta.Set("milestone", nil)
		}
	}
	if i.AssigneesSet {
		meta.Set("assignees", stringsToAny(i.Assignees))
	}
	if i.Type != "" {
		meta.Set("type", i.Type)
	}
	if i.State != "" {
		meta.Set("state", string(i.State))
	}
	if i.StateReason != "" {
		meta.Set("state_reason", string(i.StateReason))
	}
	return meta
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func requireString(file *File, key string) (string, error) {
	value, ok := file.Meta.Get(key).(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", errorf(file.Path, "missing or invalid %q", key)
	}
	return value, nil
}

func optionalString(file *File, key string) (string, error) {
	raw := file.Meta.Get(key)
	if raw == nil {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", errorf(file.Path, "expected %q to be a string", key)
	}
	return value, nil
}

func optionalInt(file *File, key string) (int, error) {
	raw := file.Meta.Get(key)
	switch value := raw.(type) {
	case nil:
		return 0, nil
	case int:
		if value >= 0 {
			return value, nil
		}
	case string:
		// Digit-only; a signed string like "-5" is not a remote number.
		if isDigits(value) {
			if n, err := strconv.Atoi(value); err == nil {
				return n, nil
			}
		}
	}
	return 0, errorf(file.Path, "expected %q to be a non-negative integer", key)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func optionalStringList(file *File, key string) ([]string, error) {
	raw := file.Meta.Get(key)
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errorf(file.Path, "expected %q to be a list of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errorf(file.Path, "expected %q to be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalMilestone(file *File) (MilestoneRef, error) {
	if !file.Meta.Has("milestone") {
		return MilestoneRef{}, nil
	}
	switch value := file.Meta.Get("milestone").(type) {
	case nil:
		return MilestoneRef{Set: true}, nil
	case int:
		return MilestoneRef{Set: true, Number: value}, nil
	case string:
		return MilestoneRef{Set: true, Title: value}, nil
	default:
		return MilestoneRef{}, errorf(file.Path, "expected %q to be a string, integer, or null", "milestone")
	}
}

func optionalState(file *File, key string) (State, error) {
	value, err := optionalString(file, key)
	if err != nil {
		return "", err
	}
	switch State(value) {
	case "", StateOpen, StateClosed:
		return State(value), nil
	}
	return "", errorf(file.Path, "unknown state %q", value)
}

func optionalStateReason(file *File, key string) (StateReason, error) {
	value, err := optionalString(file, key)
	if err != nil {
		return "", err
	}
	switch StateReason(value) {
	case "", ReasonCompleted, ReasonNotPlanned, ReasonReopened:
		return StateReason(value), nil
	}
	return "", errorf(file.Path, "unknown state_reason %q", value)
}
