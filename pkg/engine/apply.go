package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goblinsan/planhub/pkg/document"
	"github.com/goblinsan/planhub/pkg/github"
)

// maxWorkers bounds the concurrency of each parallel phase. Conservative to
// stay clear of GitHub secondary rate limits.
const maxWorkers = 5

// Client defines the GitHub operations the executor needs.
type Client interface {
	CreateIssue(ctx context.Context, owner, repo string, opts github.IssueCreate) (*github.Issue, error)
	UpdateIssue(ctx context.Context, owner, repo string, number int, opts github.IssueUpdate) (*github.Issue, error)
	UpdateIssueState(ctx context.Context, owner, repo string, number int, state, stateReason string) error
	CreateMilestone(ctx context.Context, owner, repo string, opts github.MilestoneParams) (*github.Milestone, error)
	UpdateMilestone(ctx context.Context, owner, repo string, number int, opts github.MilestoneParams) (*github.Milestone, error)
}

// Ensure *github.Client satisfies the interface at compile time.
var _ Client = (*github.Client)(nil)

// errorList accumulates failure messages from concurrent workers.
type errorList struct {
	mu   sync.Mutex
	errs []string
}

func (e *errorList) add(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, fmt.Sprintf(format, args...))
}

// Apply executes a sync plan in four phases: milestone creates run first and
// sequentially, because later phases resolve milestone titles through the
// numbers they assign; milestone updates, issue creates, and issue updates
// each run as a bounded parallel phase. A failed item is reported and
// skipped, never aborting the run. Returns the accumulated error messages.
func Apply(ctx context.Context, client Client, owner, repo string, plan *SyncPlan) []string {
	errs := &errorList{}

	for _, planned := range plan.MilestoneCreates {
		createMilestone(ctx, client, owner, repo, plan, planned, errs)
	}

	runParallel(ctx, plan.MilestoneUpdates, func(ctx context.Context, planned PlannedMilestone) {
		updateMilestone(ctx, client, owner, repo, planned, errs)
	})
	runParallel(ctx, plan.IssueCreates, func(ctx context.Context, planned PlannedIssue) {
		createIssue(ctx, client, owner, repo, plan, planned, errs)
	})
	runParallel(ctx, plan.IssueUpdates, func(ctx context.Context, planned PlannedIssue) {
		updateIssue(ctx, client, owner, repo, plan, planned, errs)
	})

	return errs.errs
}

// runParallel fans items out to a bounded worker pool and waits for all of
// them. Workers report failures through the shared error list, so the group
// itself never sees an error.
func runParallel[T any](ctx context.Context, items []T, work func(context.Context, T)) {
	if len(items) == 0 {
		return
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxWorkers)
	for _, item := range items {
		item := item
		group.Go(func() error {
			work(groupCtx, item)
			return nil
		})
	}
	_ = group.Wait()
}

func milestoneParams(m *document.Milestone) github.MilestoneParams {
	return github.MilestoneParams{
		Title:       m.Title,
		Description: m.Description,
		DueOn:       m.DueOn,
		State:       string(m.State),
	}
}

func createMilestone(ctx context.Context, client Client, owner, repo string, plan *SyncPlan, planned PlannedMilestone, errs *errorList) {
	doc := planned.Doc
	created, err := client.CreateMilestone(ctx, owner, repo, milestoneParams(doc))
	if err != nil {
		errs.add("%s: %v", doc.Path, err)
		return
	}
	plan.MilestoneNumbers[doc.Title] = created.Number

	number := document.NewFrontMatter()
	number.Set("number", created.Number)
	cached := &document.File{Path: doc.Path, Meta: doc.Metadata(), Body: doc.Body}
	if err := document.Update(doc.Path, number, cached); err != nil {
		errs.add("%s: write back number: %v", doc.Path, err)
	}
}

func updateMilestone(ctx context.Context, client Client, owner, repo string, planned PlannedMilestone, errs *errorList) {
	doc := planned.Doc
	if _, err := client.UpdateMilestone(ctx, owner, repo, doc.Number, milestoneParams(doc)); err != nil {
		errs.add("%s: %v", doc.Path, err)
	}
}

// resolveMilestone turns an issue's milestone reference into the number to
// transmit. Precedence: an explicit number wins, then an explicit null
// (clear), then the issue's own title, then the title inherited from the
// enclosing milestone directory. A title with no known number is an error;
// the caller skips the issue rather than sync it against the wrong
// milestone.
func resolveMilestone(plan *SyncPlan, planned PlannedIssue) (number int, clear bool, err error) {
	issue := planned.Doc
	if issue.Milestone.Number != 0 {
		return issue.Milestone.Number, false, nil
	}
	if issue.Milestone.IsClear() {
		return 0, true, nil
	}
	title := issue.Milestone.Title
	if title == "" {
		title = planned.MilestoneTitle
	}
	if title == "" {
		return 0, false, nil
	}
	n, ok := plan.MilestoneNumbers[title]
	if !ok {
		return 0, false, fmt.Errorf("milestone %q has no number", title)
	}
	return n, false, nil
}

// explicitList returns the slice to transmit for a labels/assignees field:
// nil when the key was absent (leave unchanged), a non-nil slice otherwise
// so that an empty list is transmitted explicitly.
func explicitList(set bool, values []string) []string {
	if !set {
		return nil
	}
	if values == nil {
		return []string{}
	}
	return values
}

func createIssue(ctx context.Context, client Client, owner, repo string, plan *SyncPlan, planned PlannedIssue, errs *errorList) {
	doc := planned.Doc
	number, _, err := resolveMilestone(plan, planned)
	if err != nil {
		errs.add("%s: %v", doc.Path, err)
		return
	}
	created, err := client.CreateIssue(ctx, owner, repo, github.IssueCreate{
		Title:     doc.Title,
		Body:      doc.Body,
		Labels:    explicitList(doc.LabelsSet, doc.Labels),
		Assignees: explicitList(doc.AssigneesSet, doc.Assignees),
		Milestone: number,
		Type:      doc.Type,
	})
	if err != nil {
		errs.add("%s: %v", doc.Path, err)
		return
	}

	assigned := document.NewFrontMatter()
	assigned.Set("number", created.Number)
	cached := &document.File{Path: doc.Path, Meta: doc.Metadata(), Body: doc.Body}
	if err := document.Update(doc.Path, assigned, cached); err != nil {
		errs.add("%s: write back number: %v", doc.Path, err)
		return
	}

	// Creation always opens the issue; a closed document needs a follow-up
	// state transition.
	if doc.State == document.StateClosed {
		if err := client.UpdateIssueState(ctx, owner, repo, created.Number, string(doc.State), string(doc.StateReason)); err != nil {
			errs.add("%s: %v", doc.Path, err)
		}
	}
}

func updateIssue(ctx context.Context, client Client, owner, repo string, plan *SyncPlan, planned PlannedIssue, errs *errorList) {
	doc := planned.Doc
	number, clear, err := resolveMilestone(plan, planned)
	if err != nil {
		errs.add("%s: %v", doc.Path, err)
		return
	}
	_, err = client.UpdateIssue(ctx, owner, repo, doc.Number, github.IssueUpdate{
		Title:          doc.Title,
		Body:           doc.Body,
		Labels:         explicitList(doc.LabelsSet, doc.Labels),
		Assignees:      explicitList(doc.AssigneesSet, doc.Assignees),
		Milestone:      number,
		ClearMilestone: clear,
		Type:           doc.Type,
		State:          string(doc.State),
		StateReason:    string(doc.StateReason),
	})
	if err != nil {
		errs.add("%s: %v", doc.Path, err)
	}
}
