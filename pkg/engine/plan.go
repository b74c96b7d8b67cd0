// Package engine builds and executes sync plans: local plan documents are
// classified into create and update work for milestones and issues, then
// applied against the GitHub API in phases.
package engine

import (
	"fmt"
	"os"

	"github.com/goblinsan/planhub/pkg/document"
	"github.com/goblinsan/planhub/pkg/layout"
)

// PlannedMilestone is a milestone document scheduled for create or update.
type PlannedMilestone struct {
	Doc *document.Milestone
}

// PlannedIssue is an issue document scheduled for create or update.
// MilestoneTitle is the title of the enclosing milestone directory, if any;
// it is the fallback milestone reference for issues that do not name one.
type PlannedIssue struct {
	Doc            *document.Issue
	MilestoneTitle string
}

// SyncPlan is the classified work for one sync run. Documents with a number
// already exist remotely and become updates; documents without one become
// creates. MilestoneNumbers maps milestone titles to known numbers; the
// executor extends it as creates complete, so issue phases can resolve
// titles for milestones that did not exist when the plan was built.
type SyncPlan struct {
	MilestoneCreates []PlannedMilestone
	MilestoneUpdates []PlannedMilestone
	IssueCreates     []PlannedIssue
	IssueUpdates     []PlannedIssue
	MilestoneNumbers map[string]int
}

// Build walks the plan layout and classifies every document. Malformed
// documents are reported in the returned error list and skipped; a broken
// file never aborts the run. A milestone directory whose milestone.md is
// missing or malformed is skipped entirely, issues included, because its
// issues would inherit an unknown title. Returns the plan, the number of
// milestones and issues successfully parsed, and the accumulated errors.
func Build(l layout.Layout) (*SyncPlan, int, int, []string) {
	plan := &SyncPlan{MilestoneNumbers: make(map[string]int)}
	var errors []string
	parsedMilestones := 0
	parsedIssues := 0

	entries, err := layout.DiscoverMilestones(l)
	if err != nil {
		return plan, 0, 0, []string{err.Error()}
	}
	for _, entry := range entries {
		milestone, err := document.LoadMilestone(entry.MilestoneFile)
		if err != nil {
			errors = append(errors, milestoneEntryError(entry, err))
			continue
		}
		planned := PlannedMilestone{Doc: milestone}
		if milestone.Number != 0 {
			plan.MilestoneNumbers[milestone.Title] = milestone.Number
			plan.MilestoneUpdates = append(plan.MilestoneUpdates, planned)
		} else {
			plan.MilestoneCreates = append(plan.MilestoneCreates, planned)
		}
		parsedMilestones++

		for _, issueFile := range entry.IssueFiles {
			if collectIssue(plan, issueFile, milestone.Title, &errors) {
				parsedIssues++
			}
		}
	}

	rootIssues, err := layout.DiscoverRootIssues(l)
	if err != nil {
		errors = append(errors, err.Error())
		return plan, parsedMilestones, parsedIssues, errors
	}
	for _, issueFile := range rootIssues {
		if collectIssue(plan, issueFile, "", &errors) {
			parsedIssues++
		}
	}
	return plan, parsedMilestones, parsedIssues, errors
}

func milestoneEntryError(entry layout.MilestoneEntry, err error) string {
	if os.IsNotExist(err) {
		return fmt.Sprintf("%s: missing %s", entry.MilestoneFile, layout.MilestoneFilename)
	}
	if docErr, ok := err.(*document.Error); ok {
		return docErr.Error()
	}
	return fmt.Sprintf("%s: %v", entry.MilestoneFile, err)
}

func collectIssue(plan *SyncPlan, path, milestoneTitle string, errors *[]string) bool {
	issue, err := document.LoadIssue(path)
	if err != nil {
		*errors = append(*errors, issueLoadError(path, err))
		return false
	}
	if issue.StateReason != "" && issue.State != document.StateClosed {
		*errors = append(*errors, fmt.Sprintf("%s: state_reason requires state=%q", path, document.StateClosed))
		return false
	}
	planned := PlannedIssue{Doc: issue, MilestoneTitle: milestoneTitle}
	if issue.Number != 0 {
		plan.IssueUpdates = append(plan.IssueUpdates, planned)
	} else {
		plan.IssueCreates = append(plan.IssueCreates, planned)
	}
	return true
}

func issueLoadError(path string, err error) string {
	if docErr, ok := err.(*document.Error); ok {
		return docErr.Error()
	}
	return fmt.Sprintf("%s: %v", path, err)
}
