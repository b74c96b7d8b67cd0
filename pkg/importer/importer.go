// Package importer pulls existing remote issues into the local plan layout.
// It is the inverse of the sync engine: remote state is materialized as
// local documents, de-duplicated against files that already track a remote
// number or match an unnumbered file by content.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goblinsan/planhub/pkg/document"
	"github.com/goblinsan/planhub/pkg/github"
	"github.com/goblinsan/planhub/pkg/layout"
)

// Client defines the GitHub operations the importer needs.
type Client interface {
	ListIssues(ctx context.Context, owner, repo, state string) ([]github.Issue, error)
}

// Ensure *github.Client satisfies the interface at compile time.
var _ Client = (*github.Client)(nil)

// Result summarizes an import run. Errors collects per-file problems; a
// broken local file never aborts the import.
type Result struct {
	IssuesCreated     int
	IssuesMoved       int
	IssuesSkipped     int
	MilestonesCreated int
	Errors            []string
}

// localIssue is one indexed local issue file.
type localIssue struct {
	path string
	doc  *document.Issue
}

// index is the local side of de-duplication: issues that already carry a
// remote number, and unnumbered issues keyed by content. Discovery order is
// lexicographic, so the first file wins when duplicates exist.
type index struct {
	byNumber   map[int]localIssue
	unnumbered []localIssue
}

// Import lists all remote issues (any state, pull requests filtered out)
// and reconciles each against the local layout. A remote issue matching a
// local file by number is left alone, relocating the file first when its
// milestone directory changed. An unnumbered local file matching by title
// and body is back-filled with the number. Remote issues with no local
// counterpart are written as new files, except closed ones, which are
// skipped. When dryRun is set no local write happens but counts are
// reported as if it had.
func Import(ctx context.Context, client Client, l layout.Layout, owner, repo string, dryRun bool) (*Result, error) {
	issues, err := client.ListIssues(ctx, owner, repo, "all")
	if err != nil {
		return nil, err
	}

	result := &Result{}
	idx := buildIndex(l, result)

	for i := range issues {
		issue := &issues[i]
		if issue.PullRequest != nil {
			continue
		}
		if issue.Number == 0 {
			result.IssuesSkipped++
			continue
		}

		targetDir := l.IssuesDir
		milestoneTitle := ""
		if issue.Milestone != nil && issue.Milestone.Title != "" {
			milestoneTitle = issue.Milestone.Title
			dir, created, err := ensureMilestoneDir(l, issue.Milestone, dryRun)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			if created {
				result.MilestonesCreated++
			}
			targetDir = dir
		}

		importIssue(issue, milestoneTitle, targetDir, idx, dryRun, result)
	}
	return result, nil
}

func importIssue(issue *github.Issue, milestoneTitle, targetDir string, idx *index, dryRun bool, result *Result) {
	// Numbered match: the file already tracks this remote issue.
	if local, ok := idx.byNumber[issue.Number]; ok {
		if filepath.Dir(local.path) != targetDir {
			if err := relocate(local.path, targetDir, issue.Number, dryRun); err != nil {
				result.Errors = append(result.Errors, err.Error())
				return
			}
			result.IssuesMoved++
			return
		}
		result.IssuesSkipped++
		return
	}

	// Content match: back-fill the number into an unnumbered local file.
	if local, ok := idx.takeByContent(issue.Title, issue.Body); ok {
		if !dryRun {
			number := document.NewFrontMatter()
			number.Set("number", issue.Number)
			if err := document.Update(local.path, number, nil); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", local.path, err))
				return
			}
		}
		if filepath.Dir(local.path) != targetDir {
			if err := relocate(local.path, targetDir, issue.Number, dryRun); err != nil {
				result.Errors = append(result.Errors, err.Error())
				return
			}
			result.IssuesMoved++
			return
		}
		result.IssuesSkipped++
		return
	}

	// No local counterpart. Closed tickets are history, not plan.
	if issue.State == string(document.StateClosed) {
		result.IssuesSkipped++
		return
	}

	path := importPath(targetDir, issue)
	if !dryRun {
		if err := writeIssueFile(path, issue, milestoneTitle); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return
		}
	}
	result.IssuesCreated++
}

// buildIndex parses every local issue file in discovery order. Files that
// fail to parse are reported and left out of the index.
func buildIndex(l layout.Layout, result *Result) *index {
	idx := &index{byNumber: make(map[int]localIssue)}

	addFile := func(path string) {
		doc, err := document.LoadIssue(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return
		}
		if doc.Number != 0 {
			if _, ok := idx.byNumber[doc.Number]; !ok {
				idx.byNumber[doc.Number] = localIssue{path: path, doc: doc}
			}
			return
		}
		idx.unnumbered = append(idx.unnumbered, localIssue{path: path, doc: doc})
	}

	entries, err := layout.DiscoverMilestones(l)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	for _, entry := range entries {
		for _, path := range entry.IssueFiles {
			addFile(path)
		}
	}
	rootIssues, err := layout.DiscoverRootIssues(l)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	for _, path := range rootIssues {
		addFile(path)
	}
	return idx
}

// takeByContent finds the first unnumbered local file with the same title
// and body and removes it from the pool so it cannot match twice.
func (idx *index) takeByContent(title, body string) (localIssue, bool) {
	for i, local := range idx.unnumbered {
		if local.doc.Title == title && local.doc.Body == body {
			idx.unnumbered = append(idx.unnumbered[:i], idx.unnumbered[i+1:]...)
			return local, true
		}
	}
	return localIssue{}, false
}

// ensureMilestoneDir creates the local directory for a remote milestone if
// missing: slug directory, milestone.md, and the nested issues directory.
// Idempotent. Returns the issues directory and whether anything was created.
func ensureMilestoneDir(l layout.Layout, milestone *github.Milestone, dryRun bool) (string, bool, error) {
	slug := slugify(milestone.Title)
	if slug == "" {
		slug = "milestone"
	}
	milestoneDir := filepath.Join(l.MilestonesDir, slug)
	milestonePath := filepath.Join(milestoneDir, layout.MilestoneFilename)
	issuesDir := filepath.Join(milestoneDir, layout.IssuesDirName)

	created := false
	if _, err := os.Stat(milestoneDir); os.IsNotExist(err) {
		created = true
		if !dryRun {
			if err := os.MkdirAll(milestoneDir, 0o755); err != nil {
				return "", false, fmt.Errorf("create %s: %w", milestoneDir, err)
			}
		}
	}
	if _, err := os.Stat(milestonePath); os.IsNotExist(err) {
		created = true
		if !dryRun {
			if err := writeMilestoneFile(milestonePath, milestone); err != nil {
				return "", false, fmt.Errorf("%s: %w", milestonePath, err)
			}
		}
	}
	if !dryRun {
		if err := os.MkdirAll(issuesDir, 0o755); err != nil {
			return "", false, fmt.Errorf("create %s: %w", issuesDir, err)
		}
	}
	return issuesDir, created, nil
}

func writeMilestoneFile(path string, milestone *github.Milestone) error {
	meta := document.NewFrontMatter()
	meta.Set("title", strings.TrimSpace(milestone.Title))
	meta.Set("number", milestone.Number)
	if milestone.Description != "" {
		meta.Set("description", milestone.Description)
	}
	if milestone.DueOn != "" {
		meta.Set("due_on", milestone.DueOn)
	}
	if milestone.State != "" {
		meta.Set("state", milestone.State)
	}
	text, err := document.Render(meta, "")
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func writeIssueFile(path string, issue *github.Issue, milestoneTitle string) error {
	meta := document.NewFrontMatter()
	meta.Set("title", strings.TrimSpace(issue.Title))
	meta.Set("number", issue.Number)
	if len(issue.Labels) > 0 {
		labels := make([]any, len(issue.Labels))
		for i, label := range issue.Labels {
			labels[i] = label.Name
		}
		meta.Set("labels", labels)
	}
	if len(issue.Assignees) > 0 {
		assignees := make([]any, len(issue.Assignees))
		for i, assignee := range issue.Assignees {
			assignees[i] = assignee.Login
		}
		meta.Set("assignees", assignees)
	}
	if milestoneTitle != "" {
		meta.Set("milestone", milestoneTitle)
	}
	if issue.State != "" {
		meta.Set("state", issue.State)
	}
	if issue.StateReason != "" {
		meta.Set("state_reason", issue.StateReason)
	}
	text, err := document.Render(meta, strings.TrimSpace(issue.Body))
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// relocate moves a local issue file into targetDir, disambiguating the
// filename on collision the same way new imports do.
func relocate(path, targetDir string, number int, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", targetDir, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), ".md")
	target := availablePath(targetDir, base, number)
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("move %s: %w", path, err)
	}
	return nil
}

// importPath builds the filename for a newly imported issue:
// YYYYMMDD-slug(title).md from the remote creation date, with numeric
// disambiguation on collision.
func importPath(dir string, issue *github.Issue) string {
	date := "00000000"
	if issue.CreatedAt != nil {
		date = issue.CreatedAt.Format("20060102")
	}
	slug := slugify(strings.TrimSpace(issue.Title))
	if slug == "" {
		slug = "issue"
	}
	return availablePath(dir, date+"-"+slug, issue.Number)
}

// availablePath returns the first free path for base in dir: base.md, then
// base-<number>.md, then base-2.md, base-3.md and so on.
func availablePath(dir, base string, number int) string {
	path := filepath.Join(dir, base+".md")
	if !exists(path) {
		return path
	}
	if number > 0 {
		withNumber := filepath.Join(dir, base+"-"+strconv.Itoa(number)+".md")
		if !exists(withNumber) {
			return withNumber
		}
	}
	for i := 2; ; i++ {
		candidate := filepath.Join(dir, base+"-"+strconv.Itoa(i)+".md")
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// slugify lowercases a title and keeps only alphanumerics, joining word
// separators with hyphens.
func slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
