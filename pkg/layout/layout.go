// Package layout defines the .plan directory convention and deterministic
// discovery of milestone and issue documents.
//
// The layout is fixed:
//
//	<root>/.plan/milestones/<slug>/milestone.md
//	<root>/.plan/milestones/<slug>/issues/*.md
//	<root>/.plan/issues/*.md
//
// Discovery order is lexicographic by filesystem name at every level. The
// ordering is load-bearing: it decides which local file wins duplicate
// resolution during import and keeps iteration deterministic for tests.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PlanDirName is the layout root directory, relative to the repo root.
	PlanDirName = ".plan"
	// MilestonesDirName holds one subdirectory per milestone.
	MilestonesDirName = "milestones"
	// IssuesDirName holds issue files, at the layout root and inside each
	// milestone directory.
	IssuesDirName = "issues"
	// MilestoneFilename is the fixed per-directory milestone document name.
	MilestoneFilename = "milestone.md"
)

// Layout locates the plan directories under a repository root.
type Layout struct {
	Root          string
	MilestonesDir string
	IssuesDir     string
}

// MilestoneEntry is one discovered milestone directory. MilestoneFile may
// not exist on disk; callers decide whether that is an error.
type MilestoneEntry struct {
	Dir           string
	MilestoneFile string
	IssueFiles    []string
}

func layoutFor(repoRoot string) Layout {
	planRoot := filepath.Join(repoRoot, PlanDirName)
	return Layout{
		Root:          planRoot,
		MilestonesDir: filepath.Join(planRoot, MilestonesDirName),
		IssuesDir:     filepath.Join(planRoot, IssuesDirName),
	}
}

// Ensure creates the plan layout under repoRoot, idempotently.
func Ensure(repoRoot string) (Layout, error) {
	l := layoutFor(repoRoot)
	for _, dir := range []string{l.MilestonesDir, l.IssuesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return l, nil
}

// Load resolves the plan layout under repoRoot, failing when any expected
// directory is missing. A missing layout is a fatal precondition for sync.
func Load(repoRoot string) (Layout, error) {
	l := layoutFor(repoRoot)
	for _, check := range []struct {
		dir  string
		name string
	}{
		{l.Root, PlanDirName},
		{l.MilestonesDir, MilestonesDirName},
		{l.IssuesDir, IssuesDirName},
	} {
		info, err := os.Stat(check.dir)
		if err != nil || !info.IsDir() {
			return Layout{}, fmt.Errorf("missing %s directory", check.name)
		}
	}
	return l, nil
}

// DiscoverMilestones enumerates milestone directories in lexicographic
// order, each with its (possibly missing) milestone file and its ordered
// issue files.
func DiscoverMilestones(l Layout) ([]MilestoneEntry, error) {
	dirs, err := sortedDirs(l.MilestonesDir)
	if err != nil {
		return nil, err
	}
	entries := make([]MilestoneEntry, 0, len(dirs))
	for _, dir := range dirs {
		issueFiles, err := sortedMarkdownFiles(filepath.Join(dir, IssuesDirName))
		if err != nil {
			return nil, err
		}
		entries = append(entries, MilestoneEntry{
			Dir:           dir,
			MilestoneFile: filepath.Join(dir, MilestoneFilename),
			IssueFiles:    issueFiles,
		})
	}
	return entries, nil
}

// DiscoverRootIssues enumerates standalone issue files in lexicographic
// order.
func DiscoverRootIssues(l Layout) ([]string, error) {
	return sortedMarkdownFiles(l.IssuesDir)
}

func sortedDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	return out, nil
}

func sortedMarkdownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	return out, nil
}
