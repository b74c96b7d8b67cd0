package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goblinsan/planhub/pkg/github"
	"github.com/goblinsan/planhub/pkg/layout"
)

type stubLister struct {
	issues []github.Issue
}

func (s *stubLister) ListIssues(_ context.Context, _, _, _ string) ([]github.Issue, error) {
	return s.issues, nil
}

func TestRunImport_CleanImportSucceeds(t *testing.T) {
	root := newPlanRoot(t)
	l, err := layout.Load(root)
	if err != nil {
		t.Fatal(err)
	}

	created := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	issue := github.Issue{Number: 21, Title: "Build the thing", State: "open", CreatedAt: &created}

	var out bytes.Buffer
	if !runImport(&out, &stubLister{issues: []github.Issue{issue}}, l, "o", "r", false) {
		t.Fatalf("expected clean import to succeed, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Imported issues: 1 created") {
		t.Errorf("expected import summary, got %q", out.String())
	}
}

func TestRunImport_WriteFailureFailsTheRun(t *testing.T) {
	root := newPlanRoot(t)
	// A regular file where the milestone slug directory belongs makes every
	// write under it fail.
	writePlanFile(t, root, ".plan/milestones/stage-1", "not a directory")
	l, err := layout.Load(root)
	if err != nil {
		t.Fatal(err)
	}

	created := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	issue := github.Issue{
		Number:    21,
		Title:     "Build the thing",
		State:     "open",
		CreatedAt: &created,
		Milestone: &github.Milestone{Number: 7, Title: "Stage 1"},
	}

	var out bytes.Buffer
	if runImport(&out, &stubLister{issues: []github.Issue{issue}}, l, "o", "r", false) {
		t.Fatalf("expected import write failure to fail the run, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Error:") {
		t.Errorf("expected the failure to be reported, got %q", out.String())
	}
	// The summary still prints so partial progress is visible.
	if !strings.Contains(out.String(), "Imported issues:") {
		t.Errorf("expected import summary, got %q", out.String())
	}
}
