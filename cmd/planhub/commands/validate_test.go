package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// chdir changes the working directory for the duration of the test,
// restoring the original directory on cleanup (t.Chdir requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func writePlanFile(t *testing.T, root string, rel string, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newPlanRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{".plan/milestones", ".plan/issues"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRunValidate_Valid(t *testing.T) {
	root := newPlanRoot(t)
	writePlanFile(t, root, ".plan/milestones/stage-1/milestone.md",
		"---\ntitle: Stage 1\n---\n\nFirst stage.\n")
	writePlanFile(t, root, ".plan/milestones/stage-1/issues/task.md",
		"---\ntitle: Build the thing\n---\n\nDetails.\n")
	writePlanFile(t, root, ".plan/issues/standalone.md",
		"---\ntitle: Standalone task\nnumber: 12\n---\n")
	chdir(t, root)

	var out bytes.Buffer
	if !runValidate(&out) {
		t.Fatalf("expected valid plan, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "1 milestones and 2 issues") {
		t.Errorf("expected counts in output, got %q", out.String())
	}
}

func TestRunValidate_MissingLayout(t *testing.T) {
	chdir(t, t.TempDir())

	var out bytes.Buffer
	if runValidate(&out) {
		t.Fatal("expected failure without a .plan layout")
	}
	if !strings.Contains(out.String(), "planhub init") {
		t.Errorf("expected init hint, got %q", out.String())
	}
}

func TestRunValidate_StateReasonRequiresClosed(t *testing.T) {
	root := newPlanRoot(t)
	writePlanFile(t, root, ".plan/issues/bad.md",
		"---\ntitle: Wrong reason\nstate: open\nstate_reason: completed\n---\n")
	chdir(t, root)

	var out bytes.Buffer
	if runValidate(&out) {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(out.String(), "state_reason requires state") {
		t.Errorf("expected state_reason error, got %q", out.String())
	}
}

func TestRunValidate_MissingTitle(t *testing.T) {
	root := newPlanRoot(t)
	writePlanFile(t, root, ".plan/issues/untitled.md",
		"---\nlabels: [bug]\n---\n\nNo title here.\n")
	chdir(t, root)

	var out bytes.Buffer
	if runValidate(&out) {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(out.String(), "title") {
		t.Errorf("expected title error, got %q", out.String())
	}
}

func TestRunValidate_MissingMilestoneFile(t *testing.T) {
	root := newPlanRoot(t)
	writePlanFile(t, root, ".plan/milestones/empty-dir/issues/orphan.md",
		"---\ntitle: Orphan\n---\n")
	chdir(t, root)

	var out bytes.Buffer
	if runValidate(&out) {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(out.String(), "missing milestone.md") {
		t.Errorf("expected missing milestone.md error, got %q", out.String())
	}
}
