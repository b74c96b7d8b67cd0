package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/goblinsan/planhub/pkg/document"
	"github.com/goblinsan/planhub/pkg/github"
	"github.com/goblinsan/planhub/pkg/layout"
)

func init() {
	rootCmd.AddCommand(issueCmd)
}

var issueCmd = &cobra.Command{
	Use:   "issue <title>",
	Short: "Create a GitHub issue and its plan document in one step",
	Long: `Create a GitHub issue with the given title, then write a plan document
for it under .plan/issues with the assigned number already recorded.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !runIssue(args[0]) {
			os.Exit(1)
		}
	},
}

func runIssue(title string) bool {
	repoRoot, err := os.Getwd()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}

	client, owner, repo, ok := githubContext(os.Stdout, repoRoot)
	if !ok {
		return false
	}
	l, err := layout.Ensure(repoRoot)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}

	created, err := client.CreateIssue(context.Background(), owner, repo, github.IssueCreate{Title: title})
	if err != nil {
		fmt.Printf("Error creating issue: %v\n", err)
		return false
	}

	path, err := writeAdHocIssue(l, title, created)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}

	fmt.Printf("Created issue #%d: %s\n", created.Number, title)
	fmt.Printf("View at: %s\n", created.HTMLURL)
	fmt.Printf("Saved to: %s\n", path)
	return true
}

func writeAdHocIssue(l layout.Layout, title string, created *github.Issue) (string, error) {
	state := created.State
	if state == "" {
		state = string(document.StateOpen)
	}
	assignees := make([]any, 0, len(created.Assignees))
	for _, assignee := range created.Assignees {
		if assignee.Login != "" {
			assignees = append(assignees, assignee.Login)
		}
	}

	meta := document.NewFrontMatter()
	meta.Set("title", title)
	meta.Set("number", created.Number)
	meta.Set("state", state)
	meta.Set("assignees", assignees)
	text, err := document.Render(meta, "")
	if err != nil {
		return "", err
	}

	base := time.Now().Format("20060102") + "-" + issueSlug(title)
	path := filepath.Join(l.IssuesDir, base+".md")
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(l.IssuesDir, base+"-"+strconv.Itoa(created.Number)+".md")
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func issueSlug(title string) string {
	var out []rune
	for _, r := range title {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "issue"
	}
	return string(out)
}
