package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goblinsan/planhub/pkg/auth"
	"github.com/goblinsan/planhub/pkg/engine"
	"github.com/goblinsan/planhub/pkg/github"
	"github.com/goblinsan/planhub/pkg/importer"
	"github.com/goblinsan/planhub/pkg/layout"
	"github.com/goblinsan/planhub/pkg/repository"
)

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("dry-run", false, "Report planned changes without writing anything")
	syncCmd.Flags().Bool("import-existing", false, "Import remote issues into the plan before syncing")
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local plan with GitHub issues and milestones",
	Long: `Sync discovers every document under .plan, classifies each into create
or update work, and applies the plan against the GitHub API. Documents
without a number are created remotely and the assigned number is written
back into their front matter; numbered documents are updated in place.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		importExisting, _ := cmd.Flags().GetBool("import-existing")
		if !runSync(os.Stdout, dryRun, importExisting) {
			os.Exit(1)
		}
	},
}

// runSync executes the full sync flow against the current working directory
// and reports to out. Returns false when any error occurred, which callers
// translate into a non-zero exit or an error tool result.
func runSync(out io.Writer, dryRun, importExisting bool) bool {
	repoRoot, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return false
	}
	l, err := layout.Load(repoRoot)
	if err != nil {
		fmt.Fprintf(out, "%v. Run 'planhub init' first.\n", err)
		return false
	}

	var client *github.Client
	var owner, repo string
	haveClient := false
	importOK := true

	if importExisting {
		client, owner, repo, haveClient = githubContext(out, repoRoot)
		if !haveClient {
			return false
		}
		importOK = runImport(out, client, l, owner, repo, dryRun)
	}

	plan, parsedMilestones, parsedIssues, errors := engine.Build(l)
	if len(errors) > 0 {
		reportErrors(out, errors)
		return false
	}

	if dryRun {
		fmt.Fprintln(out, "Dry run: no changes will be written.")
		fmt.Fprintf(out, "Dry run: would create %d milestones and %d issues.\n",
			len(plan.MilestoneCreates), len(plan.IssueCreates))
		fmt.Fprintf(out, "Dry run: would update %d milestones and %d issues.\n",
			len(plan.MilestoneUpdates), len(plan.IssueUpdates))
		fmt.Fprintf(out, "Found %d milestones and %d issues.\n", parsedMilestones, parsedIssues)
		return importOK
	}

	work := len(plan.MilestoneCreates) + len(plan.MilestoneUpdates) +
		len(plan.IssueCreates) + len(plan.IssueUpdates)
	if work > 0 {
		if !haveClient {
			client, owner, repo, haveClient = githubContext(out, repoRoot)
			if !haveClient {
				return false
			}
		}
		errors = append(errors, engine.Apply(context.Background(), client, owner, repo, plan)...)
	}

	if len(errors) > 0 {
		reportErrors(out, errors)
		return false
	}
	fmt.Fprintf(out, "Found %d milestones and %d issues.\n", parsedMilestones, parsedIssues)
	return importOK
}

// runImport pulls remote issues into the local layout and reports the
// result. Per-file import errors do not stop the import, but any of them
// fails the run.
func runImport(out io.Writer, client importer.Client, l layout.Layout, owner, repo string, dryRun bool) bool {
	result, err := importer.Import(context.Background(), client, l, owner, repo, dryRun)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return false
	}
	reportErrors(out, result.Errors)
	fmt.Fprintf(out, "Imported issues: %d created, %d moved, %d skipped, %d milestones created.\n",
		result.IssuesCreated, result.IssuesMoved, result.IssuesSkipped, result.MilestonesCreated)
	return len(result.Errors) == 0
}

func reportErrors(out io.Writer, errors []string) {
	for _, msg := range errors {
		fmt.Fprintf(out, "Error: %s\n", msg)
	}
}

// githubContext resolves the credentials and repository needed for any
// remote call: token from flag/config/environment/gh, owner and repo from
// the git origin remote.
func githubContext(out io.Writer, repoRoot string) (*github.Client, string, string, bool) {
	token := viper.GetString("token")
	if token == "" {
		token = auth.Token()
	}
	if token == "" {
		fmt.Fprintln(out, "Missing GitHub credentials. Set GITHUB_TOKEN/GH_TOKEN or run 'gh auth login'.")
		return nil, "", "", false
	}
	owner, repo, err := repository.FromGit(repoRoot)
	if err != nil {
		fmt.Fprintf(out, "%v. Cannot sync issues.\n", err)
		return nil, "", "", false
	}
	return github.NewClient(token), owner, repo, true
}
