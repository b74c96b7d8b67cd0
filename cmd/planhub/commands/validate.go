package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goblinsan/planhub/pkg/engine"
	"github.com/goblinsan/planhub/pkg/layout"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the local plan without making any changes",
	Long:  `Validate every document under .plan: front matter structure, required fields, and state rules. No remote call is made and nothing is written.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !runValidate(os.Stdout) {
			os.Exit(1)
		}
	},
}

// runValidate builds a plan purely for its error list and classification
// counts.
func runValidate(out io.Writer) bool {
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

	plan, parsedMilestones, parsedIssues, errors := engine.Build(l)
	if len(errors) > 0 {
		fmt.Fprintf(out, "Validation failed with %d error(s):\n", len(errors))
		for i, msg := range errors {
			fmt.Fprintf(out, "  %d. %s\n", i+1, msg)
		}
		return false
	}

	fmt.Fprintf(out, "Plan is valid: %d milestones and %d issues (%d creates, %d updates pending).\n",
		parsedMilestones, parsedIssues,
		len(plan.MilestoneCreates)+len(plan.IssueCreates),
		len(plan.MilestoneUpdates)+len(plan.IssueUpdates))
	return true
}
