package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goblinsan/planhub/pkg/layout"
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("dry-run", false, "Show the directories that would be created")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the .plan directory layout",
	Long:  `Create the .plan directory layout in the current repository. Idempotent; existing directories are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot, err := os.Getwd()
		if err != nil {
			return err
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			planRoot := filepath.Join(repoRoot, layout.PlanDirName)
			fmt.Println("Dry run: would create plan layout:")
			fmt.Printf("- %s\n", planRoot)
			fmt.Printf("- %s\n", filepath.Join(planRoot, layout.MilestonesDirName))
			fmt.Printf("- %s\n", filepath.Join(planRoot, layout.IssuesDirName))
			return nil
		}

		l, err := layout.Ensure(repoRoot)
		if err != nil {
			return err
		}
		fmt.Printf("Initialized plan layout at %s\n", l.Root)
		return nil
	},
}
