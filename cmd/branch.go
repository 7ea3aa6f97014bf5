package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	branchProject string
	branchSource  string
	branchPage    int
	branchPerPage int
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage project branches",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a branch from an existing one",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchCreate,
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches with file counts and the caller's access",
	RunE:  runBranchList,
}

func init() {
	branchCmd.PersistentFlags().StringVar(&branchProject, "project", "", "project id (required)")
	_ = branchCmd.MarkPersistentFlagRequired("project")

	branchCreateCmd.Flags().StringVar(&branchSource, "from", "", "source branch name (default: main)")
	branchListCmd.Flags().IntVar(&branchPage, "page", 1, "page number")
	branchListCmd.Flags().IntVar(&branchPerPage, "per-page", 20, "results per page")

	branchCmd.AddCommand(branchCreateCmd)
	branchCmd.AddCommand(branchListCmd)
	rootCmd.AddCommand(branchCmd)
}

func runBranchCreate(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	branch, err := a.engine.Branches.CreateBranch(cmd.Context(), branchProject, args[0], branchSource, act)
	if err != nil {
		return err
	}
	fmt.Printf("Branch %s created at %s (id %s)\n", branch.Name, branch.HeadCommit, branch.ID)
	return nil
}

func runBranchList(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listings, total, err := a.engine.Branches.ListBranches(cmd.Context(), branchProject, act.ID, branchPage, branchPerPage)
	if err != nil {
		return err
	}
	fmt.Printf("%d branch(es) total\n", total)
	for _, l := range listings {
		access := ""
		if l.Permissions.CanRead {
			access += "r"
		}
		if l.Permissions.CanWrite {
			access += "w"
		}
		if l.Permissions.CanAdmin {
			access += "a"
		}
		if access == "" {
			access = "-"
		}
		marker := " "
		if l.Branch.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %-30s %-10s %4d files  [%s]\n", marker, l.Branch.Name, l.Branch.Status, l.FileCount, access)
	}
	return nil
}
