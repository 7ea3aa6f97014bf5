package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	initProjectID string
	initName      string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a project repository",
	Long: `Create the Git repository and index rows for a project, or repair
them if the working tree went missing. Safe to run repeatedly.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initProjectID, "project", "", "project id (required)")
	initCmd.Flags().StringVar(&initName, "name", "", "project display name (required)")
	_ = initCmd.MarkFlagRequired("project")
	_ = initCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.engine.Repositories.Initialize(cmd.Context(), initProjectID, initName, act)
	if err != nil {
		return err
	}
	fmt.Printf("Repository: %s\n", result.RepoPath)
	fmt.Printf("Main branch: %s\n", result.MainBranchID)
	return nil
}
