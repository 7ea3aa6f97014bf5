package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	fileBranch  string
	fileFrom    string
	fileMessage string
	fileRev     string
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Read and write files on a branch",
}

var fileWriteCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Write a file and commit it",
	Long: `Write content to a file on a branch and commit the change. Content
comes from --from or stdin; empty content commits a placeholder line so
the file exists in Git.`,
	Args: cobra.ExactArgs(1),
	RunE: runFileWrite,
}

var fileReadCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a file's working-tree content",
	Args:  cobra.ExactArgs(1),
	RunE:  runFileRead,
}

var fileLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List files on a branch",
	RunE:  runFileLs,
}

var fileDiffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Diff a file's working copy against a revision",
	Args:  cobra.ExactArgs(1),
	RunE:  runFileDiff,
}

func init() {
	fileCmd.PersistentFlags().StringVar(&fileBranch, "branch", "", "branch id (required)")
	_ = fileCmd.MarkPersistentFlagRequired("branch")

	fileWriteCmd.Flags().StringVar(&fileFrom, "from", "", "read content from this file instead of stdin")
	fileWriteCmd.Flags().StringVarP(&fileMessage, "message", "m", "", "commit message")
	fileDiffCmd.Flags().StringVar(&fileRev, "rev", "", "revision to diff against (default: HEAD)")

	fileCmd.AddCommand(fileWriteCmd)
	fileCmd.AddCommand(fileReadCmd)
	fileCmd.AddCommand(fileLsCmd)
	fileCmd.AddCommand(fileDiffCmd)
	rootCmd.AddCommand(fileCmd)
}

func runFileWrite(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	var content []byte
	if fileFrom != "" {
		content, err = os.ReadFile(fileFrom)
	} else {
		content, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	hash, err := a.engine.Files.WriteFile(cmd.Context(), fileBranch, args[0], content, fileMessage, act)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func runFileRead(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	content, err := a.engine.Files.ReadFile(cmd.Context(), fileBranch, args[0], act)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(content)
	return err
}

func runFileLs(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listings, err := a.engine.Files.ListFiles(cmd.Context(), fileBranch, act)
	if err != nil {
		return err
	}
	for _, l := range listings {
		owner := l.LastModifiedBy
		if !l.Indexed {
			owner = "(untracked in index)"
		}
		fmt.Printf("%8d  %-40s %s\n", l.Size, l.Path, owner)
	}
	return nil
}

func runFileDiff(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	patch, err := a.engine.Files.DiffFile(cmd.Context(), fileBranch, args[0], fileRev, act)
	if err != nil {
		return err
	}
	fmt.Print(patch)
	return nil
}
