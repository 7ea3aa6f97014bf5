package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vellum/internal/compile"
)

var (
	compileProject    string
	compileSubproject string
	compileMainFile   string
	compileEngine     string
	compileFormat     string
	compileOut        string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Run and inspect LaTeX compilation jobs",
}

var compileSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an asynchronous compilation job",
	RunE:  runCompileSubmit,
}

var compileStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Print a job's status document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompileStatus,
}

var compileArtifactCmd = &cobra.Command{
	Use:   "artifact <job-id>",
	Short: "Fetch a completed job's output artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompileArtifact,
}

var compileTimeoutCmd = &cobra.Command{
	Use:   "timeout <job-id>",
	Short: "Force a running job into the timeout state",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompileTimeout,
}

func init() {
	compileSubmitCmd.Flags().StringVar(&compileProject, "project", "", "project id (required)")
	compileSubmitCmd.Flags().StringVar(&compileSubproject, "subproject", "", "sub-project id (required)")
	compileSubmitCmd.Flags().StringVar(&compileMainFile, "main", "", "main file (default: manifest, then first .tex)")
	compileSubmitCmd.Flags().StringVar(&compileEngine, "engine", "", "engine (default: manifest, then config)")
	compileSubmitCmd.Flags().StringVar(&compileFormat, "format", "", "output format (default: pdf)")
	_ = compileSubmitCmd.MarkFlagRequired("project")
	_ = compileSubmitCmd.MarkFlagRequired("subproject")

	compileArtifactCmd.Flags().StringVar(&compileFormat, "format", "pdf", "artifact format")
	compileArtifactCmd.Flags().StringVarP(&compileOut, "out", "o", "", "write artifact to this file (default: stdout)")

	compileCmd.AddCommand(compileSubmitCmd)
	compileCmd.AddCommand(compileStatusCmd)
	compileCmd.AddCommand(compileArtifactCmd)
	compileCmd.AddCommand(compileTimeoutCmd)
	rootCmd.AddCommand(compileCmd)
}

func runCompileSubmit(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	repo, err := a.db.Repositories().FindByProject(compileProject)
	if err != nil {
		return err
	}
	engine := compileEngine
	if engine == "" {
		engine = cfg.Compile.DefaultEngine
	}
	sched := compile.NewScheduler(cfg.Root)
	jobID, err := sched.Submit(cmd.Context(), compile.Request{
		RepoPath:     repo.Path,
		ProjectID:    compileProject,
		SubprojectID: compileSubproject,
		MainFile:     compileMainFile,
		Engine:       engine,
		OutputFormat: compileFormat,
		Actor:        act,
	})
	if err != nil {
		return err
	}
	fmt.Println(jobID)

	// The CLI is short-lived, so unlike a resident server it waits for
	// the detached job before exiting, enforcing the configured timeout.
	deadline := time.Now().Add(cfg.Compile.Timeout)
	for {
		doc, err := sched.GetStatus(jobID)
		if err != nil {
			return err
		}
		if doc.Status.Terminal() {
			fmt.Printf("Status: %s\n", doc.Status)
			return nil
		}
		if cfg.Compile.Timeout > 0 && time.Now().After(deadline) {
			if err := sched.MarkTimeout(jobID); err != nil {
				return err
			}
			continue
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func runCompileStatus(cmd *cobra.Command, args []string) error {
	doc, err := compile.NewScheduler(cfg.Root).GetStatus(args[0])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runCompileArtifact(cmd *cobra.Command, args []string) error {
	path, err := compile.NewScheduler(cfg.Root).GetOutputFile(args[0], compileFormat)
	if err != nil {
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	var out io.Writer = cmd.OutOrStdout()
	if compileOut != "" {
		f, err := os.Create(compileOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err = io.Copy(out, in)
	return err
}

func runCompileTimeout(cmd *cobra.Command, args []string) error {
	if err := compile.NewScheduler(cfg.Root).MarkTimeout(args[0]); err != nil {
		return err
	}
	fmt.Println("marked timeout")
	return nil
}
