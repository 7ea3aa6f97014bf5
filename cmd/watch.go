package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vellum/internal/log"
	"github.com/zjrosen/vellum/internal/vcs/application"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch repository refs for external mutation",
	Long: `Watch every repository under the configured root and drop cached
permissions when a ref changes outside the engine. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := application.NewRepoWatcher(func(repoPath string) {
		a.engine.Permissions.InvalidateAll()
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	entries, err := os.ReadDir(cfg.Root)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}
	watched := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		repoPath := filepath.Join(cfg.Root, e.Name())
		if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
			continue
		}
		if err := watcher.Watch(repoPath); err != nil {
			log.Warn(log.CatRepo, "skipping unwatchable repository",
				"path", repoPath, "error", err.Error())
			continue
		}
		watched++
	}
	fmt.Printf("Watching %d repositories under %s\n", watched, cfg.Root)

	<-cmd.Context().Done()
	return nil
}
