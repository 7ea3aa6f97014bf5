// Package cmd implements the vellum command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vellum/internal/config"
	"github.com/zjrosen/vellum/internal/infrastructure/sqlite"
	"github.com/zjrosen/vellum/internal/log"
	"github.com/zjrosen/vellum/internal/vcs/application"
	"github.com/zjrosen/vellum/internal/vcs/domain"
	"github.com/zjrosen/vellum/internal/vcs/gitexec"
)

var (
	cfgFile string
	cfg     config.Config

	actorID    string
	actorName  string
	actorEmail string
)

var rootCmd = &cobra.Command{
	Use:   "vellum",
	Short: "Git-backed version control engine for collaborative LaTeX projects",
	Long: `Vellum manages per-project Git repositories with branch-level
permissions, a queryable sqlite index, and asynchronous LaTeX compilation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		return log.Init(log.Config{
			Level:  parseLevel(cfg.Log.Level),
			LogDir: cfg.Log.Dir,
		})
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return log.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./vellum.yaml)")
	rootCmd.PersistentFlags().StringVar(&actorID, "user", "", "acting user id")
	rootCmd.PersistentFlags().StringVar(&actorName, "user-name", "", "commit author name (defaults to user id)")
	rootCmd.PersistentFlags().StringVar(&actorEmail, "user-email", "", "commit author email")
}

// Execute runs the root command. The context is cancelled on SIGINT and
// SIGTERM so long-running commands shut down cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// actor builds the acting identity from the persistent flags. The user id
// is required; name and email fall back to id-derived values so commits
// always carry an author.
func actor() (domain.Actor, error) {
	if actorID == "" {
		return domain.Actor{}, fmt.Errorf("--user is required")
	}
	a := domain.Actor{ID: actorID, Name: actorName, Email: actorEmail}
	if a.Name == "" {
		a.Name = actorID
	}
	if a.Email == "" {
		a.Email = actorID + "@vellum.local"
	}
	return a, nil
}

// app bundles the wired services behind one Close.
type app struct {
	db     *sqlite.DB
	engine *application.Engine
}

// newApp opens the index database and wires the engine against it.
func newApp() (*app, error) {
	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	engine := application.NewEngine(application.Deps{
		Root:     cfg.Root,
		Git:      gitexec.New(cfg.GitBin),
		Repos:    db.Repositories(),
		Branches: db.Branches(),
		Files:    db.Files(),
		Perms:    db.Permissions(),
		Locker:   application.NewKeyedLocker(),
	})
	return &app{db: db, engine: engine}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.ErrorErr(log.CatDB, "failed to close database", err)
	}
}
