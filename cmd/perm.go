package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vellum/internal/vcs/domain"
)

var (
	permBranch string
	permUser   string
	permRead   bool
	permWrite  bool
	permAdmin  bool
)

var permCmd = &cobra.Command{
	Use:   "perm",
	Short: "Manage branch permissions",
}

var permGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Set a user's flags on a branch",
	Long: `Set the read/write/admin flags for a user on a branch. The full
flag set is replaced; granting with no flags revokes access.`,
	RunE: runPermGrant,
}

var permGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a user's effective flags on a branch",
	RunE:  runPermGet,
}

func init() {
	permCmd.PersistentFlags().StringVar(&permBranch, "branch", "", "branch id (required)")
	permCmd.PersistentFlags().StringVar(&permUser, "for", "", "subject user id (required)")
	_ = permCmd.MarkPersistentFlagRequired("branch")
	_ = permCmd.MarkPersistentFlagRequired("for")

	permGrantCmd.Flags().BoolVar(&permRead, "read", false, "grant read")
	permGrantCmd.Flags().BoolVar(&permWrite, "write", false, "grant write")
	permGrantCmd.Flags().BoolVar(&permAdmin, "admin", false, "grant admin")

	permCmd.AddCommand(permGrantCmd)
	permCmd.AddCommand(permGetCmd)
	rootCmd.AddCommand(permCmd)
}

func runPermGrant(cmd *cobra.Command, args []string) error {
	act, err := actor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.engine.Permissions.RequireAdmin(permBranch, act.ID); err != nil {
		return err
	}
	flags := domain.PermissionFlags{CanRead: permRead, CanWrite: permWrite, CanAdmin: permAdmin}
	if err := a.engine.Permissions.Grant(permBranch, permUser, flags, act.ID); err != nil {
		return err
	}
	fmt.Printf("Granted %s on branch %s: %s\n", permUser, permBranch, formatFlags(flags))
	return nil
}

func runPermGet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	flags, err := a.engine.Permissions.Get(permBranch, permUser)
	if err != nil {
		return err
	}
	fmt.Println(formatFlags(flags))
	return nil
}

func formatFlags(f domain.PermissionFlags) string {
	out := ""
	if f.CanRead {
		out += "read "
	}
	if f.CanWrite {
		out += "write "
	}
	if f.CanAdmin {
		out += "admin "
	}
	if out == "" {
		return "none"
	}
	return out[:len(out)-1]
}
