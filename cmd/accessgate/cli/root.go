// Package cli builds the accessgate command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accessgate",
		Short: "Maintenance-bypass credential service",
		Long: `Accessgate owns the special-access authorization subsystem of the
storefront: operators mint bearer credential pairs, trusted collaborators
present them to bypass the site-wide maintenance gate, and every state
change lands in an append-only audit ledger. Each credential backs at most
one live session at a time and can be revoked instantly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newKeygenCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}
