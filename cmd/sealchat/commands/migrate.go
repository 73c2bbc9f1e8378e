package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealchat/internal/crypto"
)

func migrateCmd() *cobra.Command {
	var acknowledgeLoss bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Replace a legacy key with a recoverable one",
		Long: `Migrate revokes a key created under the legacy scheme and registers a fresh
one derived from your password. Messages encrypted under the legacy key become
permanently unreadable, which is why the command refuses to run without
--acknowledge-loss.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if password == "" {
				return fmt.Errorf("password required (-p)")
			}

			needs, err := wire.Keys.NeedsMigration(ctx)
			if err != nil {
				return err
			}
			if !needs {
				fmt.Println("no migration needed")
				return nil
			}
			if !acknowledgeLoss {
				return fmt.Errorf("migration makes messages sent under the old key permanently unreadable; re-run with --acknowledge-loss to confirm")
			}

			keys, err := wire.Keys.MigrateKeys(ctx, password)
			if err != nil {
				return err
			}
			fmt.Println("Migrated to key", crypto.Fingerprint(keys.Public))
			return nil
		},
	}
	cmd.Flags().BoolVar(&acknowledgeLoss, "acknowledge-loss", false, "confirm that messages under the old key become unreadable")
	return cmd
}
