package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show key registration and migration state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			has, err := wire.Keys.HasKeys(ctx)
			if err != nil {
				return err
			}
			if !has {
				fmt.Println("no encryption keys registered; run init-keys")
				return nil
			}
			needs, err := wire.Keys.NeedsMigration(ctx)
			if err != nil {
				return err
			}
			if needs {
				fmt.Println("keys registered under the legacy scheme; run migrate")
				return nil
			}
			fmt.Println("keys registered")
			return nil
		},
	}
}
