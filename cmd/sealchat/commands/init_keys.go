package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"sealchat/internal/crypto"
)

func initKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-keys",
		Short: "Derive and register your encryption keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if password == "" {
				return fmt.Errorf("password required (-p)")
			}

			has, err := wire.Keys.HasKeys(ctx)
			if err != nil {
				return err
			}
			if has {
				return fmt.Errorf("keys already registered for %s; use migrate to replace them", user)
			}

			keys, err := wire.Keys.InitializeKeys(ctx, password)
			if err != nil {
				return err
			}
			fmt.Println("Registered encryption key", crypto.Fingerprint(keys.Public))

			// Best effort; registration already succeeded.
			res := wire.Welcome.SendWelcome(ctx, wire.Session.UserID(), keys)
			switch {
			case res.Success:
				fmt.Println("Welcome message delivered")
			case res.Skipped:
				jww.DEBUG.Printf("welcome skipped: %s", res.Reason)
			}
			return nil
		},
	}
}
