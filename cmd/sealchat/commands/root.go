package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"sealchat/internal/app"
)

var (
	home      string
	user      string
	device    string
	password  string
	remoteURL string
	wsURL     string
	system    string
	verbose   bool

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:           "sealchat",
		Short:         "End-to-end encrypted direct messages",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				jww.SetStdoutThreshold(jww.LevelDebug)
			} else {
				jww.SetStdoutThreshold(jww.LevelWarn)
			}

			// Flags win; unset ones fall back to SEALCHAT_* env vars.
			home = fromEnv(home, "home")
			user = fromEnv(user, "user")
			password = fromEnv(password, "password")
			remoteURL = fromEnv(remoteURL, "remote")
			wsURL = fromEnv(wsURL, "ws")

			if user == "" {
				return fmt.Errorf("user required (--user or SEALCHAT_USER)")
			}
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".sealchat")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			wire, err = app.NewWire(cmd.Context(), app.Config{
				Home:       home,
				UserID:     user,
				DeviceID:   device,
				SystemUser: system,
				RemoteURL:  remoteURL,
				WSURL:      wsURL,
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if wire != nil {
				wire.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.sealchat)")
	root.PersistentFlags().StringVar(&user, "user", "", "your user id")
	root.PersistentFlags().StringVar(&device, "device", "cli", "device id")
	root.PersistentFlags().StringVarP(&password, "password", "p", "", "password protecting your keys")
	root.PersistentFlags().StringVar(&remoteURL, "remote", "", "remote store base URL (e.g. https://chat.example.com/api)")
	root.PersistentFlags().StringVar(&wsURL, "ws", "", "typing gateway websocket URL")
	root.PersistentFlags().StringVar(&system, "system-user", "system", "welcome sender user id")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	viper.SetEnvPrefix("sealchat")
	viper.AutomaticEnv()

	root.AddCommand(initKeysCmd(), statusCmd(), migrateCmd(), sendCmd(), historyCmd(), retryCmd())
	return root.Execute()
}

func fromEnv(current, name string) string {
	if current != "" {
		return current
	}
	return viper.GetString(name)
}

// unlock re-derives the session key pair from the password.
func unlock(cmd *cobra.Command) error {
	if password == "" {
		return fmt.Errorf("password required (-p)")
	}
	_, err := wire.Keys.DeriveKeys(cmd.Context(), password)
	return err
}
