package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealchat/internal/domain"
)

// send <peer> <message>: encrypt and send a direct message to <peer>.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a direct message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := unlock(cmd); err != nil {
				return err
			}

			conv, err := wire.Conversations.GetOrCreate(
				ctx, wire.Session.UserID(), domain.UserID(args[0]))
			if err != nil {
				return err
			}
			receipt, err := wire.Engine.Send(ctx, conv.ID, args[1])
			if err != nil {
				return err
			}
			if receipt.Delivered {
				fmt.Printf("delivered #%d\n", receipt.Message.Sequence)
				return nil
			}
			fmt.Printf("offline, queued as %s; run retry once connected\n", receipt.QueueID)
			return nil
		},
	}
}
