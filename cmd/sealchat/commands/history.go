package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealchat/internal/domain"
)

func historyCmd() *cobra.Command {
	var after int64
	var limit int
	cmd := &cobra.Command{
		Use:   "history <peer>",
		Short: "Fetch and decrypt the conversation history",
		Args:  cobra.ExactArgs(1),
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
			msgs, err := wire.Engine.History(ctx, conv.ID, after, limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				switch {
				case m.Deleted:
					fmt.Printf("%4d %s [deleted]\n", m.Sequence, m.SenderID)
				case m.Undecipherable:
					fmt.Printf("%4d %s [undecipherable]\n", m.Sequence, m.SenderID)
				case m.Edited:
					fmt.Printf("%4d %s: %s (edited)\n", m.Sequence, m.SenderID, m.Plaintext)
				default:
					fmt.Printf("%4d %s: %s\n", m.Sequence, m.SenderID, m.Plaintext)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "only messages after this sequence number")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of messages")
	return cmd
}
