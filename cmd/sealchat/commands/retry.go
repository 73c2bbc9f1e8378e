package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sealchat/internal/domain"
	"sealchat/internal/syncengine"
)

// retry <peer>: requeue failed sends and wait for the queue to drain.
func retryCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "retry <peer>",
		Short: "Retry failed sends and drain the offline queue",
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
			entries, err := wire.Engine.Queued(ctx, conv.ID)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("queue is empty")
				return nil
			}
			for _, e := range entries {
				if e.Status == domain.QueueFailed {
					if err := wire.Engine.RetryFailed(ctx, e.ID); err != nil {
						return err
					}
				}
			}
			if err := wire.Engine.Resume(ctx); err != nil {
				return err
			}

			remaining := len(entries)
			deadline := time.After(wait)
			for remaining > 0 {
				select {
				case ev := <-wire.Engine.Events():
					switch ev.Type {
					case syncengine.EventDelivered:
						fmt.Printf("delivered %s as #%d\n", ev.QueueID, ev.Message.Sequence)
						remaining--
					case syncengine.EventFailed:
						fmt.Printf("%s failed after %d attempts\n", ev.QueueID, ev.Attempt)
						remaining--
					}
				case <-deadline:
					fmt.Printf("gave up waiting; %d still queued\n", remaining)
					return nil
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for the queue to drain")
	return cmd
}
