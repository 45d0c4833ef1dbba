package standard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccheshirecat/rollerbot/internal/cli/client"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream bot events",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			err = api.WatchEvents(ctx, func(ev client.BotEvent) {
				fmt.Fprintln(cmd.OutOrStdout(), formatEvent(ev))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func formatEvent(ev client.BotEvent) string {
	detail := ev.Message
	if detail == "" {
		detail = ev.Action
	}
	return fmt.Sprintf("%s\t%-16s\t%-8s\t%s", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.Status, detail)
}
