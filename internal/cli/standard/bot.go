package standard

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccheshirecat/rollerbot/internal/cli/client"
)

const requestTimeout = 10 * time.Second

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bot status",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			status, err := api.Status(ctx)
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return encodeAsJSON(cmd.OutOrStdout(), status)
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the raw status payload")
	return cmd
}

func printStatus(out io.Writer, status *client.Status) {
	state := "stopped"
	if status.Running {
		state = "running"
	}
	lastRun := "never"
	if status.LastRun != nil {
		lastRun = *status.LastRun
	}
	fmt.Fprintf(out, "%-16s %s\n", "STATE", state)
	fmt.Fprintf(out, "%-16s %s\n", "ACTION", status.CurrentAction)
	fmt.Fprintf(out, "%-16s %s\n", "LAST RUN", lastRun)
	fmt.Fprintf(out, "%-16s %d\n", "TOTAL RUNS", status.TotalRuns)
	fmt.Fprintf(out, "%-16s %d\n", "ERRORS", status.Errors)
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, (*client.Client).Start, map[string]string{
				"started":         "Bot started",
				"already_running": "Bot is already running",
			})
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, (*client.Client).Stop, map[string]string{
				"stopped":     "Bot stopped",
				"not_running": "Bot is not running",
			})
		},
	}
}

func runControl(cmd *cobra.Command, call func(*client.Client, context.Context) (*client.ControlResult, error), messages map[string]string) error {
	api, err := clientFromCmd(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	result, err := call(api, ctx)
	if err != nil {
		return err
	}
	msg, ok := messages[result.Status]
	if !ok {
		msg = result.Status
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
