package standard

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccheshirecat/rollerbot/internal/cli/client"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Execute runs the Cobra-based CLI entry point.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rollerbot",
		Short:         "Rollerbot command-line interface",
		Long:          "Rollerbot CLI controls a running rollerbotd: start and stop the bot, inspect status, tail logs and stream events.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("api", "a", envOrDefault("ROLLERBOT_API_BASE", client.DefaultBaseURL), "rollerbotd base URL")
	cmd.PersistentFlags().String("api-key", envOrDefault("ROLLERBOT_API_KEY", ""), "API key for the versioned operator API")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newCredentialsCmd())
	cmd.AddCommand(newDashCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the Rollerbot client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Rollerbot CLI %s\n", Version)
		},
	}
}
