package standard

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the bot log",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			lines, _ := cmd.Flags().GetInt("lines")
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			logs, err := api.Logs(ctx, lines)
			if err != nil {
				return err
			}
			if len(logs.Lines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No log lines")
				return nil
			}
			for _, line := range logs.Lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntP("lines", "n", 100, "Number of trailing lines to show")
	cmd.AddCommand(newLogsArchiveCmd())
	return cmd
}

func newLogsArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Download the log file as a zip archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			n, err := api.DownloadLogs(cmd.Context(), f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(output)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, n)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "bot_logs.zip", "Destination file")
	return cmd
}
