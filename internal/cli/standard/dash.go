package standard

import (
	"github.com/spf13/cobra"

	"github.com/ccheshirecat/rollerbot/internal/cli/tui"
)

func newDashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Open the interactive bot dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), api)
		},
	}
}
