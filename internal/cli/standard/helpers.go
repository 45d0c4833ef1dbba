package standard

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccheshirecat/rollerbot/internal/cli/client"
)

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func clientFromCmd(cmd *cobra.Command) (*client.Client, error) {
	flags := cmd.Root().PersistentFlags()
	base, err := flags.GetString("api")
	if err != nil {
		base = envOrDefault("ROLLERBOT_API_BASE", client.DefaultBaseURL)
	}
	key, err := flags.GetString("api-key")
	if err != nil {
		key = os.Getenv("ROLLERBOT_API_KEY")
	}
	return client.New(base, key)
}

func encodeAsJSON(out io.Writer, payload any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
