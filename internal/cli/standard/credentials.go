package standard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Set the account the bot signs in with",
		Long:  "Sets the account credentials on a running rollerbotd. The password is read from the terminal without echo, or from the first line of stdin when piped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			if err := api.SetCredentials(ctx, email, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials updated")
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
