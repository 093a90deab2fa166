package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/abconsole/internal/cli"
	"github.com/TimurManjosov/abconsole/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login [token]",
	Short: "Store an API token",
	Long: `Store the bearer token used for every request. Without an argument the
token is read from standard input. A running dashboard picks it up.

Examples:
  abconsole login my-token
  echo "$TOKEN" | abconsole login`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read token: %w", err)
			}
			token = line
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}

		sess, path, err := profileSession()
		if err != nil {
			return err
		}
		if err := sess.SetToken(token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", path)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, _, err := profileSession()
		if err != nil {
			return err
		}
		if err := sess.Evict(); err != nil {
			return fmt.Errorf("failed to remove token: %w", err)
		}

		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		}
		return nil
	},
}

func profileSession() (*session.Session, string, error) {
	prof, _, err := cli.GetProfile(profile, baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("configuration error: %w", err)
	}
	sess, err := session.New(session.NewFileStore(prof.TokenFile))
	if err != nil {
		return nil, "", err
	}
	return sess, prof.TokenFile, nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
