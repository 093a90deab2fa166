package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/abconsole/internal/cli"
	"github.com/TimurManjosov/abconsole/internal/client"
	"github.com/TimurManjosov/abconsole/internal/session"
)

var (
	// Global flags
	baseURL string
	profile string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "abconsole",
	Short: "Console for A/B testing experiments",
	Long: `abconsole manages experiments on an A/B testing backend.

It creates and inspects experiments, tracks and lists events, resolves
user assignments and serves a web dashboard with live results.

Examples:
  abconsole login my-token
  abconsole experiments list
  abconsole experiments create "Button color" --variant control --variant blue
  abconsole experiments stats 3f2a...
  abconsole serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the experiments API")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// newClient resolves the active profile and returns a client whose session
// is persisted in the profile's token file.
func newClient() (*client.Client, error) {
	prof, _, err := cli.GetProfile(profile, baseURL)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	sess, err := session.New(session.NewFileStore(prof.TokenFile))
	if err != nil {
		return nil, err
	}

	return client.NewClient(prof.BaseURL, sess,
		client.WithTimeout(prof.Timeout),
		client.WithLogger(logger()),
	), nil
}

func logger() zerolog.Logger {
	return cli.NewLogger(os.Stderr, verbose, quiet)
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(format)
}
