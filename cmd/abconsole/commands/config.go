package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/abconsole/internal/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the abconsole CLI configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Create a default configuration file at ~/.abconsole/config.yaml

Example:
  abconsole config init`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.InitConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		configPath, _ := cli.GetConfigPath()
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", configPath)
		fmt.Fprintln(cmd.OutOrStdout(), "\nPlease edit the file to set your base URLs.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show the configuration",
	Long: `Display the configuration file and the settings the next command will use.

Example:
  abconsole config show --profile staging`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		w := cmd.OutOrStdout()

		fmt.Fprintf(w, "Default Profile: %s\n\n", cfg.DefaultProfile)
		fmt.Fprintln(w, "Profiles:")
		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := cfg.Profiles[name]
			fmt.Fprintf(w, "  %s:\n", name)
			fmt.Fprintf(w, "    base_url: %s\n", p.BaseURL)
			if p.Timeout > 0 {
				fmt.Fprintf(w, "    timeout: %s\n", p.Timeout)
			}
			if p.TokenFile != "" {
				fmt.Fprintf(w, "    token_file: %s\n", p.TokenFile)
			}
		}

		prof, name, err := cli.GetProfile(profile, baseURL)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		fmt.Fprintf(w, "\nEffective (%s):\n", name)
		fmt.Fprintf(w, "  base_url: %s\n", prof.BaseURL)
		fmt.Fprintf(w, "  timeout: %s\n", prof.Timeout)
		fmt.Fprintf(w, "  token_file: %s\n", prof.TokenFile)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <profile.key> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Examples:
  abconsole config set local.base_url http://localhost:3000/api
  abconsole config set prod.timeout 5s
  abconsole config set default prod`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if args[0] == "default" {
			cfg.DefaultProfile = args[1]
			if err := cli.SaveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default profile set to %s\n", args[1])
			return nil
		}

		parts := strings.Split(args[0], ".")
		if len(parts) != 2 {
			return fmt.Errorf("invalid key format, expected 'profile.key' (e.g., 'local.base_url')")
		}
		name, key, value := parts[0], parts[1], args[1]

		p := cfg.Profiles[name]
		switch key {
		case "base_url":
			p.BaseURL = value
		case "timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			p.Timeout = d
		case "token_file":
			p.TokenFile = value
		default:
			return fmt.Errorf("unknown key '%s', valid keys: base_url, timeout, token_file", key)
		}
		cfg.Profiles[name] = p

		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Successfully set %s.%s\n", name, key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
