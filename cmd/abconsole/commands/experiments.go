package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/abconsole/internal/cli"
	"github.com/TimurManjosov/abconsole/internal/model"
)

var (
	createDescription string
	createVariants    []string
	createStart       string
	createEnd         string

	updateName        string
	updateDescription string
	updateStatus      string
	updateStart       string
	updateEnd         string
	updateVariants    string

	deleteForce bool
)

var experimentsCmd = &cobra.Command{
	Use:     "experiments",
	Aliases: []string{"exp"},
	Short:   "Manage experiments",
}

var experimentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all experiments",
	Long: `List all experiments.

Examples:
  abconsole experiments list
  abconsole experiments list --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		exps, err := c.ListExperiments(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list experiments: %w", err)
		}

		if !quiet {
			if len(exps) == 0 && out == cli.FormatTable {
				fmt.Fprintln(cmd.OutOrStdout(), "No experiments found")
				return nil
			}
			return cli.PrintExperiments(cmd.OutOrStdout(), exps, out)
		}

		return nil
	},
}

var experimentsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an experiment and its variants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		exp, err := c.GetExperiment(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get experiment: %w", err)
		}

		if !quiet {
			return cli.PrintExperiment(cmd.OutOrStdout(), exp, out)
		}
		return nil
	},
}

var experimentsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new experiment",
	Long: `Create a new experiment in draft status.

Variants are given as key[:name[:weight]]. Weights are optional; when set
on one variant they must be set on all and add up to 100.

Examples:
  abconsole experiments create "Button color" --variant control --variant blue
  abconsole experiments create "Pricing" --variant a:Old:70 --variant b:New:30 --start 2026-03-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := model.CreateExperimentPayload{
			Name:        args[0],
			Description: createDescription,
		}
		for _, spec := range createVariants {
			v, err := parseVariantFlag(spec)
			if err != nil {
				return err
			}
			payload.Variants = append(payload.Variants, v)
		}
		if len(payload.Variants) == 0 {
			return fmt.Errorf("at least one --variant is required")
		}

		var err error
		if payload.StartDate, err = parseDateFlag("start", createStart); err != nil {
			return err
		}
		if payload.EndDate, err = parseDateFlag("end", createEnd); err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		exp, err := c.CreateExperiment(context.Background(), payload)
		if err != nil {
			return fmt.Errorf("failed to create experiment: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully created experiment '%s' (%s)\n", exp.Name, exp.ID)
		}
		return nil
	},
}

var experimentsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an experiment",
	Long: `Update the fields of an experiment. Only flags that are given are sent.

Examples:
  abconsole experiments update 3f2a... --status active
  abconsole experiments update 3f2a... --name "Button colour" --end 2026-04-01
  abconsole experiments update 3f2a... --variants '[{"key":"a","name":"A"},{"key":"b","name":"B"}]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload model.UpdateExperimentPayload
		flags := cmd.Flags()
		changed := false

		if flags.Changed("name") {
			payload.Name = &updateName
			changed = true
		}
		if flags.Changed("description") {
			payload.Description = &updateDescription
			changed = true
		}
		if flags.Changed("status") {
			st, err := model.ParseStatus(updateStatus)
			if err != nil {
				return err
			}
			payload.Status = &st
			changed = true
		}
		if flags.Changed("start") {
			t, err := parseDateFlag("start", updateStart)
			if err != nil {
				return err
			}
			payload.StartDate = t
			changed = true
		}
		if flags.Changed("end") {
			t, err := parseDateFlag("end", updateEnd)
			if err != nil {
				return err
			}
			payload.EndDate = t
			changed = true
		}
		if flags.Changed("variants") {
			if err := json.Unmarshal([]byte(updateVariants), &payload.Variants); err != nil {
				return fmt.Errorf("invalid variants JSON: %w", err)
			}
			changed = true
		}
		if !changed {
			return fmt.Errorf("nothing to update")
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		exp, err := c.UpdateExperiment(context.Background(), args[0], payload)
		if err != nil {
			return fmt.Errorf("failed to update experiment: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully updated experiment '%s' (status %s)\n", exp.Name, exp.Status)
		}
		return nil
	},
}

var experimentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an experiment",
	Long: `Delete an experiment together with its events and assignments.

Examples:
  abconsole experiments delete 3f2a...
  abconsole experiments delete 3f2a... --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		// Confirm deletion unless --force
		if !deleteForce && !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Are you sure you want to delete experiment '%s'? (y/N): ", id)
			reader := bufio.NewReader(cmd.InOrStdin())
			response, err := reader.ReadString('\n')
			if err != nil && response == "" {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		if err := c.DeleteExperiment(context.Background(), id); err != nil {
			return fmt.Errorf("failed to delete experiment: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted experiment '%s'\n", id)
		}
		return nil
	},
}

var experimentsStatsCmd = &cobra.Command{
	Use:   "stats <id>",
	Short: "Show results of an experiment",
	Long: `Show views, clicks, conversions and conversion rate per variant, with a
95% confidence interval and the significance of the leading variant.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		st, err := c.GetExperimentStats(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get experiment stats: %w", err)
		}

		if !quiet {
			return cli.PrintStats(cmd.OutOrStdout(), st, out)
		}
		return nil
	},
}

// parseVariantFlag parses key[:name[:weight]].
func parseVariantFlag(s string) (model.CreateVariantPayload, error) {
	parts := strings.SplitN(s, ":", 3)
	v := model.CreateVariantPayload{Key: strings.TrimSpace(parts[0])}
	if v.Key == "" {
		return v, fmt.Errorf("invalid variant '%s': key is required", s)
	}
	v.Name = v.Key
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		v.Name = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		w, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || w < 0 || w > 100 {
			return v, fmt.Errorf("invalid variant '%s': weight must be 0-100", s)
		}
		v.Weight = &w
	}
	return v, nil
}

// parseDateFlag accepts YYYY-MM-DD or RFC 3339. Empty means unset.
func parseDateFlag(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s '%s': expected YYYY-MM-DD or RFC 3339", name, s)
}

func init() {
	rootCmd.AddCommand(experimentsCmd)
	experimentsCmd.AddCommand(experimentsListCmd)
	experimentsCmd.AddCommand(experimentsGetCmd)
	experimentsCmd.AddCommand(experimentsCreateCmd)
	experimentsCmd.AddCommand(experimentsUpdateCmd)
	experimentsCmd.AddCommand(experimentsDeleteCmd)
	experimentsCmd.AddCommand(experimentsStatsCmd)

	experimentsCreateCmd.Flags().StringVar(&createDescription, "description", "", "Experiment description")
	experimentsCreateCmd.Flags().StringArrayVar(&createVariants, "variant", nil, "Variant as key[:name[:weight]] (repeatable)")
	experimentsCreateCmd.Flags().StringVar(&createStart, "start", "", "Start date")
	experimentsCreateCmd.Flags().StringVar(&createEnd, "end", "", "End date")

	experimentsUpdateCmd.Flags().StringVar(&updateName, "name", "", "New name")
	experimentsUpdateCmd.Flags().StringVar(&updateDescription, "description", "", "New description")
	experimentsUpdateCmd.Flags().StringVar(&updateStatus, "status", "", "New status (draft, active, paused, completed)")
	experimentsUpdateCmd.Flags().StringVar(&updateStart, "start", "", "New start date")
	experimentsUpdateCmd.Flags().StringVar(&updateEnd, "end", "", "New end date")
	experimentsUpdateCmd.Flags().StringVar(&updateVariants, "variants", "", "Replacement variants as a JSON array")

	experimentsDeleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompt")
}
