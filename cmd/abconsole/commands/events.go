package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/abconsole/internal/cli"
	"github.com/TimurManjosov/abconsole/internal/model"
)

var (
	trackUser     string
	trackSession  string
	trackMetadata string

	eventsFilter model.EventsListParams
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Track and inspect events",
}

var eventsTrackCmd = &cobra.Command{
	Use:   "track <experiment-id> <variant-key> <event-type>",
	Short: "Track an event",
	Long: `Record an event for a variant. The backend aggregates "view", "click" and
"conversion" events into experiment stats.

Examples:
  abconsole events track 3f2a... blue view --user u-42
  abconsole events track 3f2a... blue conversion --user u-42 --metadata '{"amount":19.9}'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := model.TrackEventPayload{
			ExperimentID: args[0],
			VariantKey:   args[1],
			EventType:    args[2],
			UserID:       trackUser,
			SessionID:    trackSession,
		}
		if trackMetadata != "" {
			if err := json.Unmarshal([]byte(trackMetadata), &payload.Metadata); err != nil {
				return fmt.Errorf("invalid metadata JSON: %w", err)
			}
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		ev, err := c.TrackEvent(context.Background(), payload)
		if err != nil {
			return fmt.Errorf("failed to track event: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Tracked %s event %s\n", ev.EventType, ev.ID)
		}
		return nil
	},
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events",
	Long: `List events, optionally filtered.

Examples:
  abconsole events list --experiment 3f2a... --type conversion
  abconsole events list --user u-42 --page 2 --limit 50`,
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

		page, err := c.ListEvents(context.Background(), eventsFilter)
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}

		if !quiet {
			if len(page.Data) == 0 && out == cli.FormatTable {
				fmt.Fprintln(cmd.OutOrStdout(), "No events found")
				return nil
			}
			return cli.PrintEvents(cmd.OutOrStdout(), page, out)
		}
		return nil
	},
}

var eventsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an event",
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

		ev, err := c.GetEvent(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get event: %w", err)
		}

		if !quiet {
			return cli.PrintEvent(cmd.OutOrStdout(), ev, out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTrackCmd)
	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsGetCmd)

	eventsTrackCmd.Flags().StringVar(&trackUser, "user", "", "User id")
	eventsTrackCmd.Flags().StringVar(&trackSession, "session", "", "Session id")
	eventsTrackCmd.Flags().StringVar(&trackMetadata, "metadata", "", "Event metadata as JSON")

	f := eventsListCmd.Flags()
	f.StringVar(&eventsFilter.ExperimentID, "experiment", "", "Filter by experiment id")
	f.StringVar(&eventsFilter.VariantKey, "variant", "", "Filter by variant key")
	f.StringVar(&eventsFilter.EventType, "type", "", "Filter by event type")
	f.StringVar(&eventsFilter.UserID, "user", "", "Filter by user id")
	f.StringVar(&eventsFilter.StartDate, "since", "", "Only events at or after this time (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&eventsFilter.EndDate, "until", "", "Only events at or before this time (RFC 3339 or YYYY-MM-DD)")
	f.IntVar(&eventsFilter.Page, "page", 0, "Page number")
	f.IntVar(&eventsFilter.Limit, "limit", 0, "Page size")
}
