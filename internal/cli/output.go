package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/TimurManjosov/abconsole/internal/stats"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use table, json or yaml)", s)
	}
}

// PrintExperiments outputs experiments in the specified format
func PrintExperiments(w io.Writer, exps []model.Experiment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		// wrapped in a key so the output shape matches the backend envelope
		return printJSON(w, map[string][]model.Experiment{"data": exps})
	case FormatYAML:
		return printYAML(w, exps)
	case FormatTable:
		return printExperimentTable(w, exps)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintExperiment outputs a single experiment, including its variants in table form.
func PrintExperiment(w io.Writer, exp *model.Experiment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, exp)
	case FormatYAML:
		return printYAML(w, exp)
	case FormatTable:
		if err := printExperimentTable(w, []model.Experiment{*exp}); err != nil {
			return err
		}
		fmt.Fprintln(w)
		return printVariantTable(w, exp.Variants)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintStats outputs experiment stats. The table form adds the confidence
// interval of every variant and the significance of the leader.
func PrintStats(w io.Writer, st *model.ExperimentStats, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, st)
	case FormatYAML:
		return printYAML(w, st)
	case FormatTable:
		return printStatsTable(w, st)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintEvents outputs one page of events.
func PrintEvents(w io.Writer, page *model.ListResponse[model.Event], format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, page)
	case FormatYAML:
		return printYAML(w, page)
	case FormatTable:
		if err := printEventTable(w, page.Data); err != nil {
			return err
		}
		if page.Total > 0 {
			fmt.Fprintf(w, "Showing %d of %d events (page %d)\n", len(page.Data), page.Total, page.Page)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintEvent outputs a single event.
func PrintEvent(w io.Writer, ev *model.Event, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, ev)
	case FormatYAML:
		return printYAML(w, ev)
	case FormatTable:
		return printEventTable(w, []model.Event{*ev})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintAssignment outputs an assignment; nil means the user is not assigned.
func PrintAssignment(w io.Writer, a *model.Assignment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, a)
	case FormatYAML:
		return printYAML(w, a)
	case FormatTable:
		if a == nil {
			_, err := fmt.Fprintln(w, "No assignment")
			return err
		}
		table := tablewriter.NewWriter(w)
		table.Header("Experiment", "User", "Variant", "Assigned At")
		table.Append(a.ExperimentID, a.UserID, a.VariantKey, formatTime(a.AssignedAt))
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printExperimentTable(w io.Writer, exps []model.Experiment) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Status", "Variants", "Start", "End", "Updated At")

	for _, exp := range exps {
		name := exp.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		table.Append(
			exp.ID,
			name,
			string(exp.Status),
			strconv.Itoa(len(exp.Variants)),
			formatTimePtr(exp.StartDate),
			formatTimePtr(exp.EndDate),
			formatTime(exp.UpdatedAt),
		)
	}

	return table.Render()
}

func printVariantTable(w io.Writer, variants []model.Variant) error {
	table := tablewriter.NewWriter(w)
	table.Header("Key", "Name", "Weight")

	for _, v := range variants {
		weight := "equal"
		if v.Weight != nil {
			weight = fmt.Sprintf("%d%%", *v.Weight)
		}
		table.Append(v.Key, v.Name, weight)
	}

	return table.Render()
}

func printStatsTable(w io.Writer, st *model.ExperimentStats) error {
	res := stats.Analyze(st)

	table := tablewriter.NewWriter(w)
	table.Header("Variant", "Views", "Clicks", "Conversions", "Rate", "95% CI")
	for _, v := range res.Variants {
		table.Append(
			v.Name,
			strconv.Itoa(v.Views),
			strconv.Itoa(v.Clicks),
			strconv.Itoa(v.Conversions),
			formatPercent(v.Rate),
			formatPercent(v.CILower)+" - "+formatPercent(v.CIUpper),
		)
	}
	table.Append(
		"Total",
		strconv.Itoa(st.Totals.Views),
		strconv.Itoa(st.Totals.Clicks),
		strconv.Itoa(st.Totals.Conversions),
		formatPercent(st.Totals.ConversionRate),
		"",
	)
	if err := table.Render(); err != nil {
		return err
	}

	if len(res.Variants) < 2 {
		return nil
	}
	leader := res.Variants[res.LeadingVariant].Name
	if res.Confident {
		_, err := fmt.Fprintf(w, "%s is winning with %s confidence\n", leader, formatPercent(res.ConfidenceLevel))
		return err
	}
	_, err := fmt.Fprintf(w, "%s leads, not yet significant (%s confidence)\n", leader, formatPercent(res.ConfidenceLevel))
	return err
}

func printEventTable(w io.Writer, events []model.Event) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Experiment", "Variant", "Type", "User", "Timestamp")

	for _, ev := range events {
		table.Append(ev.ID, ev.ExperimentID, ev.VariantKey, ev.EventType, ev.UserID, formatTime(ev.Timestamp))
	}

	return table.Render()
}

func formatPercent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}
