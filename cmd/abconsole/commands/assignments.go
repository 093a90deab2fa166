package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/abconsole/internal/cli"
	"github.com/TimurManjosov/abconsole/internal/loader"
)

var assignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "Resolve which variant a user sees",
}

var assignmentsGetCmd = &cobra.Command{
	Use:   "get <experiment-id> <user-id>",
	Short: "Show a user's assignment",
	Long: `Show the variant a user is assigned to. Prints "No assignment" when the
user has not been assigned yet.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		l := loader.NewAssignmentLoader(c)
		st := l.SetKey(context.Background(), loader.AssignmentKey{ExperimentID: args[0], UserID: args[1]})
		if st.Err != "" {
			return fmt.Errorf("failed to get assignment: %s", st.Err)
		}

		if !quiet {
			return cli.PrintAssignment(cmd.OutOrStdout(), st.Data, out)
		}
		return nil
	},
}

var assignmentsAssignCmd = &cobra.Command{
	Use:   "assign <experiment-id> <user-id>",
	Short: "Assign a user to a variant",
	Long: `Ask the backend to assign the user to a variant. Assigning an already
assigned user returns the existing assignment.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		a, err := c.Assign(context.Background(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to assign user: %w", err)
		}

		if !quiet {
			return cli.PrintAssignment(cmd.OutOrStdout(), a, out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assignmentsCmd)
	assignmentsCmd.AddCommand(assignmentsGetCmd)
	assignmentsCmd.AddCommand(assignmentsAssignCmd)
}
