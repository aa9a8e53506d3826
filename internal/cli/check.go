package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/stowage/internal/core/executor"
	"github.com/artpar/stowage/internal/core/location"
	"github.com/artpar/stowage/internal/core/validation"
)

type checkFlags struct {
	container        string
	bay              string
	row              string
	tier             int
	cumulativeWeight bool
}

// checkReport is the --json output of check.
type checkReport struct {
	ContainerID string                `json:"container_id"`
	Target      location.Ref          `json:"target"`
	Code        string                `json:"code,omitempty"`
	Accepted    bool                  `json:"accepted"`
	Rejection   *validation.Rejection `json:"rejection,omitempty"`
}

// NewCheckCommand creates the "check" command.
func NewCheckCommand() *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check <plan>",
		Short: "Validate one move against a plan",
		Long: `Run the move validator for a single proposed move. The plan file is not
modified. A rejected move exits with status 3.

Examples:
  stowctl check plan.json --container MSCU1234567 --bay 01 --row 02 --tier 3
  stowctl check plan.yaml --container C1 --bay 01 --row 02 --tier 3 --cumulative-weight`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.container, "container", "", "Container ID to move")
	cmd.Flags().StringVar(&flags.bay, "bay", "", "Target bay code")
	cmd.Flags().StringVar(&flags.row, "row", "", "Target row code")
	cmd.Flags().IntVar(&flags.tier, "tier", 0, "Target tier (1 is the top of the column)")
	cmd.Flags().BoolVar(&flags.cumulativeWeight, "cumulative-weight", false,
		"Check the summed column weight against the row limit")
	for _, name := range []string{"container", "bay", "row", "tier"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runCheck(cmd *cobra.Command, path string, flags *checkFlags) error {
	g, err := loadPlan(cmd, path)
	if err != nil {
		return err
	}

	target := location.Ref{Bay: flags.bay, Row: flags.row, Tier: flags.tier}
	exec := executor.New(validation.New(validation.Options{
		CumulativeColumnWeight: flags.cumulativeWeight,
	}))
	decision := exec.Validate(g, flags.container, target)

	report := checkReport{
		ContainerID: flags.container,
		Target:      target,
		Accepted:    decision.Accepted,
		Rejection:   decision.Rejection,
	}
	if code, err := target.Code(); err == nil {
		report.Code = code
	}

	if jsonOutput {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else if decision.Accepted {
		fmt.Fprintf(cmd.OutOrStdout(), "accepted: %s -> %s\n", flags.container, target)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "rejected: %s -> %s\n  %s: %s\n",
			flags.container, target, decision.Rejection.Reason, decision.Rejection.Message)
	}

	if !decision.Accepted {
		return &CLIError{Code: ExitMoveRejected, Message: "move rejected", Err: decision.Rejection}
	}
	return nil
}
