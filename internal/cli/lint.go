package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/validation"
)

// lintReport is the --json output of lint.
type lintReport struct {
	Valid      bool           `json:"valid"`
	VesselID   string         `json:"vessel_id"`
	Bays       int            `json:"bays"`
	Slots      int            `json:"slots"`
	Containers int            `json:"containers"`
	Metrics    domain.Metrics `json:"metrics"`

	// Warnings are standing placements that a move would be refused for.
	// They do not make the plan invalid.
	Warnings []validation.Violation `json:"warnings,omitempty"`
}

// NewLintCommand creates the "lint" command.
func NewLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <plan>",
		Short: "Check that a plan document loads",
		Long: `Decode a plan document, check its structure and place every assignment.
Placements that break a stacking rule are reported as warnings.

Examples:
  stowctl lint plan.json
  stowctl lint plan.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args[0])
		},
	}
}

func runLint(cmd *cobra.Command, path string) error {
	g, err := loadPlan(cmd, path)
	if err != nil {
		return err
	}
	if err := g.CheckInvariants(); err != nil {
		return &CLIError{Code: ExitInvalidPlan, Message: "plan is invalid", Err: err}
	}

	report := lintReport{
		Valid:      true,
		VesselID:   g.Vessel().ID,
		Bays:       len(g.Bays()),
		Slots:      domain.DeriveCapacity(g.Bays()).TotalSlots,
		Containers: g.Len(),
		Metrics:    g.Metrics(),
		Warnings:   validation.New(validation.Options{}).CheckPlacement(g),
	}
	if jsonOutput {
		return writeJSON(cmd, report)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK %s: %d bays, %d slots, %d containers\n",
		report.VesselID, report.Bays, report.Slots, report.Containers)
	for _, w := range report.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s at %s: %s (%s)\n",
			w.ContainerID, w.Rejection.Target, w.Rejection.Message, w.Rejection.Reason)
	}
	return nil
}
