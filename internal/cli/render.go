package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/stowage/internal/core/domain"
)

// NewRenderCommand creates the "render" command.
func NewRenderCommand() *cobra.Command {
	var bay string

	cmd := &cobra.Command{
		Use:   "render <plan>",
		Short: "Print the bay grids of a plan",
		Long: `Print each bay as a grid of rows (columns) and tiers (lines), tier 1 on top.

Cells show the container ID, "." for an empty slot and blank space where the
row has fewer tiers. Hazardous containers carry a "!" suffix, reefers a "*".

Examples:
  stowctl render plan.json
  stowctl render plan.json --bay 03 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], bay)
		},
	}

	cmd.Flags().StringVar(&bay, "bay", "", "Render a single bay")
	return cmd
}

func runRender(cmd *cobra.Command, path, bay string) error {
	g, err := loadPlan(cmd, path)
	if err != nil {
		return err
	}

	views := g.Projection()
	if bay != "" {
		views = filterBay(views, bay)
		if len(views) == 0 {
			return &CLIError{Code: ExitGeneralError, Message: fmt.Sprintf("bay %q not found on vessel %s", bay, g.Vessel().ID)}
		}
	}

	if jsonOutput {
		return writeJSON(cmd, views)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Vessel %s\n", g.Vessel().ID)
	for _, bv := range views {
		fmt.Fprintln(out)
		if err := renderBay(out, bv); err != nil {
			return err
		}
	}
	m := g.Metrics()
	fmt.Fprintf(out, "\nmoves %d, restows %d, cost %g\n", m.TotalMoves, m.TotalReStows, m.Cost)
	return nil
}

func filterBay(views []domain.BayView, bay string) []domain.BayView {
	for _, bv := range views {
		if bv.Bay == bay {
			return []domain.BayView{bv}
		}
	}
	return nil
}

func renderBay(w io.Writer, bv domain.BayView) error {
	title := "Bay " + bv.Bay
	if bv.ReeferReady {
		title += " (reefer)"
	}
	fmt.Fprintln(w, title)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"tier"}
	depth := 0
	for _, rv := range bv.Rows {
		header = append(header, "row "+rv.Row)
		depth = max(depth, rv.MaxTiers)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for tier := 1; tier <= depth; tier++ {
		line := []string{fmt.Sprintf("%d", tier)}
		for _, rv := range bv.Rows {
			line = append(line, cell(rv, tier))
		}
		fmt.Fprintln(tw, strings.Join(line, "\t"))
	}
	return tw.Flush()
}

func cell(rv domain.RowView, tier int) string {
	if tier > len(rv.Slots) {
		return ""
	}
	c := rv.Slots[tier-1].Container
	if c == nil {
		return "."
	}
	label := c.ID
	if c.Hazardous {
		label += "!"
	}
	if c.Reefer {
		label += "*"
	}
	return label
}
