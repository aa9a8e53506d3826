// Package cli implements the stowctl commands: offline checks of plan
// documents without a running service.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/planfile"
)

// Global flags, bound on the root command.
var (
	jsonOutput bool
	verbose    bool
)

// Build information, injected from main.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

// ExitCode is the process status stowctl exits with.
type ExitCode int

const (
	ExitOK           ExitCode = 0
	ExitGeneralError ExitCode = 1
	ExitInvalidPlan  ExitCode = 2
	ExitMoveRejected ExitCode = 3
)

// CLIError carries the exit code a failure should produce.
type CLIError struct {
	Code    ExitCode
	Message string
	Err     error
}

func (e *CLIError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Root Command
// =============================================================================

// NewRootCommand builds the stowctl command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stowctl",
		Short: "Offline tools for vessel stowage plans",
		Long: `stowctl loads a plan document (JSON or YAML, chosen by file extension)
and checks it the same way the stowage service does.

Exit codes: 0 ok, 1 general error, 2 invalid plan, 3 move rejected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewLintCommand())
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewRenderCommand())

	return rootCmd
}

// Execute runs the command tree and returns the exit code.
func Execute(rootCmd *cobra.Command) int {
	err := rootCmd.Execute()
	if err == nil {
		return int(ExitOK)
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		printError(rootCmd.ErrOrStderr(), cliErr.Message, cliErr.Err)
		return int(cliErr.Code)
	}
	printError(rootCmd.ErrOrStderr(), err.Error(), nil)
	return int(ExitGeneralError)
}

func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		body := map[string]any{"message": message}
		if underlying != nil {
			body["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]any{"error": body}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}

// verboseLog writes to stderr only with --verbose.
func verboseLog(cmd *cobra.Command, format string, args ...any) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "[verbose] "+format+"\n", args...)
	}
}

// writeJSON prints v as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// Plan Loading
// =============================================================================

// loadPlan reads a plan file and builds its grid. Unreadable files exit
// with ExitGeneralError; anything wrong with the content exits with
// ExitInvalidPlan.
func loadPlan(cmd *cobra.Command, path string) (*domain.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &CLIError{Code: ExitGeneralError, Message: "cannot open plan", Err: err}
	}
	defer f.Close()

	format := planfile.FormatFromPath(path)
	verboseLog(cmd, "decoding %s as %s", path, format)

	rec, err := planfile.Decode(f, format)
	if err != nil {
		return nil, &CLIError{Code: ExitInvalidPlan, Message: "cannot decode plan", Err: err}
	}
	g, err := planfile.Build(rec)
	if err != nil {
		return nil, &CLIError{Code: ExitInvalidPlan, Message: "plan is invalid", Err: err}
	}
	verboseLog(cmd, "loaded vessel %s with %d containers", g.Vessel().ID, g.Len())
	return g, nil
}
