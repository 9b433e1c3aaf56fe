package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "remitquote",
	Short: "Remittance quote aggregator",
	Long: `remitquote aggregates remittance quotes across multiple providers.

Usage:
  remitquote [command]

Examples:
  remitquote serve
  remitquote quote --source-country US --dest-country MX --source-currency USD --dest-currency MXN --amount 500
  remitquote providers list
  remitquote cache invalidate-all`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode is an error that carries the process exit code §6
// assigns it, so main can translate a RunE failure into os.Exit
// without every command reimplementing the mapping.
type ExitCode struct {
	Code int
	Err  error
}

func (e *ExitCode) Error() string { return e.Err.Error() }
func (e *ExitCode) Unwrap() error { return e.Err }

// ExitCodeFor maps err to a process exit status per §6: 0 on
// success (never reached here since Execute only returns non-nil on
// failure), 2 for InvalidParameter, 3 for no providers active, 1 for
// anything else including config/transport errors.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitCode
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
