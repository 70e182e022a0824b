package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entail/internal/engine"
	"github.com/roach88/entail/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Config      string // YAML config file
	DB          string // SQLite database; empty means an in-memory store
	Rules       string // CUE rule file or directory appended to the base rules
	MaxRounds   int
	Parallel    int
	MetricsFile string // Prometheus text file written after the command

	// Prefixes come from the config file.
	Prefixes map[string]string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, the engine default (UUIDv7) is used.
	RunIDs engine.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the entail CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entail",
		Short:   "entail - RDFS closure with truth maintenance",
		Version: fmt.Sprintf("%s (justification format %s)", ir.EngineVersion, ir.IRVersion),
		Long: `Compute and maintain the RDFS entailment closure of a triple store.

Derived triples keep their justifications, so retracting an asserted
triple removes exactly what no longer follows.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config != "" {
				cfg, err := LoadConfig(opts.Config)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				cfg.Apply(opts, cmd.Flags())
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logs on stderr)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Config, "config", "", "YAML config file (prefixes, db, rules, max_rounds, parallel)")
	flags.StringVar(&opts.DB, "db", "", "path to SQLite database (default: in-memory)")
	flags.StringVar(&opts.Rules, "rules", "", "CUE rule file or directory added to the RDFS rules")
	flags.IntVar(&opts.MaxRounds, "max-rounds", engine.DefaultMaxRounds, "maximum rounds per run")
	flags.IntVar(&opts.Parallel, "parallel", 0, "rules evaluated concurrently per round (0 or 1: sequential)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	// Add subcommands
	cmd.AddCommand(NewClosureCommand(opts))
	cmd.AddCommand(NewAssertCommand(opts))
	cmd.AddCommand(NewRetractCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
