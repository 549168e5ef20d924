package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/randsearch/internal/config"
	"github.com/copyleftdev/randsearch/internal/errors"
)

const longHelp = `Performs random search on a parameter space where the objective function is
a program that prints a number to stdout.

Existing points are read from --input (default stdin), one per line: the
score followed by the coordinates, whitespace separated, "#" lines ignored.
Each step takes the best point, proposes --num-proposals candidates offset
by a random direction on the exploration sphere scaled by --radii, and runs
COMMAND for each of them in parallel. New points are printed as they are
evaluated. The search stops once the best score has changed by no more than
--stale-threshold for --stale-count consecutive steps.

COMMAND is a template: {1}, {2}, ... are replaced by the coordinates ({}
numbers itself, {{ and }} are literal braces, {1:.3f} sets a precision), and
the result is split with shell quoting rules. The score is the first line
of the command's output that parses as a number; "inf" and "-inf" can mark
impossible points.`

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err == nil {
		cmd := newRootCmd(cfg, stdin, stdout, stderr)
		cmd.SetArgs(args)
		err = cmd.ExecuteContext(ctx)
	}
	if err == nil {
		return 0
	}

	if !errors.IsReported(err) {
		fmt.Fprintf(stdout, "## ERROR: %s\n", errors.UserMessage(err))
	}
	return errors.ExitCode(err)
}

func newRootCmd(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "randsearch [flags] COMMAND",
		Short:         "Random search over the parameters of an external objective program",
		Long:          longHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.Errorf(errors.KindConfig,
					"expected exactly one COMMAND argument, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Command = args[0]
			if cmd.Flags().Changed("dimensionality") {
				cfg.DimensionalitySet = true
			}
			if cmd.Flags().Changed("rng-seed") {
				cfg.RNGSeedSet = true
			}
			return run(cmd.Context(), cfg, streams{stdin: stdin, stdout: stdout, stderr: stderr})
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrap(err, errors.KindConfig, "invalid flags")
	})

	flags := cmd.Flags()
	flags.IntVarP(&cfg.Dimensionality, "dimensionality", "d", cfg.Dimensionality,
		"dimensionality of the parameter space (default: inferred from the input points)")
	flags.StringVarP(&cfg.Radii, "radii", "r", cfg.Radii,
		`comma-separated radii of the exploration sphere per dimension; the last value repeats, so "1,2,3" in four dimensions means "1,2,3,3"`)
	flags.Int64VarP(&cfg.RNGSeed, "rng-seed", "R", cfg.RNGSeed,
		"random number generator seed (default: random)")
	flags.StringVarP(&cfg.Input, "input", "i", cfg.Input,
		`file of already evaluated points, or "-" for stdin`)
	flags.BoolVarP(&cfg.Append, "append", "a", cfg.Append,
		"append newly evaluated points to the --input file")
	flags.StringVarP(&cfg.OptimizationType, "optimization-type", "O", cfg.OptimizationType,
		"optimization type: min or max")
	flags.Float64VarP(&cfg.StaleThreshold, "stale-threshold", "t", cfg.StaleThreshold,
		"a step is stale when the best value changes by no more than this")
	flags.IntVarP(&cfg.StaleCount, "stale-count", "c", cfg.StaleCount,
		"stop after this many consecutive stale steps")
	flags.IntVarP(&cfg.NumProposals, "num-proposals", "p", cfg.NumProposals,
		"candidate points evaluated in parallel per step")
	flags.BoolVar(&cfg.PrintDateAndTime, "print-date-and-time", cfg.PrintDateAndTime,
		"print the date and time in ISO format before each step")
	flags.DurationVar(&cfg.EvalTimeout, "eval-timeout", cfg.EvalTimeout,
		"kill an evaluation that runs longer than this (default: no limit)")
	flags.StringVar(&cfg.Status.Addr, "status-addr", cfg.Status.Addr,
		"serve search status, metrics and JSON-RPC on this address (default: off)")
	cmd.PersistentFlags().StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level,
		"log level (debug, info, warn, error)")

	cmd.AddCommand(newVersionCmd())
	return cmd
}
