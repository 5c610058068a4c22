// Package cli provides the command-line entry point for the forwarder: flag
// parsing, logger construction, configuration loading, and dispatch into one
// of the process's three runtime modes (continuous, --once, --validate).
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/config"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/logging"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/metricsserver"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/supervisor"
)

// Version is set by the build process via -ldflags; it defaults to "dev" for
// local builds.
var Version = "dev"

var (
	cfgFile      string
	verbose      int
	quiet        int
	validateOnly bool
	once         bool
	metricsAddr  string
)

// RootCmd is the forwarder's single command: there is no subcommand tree,
// only flags, matching a process meant to run one configuration per instance.
var RootCmd = &cobra.Command{
	Use:     "otel-journal-gatewayd-forwarder",
	Short:   "forwards systemd-journal-gatewayd entries to an OTLP/HTTP logs endpoint",
	Version: Version,
	RunE:    run,
}

func init() {
	flags := RootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "/etc/otel-journal-gatewayd-forwarder/config.toml", "path to the TOML configuration file")
	flags.CountVarP(&verbose, "verbose", "v", "increase log verbosity (repeatable)")
	flags.CountVarP(&quiet, "quiet", "q", "decrease log verbosity (repeatable)")
	flags.BoolVar(&validateOnly, "validate", false, "load and validate the configuration, then exit")
	flags.BoolVar(&once, "once", false, "run exactly one poll/export cycle per source, then exit")
	flags.StringVar(&metricsAddr, "metrics", "", "bind address for the Prometheus metrics endpoint, e.g. :9090 (disabled if empty)")

	// Cobra only auto-assigns -v as the --version shorthand when -v is free;
	// -v is already --verbose here, so --version would otherwise end up with
	// no shorthand at all. Declare it explicitly to keep spec.md §6's "-h, -V".
	flags.BoolP("version", "V", false, "print version information and exit")
}

// Exit codes, per the forwarder's external contract: 0 on a clean run or
// validate success, 1 on a startup/config failure, 2 on invalid usage, 130
// on termination by SIGINT/SIGTERM while collectors were still running.
const (
	exitOK           = 0
	exitStartupError = 1
	exitUsageError   = 2
	exitSignaled     = 130
)

func run(cmd *cobra.Command, args []string) error {
	// The version flag is declared by hand (see init) to claim the -V
	// shorthand. Cobra's Execute prints RootCmd.Version itself when that
	// flag is set and returns before calling run; this check covers a
	// direct call of run.
	if v, _ := cmd.Flags().GetBool("version"); v {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", cmd.Name(), Version)
		os.Exit(exitOK)
	}

	logger := logging.New(logging.LevelFromVerbosity(verbose, quiet), false)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Error("configuration invalid")
		os.Exit(exitStartupError)
	}

	if validateOnly {
		fmt.Fprintf(cmd.OutOrStdout(), "configuration valid: %d source(s)\n", len(cfg.Sources))
		os.Exit(exitOK)
	}

	sup, err := supervisor.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize supervisor")
		os.Exit(exitStartupError)
	}

	if metricsAddr != "" {
		go metricsserver.Serve(logger, metricsAddr, sup.Metrics().Gatherer())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if once {
		if err := sup.RunOnce(ctx); err != nil {
			logger.WithError(err).Error("run-once cycle failed")
			os.Exit(exitStartupError)
		}
		os.Exit(exitOK)
	}

	if err := sup.Run(ctx); err != nil {
		logger.WithError(err).Error("supervisor exited with error")
		os.Exit(exitStartupError)
	}

	if ctx.Err() != nil {
		os.Exit(exitSignaled)
	}
	os.Exit(exitOK)
	return nil
}
