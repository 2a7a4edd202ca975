// Package cmd implements the grievance command tree.
package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/grievance/internal/config"
	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/log"
	"github.com/felixgeelhaar/grievance/internal/metrics"
	"github.com/felixgeelhaar/grievance/internal/telemetry"
	"github.com/felixgeelhaar/grievance/internal/ux"
	"github.com/felixgeelhaar/grievance/internal/version"
)

// CommandContext holds the persistent flags and the state built from them
// for one invocation. Every command receives it explicitly.
type CommandContext struct {
	// Flags
	ConfigFile string
	APIURL     string
	Token      string
	Output     string
	Verbose    bool
	NoColor    bool

	// Built in PersistentPreRunE
	Config   *config.Config
	Logger   *log.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	command   string
	span      trace.Span
	telemetry *telemetry.Provider
}

func newRootCommand(cc *CommandContext) *cobra.Command {
	root := &cobra.Command{
		Use:   "grievance",
		Short: "Submit and track grievances from the terminal",
		Long: `grievance is the command-line client of the grievance platform.

Sign in, submit grievances as text or PDF, and follow how each one was
classified (unique, near duplicate, duplicate). Administrators can review
and reclassify every grievance.

Example usage:
  grievance auth login --email you@example.com
  grievance grievances submit-text --text "The street lights are out"
  grievance grievances submit-pdf complaint.pdf
  grievance grievances list --status DUPLICATE
  grievance dashboard`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cc.ConfigFile, "config", "", "config file (default is .grievance.yaml)")
	flags.StringVar(&cc.APIURL, "api-url", "", "grievance service base URL (default /api)")
	flags.StringVar(&cc.Token, "token", "", "use this bearer token for one run without storing it")
	flags.StringVarP(&cc.Output, "output", "o", "", "output format: text, json or yaml")
	flags.BoolVarP(&cc.Verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&cc.NoColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newAuthCommand(cc),
		newDashboardCommand(cc),
		newGrievancesCommand(cc),
		newAdminCommand(cc),
		newDoctorCommand(cc),
		newVersionCommand(cc),
	)

	return root
}

// init loads configuration and sets up logging, metrics and tracing
func (cc *CommandContext) init(cmd *cobra.Command) error {
	cfg, err := config.Load(cc.ConfigFile, cmd.Root().PersistentFlags())
	if err != nil {
		return apperrors.NewConfigInvalidError(err)
	}
	cc.Config = cfg

	info := version.GetInfo()
	logCfg := log.FromSettings(cfg.Logging.Level, cfg.Logging.Format, cc.Verbose)
	logCfg.ServiceVersion = info.Version
	logCfg.Writer = cmd.ErrOrStderr()
	cc.Logger = log.New(logCfg)
	log.SetDefaultLogger(cc.Logger)

	cc.Registry, cc.Metrics = metrics.NewRegistry()

	tp, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		ServiceName:    "grievance",
		ServiceVersion: info.Version,
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		cc.Logger.WithError(err).Warn("tracing disabled")
		tp = telemetry.Noop()
	}
	cc.telemetry = tp

	cc.command = cmd.CommandPath()
	ctx, span := tp.StartCommand(cmd.Context(), cc.command)
	cc.span = span
	cmd.SetContext(ctx)

	cc.Logger.Debug("configuration loaded",
		"config_file", cfg.File,
		"api_base_url", cfg.API.BaseURL,
		"credentials_path", cfg.Credentials.Path,
	)
	return nil
}

// finish ends the command span, flushes traces and writes the metrics textfile
func (cc *CommandContext) finish(err error) {
	if err != nil && cc.Logger != nil {
		cc.Logger.CommandFailed(context.Background(), cc.command, err)
	}
	if cc.span != nil {
		telemetry.EndCommand(cc.span, err)
	}
	if cc.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if shutdownErr := cc.telemetry.Shutdown(ctx); shutdownErr != nil && cc.Logger != nil {
			cc.Logger.WithError(shutdownErr).Debug("failed to flush traces")
		}
	}
	if cc.Config != nil && cc.Config.Telemetry.MetricsFile != "" && cc.Registry != nil {
		if writeErr := metrics.WriteTextfile(cc.Config.Telemetry.MetricsFile, cc.Registry); writeErr != nil {
			cc.Logger.WithError(writeErr).Warn("failed to write metrics textfile")
		}
	}
}

// outputFormat is --output, else the configured format, normalized when valid
func (cc *CommandContext) outputFormat() string {
	format := cc.Output
	if format == "" && cc.Config != nil {
		format = cc.Config.Output.Format
	}
	if normalized, err := ux.ParseFormat(format); err == nil {
		return normalized
	}
	return format
}

// noColor reports whether styling is disabled for w
func (cc *CommandContext) noColor(w io.Writer) bool {
	if cc.NoColor || os.Getenv("NO_COLOR") != "" {
		return true
	}
	f, ok := w.(*os.File)
	return !ok || !ux.IsInteractive(f)
}

// ExecuteContext runs the command tree with args taken from os.Args
func ExecuteContext(ctx context.Context) error {
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// run executes one invocation with the given streams
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cc := &CommandContext{}
	root := newRootCommand(cc)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	cc.finish(err)
	return err
}
