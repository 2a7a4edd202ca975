package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/health"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/ux"
	"github.com/felixgeelhaar/grievance/internal/version"
)

func newDoctorCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials and service connectivity",
		Long: `Run diagnostics to check that the CLI can reach the grievance service.

Checks include:
  - Configuration source and API URL
  - Stored credentials (readable, not expired)
  - Grievance service reachability
  - Whether the stored session is still accepted

Exits non-zero when any check is unhealthy.

Examples:
  grievance doctor
  grievance doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			cfg := cc.Config

			anon := platform.NewClient(
				platform.Config{
					BaseURL:   cfg.API.BaseURL,
					Timeout:   cfg.API.Timeout,
					UserAgent: version.GetInfo().UserAgent(),
				},
				platform.WithLogger(cc.Logger.With("component", "doctor")),
				platform.WithMetrics(cc.Metrics),
			)

			credentialsPath := cfg.Credentials.Path
			if cc.Token != "" {
				credentialsPath = "--token (not stored)"
			}

			manager := health.NewManager().WithTimeout(cfg.API.Timeout)
			manager.AddChecker(health.NewConfigChecker(cfg))
			manager.AddChecker(health.NewCredentialsChecker(a.tokens, credentialsPath))
			manager.AddChecker(health.NewServiceChecker(anon, anon.BaseURL()))
			manager.AddChecker(health.NewSessionChecker(a.store))

			report := manager.Run(cmd.Context())
			if err := a.render(doctorView{Report: report, styles: a.styles}); err != nil {
				return err
			}

			if failed := report.Failed(); len(failed) > 0 {
				return apperrors.NewUnhealthyError(failed)
			}
			return nil
		},
	}
}

// doctorView is printed by doctor
type doctorView struct {
	health.Report `yaml:",inline"`

	styles ux.Styles
}

func (v doctorView) RenderText(w io.Writer) error {
	fmt.Fprintln(w, v.styles.Title.Render("Grievance CLI diagnostics"))
	fmt.Fprintln(w)

	t := ux.NewTable(w, "Check", "Status", "Message")
	for _, c := range v.Checks {
		t.AddRow(c.Name, v.statusLabel(c.Status), c.Message)
	}
	if err := t.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Overall: %s\n", v.statusLabel(v.Status))
	return nil
}

func (v doctorView) statusLabel(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return v.styles.Success.Render("✓ " + s.String())
	case health.StatusDegraded:
		return v.styles.Warning.Render("⚠ " + s.String())
	default:
		return v.styles.Error.Render("✗ " + s.String())
	}
}
