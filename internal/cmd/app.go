package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/guard"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/progress"
	"github.com/felixgeelhaar/grievance/internal/session"
	"github.com/felixgeelhaar/grievance/internal/telemetry"
	"github.com/felixgeelhaar/grievance/internal/ux"
	"github.com/felixgeelhaar/grievance/internal/version"
)

// app is the object graph one command works with
type app struct {
	cc      *CommandContext
	client  *platform.Client
	store   *session.Store
	tokens  session.TokenStore
	out     io.Writer
	errOut  io.Writer
	noColor bool
	styles  ux.Styles
}

// newApp wires token storage, the access client and the session store.
//
// The client reads its token from the store and reports every failure back
// to it, so an unauthorized response ends the session.
func newApp(cmd *cobra.Command, cc *CommandContext) (*app, error) {
	cfg := cc.Config

	var store *session.Store
	client := platform.NewClient(
		platform.Config{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout,
			UserAgent: version.GetInfo().UserAgent(),
		},
		platform.WithLogger(cc.Logger.With("component", "client")),
		platform.WithMetrics(cc.Metrics),
		platform.WithTokenSource(func() string { return store.Token() }),
		platform.WithFailureHandler(func(err error) { store.HandleFailure(err) }),
	)

	var tokens session.TokenStore
	if cc.Token != "" {
		mem := session.NewMemoryTokenStore()
		if err := mem.Save(cc.Token); err != nil {
			return nil, err
		}
		tokens = mem
	} else {
		creds, err := session.NewCredentialTokenStore(cfg.Credentials.Path, cfg.Credentials.Passphrase, client.BaseURL())
		if err != nil {
			return nil, apperrors.NewFileReadError(cfg.Credentials.Path, err).
				WithSuggestion("Check credentials.passphrase, or remove the credentials file and log in again")
		}
		tokens = creds
	}

	store = session.NewStore(client, tokens,
		session.WithLogger(cc.Logger.With("component", "session")),
		session.WithMetrics(cc.Metrics),
	)
	ctx := cmd.Context()
	store.Subscribe(func(st session.State) {
		telemetry.RecordTransition(ctx, st.Phase.String())
	})

	if cc.Token != "" {
		client.SetAuthToken(cc.Token)
	}

	out := cmd.OutOrStdout()
	noColor := cc.noColor(out)
	return &app{
		cc:      cc,
		client:  client,
		store:   store,
		tokens:  tokens,
		out:     out,
		errOut:  cmd.ErrOrStderr(),
		noColor: noColor,
		styles:  ux.NewStyles(noColor),
	}, nil
}

// restore resolves the persisted session, with a spinner on terminals
func (a *app) restore(ctx context.Context) session.State {
	spinner := progress.NewSpinner(progress.Config{
		Writer: a.errOut,
		Label:  "Restoring session",
		Mode:   a.progressMode(),
	})
	spinner.Start()
	defer spinner.Stop()
	return a.store.Restore(ctx)
}

// progressMode keeps progress output out of machine-readable runs
func (a *app) progressMode() progress.Mode {
	if a.cc.outputFormat() != ux.FormatText {
		return progress.ModeQuiet
	}
	if _, ok := a.errOut.(*os.File); !ok {
		return progress.ModeQuiet
	}
	return progress.ModeAuto
}

// guard restores the session and checks that path may be shown
func (a *app) guard(ctx context.Context, path string) (platform.User, error) {
	state := a.restore(ctx)
	res := guard.Resolve(state, path)
	a.cc.Metrics.ObserveDecision(path, res.Decision.String())
	telemetry.RecordDecision(ctx, path, state.Phase.String(), res.Decision.String())
	a.cc.Logger.Debug("route guarded",
		"route", path,
		"phase", state.Phase.String(),
		"decision", res.Decision.String(),
		"redirect", res.Redirect,
	)

	switch res.Decision {
	case guard.RedirectLogin:
		return platform.User{}, apperrors.NewNotLoggedInError()
	case guard.RedirectForbidden:
		return platform.User{}, apperrors.NewForbiddenError(path, res.Redirect)
	case guard.RenderLoading:
		return platform.User{}, apperrors.New(apperrors.ErrCodeNotLoggedIn, "session is still loading")
	}

	user, _ := state.Authenticated()
	return user, nil
}

// render writes a result in the selected output format
func (a *app) render(data any) error {
	return render(a.out, a.cc.outputFormat(), data)
}

func render(w io.Writer, format string, data any) error {
	if _, err := ux.ParseFormat(format); err != nil {
		return apperrors.NewUsageError(err.Error(), "Use --output text, json or yaml")
	}
	return ux.Render(w, format, data)
}
