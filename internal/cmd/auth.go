package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/guard"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/session"
	"github.com/felixgeelhaar/grievance/internal/ux"
)

func newAuthCommand(cc *CommandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage your grievance platform session",
		Long: `Log in, register, log out and inspect the current session.

The session token is stored encrypted in the credentials file and reused
by every other command until you log out or the service rejects it.`,
	}

	cmd.AddCommand(
		newAuthLoginCommand(cc),
		newAuthRegisterCommand(cc),
		newAuthLogoutCommand(cc),
		newAuthStatusCommand(cc),
	)
	return cmd
}

func newAuthLoginCommand(cc *CommandContext) *cobra.Command {
	var form ux.LoginForm

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the grievance platform",
		Long: `Log in with your email and password.

Missing values are prompted for when stdin is a terminal.

Examples:
  grievance auth login
  grievance auth login --email you@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if done, err := a.skipPublicView(ctx, guard.PathLogin); done || err != nil {
				return err
			}

			if err := ux.PromptLogin(&form); err != nil {
				return promptError(err, "--email", "--password")
			}

			creds := platform.Credentials{Email: form.Email, Password: form.Password}
			if err := a.store.Login(ctx, creds); err != nil {
				return FromClientError(err)
			}
			return a.render(a.sessionView(a.store.State()))
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newAuthRegisterCommand(cc *CommandContext) *cobra.Command {
	var form ux.RegistrationForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create a new account. You are logged in as soon as the account exists.

Examples:
  grievance auth register --name "Ada Lovelace" --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if done, err := a.skipPublicView(ctx, guard.PathRegister); done || err != nil {
				return err
			}

			if err := ux.PromptRegistration(&form); err != nil {
				return promptError(err, "--name", "--email", "--password")
			}

			reg := platform.Registration{Name: form.Name, Email: form.Email, Password: form.Password}
			if err := a.store.Register(ctx, reg); err != nil {
				return FromClientError(err)
			}
			return a.render(a.sessionView(a.store.State()))
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "display name")
	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newAuthLogoutCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			if err := a.store.Logout(); err != nil {
				return FromClientError(err)
			}
			return a.render(actionView{Action: "logout", Message: "Logged out."})
		},
	}
}

func newAuthStatusCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Long: `Show who is logged in, whether the admin views are available and,
when the service issues JWTs, when the token expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cc)
			if err != nil {
				return err
			}
			state := a.restore(cmd.Context())
			return a.render(a.sessionView(state))
		},
	}
}

// skipPublicView reports done when a logged-in user opens a view meant for
// logged-out users, after telling them where to go instead.
func (a *app) skipPublicView(ctx context.Context, path string) (bool, error) {
	state := a.restore(ctx)
	res := guard.Resolve(state, path)
	a.cc.Metrics.ObserveDecision(path, res.Decision.String())
	if res.Redirect == "" {
		return false, nil
	}

	user, _ := state.Authenticated()
	fmt.Fprintf(a.errOut, "Already logged in as %s. Run 'grievance auth logout' to switch accounts.\n", user.Name)
	return true, a.render(a.sessionView(state))
}

// sessionView describes state for auth status, login and register
func (a *app) sessionView(state session.State) sessionView {
	v := sessionView{
		APIURL: a.client.BaseURL(),
		styles: a.styles,
	}
	if creds, ok := a.tokens.(*session.CredentialTokenStore); ok {
		v.CredentialsPath = creds.Path()
	}

	user, ok := state.Authenticated()
	if !ok {
		if stored, err := a.tokens.Load(); err == nil && stored != "" {
			v.Unverified = true
		}
		return v
	}

	v.LoggedIn = true
	v.User = &user
	v.AdminAccess = guard.Resolve(state, guard.PathAdmin).Decision == guard.RenderContent
	if exp, ok := session.PeekExpiry(a.store.Token()); ok {
		v.TokenExpiresAt = &exp
	}
	return v
}

// promptError explains which flags replace an unavailable prompt
func promptError(err error, flags ...string) error {
	if errors.Is(err, ux.ErrNotInteractive) {
		return apperrors.NewUsageError(
			"missing credentials and no terminal to prompt on",
			fmt.Sprintf("Pass %s", joinFlags(flags)),
		)
	}
	return err
}

func joinFlags(flags []string) string {
	switch len(flags) {
	case 0:
		return ""
	case 1:
		return flags[0]
	}
	out := flags[0]
	for _, f := range flags[1 : len(flags)-1] {
		out += ", " + f
	}
	return out + " and " + flags[len(flags)-1]
}
