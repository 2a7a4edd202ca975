// Package guard decides what a view may show for a given session.
//
// Decide and Resolve are pure: they read nothing but their arguments and
// never navigate. Acting on a decision is the caller's job.
package guard

import "github.com/felixgeelhaar/grievance/internal/session"

// Decision is the outcome of guarding a view
type Decision int

const (
	// RenderLoading means the session is still being restored
	RenderLoading Decision = iota
	// RedirectLogin means nobody is logged in
	RedirectLogin
	// RedirectForbidden means the user may not see an admin view
	RedirectForbidden
	// RenderContent means the view may be shown
	RenderContent
)

// String returns the decision name
func (d Decision) String() string {
	switch d {
	case RenderLoading:
		return "render_loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	case RenderContent:
		return "render_content"
	default:
		return "unknown"
	}
}

// Decide guards a protected view
func Decide(state session.State, requiresAdmin bool) Decision {
	switch state.Phase {
	case session.PhaseInitializing:
		return RenderLoading
	case session.PhaseAuthenticated:
		user, ok := state.Authenticated()
		if !ok {
			return RedirectLogin
		}
		if requiresAdmin && !user.IsAdmin() {
			return RedirectForbidden
		}
		return RenderContent
	default:
		return RedirectLogin
	}
}
