package guard

import (
	"strings"

	"github.com/felixgeelhaar/grievance/internal/session"
)

// View paths
const (
	PathRoot       = "/"
	PathLogin      = "/login"
	PathRegister   = "/register"
	PathDashboard  = "/dashboard"
	PathSubmitText = "/submit-text"
	PathSubmitPDF  = "/submit-pdf"
	PathGrievances = "/grievances"
	PathAdmin      = "/admin"
)

// Access is how a route is protected
type Access int

const (
	// Public routes are for logged-out users only
	Public Access = iota
	// Protected routes need a logged-in user
	Protected
	// AdminOnly routes need a logged-in admin
	AdminOnly
)

// Route is one entry of the view table
type Route struct {
	Path   string
	Access Access
}

// Routes is the view table
var Routes = []Route{
	{Path: PathLogin, Access: Public},
	{Path: PathRegister, Access: Public},
	{Path: PathDashboard, Access: Protected},
	{Path: PathSubmitText, Access: Protected},
	{Path: PathSubmitPDF, Access: Protected},
	{Path: PathGrievances, Access: Protected},
	{Path: PathAdmin, Access: AdminOnly},
}

// Landing is where logged-in users are sent when a view is not for them
const Landing = PathDashboard

// Resolution is a decision plus a navigation target. A non-empty Redirect
// means navigate there instead of rendering the requested view.
type Resolution struct {
	Decision Decision
	Redirect string
}

// Lookup finds the route for path
func Lookup(path string) (Route, bool) {
	path = normalizePath(path)
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Resolve guards a visit to path.
//
// Unknown paths and "/" redirect to the landing view. Logged-in visitors of
// public views are redirected to the landing view as well.
func Resolve(state session.State, path string) Resolution {
	route, ok := Lookup(path)
	if !ok {
		return Resolution{Decision: RenderContent, Redirect: Landing}
	}

	if route.Access == Public {
		switch state.Phase {
		case session.PhaseInitializing:
			return Resolution{Decision: RenderLoading}
		case session.PhaseAuthenticated:
			return Resolution{Decision: RenderContent, Redirect: Landing}
		default:
			return Resolution{Decision: RenderContent}
		}
	}

	decision := Decide(state, route.Access == AdminOnly)
	switch decision {
	case RedirectLogin:
		return Resolution{Decision: decision, Redirect: PathLogin}
	case RedirectForbidden:
		return Resolution{Decision: decision, Redirect: Landing}
	default:
		return Resolution{Decision: decision}
	}
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return PathRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
