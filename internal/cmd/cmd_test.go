package cmd

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/exitcode"
	"github.com/felixgeelhaar/grievance/internal/health"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/ux"
)

// grievanceService is an in-memory grievance service
type grievanceService struct {
	t *testing.T

	mu         sync.Mutex
	sessions   map[string]platform.User
	grievances []platform.Grievance
	auth       map[string]string // path -> last Authorization header
	uploads    []string          // uploaded file names
	failList   bool
	deleted    []string
}

func newGrievanceService(t *testing.T) *grievanceService {
	return &grievanceService{
		t:        t,
		sessions: map[string]platform.User{},
		auth:     map[string]string{},
		grievances: []platform.Grievance{
			{ID: "1", OriginalText: "Street lights are out", DuplicateStatus: platform.StatusUnique, SimilarityScore: 0.12, CreatedAt: "2024-05-01"},
			{ID: "2", OriginalText: "Streetlights not working", DuplicateStatus: platform.StatusNearDuplicate, SimilarityScore: 0.81, CreatedAt: "2024-05-02"},
			{ID: "3", OriginalText: "Street lights are out", DuplicateStatus: platform.StatusDuplicate, SimilarityScore: 0.99, CreatedAt: "2024-05-03"},
		},
	}
}

func (s *grievanceService) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(s.t, json.NewEncoder(w).Encode(v))
}

func (s *grievanceService) user(r *http.Request) (platform.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.sessions[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	return u, ok
}

func (s *grievanceService) revokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = map[string]platform.User{}
}

func (s *grievanceService) lastAuth(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[path]
}

func (s *grievanceService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.auth[r.URL.Path] = r.Header.Get("Authorization")
	s.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	switch {
	case path == "/auth/login":
		var creds platform.Credentials
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		token, user := "T1", platform.User{ID: "1", Name: "A", Email: creds.Email, Role: platform.RoleMember}
		if creds.Email == "admin@example.com" {
			token, user = "TA", platform.User{ID: "9", Name: "Root", Email: creds.Email, Role: platform.RoleAdmin}
		}
		s.mu.Lock()
		s.sessions[token] = user
		s.mu.Unlock()
		s.writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
		return

	case path == "/auth/register":
		var reg platform.Registration
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&reg))
		user := platform.User{ID: "5", Name: reg.Name, Email: reg.Email, Role: platform.RoleMember}
		s.mu.Lock()
		s.sessions["T5"] = user
		s.mu.Unlock()
		s.writeJSON(w, http.StatusCreated, map[string]any{"token": "T5", "user": user})
		return
	}

	user, ok := s.user(r)
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}

	switch {
	case path == "/auth/me":
		s.writeJSON(w, http.StatusOK, map[string]any{"user": user})

	case path == "/grievances" && r.Method == http.MethodGet:
		if s.failList {
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db down"})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"grievances": s.grievances})

	case path == "/grievances" && r.Method == http.MethodPost:
		var body map[string]string
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		g := platform.Grievance{ID: "10", OriginalText: body["text"], DuplicateStatus: platform.StatusUnique}
		s.writeJSON(w, http.StatusCreated, map[string]any{"message": "Grievance submitted", "grievance": g})

	case path == "/grievances/pdf":
		file, header, err := r.FormFile(platform.UploadField)
		require.NoError(s.t, err)
		_, _ = io.Copy(io.Discard, file)
		s.mu.Lock()
		s.uploads = append(s.uploads, header.Filename)
		s.mu.Unlock()
		matched := platform.ID("1")
		g := platform.Grievance{ID: "11", DuplicateStatus: platform.StatusNearDuplicate, SimilarityScore: 0.9, MatchedGrievanceID: &matched}
		s.writeJSON(w, http.StatusCreated, map[string]any{"grievance": g})

	case strings.HasPrefix(path, "/admin"):
		if !user.IsAdmin() {
			s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		s.serveAdmin(w, r, strings.TrimPrefix(path, "/admin"))

	default:
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (s *grievanceService) serveAdmin(w http.ResponseWriter, r *http.Request, path string) {
	switch {
	case path == "/stats":
		s.writeJSON(w, http.StatusOK, map[string]any{"stats": platform.ComputeStats(s.grievances)})
	case path == "/grievances":
		s.writeJSON(w, http.StatusOK, map[string]any{
			"grievances": platform.FilterByStatus(s.grievances, r.URL.Query().Get("status")),
		})
	case strings.HasPrefix(path, "/grievances/") && r.Method == http.MethodDelete:
		s.mu.Lock()
		s.deleted = append(s.deleted, strings.TrimPrefix(path, "/grievances/"))
		s.mu.Unlock()
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	case strings.HasPrefix(path, "/grievances/") && r.Method == http.MethodPut:
		var body map[string]string
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		g := platform.Grievance{
			ID:              platform.ID(strings.TrimPrefix(path, "/grievances/")),
			DuplicateStatus: platform.DuplicateStatus(body["duplicate_status"]),
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"grievance": g})
	default:
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

// cliEnv isolates one test from the user's config and credentials
type cliEnv struct {
	t       *testing.T
	dir     string
	service *grievanceService
	creds   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("CI", "")
	t.Setenv("NO_COLOR", "1")

	service := newGrievanceService(t)
	srv := httptest.NewServer(service)
	t.Cleanup(srv.Close)

	creds := filepath.Join(dir, "credentials.json")
	t.Setenv("GRIEVANCE_API_URL", srv.URL+"/api")
	t.Setenv("GRIEVANCE_CREDENTIALS_PATH", creds)

	return &cliEnv{t: t, dir: dir, service: service, creds: creds}
}

// run executes the CLI and returns stdout and stderr
func (e *cliEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append(args, "--no-color"), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) login(email string) {
	e.t.Helper()
	_, _, err := e.run("auth", "login", "--email", email, "--password", "secret")
	require.NoError(e.t, err)
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestRootCommand_ListsSubcommands(t *testing.T) {
	root := newRootCommand(&CommandContext{})
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"auth", "dashboard", "grievances", "admin", "doctor", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestProtectedCommand_WithoutSession(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("dashboard")
	requireCode(t, err, apperrors.ErrCodeNotLoggedIn)
	assert.Equal(t, exitcode.AuthError, exitcode.For(err))
	assert.Empty(t, env.service.lastAuth("/api/grievances"), "guard must stop the command before any request")
}

func TestLogin_ThenListCarriesToken(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, err := env.run("auth", "login", "--email", "ada@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged in")
	assert.FileExists(t, env.creds)

	stdout, _, err = env.run("grievances", "list")
	require.NoError(t, err)
	assert.Equal(t, "Bearer T1", env.service.lastAuth("/api/grievances"))
	assert.Contains(t, stdout, "✓ UNIQUE")
	assert.Contains(t, stdout, "✗ DUPLICATE")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("auth", "login", "--email", "ada@example.com", "--password", "wrong")
	appErr := requireCode(t, err, apperrors.ErrCodeLoginFailed)
	assert.Equal(t, "Invalid credentials", appErr.Message)
	assert.NoFileExists(t, env.creds)
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	stdout, stderr, err := env.run("auth", "login", "--email", "other@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Already logged in as A")
	assert.Contains(t, stdout, "Logged in")
}

func TestLogin_NoTerminalForPrompt(t *testing.T) {
	if ux.IsInteractive(os.Stdin) {
		t.Skip("stdin is a terminal")
	}
	env := newCLIEnv(t)

	_, _, err := env.run("auth", "login", "--email", "ada@example.com")
	requireCode(t, err, apperrors.ErrCodeUsage)
	assert.Equal(t, exitcode.UsageError, exitcode.For(err))
}

func TestRegister_LogsIn(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("auth", "register", "--name", "Grace", "--email", "grace@example.com", "--password", "pw")
	require.NoError(t, err)

	stdout, _, err := env.run("auth", "status", "-o", "json")
	require.NoError(t, err)

	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.True(t, view.LoggedIn)
	require.NotNil(t, view.User)
	assert.Equal(t, "Grace", view.User.Name)
	assert.False(t, view.AdminAccess)
}

func TestLogout_Idempotent(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	for i := 0; i < 2; i++ {
		stdout, _, err := env.run("auth", "logout")
		require.NoError(t, err)
		assert.Equal(t, "Logged out.\n", stdout)
	}
	assert.NoFileExists(t, env.creds)

	stdout, _, err := env.run("auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Not logged in.")
}

func TestAuthStatus_AdminAccess(t *testing.T) {
	env := newCLIEnv(t)
	env.login("admin@example.com")

	stdout, _, err := env.run("auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Role:     admin")
	assert.Contains(t, stdout, "grievance admin")
	assert.Contains(t, stdout, env.creds)
}

func TestUnauthorizedResponse_EndsSession(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	// the service forgets the token between runs
	env.service.revokeAll()

	_, _, err := env.run("grievances", "list")
	requireCode(t, err, apperrors.ErrCodeNotLoggedIn)
	assert.NoFileExists(t, env.creds, "a rejected token must be cleared")

	stdout, _, err := env.run("auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Not logged in.")
	assert.NotContains(t, stdout, "could not be verified")
}

func TestList_ServerErrorMessage(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")
	env.service.failList = true

	_, _, err := env.run("grievances", "list")
	appErr := requireCode(t, err, apperrors.ErrCodeRequestRejected)
	assert.Equal(t, "db down", appErr.Message)

	var apiErr *platform.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	var banner bytes.Buffer
	ux.RenderError(&banner, err, ux.PlainStyles())
	assert.Equal(t, "Error [API-001]: db down\n", banner.String())
	assert.FileExists(t, env.creds, "a server error must not end the session")
}

func TestList_StatusFilter(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	stdout, _, err := env.run("grievances", "list", "--status", "near_duplicate", "-o", "json")
	require.NoError(t, err)

	var view grievanceListView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	require.Len(t, view.Grievances, 1)
	assert.Equal(t, platform.ID("2"), view.Grievances[0].ID)

	_, _, err = env.run("grievances", "list", "--status", "bogus")
	requireCode(t, err, apperrors.ErrCodeUsage)
}

func TestList_YAMLOutput(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	stdout, _, err := env.run("grievances", "list", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "duplicate_status: UNIQUE")
	assert.Contains(t, stdout, "original_text: Street lights are out")
}

func TestDashboard_Stats(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	stdout, _, err := env.run("dashboard", "-o", "json")
	require.NoError(t, err)

	var view statsView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, platform.Stats{Total: 3, Unique: 1, NearDuplicate: 1, Duplicate: 1}, view.Stats)
	require.NotNil(t, view.User)
	assert.Equal(t, "A", view.User.Name)

	stdout, _, err = env.run("dashboard")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Welcome, A")
	assert.Contains(t, stdout, "⚠ NEAR_DUPLICATE")
}

func TestSubmitText(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	stdout, _, err := env.run("grievances", "submit-text", "--text", "  No water since Monday  ")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Grievance submitted")
	assert.Contains(t, stdout, "No water since Monday")

	path := filepath.Join(env.dir, "complaint.txt")
	require.NoError(t, os.WriteFile(path, []byte("From a file\n"), 0o600))
	stdout, _, err = env.run("grievances", "submit-text", "--file", path, "-o", "json")
	require.NoError(t, err)

	var view submissionView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, "From a file", view.Grievance.OriginalText)
}

func TestSubmitText_Validation(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	_, _, err := env.run("grievances", "submit-text", "--text", "   ")
	requireCode(t, err, apperrors.ErrCodeUsage)

	_, _, err = env.run("grievances", "submit-text", "--file", filepath.Join(env.dir, "missing.txt"))
	requireCode(t, err, apperrors.ErrCodeFileNotFound)
}

func TestSubmitPDF_Receipt(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	content := bytes.Repeat([]byte("%PDF-1.4 grievance "), 4096)
	path := filepath.Join(env.dir, "Complaint.PDF")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	stdout, _, err := env.run("grievances", "submit-pdf", path, "-o", "json")
	require.NoError(t, err)

	var view submissionView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	require.NotNil(t, view.File)

	sum := blake3.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), view.File.BLAKE3)
	assert.Equal(t, int64(len(content)), view.File.Size)
	assert.Equal(t, "Complaint.PDF", view.File.Name)
	assert.Equal(t, platform.StatusNearDuplicate, view.Grievance.DuplicateStatus)
	assert.Equal(t, []string{"Complaint.PDF"}, env.service.uploads)
}

func TestSubmitPDF_Validation(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("grievances", "submit-pdf", "notes.txt")
	requireCode(t, err, apperrors.ErrCodeUsage)

	_, _, err = env.run("grievances", "submit-pdf", filepath.Join(env.dir, "missing.pdf"))
	requireCode(t, err, apperrors.ErrCodeFileNotFound)
}

func TestAdmin_ForbiddenForMember(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	_, _, err := env.run("admin", "stats")
	appErr := requireCode(t, err, apperrors.ErrCodeForbidden)
	assert.Contains(t, appErr.Suggestions[0], "/dashboard")
	assert.Empty(t, env.service.lastAuth("/api/admin/stats"))
}

func TestAdmin_Commands(t *testing.T) {
	env := newCLIEnv(t)
	env.login("admin@example.com")

	stdout, _, err := env.run("admin", "stats", "-o", "json")
	require.NoError(t, err)
	var stats statsView
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	assert.Equal(t, "platform", stats.Scope)
	assert.Equal(t, 3, stats.Stats.Total)

	stdout, _, err = env.run("admin", "list", "--status", "DUPLICATE", "-o", "json")
	require.NoError(t, err)
	var list grievanceListView
	require.NoError(t, json.Unmarshal([]byte(stdout), &list))
	require.Len(t, list.Grievances, 1)
	assert.Equal(t, platform.ID("3"), list.Grievances[0].ID)

	stdout, _, err = env.run("admin", "set-status", "3", "unique", "-o", "json")
	require.NoError(t, err)
	var updated submissionView
	require.NoError(t, json.Unmarshal([]byte(stdout), &updated))
	assert.Equal(t, platform.StatusUnique, updated.Grievance.DuplicateStatus)

	stdout, _, err = env.run("admin", "delete", "3", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Grievance #3 deleted.\n", stdout)
	assert.Equal(t, []string{"3"}, env.service.deleted)
}

func TestAdmin_SetStatusRejectsUnknownStatus(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("admin", "set-status", "3", "MAYBE")
	appErr := requireCode(t, err, apperrors.ErrCodeUsage)
	assert.Contains(t, appErr.Suggestions[0], "NEAR_DUPLICATE")
}

func TestTokenFlag_OneOffSession(t *testing.T) {
	env := newCLIEnv(t)
	env.login("admin@example.com")
	_, _, err := env.run("auth", "logout")
	require.NoError(t, err)

	// the service still knows TA, but nothing is stored locally
	env.service.mu.Lock()
	env.service.sessions["TA"] = platform.User{ID: "9", Name: "Root", Role: platform.RoleAdmin}
	env.service.mu.Unlock()

	_, _, err = env.run("admin", "stats", "--token", "TA")
	require.NoError(t, err)
	assert.Equal(t, "Bearer TA", env.service.lastAuth("/api/admin/stats"))
	assert.NoFileExists(t, env.creds)
}

func TestNetworkFailure(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("GRIEVANCE_API_URL", "http://127.0.0.1:1/api")

	_, _, err := env.run("auth", "login", "--email", "a@example.com", "--password", "secret")
	require.Error(t, err)
	var transportErr *platform.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, exitcode.AuthError, exitcode.For(err))
}

func TestMetricsTextfile(t *testing.T) {
	env := newCLIEnv(t)
	metricsFile := filepath.Join(env.dir, "metrics", "grievance.prom")
	t.Setenv("GRIEVANCE_TELEMETRY_METRICS_FILE", metricsFile)

	env.login("ada@example.com")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "grievance_client_requests_total")
	assert.Contains(t, string(data), "grievance_session_transitions_total")
}

func TestInvalidConfig(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("GRIEVANCE_LOGGING_LEVEL", "chatty")

	_, _, err := env.run("auth", "status")
	requireCode(t, err, apperrors.ErrCodeConfigInvalid)
}

func TestVersion(t *testing.T) {
	newCLIEnv(t)

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"version", "--short"}, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout.String())

	stdout.Reset()
	err = run(context.Background(), []string{"version", "-o", "json"}, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), `"go_version"`)
}

func TestDoctor(t *testing.T) {
	env := newCLIEnv(t)
	env.login("ada@example.com")

	stdout, _, err := env.run("doctor", "-o", "json")
	require.NoError(t, err)

	var report health.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, health.StatusHealthy, report.Status)
	require.Len(t, report.Checks, 4)
	assert.Equal(t, "service", report.Checks[2].Name)
	assert.Equal(t, "logged in as A", report.Checks[3].Message)
}

func TestDoctor_Unreachable(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("GRIEVANCE_API_URL", "http://127.0.0.1:1/api")

	stdout, _, err := env.run("doctor")
	appErr := requireCode(t, err, apperrors.ErrCodeUnhealthy)
	assert.Contains(t, appErr.Message, "service")
	assert.Contains(t, stdout, "✗ unhealthy")
	assert.Contains(t, stdout, "Overall: ✗ unhealthy")
}
