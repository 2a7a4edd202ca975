package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/grievance/internal/config"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/session"
)

// ConfigChecker reports where the configuration came from
type ConfigChecker struct {
	cfg *config.Config
}

// NewConfigChecker creates a checker for a loaded configuration
func NewConfigChecker(cfg *config.Config) *ConfigChecker {
	return &ConfigChecker{cfg: cfg}
}

func (c *ConfigChecker) Name() string { return "config" }

func (c *ConfigChecker) Check(ctx context.Context) *Result {
	if c.cfg == nil {
		return Unhealthy("configuration not loaded")
	}

	msg := "using defaults and environment"
	if c.cfg.File != "" {
		msg = "loaded from " + c.cfg.File
	}
	return Healthy(msg).
		WithDetail("api_url", c.cfg.API.BaseURL).
		WithDetail("timeout", c.cfg.API.Timeout.String()).
		WithDetail("output", c.cfg.Output.Format)
}

// CredentialsChecker verifies the stored token can be read
type CredentialsChecker struct {
	tokens session.TokenStore
	path   string
}

// NewCredentialsChecker creates a checker for tokens stored at path
func NewCredentialsChecker(tokens session.TokenStore, path string) *CredentialsChecker {
	return &CredentialsChecker{tokens: tokens, path: path}
}

func (c *CredentialsChecker) Name() string { return "credentials" }

func (c *CredentialsChecker) Check(ctx context.Context) *Result {
	token, err := c.tokens.Load()
	if err != nil {
		return Unhealthy(fmt.Sprintf("cannot read stored token: %v", err)).
			WithDetail("path", c.path)
	}
	if token == "" {
		return Degraded("no stored token").WithDetail("path", c.path)
	}

	result := Healthy("token stored").WithDetail("path", c.path)
	if exp, ok := session.PeekExpiry(token); ok {
		result.WithDetail("expires_at", exp.Format(time.RFC3339))
		if time.Now().After(exp) {
			result.Status = StatusDegraded
			result.Message = "stored token has expired"
		}
	}
	return result
}

// UserProber asks the service who the caller is
type UserProber interface {
	CurrentUser(ctx context.Context) (*platform.User, error)
}

// ServiceChecker verifies the grievance service answers with JSON.
// The request should carry no token: a 401 proves the service is reachable.
type ServiceChecker struct {
	prober  UserProber
	baseURL string
}

// NewServiceChecker creates a checker that checks the service at baseURL
func NewServiceChecker(prober UserProber, baseURL string) *ServiceChecker {
	return &ServiceChecker{prober: prober, baseURL: baseURL}
}

func (c *ServiceChecker) Name() string { return "service" }

func (c *ServiceChecker) Check(ctx context.Context) *Result {
	start := time.Now()
	_, err := c.prober.CurrentUser(ctx)
	latency := time.Since(start)

	var result *Result
	var apiErr *platform.APIError
	var protoErr *platform.ProtocolError
	var transportErr *platform.TransportError

	switch {
	case err == nil, platform.IsUnauthorized(err):
		result = Healthy("reachable")
	case errors.As(err, &apiErr):
		result = Degraded(fmt.Sprintf("service answered HTTP %d: %s", apiErr.StatusCode, apiErr.Message))
	case errors.As(err, &protoErr):
		result = Unhealthy("not a grievance service: " + protoErr.Message).
			WithDetail("content_type", protoErr.ContentType)
	case errors.As(err, &transportErr):
		result = Unhealthy("unreachable: " + transportErr.Message)
	default:
		result = Unhealthy(err.Error())
	}

	result.Latency = latency
	return result.WithDetail("url", c.baseURL)
}

// SessionRestorer resolves the stored token to a session
type SessionRestorer interface {
	Restore(ctx context.Context) session.State
}

// SessionChecker verifies the stored token still identifies a user
type SessionChecker struct {
	store SessionRestorer
}

// NewSessionChecker creates a checker backed by a session store
func NewSessionChecker(store SessionRestorer) *SessionChecker {
	return &SessionChecker{store: store}
}

func (c *SessionChecker) Name() string { return "session" }

func (c *SessionChecker) Check(ctx context.Context) *Result {
	state := c.store.Restore(ctx)
	user, ok := state.Authenticated()
	if !ok {
		return Degraded("not logged in")
	}
	return Healthy(fmt.Sprintf("logged in as %s", user.Name)).
		WithDetail("user_id", user.ID.String()).
		WithDetail("role", string(user.Role))
}
