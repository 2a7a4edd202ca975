// Package session tracks which user, if any, the client is acting for.
//
// A Store starts INITIALIZING, resolves a persisted token once via Restore,
// and then moves between ANONYMOUS and AUTHENTICATED on Login, Register,
// Logout and authorization failures reported by the Access Client.
package session

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/grievance/internal/log"
	"github.com/felixgeelhaar/grievance/internal/metrics"
	"github.com/felixgeelhaar/grievance/internal/platform"
)

// Phase is the lifecycle position of a session
type Phase int

const (
	// PhaseInitializing holds until Restore completes
	PhaseInitializing Phase = iota
	// PhaseAnonymous means no user is logged in
	PhaseAnonymous
	// PhaseAuthenticated means User is set
	PhaseAuthenticated
)

// String returns the lower-case phase name
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. User is non-nil exactly when Phase
// is PhaseAuthenticated; it is a copy owned by the caller.
type State struct {
	Phase Phase
	User  *platform.User
}

// IsLoading reports whether the session is still being restored
func (s State) IsLoading() bool {
	return s.Phase == PhaseInitializing
}

// Authenticated returns the user when one is logged in
func (s State) Authenticated() (platform.User, bool) {
	if s.Phase != PhaseAuthenticated || s.User == nil {
		return platform.User{}, false
	}
	return *s.User, true
}

// Initializing returns the state a new store starts in
func Initializing() State { return State{Phase: PhaseInitializing} }

// Anonymous returns the logged-out state
func Anonymous() State { return State{Phase: PhaseAnonymous} }

// AuthenticatedAs returns the logged-in state for user
func AuthenticatedAs(user platform.User) State {
	return State{Phase: PhaseAuthenticated, User: &user}
}

// Authenticator is the part of the Access Client the store calls
type Authenticator interface {
	Login(ctx context.Context, creds platform.Credentials) (*platform.AuthResponse, error)
	Register(ctx context.Context, reg platform.Registration) (*platform.AuthResponse, error)
	CurrentUser(ctx context.Context) (*platform.User, error)
}

// Option customizes a Store
type Option func(*Store)

// WithLogger sets the transition logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics counts transitions
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store is the single owner of session state and of the bearer token.
// It is safe for concurrent use.
type Store struct {
	api     Authenticator
	tokens  TokenStore
	logger  *log.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	state State
	token string
	// settled is set by the first committed transition. Restore does not
	// overwrite a session that Login, Register or Logout already decided.
	settled bool

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSubID   int

	restoreOnce sync.Once
}

// NewStore creates a store in PhaseInitializing. Nothing is read from
// tokens until Restore is called.
func NewStore(api Authenticator, tokens TokenStore, opts ...Option) *Store {
	s := &Store{
		api:         api,
		tokens:      tokens,
		state:       Initializing(),
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.DefaultLogger()
	}
	return s
}

// State returns a snapshot of the current session
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state)
}

// CurrentUser returns the logged-in user
func (s *Store) CurrentUser() (platform.User, bool) {
	return s.State().Authenticated()
}

// IsLoading reports whether Restore has not completed yet
func (s *Store) IsLoading() bool {
	return s.State().IsLoading()
}

// Token returns the bearer token of the current session. Without one it
// falls back to the persisted token, so a login saved by another process, or
// a token kept through a restore outage, is still sent. "" when neither
// exists. The Access Client is given this method as its token source.
func (s *Store) Token() string {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token != "" {
		return token
	}

	persisted, err := s.tokens.Load()
	if err != nil {
		s.logger.WithError(err).Debug("failed to read persisted token")
		return ""
	}
	return persisted
}

// Restore resolves the persisted token to a user. It runs once per store;
// concurrent calls wait for the first and every call returns the current
// state.
//
// A missing token, or one the service does not accept, ends in
// PhaseAnonymous. The persisted token is cleared only when the service
// rejected it as unauthorized, so a network outage does not log the user out
// for good. Once Login, Register or Logout has committed, Restore does
// nothing and their outcome stands.
func (s *Store) Restore(ctx context.Context) State {
	s.restoreOnce.Do(func() {
		s.restore(ctx)
	})
	return s.State()
}

func (s *Store) restore(ctx context.Context) {
	if s.isSettled() {
		return
	}

	token, err := s.tokens.Load()
	if err != nil {
		s.logger.WithError(err).Warn("failed to read persisted token")
		s.resolve(Anonymous(), "")
		return
	}
	if token == "" {
		s.resolve(Anonymous(), "")
		return
	}

	// The request carries the persisted token through the Token fallback
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		if platform.IsUnauthorized(err) && !s.isSettled() {
			if clearErr := s.tokens.Clear(); clearErr != nil {
				s.logger.WithError(clearErr).Warn("failed to clear rejected token")
			}
		}
		s.logger.WithError(err).Debug("session restore failed")
		s.resolve(Anonymous(), "")
		return
	}

	s.resolve(AuthenticatedAs(*user), token)
}

func (s *Store) isSettled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settled
}

// resolve commits the outcome of Restore unless an explicit transition
// already settled the session
func (s *Store) resolve(next State, token string) {
	if !s.apply(next, token, true) {
		s.logger.Debug("restore outcome discarded, session already settled")
	}
}

// Login authenticates and persists the returned token
func (s *Store) Login(ctx context.Context, creds platform.Credentials) error {
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		return wrapAuthError(ErrLoginFailed, err)
	}
	return s.establish(resp)
}

// Register creates an account. The service logs the new user in, so a
// successful registration ends in PhaseAuthenticated exactly like Login.
func (s *Store) Register(ctx context.Context, reg platform.Registration) error {
	resp, err := s.api.Register(ctx, reg)
	if err != nil {
		return wrapAuthError(ErrRegistrationFailed, err)
	}
	return s.establish(resp)
}

func (s *Store) establish(resp *platform.AuthResponse) error {
	if err := s.tokens.Save(resp.Token); err != nil {
		return persistError("save", err)
	}
	s.commit(AuthenticatedAs(resp.User), resp.Token)
	return nil
}

// Logout clears the persisted token and the user. It is idempotent and
// always ends in PhaseAnonymous; a failure to delete the persisted token is
// returned after the in-memory session has been cleared.
func (s *Store) Logout() error {
	clearErr := s.tokens.Clear()
	s.commit(Anonymous(), "")
	if clearErr != nil {
		return persistError("clear", clearErr)
	}
	return nil
}

// HandleFailure observes Access Client errors. An unauthorized APIError
// ends the session. err is returned unchanged.
func (s *Store) HandleFailure(err error) error {
	if !platform.IsUnauthorized(err) {
		return err
	}
	if s.State().Phase != PhaseAuthenticated {
		return err
	}

	s.logger.Info("session rejected by service, logging out")
	if logoutErr := s.Logout(); logoutErr != nil {
		s.logger.WithError(logoutErr).Warn("failed to clear persisted token")
	}
	return err
}

// Subscribe registers fn to receive every state committed after this call.
// fn runs after the state is visible to State, outside any store lock, so
// it may call back into the store. The returned func removes fn.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

// commit installs next and notifies subscribers
func (s *Store) commit(next State, token string) State {
	s.apply(next, token, false)
	return copyState(next)
}

// apply installs next. A restoring apply is dropped once the session is
// settled; it reports whether next was installed.
func (s *Store) apply(next State, token string, restoring bool) bool {
	s.mu.Lock()
	if restoring && s.settled {
		s.mu.Unlock()
		return false
	}
	s.settled = true
	prev := s.state.Phase
	s.state = copyState(next)
	s.token = token
	s.mu.Unlock()

	s.metrics.ObserveTransition(next.Phase.String())
	s.logger.Debug("session transition", "from", prev.String(), "to", next.Phase.String())

	s.notify(next)
	return true
}

func (s *Store) notify(state State) {
	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(copyState(state))
	}
}

func copyState(st State) State {
	if st.User == nil {
		return st
	}
	user := *st.User
	return State{Phase: st.Phase, User: &user}
}
