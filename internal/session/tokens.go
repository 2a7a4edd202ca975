package session

import (
	"errors"
	"sync"

	"github.com/felixgeelhaar/grievance/internal/security"
)

// TokenStore persists the bearer token between runs.
//
// Load returns "" with a nil error when nothing is stored.
// Clear succeeds when nothing is stored.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// MemoryTokenStore keeps the token in process memory
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore creates an empty in-memory token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load returns the stored token
func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save replaces the stored token
func (m *MemoryTokenStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear removes the stored token
func (m *MemoryTokenStore) Clear() error {
	return m.Save("")
}

// CredentialTokenStore persists the token in an encrypted credential file.
// One file holds a token per service; scope selects the entry.
type CredentialTokenStore struct {
	creds *security.CredentialStore
	key   string
}

// NewCredentialTokenStore opens the credential file at path. scope is
// normally the API base URL, so switching services does not reuse a token.
func NewCredentialTokenStore(path, passphrase, scope string) (*CredentialTokenStore, error) {
	creds, err := security.NewCredentialStore(path, passphrase)
	if err != nil {
		return nil, err
	}
	return &CredentialTokenStore{creds: creds, key: "token:" + scope}, nil
}

// Path returns the location of the credential file
func (c *CredentialTokenStore) Path() string {
	return c.creds.Path()
}

// Load decrypts the stored token
func (c *CredentialTokenStore) Load() (string, error) {
	token, err := c.creds.Get(c.key)
	if errors.Is(err, security.ErrCredentialNotFound) {
		return "", nil
	}
	return token, err
}

// Save encrypts and writes the token
func (c *CredentialTokenStore) Save(token string) error {
	if token == "" {
		return c.Clear()
	}
	return c.creds.Store(c.key, token)
}

// Clear deletes the stored token
func (c *CredentialTokenStore) Clear() error {
	return c.creds.Delete(c.key)
}
