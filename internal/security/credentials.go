package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	fileVersion   = 1
	keyIterations = 100000
	keyLength     = 32
	saltLength    = 16
)

var (
	// ErrCredentialNotFound is returned by Get for an unknown name
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrUnsupportedVersion is returned when the file was written by a newer CLI
	ErrUnsupportedVersion = errors.New("unsupported credentials file version")
)

// entry is one sealed secret. The entry name is bound as additional
// authenticated data, so a value copied under another name fails to open.
type entry struct {
	Sealed    string    `json:"sealed"`
	UpdatedAt time.Time `json:"updated_at"`
}

type credentialsFile struct {
	Version int               `json:"version"`
	Salt    string            `json:"salt"`
	Entries map[string]*entry `json:"entries"`
}

// CredentialStore keeps named secrets encrypted at rest in a single file.
// The AES-256-GCM key is derived from a passphrase with PBKDF2-SHA256 and a
// random per-file salt. Writes replace the file atomically.
type CredentialStore struct {
	mu sync.RWMutex

	path       string
	passphrase string
	salt       []byte
	aead       cipher.AEAD
	entries    map[string]*entry
}

// NewCredentialStore opens the store at path. A missing file is an empty
// store; it is created on the first Store.
func NewCredentialStore(path, passphrase string) (*CredentialStore, error) {
	s := &CredentialStore{
		path:       path,
		passphrase: passphrase,
		entries:    make(map[string]*entry),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return s, nil
}

// Path returns the location of the store file
func (s *CredentialStore) Path() string {
	return s.path
}

// Store seals value under name and rewrites the file
func (s *CredentialStore) Store(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aead == nil {
		salt := make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		aead, err := newAEAD(s.passphrase, salt)
		if err != nil {
			return err
		}
		s.salt, s.aead = salt, aead
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(name))

	s.entries[name] = &entry{
		Sealed:    base64.StdEncoding.EncodeToString(sealed),
		UpdatedAt: time.Now().UTC(),
	}
	return s.save()
}

// Get opens the value stored under name
func (s *CredentialStore) Get(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCredentialNotFound, name)
	}

	data, err := base64.StdEncoding.DecodeString(e.Sealed)
	if err != nil {
		return "", fmt.Errorf("credential %s is corrupt: %w", name, err)
	}
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("credential %s is corrupt: too short", name)
	}

	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(name))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential %s (wrong passphrase?): %w", name, err)
	}
	return string(plaintext), nil
}

// Delete removes name. Removing an absent name is not an error.
// The file is deleted once the last entry is gone.
func (s *CredentialStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; !ok {
		return nil
	}
	delete(s.entries, name)

	if len(s.entries) > 0 {
		return s.save()
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	s.salt, s.aead = nil, nil
	return nil
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, keyIterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// save writes a temp file next to the store and renames it into place
func (s *CredentialStore) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(credentialsFile{
		Version: fileVersion,
		Salt:    base64.StdEncoding.EncodeToString(s.salt),
		Entries: s.entries,
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var file credentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version > fileVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, file.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil || len(salt) == 0 {
		return fmt.Errorf("invalid salt")
	}

	aead, err := newAEAD(s.passphrase, salt)
	if err != nil {
		return err
	}
	s.salt, s.aead = salt, aead
	if file.Entries != nil {
		s.entries = file.Entries
	}
	return nil
}
