package security

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T, passphrase string) (*CredentialStore, string) {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "grievance", "credentials.json")

	store, err := NewCredentialStore(storePath, passphrase)
	if err != nil {
		t.Fatalf("Failed to create credential store: %v", err)
	}
	return store, storePath
}

func TestNewCredentialStoreMissingFile(t *testing.T) {
	store, storePath := newTestStore(t, "test-passphrase")

	if store.Path() != storePath {
		t.Errorf("Path() = %s, want %s", store.Path(), storePath)
	}
	if _, err := store.Get("token"); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("expected empty store, got %v", err)
	}
	if _, err := os.Stat(storePath); !os.IsNotExist(err) {
		t.Error("opening a store should not create the file")
	}
}

func TestStoreAndGetCredential(t *testing.T) {
	store, _ := newTestStore(t, "test-passphrase")

	if err := store.Store("token", "eyJhbGciOi.payload.sig"); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	value, err := store.Get("token")
	if err != nil {
		t.Fatalf("Failed to get credential: %v", err)
	}
	if value != "eyJhbGciOi.payload.sig" {
		t.Errorf("Value mismatch: got %s", value)
	}
}

func TestGetNonExistentCredential(t *testing.T) {
	store, _ := newTestStore(t, "test-passphrase")

	_, err := store.Get("token")
	if !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestCredentialEncryptedAtRest(t *testing.T) {
	store, storePath := newTestStore(t, "test-passphrase")

	if err := store.Store("token", "super-secret-token"); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	data, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("Failed to read store file: %v", err)
	}
	if strings.Contains(string(data), "super-secret-token") {
		t.Error("credential value should not appear in plaintext")
	}

	info, err := os.Stat(storePath)
	if err != nil {
		t.Fatalf("Failed to stat store file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("file mode = %o, want 600", info.Mode().Perm())
	}
}

func TestCredentialPersistence(t *testing.T) {
	store, storePath := newTestStore(t, "test-passphrase")

	if err := store.Store("token", "persisted"); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	reopened, err := NewCredentialStore(storePath, "test-passphrase")
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}

	value, err := reopened.Get("token")
	if err != nil {
		t.Fatalf("Failed to get credential after reopen: %v", err)
	}
	if value != "persisted" {
		t.Errorf("Value mismatch after reopen: got %s", value)
	}
}

func TestWrongPassphrase(t *testing.T) {
	store, storePath := newTestStore(t, "right")

	if err := store.Store("token", "value"); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	reopened, err := NewCredentialStore(storePath, "wrong")
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	if _, err := reopened.Get("token"); err == nil {
		t.Error("expected decryption to fail with the wrong passphrase")
	}
}

func TestDeleteCredential(t *testing.T) {
	store, storePath := newTestStore(t, "test-passphrase")

	if err := store.Store("token", "a"); err != nil {
		t.Fatal(err)
	}
	if err := store.Store("other", "b"); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete("token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get("token"); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("expected deleted credential to be gone, got %v", err)
	}
	if _, err := os.Stat(storePath); err != nil {
		t.Error("file should remain while credentials are left")
	}

	if err := store.Delete("other"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(storePath); !os.IsNotExist(err) {
		t.Error("file should be removed with the last credential")
	}

	// Deleting again is a no-op
	if err := store.Delete("other"); err != nil {
		t.Errorf("second Delete should succeed, got %v", err)
	}
}

func TestStoreAfterEmptying(t *testing.T) {
	store, storePath := newTestStore(t, "test-passphrase")

	if err := store.Store("token", "first"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("token"); err != nil {
		t.Fatal(err)
	}
	if err := store.Store("token", "second"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewCredentialStore(storePath, "test-passphrase")
	if err != nil {
		t.Fatal(err)
	}
	value, err := reopened.Get("token")
	if err != nil {
		t.Fatal(err)
	}
	if value != "second" {
		t.Errorf("Value = %s, want second", value)
	}
}

func TestCorruptStoreFile(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(storePath, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewCredentialStore(storePath, "x"); err == nil {
		t.Error("expected an error for a corrupt store file")
	}
}

func TestEntryBoundToName(t *testing.T) {
	store, storePath := newTestStore(t, "test-passphrase")

	if err := store.Store("token:https://a.example.com/api", "secret-a"); err != nil {
		t.Fatal(err)
	}
	if err := store.Store("token:https://b.example.com/api", "secret-b"); err != nil {
		t.Fatal(err)
	}

	// Swap the sealed values between the two entries on disk
	data, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatal(err)
	}
	var file credentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatal(err)
	}
	a, b := file.Entries["token:https://a.example.com/api"], file.Entries["token:https://b.example.com/api"]
	a.Sealed, b.Sealed = b.Sealed, a.Sealed
	data, err = json.Marshal(file)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(storePath, data, 0o600); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewCredentialStore(storePath, "test-passphrase")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reopened.Get("token:https://a.example.com/api"); err == nil {
		t.Error("a value moved under another name should not decrypt")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	store, storePath := newTestStore(t, "test-passphrase")

	for _, v := range []string{"one", "two", "three"} {
		if err := store.Store("token", v); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(storePath))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "credentials.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %s", strings.Join(names, ","))
	}
}

func TestNewerFileVersion(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "credentials.json")
	data := `{"version": 99, "salt": "c2FsdHNhbHRzYWx0c2FsdA==", "entries": {}}`
	if err := os.WriteFile(storePath, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewCredentialStore(storePath, "x")
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}
