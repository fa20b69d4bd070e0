package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	cred := &Credential{APIKey: "  key_0123456789abcdef  "}
	source, err := manager.Store(cred)
	if err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}
	if source != "mock" {
		t.Errorf("Expected mock source, got %s", source)
	}
	if cred.Profile != DefaultProfile {
		t.Errorf("Expected default profile, got %q", cred.Profile)
	}

	retrieved, from, err := manager.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve credential: %v", err)
	}
	if retrieved.APIKey != "key_0123456789abcdef" {
		t.Errorf("Expected trimmed key, got %q", retrieved.APIKey)
	}
	if from != "mock" {
		t.Errorf("Expected mock source, got %s", from)
	}

	if sources := manager.Sources(DefaultProfile); len(sources) != 1 {
		t.Errorf("Expected one source, got %v", sources)
	}

	if err := manager.Delete(DefaultProfile); err != nil {
		t.Fatalf("Failed to delete credential: %v", err)
	}
	if _, _, err := manager.Retrieve(DefaultProfile); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 credentials after deletion, got %d", mockStore.Count())
	}
}

func TestManagerRejectsEmptyKey(t *testing.T) {
	manager, mockStore := NewMockManager()

	if _, err := manager.Store(&Credential{APIKey: "   "}); err == nil {
		t.Error("Expected error for blank API key")
	}
	if _, err := manager.Store(nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Error("Nothing should be stored")
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore("keyring")
	broken.StoreError = errors.New("dbus unavailable")
	broken.RetrieveError = errors.New("dbus unavailable")
	file := NewMockStore("encrypted file")

	manager := NewManagerWithStores(broken, file)
	source, err := manager.Store(&Credential{Profile: "work", APIKey: "abc"})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if source != "encrypted file" {
		t.Errorf("Expected fallback store, got %s", source)
	}

	cred, from, err := manager.Retrieve("work")
	if err != nil || cred.APIKey != "abc" || from != "encrypted file" {
		t.Errorf("Retrieve() = %+v, %s, %v", cred, from, err)
	}
}

func TestManagerAllStoresFail(t *testing.T) {
	s := NewMockStore("only")
	s.StoreError = errors.New("read-only")
	manager := NewManagerWithStores(s)

	if _, err := manager.Store(&Credential{APIKey: "abc"}); err == nil || !strings.Contains(err.Error(), "read-only") {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
	if _, err := NewManagerWithStores().Store(&Credential{APIKey: "abc"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable with no stores, got %v", err)
	}
}

func TestManagerDeleteMissing(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore("a"), NewEnvironmentStore())
	if err := manager.Delete("nobody"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStoreWithPassphrase(path, "test_passphrase_123")
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if err := store.Store(&Credential{Profile: "default", APIKey: "secret_api_key"}); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}
	if err := store.Store(&Credential{Profile: "work", APIKey: "work_key"}); err != nil {
		t.Fatalf("Failed to store second profile: %v", err)
	}

	retrieved, err := store.Retrieve("default")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.APIKey != "secret_api_key" {
		t.Errorf("APIKey mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read encrypted file: %v", err)
	}
	if bytes.Contains(content, []byte("secret_api_key")) {
		t.Error("API key found in plain text in encrypted file")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}

	if err := store.Delete("default"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if store.Exists("default") {
		t.Error("Credential should be gone after delete")
	}
	if !store.Exists("work") {
		t.Error("Other profiles should survive a delete")
	}

	if err := store.Delete("work"); err != nil {
		t.Fatalf("Failed to delete last profile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be removed once empty")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStoreWithPassphrase(path, "right")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Credential{Profile: "default", APIKey: "k"}); err != nil {
		t.Fatal(err)
	}

	other, err := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("default"); err == nil || errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected decryption failure, got %v", err)
	}
}

func TestEncryptedFileStorePassphraseFromEnv(t *testing.T) {
	t.Setenv(PassphraseEnv, "env_passphrase")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatalf("NewEncryptedFileStore() error = %v", err)
	}
	if store.passphrase != "env_passphrase" {
		t.Errorf("Expected passphrase from environment")
	}
	if _, err := os.Stat(filepath.Join(dir, ".passphrase")); !os.IsNotExist(err) {
		t.Error("No passphrase file should be written when the env var is set")
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	first, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if first.passphrase == "" || first.passphrase != second.passphrase {
		t.Error("Expected a generated passphrase to be persisted and reused")
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(APIKeyEnv, "")
	if store.Exists("") {
		t.Error("Should not exist without env var")
	}
	if _, err := store.Retrieve(""); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}

	t.Setenv(APIKeyEnv, " env_key ")
	cred, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if cred.APIKey != "env_key" || cred.Profile != DefaultProfile {
		t.Errorf("Unexpected credential %+v", cred)
	}

	if err := store.Store(cred); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Store should be unavailable, got %v", err)
	}
	if err := store.Delete(""); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Delete should be unavailable, got %v", err)
	}
}

func TestMasked(t *testing.T) {
	cred := &Credential{Profile: "default", APIKey: "key_0123456789abcdef"}
	masked := cred.Masked()
	if masked.APIKey != "key_...cdef" {
		t.Errorf("Unexpected mask %q", masked.APIKey)
	}
	if (&Credential{APIKey: "short"}).Masked().APIKey != "********" {
		t.Error("Short keys should be fully masked")
	}
	var nilCred *Credential
	if nilCred.Masked() != nil {
		t.Error("Masked on nil should return nil")
	}
}

func TestGuides(t *testing.T) {
	var buf bytes.Buffer
	WriteAPIKeyGuide(&buf)
	if !strings.Contains(buf.String(), APIKeyEnv) {
		t.Error("Guide should mention the environment variable")
	}

	buf.Reset()
	WriteQuickGuide(&buf)
	if !strings.Contains(buf.String(), "auth login") {
		t.Error("Quick guide should mention auth login")
	}
}
