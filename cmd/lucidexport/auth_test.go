package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lucidexport/pkg/auth"
	lerrors "lucidexport/pkg/errors"
)

func TestAuthLoginStatusLogout(t *testing.T) {
	store := isolate(t)

	stdout, _, err := runCLI(t, "key_0123456789abcdef\n", "auth", "login", "--profile", "work", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, `API key saved for profile "work"`)
	assert.NotContains(t, stdout, "key_0123456789abcdef", "the key must never be echoed")

	cred, err := store.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "key_0123456789abcdef", cred.APIKey)

	stdout, _, err = runCLI(t, "", "auth", "status", "--profile", "work", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "key_...cdef")
	assert.NotContains(t, stdout, "key_0123456789abcdef")

	_, _, err = runCLI(t, "", "auth", "logout", "--profile", "work")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())

	_, _, err = runCLI(t, "", "auth", "logout", "--profile", "work")
	assert.True(t, errors.Is(err, auth.ErrCredentialsNotFound))
}

func TestAuthLoginEmptyKey(t *testing.T) {
	store := isolate(t)

	_, _, err := runCLI(t, "   \n", "auth", "login")
	require.Error(t, err)
	assert.True(t, lerrors.IsType(err, lerrors.ErrorTypeConfig))
	assert.Equal(t, 0, store.Count())
}

func TestAuthStatusWithoutKey(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "auth login")
}

func TestConfigInitShowValidate(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "lucidexport.yaml")

	_, _, err := runCLI(t, "", "--config", path, "config", "init")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, _, err = runCLI(t, "", "--config", path, "config", "init")
	assert.True(t, lerrors.IsType(err, lerrors.ErrorTypeConfig), "init must not overwrite")

	t.Setenv("LUCID_API_KEY", "abcdefghijklmnop")
	stdout, _, err := runCLI(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "abcd...mnop")
	assert.NotContains(t, stdout, "abcdefghijklmnop")
	assert.Contains(t, stdout, "image/png;dpi=256")

	stdout, _, err = runCLI(t, "", "--config", path, "--no-color", "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration is valid")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  extension: \"../png\"\n  concurrency: -1\n"), 0600))

	_, _, err := runCLI(t, "", "--config", path, "config", "validate")
	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.Contains(msg, "extension") && strings.Contains(msg, "concurrency"),
		"all problems should be reported together, got %q", msg)
}
