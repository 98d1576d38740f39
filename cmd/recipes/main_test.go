package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestHashPasswordCommand(t *testing.T) {
	t.Run("FromArgument", func(t *testing.T) {
		out, err := execute(t, "", "hash-password", "--cost", "4", "let me in")

		require.NoError(t, err)
		assert.NoError(t, security.VerifyPassword(strings.TrimSpace(out), "let me in"))
	})

	t.Run("FromStdin", func(t *testing.T) {
		out, err := execute(t, "let me in\n", "hash-password", "--cost", "4")

		require.NoError(t, err)
		assert.NoError(t, security.VerifyPassword(strings.TrimSpace(out), "let me in"))
	})

	t.Run("Empty_ShouldFail", func(t *testing.T) {
		_, err := execute(t, "\n", "hash-password")

		assert.Error(t, err)
	})
}

func TestMigrateCommand(t *testing.T) {
	uri := "sqlite://" + filepath.Join(t.TempDir(), "recipes.db")
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "", "migrate", "up", "--db-uri", uri, "--config", cfg)
	require.Error(t, err, "a named config file must exist")

	_, err = execute(t, "", "migrate", "up", "--db-uri", uri)
	require.NoError(t, err)

	out, err := execute(t, "", "migrate", "version", "-d", uri)
	require.NoError(t, err)
	assert.Contains(t, out, "dirty=false")
	assert.NotContains(t, out, "version 0 ")

	_, err = execute(t, "", "migrate", "down", "-d", uri)
	require.NoError(t, err)
}
