package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootListsSubcommands(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "export", "worker", "migrate"} {
		assert.Contains(t, out, name)
	}
}

func TestExportWritesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	path := filepath.Join(dir, "march.csv")

	out, err := run(t, "export", "--backend", "memory", "--month", "3", "--year", "2024", "-o", path)
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,description,category,amount\n", string(body))
}

func TestExportRejectsBadInput(t *testing.T) {
	_, err := run(t, "export", "--backend", "memory", "--format", "xlsx")
	assert.Error(t, err)
	_, err = run(t, "export", "--backend", "memory", "--month", "13")
	assert.Error(t, err)
}

func TestInvalidBackendFlag(t *testing.T) {
	_, err := run(t, "export", "--backend", "sheets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid data backend")
}

func TestMigrateUpAndDown(t *testing.T) {
	db := filepath.Join(t.TempDir(), "spendview.db")
	t.Setenv("SQLITE_DB_PATH", db)
	t.Setenv("DATA_BACKEND", "sqlite")

	out, err := run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 0")

	out, err = run(t, "migrate", "up")
	require.NoError(t, err)
	assert.NotContains(t, out, "version 0")
	assert.NotContains(t, out, "dirty")

	_, err = run(t, "migrate", "down", "many")
	assert.Error(t, err)
}

func TestWorkerNeedsToken(t *testing.T) {
	t.Setenv("API_TOKEN", "")
	t.Setenv("DATA_BACKEND", "sqlite")
	_, err := run(t, "worker")
	assert.ErrorIs(t, err, errNoAPIToken)
}
