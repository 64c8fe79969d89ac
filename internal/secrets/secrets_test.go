package secrets

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rig.dev/identity/internal/config"
	"rig.dev/identity/internal/obs"
)

func writeSecretsFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.local.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLocalLoadsFromFile(t *testing.T) {
	path := writeSecretsFile(t, `{"rig-local-rds_pass": "password", "rig-local-rds_host": "localhost"}`)
	m := NewManager(config.EnvLocal, WithFile(path))

	v, err := m.Get(context.Background(), DBPassword)
	require.NoError(t, err)
	assert.Equal(t, "password", v)

	host, err := m.Get(context.Background(), DBHost)
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
}

func TestLocalReadsFileOnce(t *testing.T) {
	path := writeSecretsFile(t, `{"rig-local-rds_pass": "password", "rig-local-rds_user": "app"}`)
	m := NewManager(config.EnvLocal, WithFile(path))

	_, err := m.Get(context.Background(), DBPassword)
	require.NoError(t, err)

	// Removing the file proves later lookups never touch it again.
	require.NoError(t, os.Remove(path))

	v, err := m.Get(context.Background(), DBUser)
	require.NoError(t, err)
	assert.Equal(t, "app", v)
}

func TestLocalMissingSecret(t *testing.T) {
	path := writeSecretsFile(t, `{}`)
	m := NewManager(config.EnvLocal, WithFile(path))

	_, err := m.Get(context.Background(), DBPassword)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"rig-local-rds_pass"`)
}

func TestLocalMissingFile(t *testing.T) {
	m := NewManager(config.EnvLocal, WithFile(filepath.Join(t.TempDir(), "absent.json")))

	_, err := m.Get(context.Background(), DBHost)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestProdReadsEnvironment(t *testing.T) {
	t.Setenv("RIG_PROD_RDS_PASS", "prod-password")
	m := NewManager(config.EnvProd)

	assert.Equal(t, "rig-prod-rds_pass", m.Name(DBPassword))
	v, err := m.Get(context.Background(), DBPassword)
	require.NoError(t, err)
	assert.Equal(t, "prod-password", v)
}

func TestStagingUsesStagingPrefix(t *testing.T) {
	t.Setenv("RIG_STAGING_RDS_NAME", "identity")
	m := NewManager(config.EnvStaging)

	v, err := m.Get(context.Background(), DBName)
	require.NoError(t, err)
	assert.Equal(t, "identity", v)

	_, err = m.Get(context.Background(), DBHost)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNeverLogsSecretValues(t *testing.T) {
	var buf bytes.Buffer
	log := obs.NewLogger(obs.LogConfig{Env: "prod", Level: "debug", Output: &buf})
	path := writeSecretsFile(t, `{"rig-local-rds_pass": "super-secret-password"}`)
	m := NewManager(config.EnvLocal, WithFile(path), WithLogger(log))

	for i := 0; i < 2; i++ {
		_, err := m.Get(context.Background(), DBPassword)
		require.NoError(t, err)
	}
	_, _ = m.Get(context.Background(), DBHost)

	assert.NotEmpty(t, buf.String())
	assert.NotContains(t, buf.String(), "super-secret-password")
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewManager(config.EnvLocal).Get(ctx, DBHost)
	require.ErrorIs(t, err, context.Canceled)
}
