package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte("durable:\n  dsn: postgres://example\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8443", cfg.Listen.WebsocketAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.Protocol.SessionTTL)
	assert.Equal(t, "postgres://example", cfg.Durable.DSN)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("durable: [unclosed"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("WHISPER2_TEST_DSN", "postgres://from-env")
	assert.Equal(t, "postgres://from-env", SubstituteEnvVars("${WHISPER2_TEST_DSN}"))
	assert.Equal(t, "fallback", SubstituteEnvVars("${WHISPER2_UNSET_VAR:fallback}"))
}

func TestValidate_RequiresDurableAndVolatile(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	issues := Validate(cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "durable.dsn", issues[0].Field)
}

func TestGetEnvironment_DefaultsToDevelopment(t *testing.T) {
	os.Unsetenv("WHISPER2_ENV")
	os.Unsetenv("ENVIRONMENT")
	assert.Equal(t, "development", GetEnvironment())
}
