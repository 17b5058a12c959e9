package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) Config {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	v, err := NewViper(fs)
	require.NoError(t, err)
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg := load(t)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 100*time.Millisecond, cfg.SessionPollDelay())
	assert.Equal(t, 2*time.Hour, cfg.RoomTTL())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://rose@localhost/rose")
	t.Setenv("PUBLIC_URL", "https://rose.example/")
	t.Setenv("MAX_PLAYERS", "6")
	t.Setenv("MIN_PLAYERS", "0")
	t.Setenv("ROOM_TTL_MINUTES", "0")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DB_CONN_MAX_IDLE_SECONDS", "15")

	cfg := load(t)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://rose@localhost/rose", cfg.DatabaseURL)
	assert.Equal(t, "https://rose.example", cfg.PublicURL)
	assert.Equal(t, 6, cfg.MaxPlayers)
	assert.Equal(t, 2, cfg.MinPlayers)
	assert.Equal(t, 0, cfg.RoomTTLMinutes)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Pool().ConnMaxIdleTime)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg := load(t, "--port", "7070")
	assert.Equal(t, 7070, cfg.Port)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())

	cfg.SessionSecret = "s3cret"
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.MinPlayers = 5
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.LogLevel = "loud"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Port = 70000
	assert.Error(t, bad.Validate())
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ROSE_TEST_A=from-file\nROSE_TEST_B=from-file\n"), 0o600))
	t.Setenv("ROSE_TEST_A", "from-env")

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("ROSE_TEST_B") })
	assert.Equal(t, "from-env", os.Getenv("ROSE_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("ROSE_TEST_B"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
