package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml or .env is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, int32(1), cfg.Store.MinConns)
	assert.Equal(t, 8033, cfg.Server.Port)
	assert.Equal(t, DefaultAPIKeyHeader, cfg.Server.APIKeyHeader)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Screener.FuzzyWindowDays)
	assert.False(t, cfg.Schedule.Enabled)
	assert.Equal(t, "0 0 0 * * *", cfg.Schedule.Spec)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  database_url: postgres://localhost/ciq
  max_conns: 4
server:
  port: 9090
  api_key: s3cret
log:
  level: debug
  format: console
schedule:
  enabled: true
  spec: "0 30 6 * * *"
  watch:
    - country: US
      category: mega
      top: 10
    - country: Global
      category: large
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/ciq", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(4), cfg.Store.MaxConns)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, "0 30 6 * * *", cfg.Schedule.Spec)
	require.Len(t, cfg.Schedule.Watch, 2)
	assert.Equal(t, WatchEntry{Country: "US", Category: "mega", Top: 10}, cfg.Schedule.Watch[0])
	assert.Equal(t, WatchEntry{Country: "Global", Category: "large"}, cfg.Schedule.Watch[1])
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Screener.FuzzyWindowDays)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
server:
  api_key: from-file
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FUNSCREENER_SERVER_API_KEY", "from-env")
	t.Setenv("FUNSCREENER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "from-env", cfg.Server.APIKey)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	env := "FUNSCREENER_STORE_DATABASE_URL=postgres://dotenv/ciq\nFUNSCREENER_SCREENER_FUZZY_WINDOW_DAYS=7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))
	t.Cleanup(func() {
		os.Unsetenv("FUNSCREENER_STORE_DATABASE_URL")
		os.Unsetenv("FUNSCREENER_SCREENER_FUZZY_WINDOW_DAYS")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://dotenv/ciq", cfg.Store.DatabaseURL)
	assert.Equal(t, 7, cfg.Screener.FuzzyWindowDays)
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FUNSCREENER_SERVER_PORT=1111\n"), 0644))
	t.Setenv("FUNSCREENER_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	full := Config{
		Store:  StoreConfig{DatabaseURL: "postgres://localhost/ciq"},
		Server: ServerConfig{Port: 8033, APIKey: "k"},
	}
	require.NoError(t, full.Validate("serve"))
	require.NoError(t, full.Validate("query"))
	require.NoError(t, full.Validate("migrate"))

	noKey := full
	noKey.Server.APIKey = ""
	err := noKey.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FUNSCREENER_SERVER_API_KEY")
	assert.NoError(t, noKey.Validate("query"), "query does not need an api key")

	noDB := full
	noDB.Store.DatabaseURL = ""
	err = noDB.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")

	badPort := full
	badPort.Server.Port = 70000
	assert.Error(t, badPort.Validate("serve"))

	badWindow := full
	badWindow.Screener.FuzzyWindowDays = -1
	assert.Error(t, badWindow.Validate("query"))

	assert.Error(t, full.Validate("bogus"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
