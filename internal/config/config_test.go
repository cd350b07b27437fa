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
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 60, cfg.API.TimeoutSecs)
	assert.InDelta(t, 5.0, cfg.API.RatePerSec, 0.001)
	assert.Equal(t, "/chat", cfg.API.ChatPath)
	assert.Equal(t, "/generar_caso", cfg.API.GeneratePath)
	assert.Equal(t, "/procesar_documento", cfg.API.IngestPath)
	assert.Equal(t, "file", cfg.API.IngestField)
	assert.Equal(t, "/compare", cfg.API.ComparePath)
	assert.Equal(t, "/descargar_pdf", cfg.API.ExportPath)
	assert.Equal(t, "service", cfg.Assistant.Provider)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "service", cfg.Ingest.Provider)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "audit.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "default", cfg.Session.DefaultID)
	assert.True(t, cfg.Session.DropStaleResponses)
	assert.Equal(t, "informe_auditoria.pdf", cfg.Export.FileName)
	assert.Equal(t, 5, cfg.Resilience.FailureThreshold)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
api:
  base_url: http://backend:5000
store:
  driver: memory
session:
  drop_stale_responses: false
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:5000", cfg.API.BaseURL)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.False(t, cfg.Session.DropStaleResponses)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "/chat", cfg.API.ChatPath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: memory
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("AUDIT_STORE_DRIVER", "postgres")
	t.Setenv("AUDIT_API_BASE_URL", "http://env:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "http://env:9000", cfg.API.BaseURL)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

func TestInitLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json", File: path}))

	zap.L().Info("file logging works")
	_ = zap.L().Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file logging works")
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:5000"
	cfg.Assistant.Provider = "service"
	cfg.Ingest.Provider = "service"
	cfg.Store.Driver = "sqlite"
	cfg.Export.FileName = "informe_auditoria.pdf"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("session"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_ProviderRequirements(t *testing.T) {
	cfg := validDefaults()
	cfg.Assistant.Provider = "anthropic"
	cfg.Ingest.Provider = "mistral"
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "ingest.mistral_key is required")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate_UnknownProviders(t *testing.T) {
	cfg := validDefaults()
	cfg.Assistant.Provider = "openai"
	cfg.Ingest.Provider = "tesseract"

	err := cfg.Validate("session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assistant.provider must be")
	assert.Contains(t, err.Error(), "ingest.provider must be")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	assert.NoError(t, cfg.Validate("session"))
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
