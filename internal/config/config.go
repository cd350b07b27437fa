package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the full application configuration.
type Config struct {
	API        APIConfig        `yaml:"api" mapstructure:"api"`
	Assistant  AssistantConfig  `yaml:"assistant" mapstructure:"assistant"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// APIConfig points at the audit backend that hosts the language-generation,
// extraction, comparison and report services.
type APIConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	ChatPath     string  `yaml:"chat_path" mapstructure:"chat_path"`
	GeneratePath string  `yaml:"generate_path" mapstructure:"generate_path"`
	IngestPath   string  `yaml:"ingest_path" mapstructure:"ingest_path"`
	IngestField  string  `yaml:"ingest_field" mapstructure:"ingest_field"`
	ComparePath  string  `yaml:"compare_path" mapstructure:"compare_path"`
	ExportPath   string  `yaml:"export_path" mapstructure:"export_path"`
}

// AssistantConfig selects who answers messages and generates cases.
type AssistantConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// AnthropicConfig holds Anthropic API settings for the anthropic assistant provider.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// IngestConfig selects how uploaded documents are turned into case text.
type IngestConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// StoreConfig configures the session persistence backend.
type StoreConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	SessionTTLHours int    `yaml:"session_ttl_hours" mapstructure:"session_ttl_hours"`
}

// SessionConfig configures session selection and response ordering.
type SessionConfig struct {
	DefaultID          string `yaml:"default_id" mapstructure:"default_id"`
	DropStaleResponses bool   `yaml:"drop_stale_responses" mapstructure:"drop_stale_responses"`
}

// ExportConfig configures where exported reports are written.
type ExportConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	FileName string `yaml:"file_name" mapstructure:"file_name"`
}

// ResilienceConfig configures the per-collaborator circuit breakers.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout_secs", 60)
	v.SetDefault("api.rate_per_sec", 5)
	v.SetDefault("api.chat_path", "/chat")
	v.SetDefault("api.generate_path", "/generar_caso")
	v.SetDefault("api.ingest_path", "/procesar_documento")
	v.SetDefault("api.ingest_field", "file")
	v.SetDefault("api.compare_path", "/compare")
	v.SetDefault("api.export_path", "/descargar_pdf")
	v.SetDefault("assistant.provider", "service")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("ingest.provider", "service")
	v.SetDefault("ingest.pdftotext_path", "pdftotext")
	v.SetDefault("ingest.mistral_model", "pixtral-large-latest")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "audit.db")
	v.SetDefault("store.session_ttl_hours", 24)
	v.SetDefault("session.default_id", "default")
	v.SetDefault("session.drop_stale_responses", true)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.file_name", "informe_auditoria.pdf")
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "session"
// for the workflow commands, "serve" for the HTTP server.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "session", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.API.BaseURL == "" {
		errs = append(errs, "api.base_url is required")
	}
	switch c.Assistant.Provider {
	case "service":
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required for assistant.provider=anthropic")
		}
	default:
		errs = append(errs, "assistant.provider must be service or anthropic")
	}
	switch c.Ingest.Provider {
	case "service", "pdftotext":
	case "mistral":
		if c.Ingest.MistralKey == "" {
			errs = append(errs, "ingest.mistral_key is required for ingest.provider=mistral")
		}
	default:
		errs = append(errs, "ingest.provider must be service, pdftotext or mistral")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for store.driver=postgres")
	}
	if c.Export.FileName == "" {
		errs = append(errs, "export.file_name is required")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger. When cfg.File is set, a JSON
// copy of every entry is also written to a size-rotated file.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)
	// stdout belongs to command output.
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // Megabytes
			MaxBackups: 5,
			MaxAge:     30, // Days
			Compress:   true,
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), zapCfg.Level)
		logger = logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	zap.ReplaceGlobals(logger)
	return nil
}
