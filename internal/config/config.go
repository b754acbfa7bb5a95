// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.pastelshop/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, model selection, fallback models, temperature, max tokens
//   - Assistant: tool round ceiling, history window
//   - Storage: PostgreSQL connection (see storage.go)
//   - Payments: Toss Payments client/secret keys
//   - Server: listen address, CORS origins
//
// Security: sensitive values (passwords, secret keys) are never logged;
// MarshalJSON masks them explicitly.
//
// Error handling uses sentinel errors checked with errors.Is(); wrap with
// context using fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxToolRounds indicates the tool round ceiling is out of range.
	ErrInvalidMaxToolRounds = errors.New("invalid max tool rounds")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidServerAddr indicates the server listen address is invalid.
	ErrInvalidServerAddr = errors.New("invalid server address")
)

const (
	// DefaultMaxHistoryMessages is the default number of prior chat messages
	// loaded into each completion request.
	DefaultMaxHistoryMessages int32 = 100

	// MaxAllowedHistoryMessages is the absolute maximum to prevent OOM.
	MaxAllowedHistoryMessages int32 = 10000

	// DefaultMaxToolRounds is the default ceiling on tool-calling rounds
	// within a single user turn.
	DefaultMaxToolRounds = 3
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider       string   `mapstructure:"provider" json:"provider"`     // "openai" (default) or "googleai"
	ModelName      string   `mapstructure:"model_name" json:"model_name"` // primary model (e.g. "gpt-4o-mini")
	FallbackModels []string `mapstructure:"fallback_models" json:"fallback_models"`
	Temperature    float32  `mapstructure:"temperature" json:"temperature"`
	MaxTokens      int      `mapstructure:"max_tokens" json:"max_tokens"`

	// Assistant behavior
	MaxToolRounds      int   `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`
	MaxHistoryMessages int32 `mapstructure:"max_history_messages" json:"max_history_messages"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Toss Payments configuration
	TossClientKey string `mapstructure:"toss_client_key" json:"toss_client_key"`
	TossSecretKey string `mapstructure:"toss_secret_key" json:"toss_secret_key"` // SENSITIVE: masked in MarshalJSON

	// Checkout redirect targets handed to the payment widget.
	CheckoutSuccessURL string `mapstructure:"checkout_success_url" json:"checkout_success_url"`
	CheckoutFailURL    string `mapstructure:"checkout_fail_url" json:"checkout_fail_url"`

	// Server configuration
	ServerAddr  string   `mapstructure:"server_addr" json:"server_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".pastelshop")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults mirror the production assistant: gpt-4o-mini first,
	// gpt-3.5-turbo as the cheaper fallback.
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", "gpt-4o-mini")
	viper.SetDefault("fallback_models", []string{"gpt-3.5-turbo"})
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)

	viper.SetDefault("max_tool_rounds", DefaultMaxToolRounds)
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "pastelshop")
	viper.SetDefault("postgres_password", "pastelshop_dev_password")
	viper.SetDefault("postgres_db_name", "pastelshop")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Toss sandbox keys are intentionally not defaulted; payments stay
	// disabled until keys are configured.
	viper.SetDefault("checkout_success_url", "http://localhost:5173/payment/success")
	viper.SetDefault("checkout_fail_url", "http://localhost:5173/payment/fail")

	viper.SetDefault("server_addr", ":8080")

	// CORS defaults (Vite dev server)
	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
}

// bindEnvVariables binds environment variables explicitly.
// Model API keys (OPENAI_API_KEY, GEMINI_API_KEY) are read directly by the
// Genkit plugins, not via Viper; Validate() checks their presence based on
// the selected provider.
func bindEnvVariables() {
	// Hardcoded strings cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// AI provider and model tuning
	mustBind("provider", "SHOP_PROVIDER")
	mustBind("model_name", "SHOP_MODEL_NAME")
	mustBind("fallback_models", "SHOP_FALLBACK_MODELS")
	mustBind("temperature", "SHOP_TEMPERATURE")
	mustBind("max_tokens", "SHOP_MAX_TOKENS")
	mustBind("max_tool_rounds", "SHOP_MAX_TOOL_ROUNDS")
	mustBind("max_history_messages", "SHOP_MAX_HISTORY_MESSAGES")

	// PostgreSQL (DATABASE_URL, handled separately, overrides these)
	mustBind("postgres_host", "SHOP_POSTGRES_HOST")
	mustBind("postgres_port", "SHOP_POSTGRES_PORT")
	mustBind("postgres_user", "SHOP_POSTGRES_USER")
	mustBind("postgres_password", "SHOP_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "SHOP_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "SHOP_POSTGRES_SSL_MODE")

	// Server
	mustBind("server_addr", "SHOP_SERVER_ADDR")
	mustBind("cors_origins", "SHOP_CORS_ORIGINS")

	// Toss Payments
	mustBind("toss_client_key", "TOSS_CLIENT_KEY")
	mustBind("toss_secret_key", "TOSS_SECRET_KEY")
	mustBind("checkout_success_url", "SHOP_CHECKOUT_SUCCESS_URL")
	mustBind("checkout_fail_url", "SHOP_CHECKOUT_FAIL_URL")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against the
// original secret.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
//
// This defends against accidental logging of real secrets, not against
// compromised logs. Rotate secrets if logs leak.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - TossSecretKey
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.TossSecretKey = maskSecret(a.TossSecretKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified name for the given model, as
// Genkit expects it. Examples: "openai/gpt-4o-mini", "googleai/gemini-2.5-flash".
// Names already containing a "/" are returned as-is.
func (c *Config) FullModelName(model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	switch c.Provider {
	case ProviderGoogleAI:
		return ProviderGoogleAI + "/" + model
	default:
		return ProviderOpenAI + "/" + model
	}
}

// ModelChain returns the ordered list of provider-qualified model names the
// assistant attempts: the primary model followed by each fallback.
func (c *Config) ModelChain() []string {
	chain := make([]string, 0, 1+len(c.FallbackModels))
	chain = append(chain, c.FullModelName(c.ModelName))
	for _, m := range c.FallbackModels {
		chain = append(chain, c.FullModelName(m))
	}
	return chain
}

// PaymentsEnabled reports whether Toss keys are configured.
func (c *Config) PaymentsEnabled() bool {
	return c.TossClientKey != "" && c.TossSecretKey != ""
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
