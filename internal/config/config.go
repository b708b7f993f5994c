package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cozil/cozil-backend/internal/llm"
)

// Config is built once at startup and handed to every component by pointer.
// Nothing mutates it after Load returns.
type Config struct {
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	LLM      LLMConfig      `json:"llm" mapstructure:"llm"`
	Session  SessionConfig  `json:"session" mapstructure:"session"`
	Auth     AuthConfig     `json:"auth" mapstructure:"auth"`
	Uploads  UploadsConfig  `json:"uploads" mapstructure:"uploads"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Host        string `json:"host" mapstructure:"host"`
	Port        int    `json:"port" mapstructure:"port"`
	StaticDir   string `json:"static_dir" mapstructure:"static_dir"`
	CORSOrigins string `json:"cors_origins" mapstructure:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the SQL driver. Driver is one of "postgres" (lib/pq),
// "pgx" or "sqlite". When DSN is empty the postgres fields are used.
type DatabaseConfig struct {
	Driver   string `json:"driver" mapstructure:"driver"`
	DSN      string `json:"dsn" mapstructure:"dsn"`
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

type LLMConfig struct {
	BaseURL      string `json:"base_url" mapstructure:"base_url"`
	APIKey       string `json:"api_key,omitempty" mapstructure:"api_key"`
	Model        string `json:"model" mapstructure:"model"`
	SystemPrompt string `json:"system_prompt" mapstructure:"system_prompt"`
}

// Gateway converts the section into the gateway's own config value.
func (c LLMConfig) Gateway() llm.Config {
	return llm.Config{
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
	}
}

type SessionConfig struct {
	Secret     string        `json:"secret,omitempty" mapstructure:"secret"`
	CookieName string        `json:"cookie_name" mapstructure:"cookie_name"`
	TTL        time.Duration `json:"ttl" mapstructure:"ttl"`
	Secure     bool          `json:"secure" mapstructure:"secure"`
}

type AuthConfig struct {
	BcryptCost int `json:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// UploadsConfig controls where reports are staged. MaxBytes bounds a chat
// request body and a single websocket frame alike.
type UploadsConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	MaxBytes int    `json:"max_bytes" mapstructure:"max_bytes"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultMaxUploadBytes is the default request and frame size limit.
const DefaultMaxUploadBytes = 20 * 1024 * 1024

// DefaultSessionSecret is only meant for local development.
const DefaultSessionSecret = "cozil_secret_key_change_this"

var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrMissingSecret = errors.New("session secret must not be empty")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.static_dir", "./public")
	v.SetDefault("server.cors_origins", "http://localhost:3000")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cozil")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "cozil")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("llm.base_url", llm.DefaultBaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", llm.DefaultModel)
	v.SetDefault("llm.system_prompt", llm.DefaultSystemPrompt)

	v.SetDefault("session.secret", DefaultSessionSecret)
	v.SetDefault("session.cookie_name", "cozil_session")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.secure", false)

	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("uploads.dir", "./uploads")
	v.SetDefault("uploads.max_bytes", DefaultMaxUploadBytes)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. An empty path searches the usual locations for
// config.json; a missing file is not an error and leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COZIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".cozil"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvOverrides honours the plain variable names used by existing
// deployments, on top of the COZIL_* ones viper already resolved.
func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}

	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the sqlite driver")
	}
	if c.Session.Secret == "" {
		return ErrMissingSecret
	}
	return nil
}
