// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	MetricsPort  int `mapstructure:"metrics_port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IntegrationConfig holds settings for outbound delivery channels.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// NotificationConfig holds settings for the notification store and
// dispatcher.
type NotificationConfig struct {
	// MaxStored is the per-user retention ceiling; the oldest records
	// beyond it are dropped silently on insert.
	MaxStored int `mapstructure:"max_stored"`
	// DefaultLimit is the page size for list reads when the caller
	// does not supply one.
	DefaultLimit int `mapstructure:"default_limit"`
	// CleanupDays is the default age cutoff for the cleanup routine.
	CleanupDays int `mapstructure:"cleanup_days"`
	// KeyPrefix namespaces the per-user keys in the backing store.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
