// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Data     DataConfig     `mapstructure:"data"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Database DatabaseConfig `mapstructure:"database"`
	Registry RegistryConfig `mapstructure:"registry"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DataConfig selects where customers and transactions are loaded from.
type DataConfig struct {
	Source           string `mapstructure:"source"` // "file" or "postgres"
	CustomersFile    string `mapstructure:"customers_file"`
	TransactionsFile string `mapstructure:"transactions_file"`
}

type MemoryConfig struct {
	Dir               string `mapstructure:"dir"`
	LongTermFile      string `mapstructure:"long_term_file"`
	ShortTermCapacity int    `mapstructure:"short_term_capacity"`
	RetentionDays     int    `mapstructure:"retention_days"`
	PruneInterval     int    `mapstructure:"prune_interval"` // milliseconds, 0 disables
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

// RedisConfig configures the optional mirror of recent analysis results.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // milliseconds
}

// RegistryConfig holds supervisor registration and heartbeat settings.
type RegistryConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	SupervisorURL     string `mapstructure:"supervisor_url"`
	MetadataPath      string `mapstructure:"metadata_path"`
	AgentID           string `mapstructure:"agent_id"`
	PublicURL         string `mapstructure:"public_url"`
	HeartbeatInterval int    `mapstructure:"heartbeat_interval"` // milliseconds
	Timeout           int    `mapstructure:"timeout"`            // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
