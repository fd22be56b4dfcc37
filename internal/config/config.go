package config

import "github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Ranking  RankingConfig  `mapstructure:"ranking" validate:"required"`
	MCP      MCPConfig      `mapstructure:"mcp" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds graceful HTTP shutdown.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	// URL is a postgres connection URL or a sqlite file path / DSN.
	URL string `mapstructure:"url" validate:"required"`
	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// RankingConfig holds the starting state of the ranking engine. Weights and
// learner settings persisted in the database take precedence.
type RankingConfig struct {
	Weights            ranking.HeuristicWeights `mapstructure:"weights"`
	Learner            ranking.LearnerConfig    `mapstructure:"learner"`
	RebalanceThreshold int                      `mapstructure:"rebalance_threshold" validate:"gt=0"`
	RebalanceHistory   int                      `mapstructure:"rebalance_history" validate:"gt=0"`
	// RefreshIntervalSeconds is how often the server re-derives factors so
	// deadline buckets move with the clock. 0 disables the refresher.
	RefreshIntervalSeconds int `mapstructure:"refresh_interval_seconds" validate:"gte=0"`
}

// EngineConfig converts the ranking section into an engine configuration.
func (c RankingConfig) EngineConfig() ranking.EngineConfig {
	return ranking.EngineConfig{
		Weights:            c.Weights,
		Learner:            c.Learner,
		RebalanceThreshold: c.RebalanceThreshold,
		RebalanceHistory:   c.RebalanceHistory,
	}
}

// MCPConfig names the MCP server advertised to clients.
type MCPConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Version string `mapstructure:"version" validate:"required"`
}

// WorkerConfig sizes the background job pool.
type WorkerConfig struct {
	Count     int `mapstructure:"count" validate:"gt=0,lte=64"`
	QueueSize int `mapstructure:"queue_size" validate:"gt=0"`
}
