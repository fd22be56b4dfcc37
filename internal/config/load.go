package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// PFORGE_SERVER_PORT or PFORGE_RANKING_LEARNER_ENABLED.
const EnvPrefix = "PFORGE"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches for
// config.yaml in the working directory and ./config.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the ranking invariants that tags cannot
// express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Ranking.Learner.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	learner := cfg.Ranking.Learner
	if err := cfg.Ranking.Weights.Validate(learner.MinWeight, learner.MaxWeight); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.url", "priorityforge.db")
	v.SetDefault("database.auto_migrate", true)

	w := ranking.DefaultWeights()
	v.SetDefault("ranking.weights.blocking", w.Blocking)
	v.SetDefault("ranking.weights.cross_project", w.CrossProject)
	v.SetDefault("ranking.weights.time_sensitivity", w.TimeSensitivity)
	v.SetDefault("ranking.weights.effort_value", w.EffortValue)
	v.SetDefault("ranking.weights.dependency_depth", w.DependencyDepth)

	l := ranking.DefaultLearnerConfig()
	v.SetDefault("ranking.learner.enabled", l.Enabled)
	v.SetDefault("ranking.learner.learning_rate", l.LearningRate)
	v.SetDefault("ranking.learner.momentum", l.Momentum)
	v.SetDefault("ranking.learner.max_weight_change", l.MaxWeightChange)
	v.SetDefault("ranking.learner.min_weight", l.MinWeight)
	v.SetDefault("ranking.learner.max_weight", l.MaxWeight)

	v.SetDefault("ranking.rebalance_threshold", ranking.DefaultRebalanceThreshold)
	v.SetDefault("ranking.rebalance_history", ranking.DefaultRebalanceHistory)
	v.SetDefault("ranking.refresh_interval_seconds", 300)

	v.SetDefault("mcp.name", "priority-forge")
	v.SetDefault("mcp.version", "1.0.0")

	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.queue_size", 100)
}
