package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	SMTP       SMTPConfig
	Scheduling SchedulingConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// SchedulingConfig carries the clinic's booking policy.
type SchedulingConfig struct {
	// CancellationPolicyHours is the free-cancellation window; cancelling at
	// least this many hours ahead carries no fee.
	CancellationPolicyHours int     `mapstructure:"cancellation_policy_hours"`
	LateCancellationFee     float64 `mapstructure:"late_cancellation_fee"`
	DefaultDurationMinutes  int     `mapstructure:"default_duration_minutes"`
	SlotGranularityMinutes  int     `mapstructure:"slot_granularity_minutes"`
}

type WorkerConfig struct {
	SweepSchedule      string        `mapstructure:"sweep_schedule"`
	OutboxBatchSize    int           `mapstructure:"outbox_batch_size"`
	OutboxPollInterval time.Duration `mapstructure:"outbox_poll_interval"`
	OutboxRetries      int           `mapstructure:"outbox_retries"`
	OutboxRetryDelay   time.Duration `mapstructure:"outbox_retry_delay"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("scheduling.cancellation_policy_hours", 24)
	viper.SetDefault("scheduling.late_cancellation_fee", 50)
	viper.SetDefault("scheduling.default_duration_minutes", 30)
	viper.SetDefault("scheduling.slot_granularity_minutes", 30)
	viper.SetDefault("worker.sweep_schedule", "*/5 * * * *")
	viper.SetDefault("worker.outbox_batch_size", 100)
	viper.SetDefault("worker.outbox_poll_interval", 5*time.Second)
	viper.SetDefault("worker.outbox_retries", 3)
	viper.SetDefault("worker.outbox_retry_delay", time.Second)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
