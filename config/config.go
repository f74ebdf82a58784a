package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Env      string `mapstructure:"ENV"`
	Timezone string `mapstructure:"TIMEZONE"`

	TelegramToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	// Scheduling provider API.
	CalendlyBaseURL string `mapstructure:"CALENDLY_BASE_URL"`
	CalendlyToken   string `mapstructure:"CALENDLY_API_TOKEN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Availability refresh interval for an active booking session, in seconds.
	PollIntervalSeconds int `mapstructure:"POLL_INTERVAL_SECONDS"`
}

// PollInterval returns the refresh interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// IsProduction reports whether the bot runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from an optional config.yaml and the environment.
// Environment variables win over file values.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("ENV", "development")
	viper.SetDefault("TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("CALENDLY_API_TOKEN", "")
	viper.SetDefault("CALENDLY_BASE_URL", "https://api.calendly.com")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("POLL_INTERVAL_SECONDS", 5)

	// A missing config file is fine; environment variables are enough.
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
