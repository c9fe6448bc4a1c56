package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Approval Approval `mapstructure:"approval"`
	Pushcut  Pushcut  `mapstructure:"pushcut"`
	Charts   Charts   `mapstructure:"charts"`
	Logger   Logger   `mapstructure:"logger"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
	// BaseURL is the public address of this service, used to build the
	// callback and chart links embedded in notifications.
	BaseURL string `mapstructure:"base_url"`
}

// Approval holds the lifecycle timing configuration.
type Approval struct {
	// Timeout is how long a trade waits for a decision before it is
	// considered timed out.
	Timeout time.Duration `mapstructure:"timeout"`
	// Retention is how long a trade record and its chart artifact are kept
	// after creation, regardless of the decision.
	Retention time.Duration `mapstructure:"retention"`
	// SweepInterval is how often the eviction sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Pushcut holds the configuration for the notification service.
type Pushcut struct {
	URL            string  `mapstructure:"url"`
	APIKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Charts holds the configuration for chart artifact storage.
type Charts struct {
	Dir string `mapstructure:"dir"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("approval.timeout", "5m")
	viper.SetDefault("approval.retention", "1h")
	viper.SetDefault("approval.sweep_interval", "30m")
	viper.SetDefault("pushcut.rate_limit", 5) // requests per second
	viper.SetDefault("pushcut.rate_limit_burst", 2)
	viper.SetDefault("charts.dir", "charts")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
