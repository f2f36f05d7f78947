// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	YouTube  YouTubeConfig
	Auth     AuthConfig
	Session  SessionConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	APIKeys         []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RabbitMQConfig contains the optional session-event publisher
// configuration. With Enabled false the session runs with a no-op
// publisher.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// YouTubeConfig contains remote listing configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type YouTubeConfig struct {
	PageSize        int64
	RequestTimeout  time.Duration
	LikesPlaylistID string
	QuotaDailyLimit int
	QuotaWarnPct    int
}

// AuthConfig contains the authorization-provider configuration.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	RevokeURL    string
}

// SessionConfig contains session-core tuning.
type SessionConfig struct {
	SearchDebounce    time.Duration
	TokenExpiryMargin time.Duration
	InitTimeout       time.Duration
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.apikeys", []string{})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "ratedhistory")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "rated.history")
	viper.SetDefault("rabbitmq.queue", "rated.history.events")
	viper.SetDefault("rabbitmq.routingkey", "session.event")

	// YouTube
	viper.SetDefault("youtube.pagesize", 50)
	viper.SetDefault("youtube.requesttimeout", 10*time.Second)
	viper.SetDefault("youtube.likesplaylistid", "LL")
	viper.SetDefault("youtube.quotadailylimit", 10000)
	viper.SetDefault("youtube.quotawarnpct", 90)

	// Auth
	viper.SetDefault("auth.clientid", "")
	viper.SetDefault("auth.clientsecret", "")
	viper.SetDefault("auth.scope", "https://www.googleapis.com/auth/youtube.readonly")
	viper.SetDefault("auth.revokeurl", "https://oauth2.googleapis.com/revoke")

	// Session
	viper.SetDefault("session.searchdebounce", 300*time.Millisecond)
	viper.SetDefault("session.tokenexpirymargin", 5*time.Minute)
	viper.SetDefault("session.inittimeout", 10*time.Second)
}
