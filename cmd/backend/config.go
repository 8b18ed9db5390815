package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/repair-desk/database"
	"github.com/hairizuan-noorazman/repair-desk/notify"
	"github.com/hairizuan-noorazman/repair-desk/shop"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Auth     AuthConfig
	Shop     shop.Profile
	Notify   NotifyConfig
	SMTP     SMTPConfig
	Storage  StorageConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver       string // "mysql" or "sqlite"
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	Path         string // For sqlite: database file
	MaxOpenConns int
	MaxIdleConns int
}

// SessionConfig holds session management configuration.
type SessionConfig struct {
	CookieName      string
	CookieSecret    string
	Duration        time.Duration
	Secure          bool
	CleanupInterval time.Duration
}

// AuthConfig holds the optional shop access code.
type AuthConfig struct {
	AccessCodeHash string // bcrypt hash; empty disables the check
}

// NotifyConfig holds the notification endpoint the dispatcher posts to.
// An empty EndpointURL delivers through the in-process SMTP mailer.
type NotifyConfig struct {
	EndpointURL string
	Timeout     time.Duration
	APIKey      string // sent as X-Notify-Key and required by /api/send-email
}

// SMTPConfig holds the credentials used by /api/send-email.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
}

// StorageConfig holds archive storage configuration.
type StorageConfig struct {
	Type     string // "local" or "s3"
	BaseDir  string // For local: "./archive"
	S3Bucket string // For S3: bucket name
	S3Region string // For S3: AWS region
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "repair_desk")
	v.SetDefault("database.path", "./repair-desk.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("session.cookie_name", "repair_desk_session")
	v.SetDefault("session.cookie_secret", "change-this-secret-in-production-min-32-chars")
	v.SetDefault("session.duration", "12h")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.cleanup_interval", "5m")

	v.SetDefault("auth.access_code_hash", "")

	defaults := shop.DefaultProfile()
	v.SetDefault("shop.name", defaults.Name)
	v.SetDefault("shop.motto", defaults.Motto)
	v.SetDefault("shop.phones", defaults.Phones)
	v.SetDefault("shop.currency", defaults.Currency)
	v.SetDefault("shop.job_prefix", defaults.JobPrefix)

	v.SetDefault("notify.endpoint_url", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.api_key", "")

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from_name", defaults.Name)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./archive")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	// Parse configuration
	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	config.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")

	config.Database.Driver = v.GetString("database.driver")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.Path = v.GetString("database.path")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Session.CookieName = v.GetString("session.cookie_name")
	config.Session.CookieSecret = v.GetString("session.cookie_secret")
	config.Session.Duration = v.GetDuration("session.duration")
	config.Session.Secure = v.GetBool("session.secure")
	config.Session.CleanupInterval = v.GetDuration("session.cleanup_interval")

	config.Auth.AccessCodeHash = v.GetString("auth.access_code_hash")

	config.Shop.Name = v.GetString("shop.name")
	config.Shop.Motto = v.GetString("shop.motto")
	config.Shop.Phones = v.GetStringSlice("shop.phones")
	config.Shop.Currency = v.GetString("shop.currency")
	config.Shop.JobPrefix = v.GetString("shop.job_prefix")

	config.Notify.EndpointURL = v.GetString("notify.endpoint_url")
	config.Notify.Timeout = v.GetDuration("notify.timeout")
	config.Notify.APIKey = v.GetString("notify.api_key")

	config.SMTP.Host = v.GetString("smtp.host")
	config.SMTP.Port = v.GetInt("smtp.port")
	config.SMTP.User = v.GetString("smtp.user")
	config.SMTP.Password = v.GetString("smtp.password")
	config.SMTP.FromName = v.GetString("smtp.from_name")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")

	config.Log.Level = v.GetString("log.level")
	config.Log.Format = v.GetString("log.format")

	if len(config.Session.CookieSecret) < 32 {
		return nil, fmt.Errorf("session.cookie_secret must be at least 32 characters")
	}

	return &config, nil
}

func (c *Config) smtpConfig() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		User:     c.SMTP.User,
		Password: c.SMTP.Password,
		FromName: c.SMTP.FromName,
	}
}

func (c *Config) databaseConfig() database.Config {
	return database.Config{
		Driver:       c.Database.Driver,
		Host:         c.Database.Host,
		Port:         c.Database.Port,
		User:         c.Database.User,
		Password:     c.Database.Password,
		Database:     c.Database.Database,
		Path:         c.Database.Path,
		MaxOpenConns: c.Database.MaxOpenConns,
		MaxIdleConns: c.Database.MaxIdleConns,
	}
}
