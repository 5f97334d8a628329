// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

const defaultAuthSecret = "dev-identity-secret-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBReadHost                    string `mapstructure:"DB_READ_HOST"`
	DBReadPort                    string `mapstructure:"DB_READ_PORT"`
	DBReadUser                    string `mapstructure:"DB_READ_USER"`
	DBReadPassword                string `mapstructure:"DB_READ_PASSWORD"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	AuthIssuer    string `mapstructure:"AUTH_ISSUER"`
	AuthAudience  string `mapstructure:"AUTH_AUDIENCE"`

	MediaBackend       string `mapstructure:"MEDIA_BACKEND"`
	MediaUploadDir     string `mapstructure:"MEDIA_UPLOAD_DIR"`
	MediaPublicBaseURL string `mapstructure:"MEDIA_PUBLIC_BASE_URL"`
	MediaMaxUploadMB   int    `mapstructure:"MEDIA_MAX_UPLOAD_MB"`

	OSSEndpoint        string `mapstructure:"OSS_ENDPOINT"`
	OSSRegion          string `mapstructure:"OSS_REGION"`
	OSSBucket          string `mapstructure:"OSS_BUCKET"`
	OSSAccessKeyID     string `mapstructure:"OSS_ACCESS_KEY_ID"`
	OSSAccessKeySecret string `mapstructure:"OSS_ACCESS_KEY_SECRET"`
	OSSPublicBaseURL   string `mapstructure:"OSS_PUBLIC_BASE_URL"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`

	FeatureFlags string `mapstructure:"FEATURE_FLAGS"`

	// SeedOnStart fills an empty database with demo data at boot. Ignored in production.
	SeedOnStart bool `mapstructure:"SEED_ON_START"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; environment variables alone are enough.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "socially")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("AUTH_JWT_SECRET", defaultAuthSecret)
	viper.SetDefault("AUTH_ISSUER", "")
	viper.SetDefault("AUTH_AUDIENCE", "")

	viper.SetDefault("MEDIA_BACKEND", "local")
	viper.SetDefault("MEDIA_UPLOAD_DIR", "/tmp/socially/media")
	viper.SetDefault("MEDIA_PUBLIC_BASE_URL", "")
	viper.SetDefault("MEDIA_MAX_UPLOAD_MB", 10)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	viper.SetDefault("FEATURE_FLAGS", "realtime=on")
	viper.SetDefault("SEED_ON_START", false)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.MediaBackend = strings.ToLower(strings.TrimSpace(c.MediaBackend))
	c.MediaPublicBaseURL = strings.TrimRight(c.MediaPublicBaseURL, "/")
	c.OSSPublicBaseURL = strings.TrimRight(c.OSSPublicBaseURL, "/")
}

// IsProduction reports whether strict production checks apply.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.AuthJWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if c.MediaMaxUploadMB <= 0 {
		return errors.New("MEDIA_MAX_UPLOAD_MB must be positive")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}

	switch c.MediaBackend {
	case "", "local":
	case "oss":
		if c.OSSEndpoint == "" || c.OSSRegion == "" || c.OSSBucket == "" {
			return errors.New("OSS_ENDPOINT, OSS_REGION and OSS_BUCKET are required when MEDIA_BACKEND=oss")
		}
		if c.OSSAccessKeyID == "" || c.OSSAccessKeySecret == "" {
			return errors.New("OSS credentials are required when MEDIA_BACKEND=oss")
		}
	default:
		return fmt.Errorf("unsupported MEDIA_BACKEND %q", c.MediaBackend)
	}

	if c.IsProduction() {
		if c.AuthJWTSecret == defaultAuthSecret {
			return errors.New("AUTH_JWT_SECRET must be changed from the default value in production")
		}
		if len(c.AuthJWTSecret) < 32 {
			return errors.New("AUTH_JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.AuthJWTSecret) < 32 {
		log.Println("WARNING: AUTH_JWT_SECRET is shorter than 32 characters. Use a stronger secret for production.")
	}

	return nil
}

// MediaMaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MediaMaxUploadBytes() int64 {
	return int64(c.MediaMaxUploadMB) * 1024 * 1024
}
