package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Flickr   FlickrConfig   `yaml:"flickr"`
	Storage  StorageConfig  `yaml:"storage"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Sync     SyncConfig     `yaml:"sync"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the address of the redis instance used for pending OAuth handshakes
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FlickrConfig holds the Flickr API credentials and endpoints
type FlickrConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Perms     string `yaml:"perms"`
	URLBase   string `yaml:"url_base"`

	RESTEndpoint    string `yaml:"rest_endpoint"`
	RequestTokenURL string `yaml:"request_token_url"`
	AuthorizeURL    string `yaml:"authorize_url"`
	AccessTokenURL  string `yaml:"access_token_url"`
}

// StorageConfig holds configuration for downloaded photo binaries
type StorageConfig struct {
	Backend   string `yaml:"backend"` // "s3" or "minio"
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	DirBase   string `yaml:"dirbase"`
	DirFormat string `yaml:"dirformat"` // strftime layout applied to the photo's posted date
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// SyncConfig holds settings for the sync and download commands
type SyncConfig struct {
	LockFile string `yaml:"lock_file"`
	PerPage  int    `yaml:"per_page"`
}

// Default returns the configuration used when a value is not set in the file
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "flickr",
			SSLMode: "disable",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Flickr: FlickrConfig{
			Perms:           "read",
			URLBase:         "http://flickr.com/",
			RESTEndpoint:    "https://api.flickr.com/services/rest",
			RequestTokenURL: "https://www.flickr.com/services/oauth/request_token",
			AuthorizeURL:    "https://www.flickr.com/services/oauth/authorize",
			AccessTokenURL:  "https://www.flickr.com/services/oauth/access_token",
		},
		Storage: StorageConfig{
			Backend:   "s3",
			Region:    "us-east-1",
			UseSSL:    true,
			DirBase:   "flickr",
			DirFormat: "%Y/%Y-%m",
		},
		Log:  LogConfig{Level: "info"},
		Sync: SyncConfig{LockFile: "/tmp/flickr-mirror.lock", PerPage: 500},
	}
}

// Load reads configuration from a YAML file on top of Default, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env files are optional
	_ = godotenv.Load(".env", ".env.local")
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Flickr.APIKey, "FLICKR_API_KEY")
	setString(&c.Flickr.APISecret, "FLICKR_API_SECRET")
	setString(&c.Flickr.Perms, "FLICKR_PERMS")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.Flickr.APIKey == "" || c.Flickr.APISecret == "" {
		return fmt.Errorf("flickr api_key and api_secret are required")
	}
	switch c.Storage.Backend {
	case "s3", "minio":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
