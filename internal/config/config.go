package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Store    StoreConfig    `json:"store"`
	Objects  ObjectsConfig  `json:"objects"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
	Worker   WorkerConfig   `json:"worker"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// StoreConfig points at the document store backing the ledger.
type StoreConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// ObjectsConfig points at the object store holding evidence files. When the
// key pair is empty the ambient AWS credential chain is used instead.
type ObjectsConfig struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	BaseURL   string `json:"base_url"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// WorkerConfig tunes the dispute review sweep.
type WorkerConfig struct {
	Schedule       string        `json:"schedule"`
	StaleOpenAfter time.Duration `json:"stale_open_after"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Store: StoreConfig{
			URI:      "mongodb://localhost:27017",
			Database: "escrow_portal",
		},
		Objects: ObjectsConfig{
			Bucket: "escrow-portal-evidence",
			Region: "us-east-1",
		},
		Worker: WorkerConfig{
			Schedule:       "@hourly",
			StaleOpenAfter: 72 * time.Hour,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if uri := os.Getenv("STORE_URI"); uri != "" {
		config.Store.URI = uri
	}
	if db := os.Getenv("STORE_DATABASE"); db != "" {
		config.Store.Database = db
	}
	if bucket := os.Getenv("OBJECTS_BUCKET"); bucket != "" {
		config.Objects.Bucket = bucket
	}
	if region := os.Getenv("OBJECTS_REGION"); region != "" {
		config.Objects.Region = region
	}
	if base := os.Getenv("OBJECTS_BASE_URL"); base != "" {
		config.Objects.BaseURL = base
	}
	if key := os.Getenv("OBJECTS_ACCESS_KEY"); key != "" {
		config.Objects.AccessKey = key
	}
	if secret := os.Getenv("OBJECTS_SECRET_KEY"); secret != "" {
		config.Objects.SecretKey = secret
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
