package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Logger   LoggerConfig   `yaml:"logger"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	UI       UIConfig       `yaml:"ui"`
}

type ServerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig selects where the session is persisted between runs.
type StorageConfig struct {
	Type  string             `yaml:"type"` // memory, file or redis
	Path  string             `yaml:"path"`
	Redis StorageRedisConfig `yaml:"redis"`
}

type StorageRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type RealtimeConfig struct {
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	PongTimeout          time.Duration `yaml:"pong_timeout"`
}

type LoggerConfig struct {
	Level      string `yaml:"level"`     // debug, info, warn, error
	Format     string `yaml:"format"`    // json, console
	Output     string `yaml:"output"`    // stdout, stderr, file
	FilePath   string `yaml:"file_path"` // used when output is file
	MaxSize    int    `yaml:"max_size"`  // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

type UIConfig struct {
	AlertDuration   time.Duration `yaml:"alert_duration"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

var envPattern = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Default returns the configuration used when no file is present.
func Default() *Config {
	var sessionPath string
	if dir, err := DataDir(); err == nil {
		sessionPath = filepath.Join(dir, "session.yaml")
	}
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Type: "file",
			Path: sessionPath,
			Redis: StorageRedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "timekeeper:session:",
			},
		},
		Realtime: RealtimeConfig{
			ReconnectInterval:    5 * time.Second,
			MaxReconnectAttempts: 5,
			PingInterval:         30 * time.Second,
			PongTimeout:          60 * time.Second,
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Metrics: MetricsConfig{
			Namespace: "timekeeper",
		},
		UI: UIConfig{
			AlertDuration:   5 * time.Second,
			RefreshInterval: 5 * time.Minute,
		},
	}
}

// Load reads the YAML file at path on top of Default. A missing file is not an
// error: the defaults are returned. ${VAR} and ${VAR:default} placeholders are
// expanded from the environment, after loading a .env file if one exists.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := yaml.Unmarshal(resolveEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not an absolute URL", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url scheme must be http or https, got %q", u.Scheme)
	}
	switch c.Storage.Type {
	case "memory", "redis":
	case "file":
		if c.Storage.Path == "" {
			if _, err := DataDir(); err != nil {
				return fmt.Errorf("storage.path is required for file storage: %w", err)
			}
			return errors.New("storage.path is required for file storage")
		}
	default:
		return fmt.Errorf("unsupported storage.type %q", c.Storage.Type)
	}
	if c.Realtime.ReconnectInterval <= 0 {
		return errors.New("realtime.reconnect_interval must be positive")
	}
	if c.Realtime.MaxReconnectAttempts <= 0 {
		return errors.New("realtime.max_reconnect_attempts must be positive")
	}
	return nil
}

// WebSocketURL converts the HTTP base URL into the ws:// or wss:// URL for
// path, keeping any path prefix the base URL carries.
func (c *Config) WebSocketURL(path string) string {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return ""
	}
	ws := url.URL{
		Scheme: "ws",
		User:   u.User,
		Host:   u.Host,
		Path:   strings.TrimSuffix(u.Path, "/") + path,
	}
	if u.Scheme == "https" {
		ws.Scheme = "wss"
	}
	return ws.String()
}

// DataDir is the per-user directory holding the session and log files.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".timekeeper"), nil
}

// resolveEnv replaces ${VAR} / ${VAR:default} placeholders.
func resolveEnv(content []byte) []byte {
	return envPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if value, ok := os.LookupEnv(string(parts[1])); ok {
			return []byte(value)
		}
		if len(parts) > 2 {
			return parts[2]
		}
		return nil
	})
}
