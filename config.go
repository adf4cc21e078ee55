package ripple

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/Tap30/ripple-events-go/adapters"
)

// Storage backends selectable from Settings.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageNone   = "none"
)

// Settings is the file and environment form of ClientConfig.
type Settings struct {
	APIKey        string        `yaml:"apiKey"        env:"RIPPLE_API_KEY"`
	Endpoint      string        `yaml:"endpoint"      env:"RIPPLE_ENDPOINT"`
	APIKeyHeader  string        `yaml:"apiKeyHeader"  env:"RIPPLE_API_KEY_HEADER"`
	FlushInterval time.Duration `yaml:"flushInterval" env:"RIPPLE_FLUSH_INTERVAL"`
	MaxBatchSize  int           `yaml:"maxBatchSize"  env:"RIPPLE_MAX_BATCH_SIZE"`
	MaxRetries    int           `yaml:"maxRetries"    env:"RIPPLE_MAX_RETRIES"`
	HTTPTimeout   time.Duration `yaml:"httpTimeout"   env:"RIPPLE_HTTP_TIMEOUT"`
	LogLevel      string        `yaml:"logLevel"      env:"RIPPLE_LOG_LEVEL"`

	Storage     string `yaml:"storage"     env:"RIPPLE_STORAGE"`
	StoragePath string `yaml:"storagePath" env:"RIPPLE_STORAGE_PATH"`
	MaxStored   int    `yaml:"maxStored"   env:"RIPPLE_MAX_STORED"`
	RedisURL    string `yaml:"redisURL"    env:"RIPPLE_REDIS_URL"`
	RedisKey    string `yaml:"redisKey"    env:"RIPPLE_REDIS_KEY"`
}

// LoadSettings reads the YAML file at path, if any, and overlays RIPPLE_*
// environment variables. An empty path reads the environment only.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &s); err != nil {
				return Settings{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// ClientConfig builds a ClientConfig with the adapters the settings select.
func (s Settings) ClientConfig() (ClientConfig, error) {
	cfg := ClientConfig{
		APIKey:        s.APIKey,
		Endpoint:      s.Endpoint,
		FlushInterval: s.FlushInterval,
		MaxBatchSize:  s.MaxBatchSize,
		MaxRetries:    s.MaxRetries,
	}
	if s.APIKeyHeader != "" {
		header := s.APIKeyHeader
		cfg.APIKeyHeader = &header
	}

	if s.HTTPTimeout > 0 {
		cfg.HTTPAdapter = adapters.NewNetHTTPAdapterWithTimeout(s.HTTPTimeout)
	} else {
		cfg.HTTPAdapter = adapters.NewNetHTTPAdapter()
	}

	if s.LogLevel != "" {
		level, err := adapters.ParseLogLevel(s.LogLevel)
		if err != nil {
			return ClientConfig{}, err
		}
		cfg.LoggerAdapter = adapters.NewPrintLoggerAdapter(level)
	}

	// Storage opens last so no earlier error leaves a handle behind.
	storage, err := s.storageAdapter()
	if err != nil {
		return ClientConfig{}, err
	}
	cfg.StorageAdapter = storage
	return cfg, nil
}

func (s Settings) storageAdapter() (StorageAdapter, error) {
	path := s.StoragePath
	switch s.Storage {
	case "", StorageFile:
		if path == "" {
			path = "ripple_events.json"
		}
		return adapters.NewFileStorageAdapter(path), nil
	case StorageSQLite:
		if path == "" {
			path = "ripple_events.db"
		}
		storage, err := adapters.NewSQLiteStorageAdapter(path, s.MaxStored)
		if err != nil {
			return nil, err
		}
		return storage, nil
	case StorageRedis:
		if s.RedisURL == "" {
			return nil, errors.New("redisURL is required for redis storage")
		}
		key := s.RedisKey
		if key == "" {
			key = "ripple:events"
		}
		return adapters.NewRedisStorageAdapterFromURL(s.RedisURL, key), nil
	case StorageNone:
		return adapters.NewNoOpStorageAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", s.Storage)
	}
}

// NewClientFromFile loads settings from path and the environment and creates a client.
// The client owns the storage it opens and closes it on Dispose or Close.
func NewClientFromFile(path string) (*Client, error) {
	settings, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	cfg, err := settings.ClientConfig()
	if err != nil {
		return nil, err
	}
	closer, _ := cfg.StorageAdapter.(io.Closer)

	client, err := NewClient(cfg)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	client.ownedStorage = closer
	return client, nil
}
