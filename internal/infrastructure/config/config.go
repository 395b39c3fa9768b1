package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

type Config struct {
	Server        ServerConfig
	OTLP          OTLPConfig
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	Mongo         MongoConfig
	Redis         RedisConfig
	Catalog       CatalogConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	BasePath        string        `envconfig:"SERVER_BASE_PATH" default:"/api/v1"`
	MaxBodyBytes    int64         `envconfig:"SERVER_MAX_BODY_BYTES" default:"1048576"`
	AuthRequired    bool          `envconfig:"SERVER_AUTH_REQUIRED" default:"false"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

type OTLPConfig struct {
	Enabled     bool   `envconfig:"OTLP_ENABLED" default:"true"`
	Endpoint    string `envconfig:"OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName string `envconfig:"OTLP_SERVICE_NAME" default:"product-catalog-api"`
	Environment string `envconfig:"OTLP_ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"OTLP_LOG_LEVEL" default:"info"`
}

type MongoConfig struct {
	URI                    string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database               string        `envconfig:"MONGO_DATABASE" default:"catalog"`
	ConnectTimeout         time.Duration `envconfig:"MONGO_CONNECT_TIMEOUT" default:"10s"`
	ServerSelectionTimeout time.Duration `envconfig:"MONGO_SERVER_SELECTION_TIMEOUT" default:"5s"`
	MaxPoolSize            uint64        `envconfig:"MONGO_MAX_POOL_SIZE" default:"100"`
	MinPoolSize            uint64        `envconfig:"MONGO_MIN_POOL_SIZE" default:"0"`
}

type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_TTL" default:"10m"`
}

type CatalogConfig struct {
	UniqueProductID            bool `envconfig:"CATALOG_UNIQUE_PRODUCT_ID" default:"true"`
	ConcurrentMappingThreshold int  `envconfig:"CATALOG_CONCURRENT_MAPPING_THRESHOLD" default:"256"`
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case StorageMemory, StorageMongo:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}

	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("SERVER_BASE_PATH must start with '/', got %q", c.Server.BasePath)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/"
	}

	if _, err := c.OTLP.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel into a slog level
func (c OTLPConfig) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid OTLP_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
