// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Raw sources the loader can read the raw layer from
const (
	RawSourcePostgres  = "postgres"
	RawSourceSnowflake = "snowflake"
)

// Config represents the application configuration
type Config struct {
	// Database connections
	Postgres  *PostgresConfig  `yaml:"postgres" envconfig:"POSTGRES"`
	Snowflake *SnowflakeConfig `yaml:"snowflake" envconfig:"SNOWFLAKE" validate:"-"`

	// Layers
	RawSource      string `yaml:"raw_source" envconfig:"RAW_SOURCE" default:"postgres" validate:"oneof=postgres snowflake"`
	RawSchema      string `yaml:"raw_schema" envconfig:"RAW_SCHEMA" default:"bronze" validate:"required"`
	CleansedSchema string `yaml:"cleansed_schema" envconfig:"CLEANSED_SCHEMA" default:"silver" validate:"required,nefield=RawSchema"`

	// Load settings
	ChunkSize         int           `yaml:"chunk_size" envconfig:"CHUNK_SIZE" default:"1000" validate:"gt=0"`
	RunTimeout        time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"30m" validate:"gt=0"`
	VerifyConcurrency int           `yaml:"verify_concurrency" envconfig:"VERIFY_CONCURRENCY" default:"3" validate:"gte=1"`
	LegacySSNPadding  bool          `yaml:"legacy_ssn_padding" envconfig:"CLEANSE_LEGACY_SSN_PADDING" default:"false"`

	// Observability
	PushgatewayURL string `yaml:"pushgateway_url" envconfig:"PUSHGATEWAY_URL" validate:"omitempty,url"`
	LogLevel       string `yaml:"log_level" envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat      string `yaml:"log_format" envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
}

// LoadConfig loads configuration from an optional .env file, environment variables and
// an optional YAML file named by CONFIG_FILE. Values from the YAML file win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFile overlays the YAML file at path onto the configuration
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Postgres == nil {
		return errors.New("postgreSQL configuration is required")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.RawSource == RawSourceSnowflake {
		if c.Snowflake == nil {
			return errors.New("snowflake configuration is required when RAW_SOURCE=snowflake")
		}
		if err := validate.Struct(c.Snowflake); err != nil {
			return fmt.Errorf("invalid snowflake configuration: %w", err)
		}
	}

	return nil
}
