// pkg/config/database.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// SnowflakeConfig holds Snowflake connection parameters, used when the raw layer lives in Snowflake
type SnowflakeConfig struct {
	User          string `yaml:"user" split_words:"true" validate:"required"`
	Password      string `yaml:"password" split_words:"true" validate:"required"`
	Account       string `yaml:"account" split_words:"true" validate:"required"`
	Warehouse     string `yaml:"warehouse" split_words:"true" validate:"required"`
	Database      string `yaml:"database" split_words:"true" default:"FINBANK" validate:"required"`
	Role          string `yaml:"role" split_words:"true"`
	Authenticator string `yaml:"authenticator" split_words:"true" default:"snowflake"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true" default:"4"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true" default:"2"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true" default:"10m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" split_words:"true" default:"5m"`

	// Query timeout
	QueryTimeout time.Duration `yaml:"query_timeout" split_words:"true" default:"5m"`
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string `yaml:"host" split_words:"true" default:"localhost" validate:"required"`
	Port     int    `yaml:"port" split_words:"true" default:"5432" validate:"gt=0,lte=65535"`
	User     string `yaml:"user" split_words:"true" validate:"required"`
	Password string `yaml:"password" split_words:"true" validate:"required"`
	Database string `yaml:"database" envconfig:"DB" validate:"required"`
	SSLMode  string `yaml:"sslmode" envconfig:"SSLMODE" default:"disable"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true" default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true" default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" split_words:"true" default:"10m"`

	// Statement timeout
	StatementTimeout time.Duration `yaml:"statement_timeout" split_words:"true" default:"5m"`
}

// AuthType converts the configured authenticator name to the driver's type
func (c *SnowflakeConfig) AuthType() gosnowflake.AuthType {
	switch strings.ToLower(c.Authenticator) {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// ConnectionString returns a formatted PostgreSQL connection string.
// The statement timeout travels as a runtime parameter so every pooled connection gets it.
func (c *PostgresConfig) ConnectionString() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)

	if c.StatementTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", c.StatementTimeout.Milliseconds())
	}

	return dsn
}
