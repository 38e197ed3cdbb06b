// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/finbank-cleanse/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreatePostgresConnector creates a new PostgreSQL connector
func (f *ConnectorFactory) CreatePostgresConnector(ctx context.Context) (*PostgresConnector, error) {
	f.logger.Info("Creating PostgreSQL connector")

	connector, err := NewPostgresConnector(ctx, f.cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
	}

	return connector, nil
}

// CreateSnowflakeConnector creates a new Snowflake connector
func (f *ConnectorFactory) CreateSnowflakeConnector(ctx context.Context) (*SnowflakeConnector, error) {
	f.logger.Info("Creating Snowflake connector")

	connector, err := NewSnowflakeConnector(ctx, f.cfg.Snowflake)
	if err != nil {
		return nil, fmt.Errorf("failed to create Snowflake connector: %w", err)
	}

	return connector, nil
}

// CreateAllConnectors creates the cleansed-layer connector and the raw-layer connector.
// When the raw layer lives in the same PostgreSQL database, both are the same connector.
func (f *ConnectorFactory) CreateAllConnectors(ctx context.Context) (cleansed, raw DatabaseConnector, err error) {
	pgConn, err := f.CreatePostgresConnector(ctx)
	if err != nil {
		return nil, nil, err
	}

	if f.cfg.RawSource != config.RawSourceSnowflake {
		if err := pgConn.Validate(ctx, f.cfg.RawSchema, f.cfg.CleansedSchema); err != nil {
			pgConn.Close()
			return nil, nil, err
		}
		return pgConn, pgConn, nil
	}

	if err := pgConn.Validate(ctx, f.cfg.CleansedSchema); err != nil {
		pgConn.Close()
		return nil, nil, err
	}

	snowConn, err := f.CreateSnowflakeConnector(ctx)
	if err != nil {
		pgConn.Close() // Clean up the PostgreSQL connection if Snowflake fails
		return nil, nil, err
	}

	if err := snowConn.Validate(ctx, f.cfg.RawSchema); err != nil {
		snowConn.Close()
		pgConn.Close()
		return nil, nil, err
	}

	return pgConn, snowConn, nil
}
