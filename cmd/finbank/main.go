package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/finbank-cleanse/pkg/config"
	"github.com/David-Botos/finbank-cleanse/pkg/connector"
	"github.com/David-Botos/finbank-cleanse/pkg/logging"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitViolations = 3
)

// exitError carries the process exit code of a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// app holds what every subcommand needs once the root command has run
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	cleansed   connector.DatabaseConnector
	raw        connector.DatabaseConnector
	jsonOutput bool
}

// connect opens the cleansed and raw connectors
func (a *app) connect(ctx context.Context) error {
	factory := connector.NewConnectorFactory(a.cfg, a.logger)
	cleansed, raw, err := factory.CreateAllConnectors(ctx)
	if err != nil {
		return err
	}
	a.cleansed, a.raw = cleansed, raw
	return nil
}

// close releases the connectors, closing a shared connector once
func (a *app) close() {
	if a.raw != nil && a.raw != a.cleansed {
		if err := a.raw.Close(); err != nil {
			a.logger.Warn("Failed to close raw connector", zap.Error(err))
		}
	}
	if a.cleansed != nil {
		if err := a.cleansed.Close(); err != nil {
			a.logger.Warn("Failed to close cleansed connector", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "finbank",
		Short:         "Cleanse the banking raw layer into the cleansed layer and verify data quality",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("failed to load configuration: %w", err))
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return withCode(exitUsage, err)
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", true, "Print reports as JSON (text summary otherwise)")

	cmd.AddCommand(newLoadCmd(a))
	cmd.AddCommand(newVerifyCmd(a))
	return cmd
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(os.Stderr, "error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}
