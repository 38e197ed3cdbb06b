package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/finbank-cleanse/pkg/cleaner"
	"github.com/David-Botos/finbank-cleanse/pkg/loader"
	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

func newLoadCmd(a *app) *cobra.Command {
	var entityNames []string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Rebuild the cleansed layer from the raw layer in one transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := parseEntities(entityNames)
			if err != nil {
				return withCode(exitUsage, err)
			}

			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}
			defer a.close()

			return runLoad(ctx, a, entities, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&entityNames, "entity", nil, "Restrict the run to these entities (default: all)")
	return cmd
}

func runLoad(ctx context.Context, a *app, entities []model.Entity, out io.Writer) error {
	metrics := loader.NewMetrics()
	dc := cleaner.NewDataCleaner(cleaner.Options{LegacySSNPadding: a.cfg.LegacySSNPadding})

	l := loader.NewLoader(a.cleansed, a.raw, dc, loader.Options{
		RawSchema:      a.cfg.RawSchema,
		CleansedSchema: a.cfg.CleansedSchema,
		ChunkSize:      a.cfg.ChunkSize,
		Timeout:        a.cfg.RunTimeout,
	}, metrics, a.logger)
	if len(entities) > 0 {
		l.WithEntities(entities...)
	}

	report, runErr := l.Run(ctx)

	if a.cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := metrics.Push(pushCtx, a.cfg.PushgatewayURL); err != nil {
			a.logger.Warn("Failed to push metrics", zap.Error(err))
		}
		cancel()
	}

	if report != nil {
		if err := printLoadReport(out, report, a.jsonOutput); err != nil {
			return err
		}
	}
	return runErr
}

func printLoadReport(out io.Writer, report *loader.RunReport, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprint(out, report.Summary())
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return nil
}

// parseEntities resolves entity flag values, accepting singular and hyphenated names
func parseEntities(names []string) ([]model.Entity, error) {
	entities := make([]model.Entity, 0, len(names))
	for _, name := range names {
		e, err := model.ParseEntity(name)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
