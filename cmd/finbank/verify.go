package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
	"github.com/David-Botos/finbank-cleanse/pkg/verifier"
)

type verifyOptions struct {
	layer         string
	entities      []string
	strict        bool
	maxViolations int
}

func newVerifyCmd(a *app) *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the data quality rules against the raw or cleansed layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, err := model.ParseLayer(opts.layer)
			if err != nil {
				return withCode(exitUsage, err)
			}
			entities, err := parseEntities(opts.entities)
			if err != nil {
				return withCode(exitUsage, err)
			}

			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}
			defer a.close()

			return runVerify(ctx, a, layer, entities, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.layer, "layer", string(model.LayerCleansed), "Layer to verify: raw or cleansed")
	cmd.Flags().StringSliceVar(&opts.entities, "entity", nil, "Entities to verify (default: all)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when any violation or rule error is found")
	cmd.Flags().IntVar(&opts.maxViolations, "max-violations", 1000, "Violating rows reported per rule (0 for all)")
	return cmd
}

func runVerify(
	ctx context.Context,
	a *app,
	layer model.Layer,
	entities []model.Entity,
	opts verifyOptions,
	out io.Writer,
) error {
	v := verifier.NewVerifier(a.raw, a.cleansed, verifier.Options{
		RawSchema:      a.cfg.RawSchema,
		CleansedSchema: a.cfg.CleansedSchema,
		Concurrency:    a.cfg.VerifyConcurrency,
		MaxViolations:  opts.maxViolations,
	}, a.logger)

	reports, err := v.VerifyAll(ctx, layer, entities...)
	if err != nil {
		return err
	}

	if err := printVerifyReports(out, reports, a.jsonOutput); err != nil {
		return err
	}

	if opts.strict {
		failed := 0
		for _, r := range reports {
			if !r.Passed() {
				failed++
			}
		}
		if failed > 0 {
			return withCode(exitViolations, fmt.Errorf("%d of %d %s extents failed verification", failed, len(reports), layer))
		}
	}
	return nil
}

func printVerifyReports(out io.Writer, reports []*verifier.Report, asJSON bool) error {
	if !asJSON {
		for _, r := range reports {
			if _, err := fmt.Fprint(out, r.Summary()); err != nil {
				return err
			}
		}
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode verification reports: %w", err)
	}
	return nil
}
