package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/campus-feed/modules/feed/infrastructure/persistence"
	"github.com/iota-uz/campus-feed/pkg/composables"
	"github.com/iota-uz/campus-feed/pkg/configuration"
	"github.com/iota-uz/campus-feed/pkg/eventbus"
	"github.com/iota-uz/campus-feed/pkg/ingest"
)

type importOptions struct {
	input     string
	workers   int
	nullToken string
}

func newImportCmd() *cobra.Command {
	conf := configuration.Use()
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a denormalized feed export into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Path to the CSV export (required)")
	cmd.Flags().IntVar(&opts.workers, "workers", conf.Import.Workers, "Concurrent workers per stage")
	cmd.Flags().StringVar(&opts.nullToken, "null-token", conf.Import.NullToken, "Cell value treated as absent")
	_ = cmd.MarkFlagRequired("input")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(opts.input) == "" {
			return withCode(exitUsage, fmt.Errorf("--input must not be empty"))
		}
		if opts.workers <= 0 {
			return withCode(exitUsage, fmt.Errorf("--workers must be positive, got %d", opts.workers))
		}
		if _, err := os.Stat(opts.input); err != nil {
			return withCode(exitUsage, fmt.Errorf("cannot read --input: %w", err))
		}
		return nil
	}

	return cmd
}

func runImport(ctx context.Context, opts importOptions) error {
	conf := configuration.Use()
	log := conf.Logger()

	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	ctx = composables.WithPool(ctx, pool)

	bus := eventbus.NewEventPublisher(log)
	bus.Subscribe(func(e ingest.StageFinished) {
		_ = emitJSON(os.Stdout, map[string]any{
			"event":   "stage_finished",
			"summary": e.Summary,
		})
	})

	pipe := &ingest.Pipeline{
		Source: ingest.NewCSVSource(opts.input, opts.nullToken, log),
		Resolvers: ingest.Resolvers(ingest.Stores{
			Schools:       persistence.NewSchoolRepository(),
			Organizations: persistence.NewOrganizationRepository(),
			Users:         persistence.NewUserRepository(),
			Tags:          persistence.NewTagRepository(),
			Posts:         persistence.NewPostRepository(),
		}, ingest.NewRegistry(), log),
		Workers: opts.workers,
		Fatal:   persistence.IsUnavailable,
		Log:     log,
		Bus:     bus,
	}

	report, runErr := pipe.Run(ctx)
	if report != nil {
		if err := emitJSON(os.Stdout, map[string]any{
			"event":  "run_finished",
			"report": report,
		}); err != nil {
			return withCode(exitDB, fmt.Errorf("encode report: %w", err))
		}
	}

	if runErr != nil {
		if errors.Is(runErr, ingest.ErrAborted) {
			return withCode(exitDBWrite, runErr)
		}
		return withCode(exitValidation, runErr)
	}
	return nil
}
