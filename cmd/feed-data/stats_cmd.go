package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/campus-feed/modules/feed/infrastructure/persistence"
	"github.com/iota-uz/campus-feed/pkg/composables"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print entity counts from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context())
		},
	}
}

func runStats(ctx context.Context) error {
	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	ctx = composables.WithPool(ctx, pool)

	counts := map[string]int64{}
	for name, count := range map[string]func(context.Context) (int64, error){
		"schools":       persistence.NewSchoolRepository().Count,
		"organizations": persistence.NewOrganizationRepository().Count,
		"users":         persistence.NewUserRepository().Count,
		"tags":          persistence.NewTagRepository().Count,
		"posts":         persistence.NewPostRepository().Count,
	} {
		n, err := count(ctx)
		if err != nil {
			return withCode(exitDB, err)
		}
		counts[name] = n
	}
	if err := emitJSON(os.Stdout, counts); err != nil {
		return withCode(exitDB, fmt.Errorf("encode counts: %w", err))
	}
	return nil
}
