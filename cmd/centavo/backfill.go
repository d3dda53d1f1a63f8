package main

import (
	"fmt"

	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/stats"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Regenerate missing statistics for recent months",
		Long: `Check the trailing window of months for missing statistics and
regenerate them. Months whose cache already exists are left alone.`,
		RunE: runBackfill,
	}
	cmd.Flags().Int("months", stats.DefaultBackfillWindow, "how many trailing months to check")
	return cmd
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	monthsBack, _ := cmd.Flags().GetInt("months")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := stats.NewService(store)

	missing, err := svc.MissingMonths(ctx, monthsBack)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		fmt.Printf("All %d months already computed\n", monthsBack)
		return nil
	}

	bar := progressbar.Default(int64(len(missing)), "backfilling")
	generated, err := svc.GenerateMissing(ctx, monthsBack, func(model.MonthKey) {
		_ = bar.Add(1)
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nRegenerated %d month(s)\n", generated)
	return nil
}
