package main

import (
	"time"

	"github.com/centavo-app/centavo/internal/dashboard"
	"github.com/centavo-app/centavo/internal/stats"
	"github.com/centavo-app/centavo/internal/tui"
	"github.com/spf13/cobra"
)

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		Long: `Open the terminal dashboard for the current month.

While the dashboard is open, a background observer watches the ledger
and keeps the statistics cache fresh; a backfill warms any missing
recent months.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc := stats.NewService(store)

			observer := stats.NewObserver(svc, store)
			observer.Start(ctx)
			defer observer.Stop()

			stats.NewBackfill(svc, 2*time.Second).Start(ctx)

			dashStore := dashboard.NewStore(svc, store, time.Now())
			return tui.Run(ctx, dashStore)
		},
	}
}
