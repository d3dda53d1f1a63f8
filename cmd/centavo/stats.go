package main

import (
	"fmt"

	"github.com/centavo-app/centavo/internal/stats"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for a month",
		Long: `Show cached monthly, daily, and category statistics for a month.

Statistics are computed on demand: if the month has never been
aggregated, it is aggregated now and cached.`,
		RunE: runStats,
	}
	cmd.Flags().String("month", "", "month YYYY-MM (default: current)")
	cmd.Flags().Bool("regen", false, "force regeneration before reading")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	monthStr, _ := cmd.Flags().GetString("month")
	regen, _ := cmd.Flags().GetBool("regen")

	key, err := parseMonthFlag(monthStr)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := stats.NewService(store)

	if regen {
		if err := svc.InvalidateMonth(ctx, key.Year, key.Month); err != nil {
			return err
		}
	}

	monthly, err := svc.GetMonthly(ctx, key.Year, key.Month)
	if err != nil {
		return err
	}
	if monthly == nil {
		return fmt.Errorf("statistics for %s are being regenerated, try again", key)
	}

	fmt.Printf("%s\n", key)
	fmt.Printf("  income:   %s\n", monthly.TotalIncome.StringFixed(2))
	fmt.Printf("  expense:  %s\n", monthly.TotalExpense.StringFixed(2))
	fmt.Printf("  savings:  %s\n", monthly.SavingsAmount.StringFixed(2))
	fmt.Printf("  entries:  %d\n", monthly.TransactionCount)

	categories, err := svc.GetCategories(ctx, key.Year, key.Month)
	if err != nil {
		return err
	}
	if len(categories) > 0 {
		fmt.Println("\nBy category:")
		for _, cat := range categories {
			fmt.Printf("  %-20s %10s  %5s%%  (%d txns, avg %s)\n",
				cat.CategoryName,
				cat.TotalAmount.StringFixed(2),
				cat.PercentageOfMonth.StringFixed(1),
				cat.TransactionCount,
				cat.AverageAmount.StringFixed(2))
		}
	}

	daily, err := svc.GetDaily(ctx, key.Year, key.Month)
	if err != nil {
		return err
	}
	if len(daily) > 0 {
		fmt.Println("\nBy day:")
		for _, day := range daily {
			fmt.Printf("  %s  +%s  -%s  net %s\n",
				day.Date,
				day.TotalIncome.StringFixed(2),
				day.TotalExpense.StringFixed(2),
				day.NetAmount.StringFixed(2))
		}
	}

	return nil
}
