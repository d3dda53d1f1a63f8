package main

import (
	"fmt"
	"time"

	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
	"github.com/centavo-app/centavo/internal/stats"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record an income or expense transaction in the ledger.

Amounts are signed decimals: positive for income, negative for expense.
Examples:
  centavo add --amount -12.50 --category 2 --note "Lunch"
  centavo add --amount 2500 --category 1 --date 2024-03-01`,
		RunE: runAdd,
	}

	cmd.Flags().String("amount", "", "signed amount in major units, e.g. -12.50 (required)")
	cmd.Flags().Int64("category", 0, "category id (required)")
	cmd.Flags().String("note", "", "description")
	cmd.Flags().String("date", "", "economic date YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	amountStr, _ := cmd.Flags().GetString("amount")
	categoryID, _ := cmd.Flags().GetInt64("category")
	note, _ := cmd.Flags().GetString("note")
	dateStr, _ := cmd.Flags().GetString("date")

	amountMinor, err := parseAmountMinor(amountStr)
	if err != nil {
		return err
	}

	occurredAt := time.Now()
	if dateStr != "" {
		occurredAt, err = time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", dateStr, err)
		}
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if _, err := store.GetCategoryByID(ctx, categoryID); err != nil {
		return err
	}

	txn := &model.Transaction{
		AmountMinor: amountMinor,
		OccurredAt:  occurredAt,
		CategoryID:  categoryID,
		Description: note,
	}
	if err := store.CreateTransaction(ctx, txn); err != nil {
		return err
	}

	// Keep the month's statistics current without waiting for the observer.
	if err := stats.NewService(store).UpdateForTransaction(ctx, txn, nil); err != nil {
		return fmt.Errorf("transaction saved but statistics update failed: %w", err)
	}

	fmt.Printf("Recorded %s (id %s)\n", txn.Amount().StringFixed(2), txn.ID)
	return nil
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions for a month",
		RunE:  runList,
	}
	cmd.Flags().String("month", "", "month YYYY-MM (default: current)")
	cmd.Flags().Bool("trashed", false, "include trashed transactions")
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	monthStr, _ := cmd.Flags().GetString("month")
	includeTrashed, _ := cmd.Flags().GetBool("trashed")

	key, err := parseMonthFlag(monthStr)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	start, end := key.Start(), key.End()
	txns, err := store.GetTransactions(ctx, service.TransactionFilter{
		StartDate:      &start,
		EndDate:        &end,
		IncludeTrashed: includeTrashed,
	})
	if err != nil {
		return err
	}

	if len(txns) == 0 {
		fmt.Printf("No transactions in %s\n", key)
		return nil
	}

	for i := range txns {
		txn := &txns[i]
		marker := ""
		if txn.IsTrashed() {
			marker = " (trashed)"
		}
		fmt.Printf("%s  %10s  %-30s %s%s\n",
			txn.OccurredAt.Format("2006-01-02"),
			txn.Amount().StringFixed(2),
			txn.Description,
			txn.ID,
			marker)
	}
	return nil
}

func trashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trash <transaction-id>",
		Short: "Soft-delete a transaction",
		Long: `Move a transaction to the trash. Trashed transactions are excluded
from all statistics but remain in the ledger.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.TrashTransaction(ctx, args[0]); err != nil {
				return err
			}

			txn, err := store.GetTransactionByID(ctx, args[0])
			if err != nil {
				return err
			}
			if err := stats.NewService(store).UpdateForTransaction(ctx, txn, nil); err != nil {
				return fmt.Errorf("transaction trashed but statistics update failed: %w", err)
			}

			fmt.Printf("Trashed %s\n", args[0])
			return nil
		},
	}
}
