package main

import (
	"fmt"
	"os"

	"github.com/centavo-app/centavo/internal/ofx"
	"github.com/centavo-app/centavo/internal/stats"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.ofx>",
		Short: "Import transactions from an OFX/QFX statement",
		Long: `Parse a downloaded OFX/QFX bank statement and append its
transactions to the ledger. Imported rows are assigned the given
category; statistics for the affected months regenerate afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	cmd.Flags().Int64("category", 0, "category id for imported transactions (required)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	categoryID, _ := cmd.Flags().GetInt64("category")

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = file.Close() }()

	txns, err := ofx.NewParser().ParseFile(file, categoryID)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Println("No transactions found in statement")
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if _, err := store.GetCategoryByID(ctx, categoryID); err != nil {
		return err
	}

	if err := store.SaveTransactions(ctx, txns); err != nil {
		return err
	}

	// Regenerate each affected month once, not once per transaction.
	svc := stats.NewService(store)
	seen := make(map[string]bool)
	for i := range txns {
		key := txns[i].Month()
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		if err := svc.Generate(ctx, key.Year, key.Month); err != nil {
			return fmt.Errorf("imported but statistics regeneration failed for %s: %w", key, err)
		}
	}

	fmt.Printf("Imported %d transaction(s) across %d month(s)\n", len(txns), len(seen))
	return nil
}
