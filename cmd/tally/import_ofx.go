package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import expenses and income from OFX/QFX files",
		Long: `Import statement lines from OFX or QFX files exported from your bank.
Debits become expenses and credits become income. Re-importing the same
file skips lines already in the ledger.

Examples:
  # Import single file
  tally import-ofx ~/Downloads/checking_jan_2026.qfx

  # Import every statement in a directory, charging debits to Card
  tally import-ofx ~/Downloads/*.qfx --account Card`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	cmd.Flags().String("account", "", "ledger account for debits (default: the statement's account ID)")
	cmd.Flags().String("expense-category", ofx.DefaultExpenseCategory, "category for imported expenses")
	cmd.Flags().String("income-category", ofx.DefaultIncomeCategory, "category for imported income")

	return cmd
}

func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	account, _ := cmd.Flags().GetString("account")
	expenseCategory, _ := cmd.Flags().GetString("expense-category")
	incomeCategory, _ := cmd.Flags().GetString("income-category")

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	handler := cli.NewInterruptHandler(out)
	ctx := handler.HandleInterrupts(cmd.Context(), "Import")
	defer handler.Stop()

	parser := ofx.NewParser(ofx.Options{
		Account:         account,
		ExpenseCategory: expenseCategory,
		IncomeCategory:  incomeCategory,
	})

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reading statements...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionClearOnFinish(),
	)

	var records []model.Transaction
	seen := make(map[string]bool)
	failed := 0

	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		parsed, err := parseStatement(ctx, parser, path)
		_ = bar.Add(1)
		if err != nil {
			failed++
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			continue
		}

		added := 0
		for _, r := range parsed {
			if !seen[r.Hash] {
				seen[r.Hash] = true
				records = append(records, r)
				added++
			}
		}
		slog.Info("Processed file",
			"file", filepath.Base(path),
			"records_found", len(parsed),
			"added", added,
			"duplicates", len(parsed)-added)
	}
	_ = bar.Finish()

	var expenses, income int
	for _, r := range records {
		if r.Kind == model.KindIncome {
			income++
		} else {
			expenses++
		}
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Read %d files: %d expenses and %d income lines", len(files)-failed, expenses, income)))
	if failed > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d files could not be parsed; run with --log-level error for details", failed)))
	}
	if len(records) == 0 || dryRun {
		if dryRun {
			fmt.Fprintln(out, cli.FormatInfo("Dry run: nothing saved"))
		}
		return nil
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	inserted, err := store.ImportTransactions(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to save imported records: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d new records (%d already present)", inserted, len(records)-inserted)))
	return nil
}

func parseStatement(ctx context.Context, parser *ofx.Parser, path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return parser.ParseFile(ctx, f)
}
