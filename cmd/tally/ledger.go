package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/query"
	"github.com/Veraticus/tally/internal/service"
)

// series describes one side of the ledger for the add/list commands.
type series struct {
	kind    model.Kind
	use     string
	plural  string
	example string
}

var (
	expenseSeries = series{
		kind:    model.KindExpense,
		use:     "expense",
		plural:  "expenses",
		example: `tally expense add --amount 12.50 --category Food --account Card --notes lunch`,
	}
	incomeSeries = series{
		kind:    model.KindIncome,
		use:     "income",
		plural:  "income",
		example: `tally income add --amount 3200 --category Salary --date 2026-02-01`,
	}
)

func (s series) add(ctx context.Context, store service.LedgerStore, txn *model.Transaction) error {
	if s.kind == model.KindIncome {
		return store.AddIncome(ctx, txn)
	}
	return store.AddExpense(ctx, txn)
}

func (s series) list(ctx context.Context, store service.LedgerReader, filter service.LedgerFilter) ([]model.Transaction, int, error) {
	if s.kind == model.KindIncome {
		return store.ListIncome(ctx, filter)
	}
	return store.ListExpenses(ctx, filter)
}

func ledgerCmd(s series) *cobra.Command {
	cmd := &cobra.Command{
		Use:   s.use,
		Short: fmt.Sprintf("Record and list %s", s.plural),
	}
	cmd.AddCommand(addCmd(s))
	cmd.AddCommand(listCmd(s))
	return cmd
}

func addCmd(s series) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add",
		Short:   fmt.Sprintf("Record a new %s", s.use),
		Example: "  " + s.example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txn, err := recordFromFlags(cmd, s.kind)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := s.add(ctx, store, txn); err != nil {
				return common.NewUserError(fmt.Sprintf("Could not record %s", s.use), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %s #%d: %s %s on %s",
				s.use, txn.ID, query.FormatCurrency(settings.CurrencySymbol, txn.Amount),
				txn.Category, txn.Date.Format(model.DateLayout))))
			return nil
		},
	}

	cmd.Flags().String("amount", "", "amount, e.g. 12.50 (required)")
	cmd.Flags().String("category", "", "category name (required)")
	cmd.Flags().String("date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().String("notes", "", "free-form notes")
	if s.kind == model.KindExpense {
		cmd.Flags().String("account", "", "account paid from, e.g. Cash, Card, UPI (required)")
		_ = cmd.MarkFlagRequired("account")
	}
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func recordFromFlags(cmd *cobra.Command, kind model.Kind) (*model.Transaction, error) {
	amountFlag, _ := cmd.Flags().GetString("amount")
	category, _ := cmd.Flags().GetString("category")
	dateFlag, _ := cmd.Flags().GetString("date")
	notes, _ := cmd.Flags().GetString("notes")

	amount, err := decimal.NewFromString(amountFlag)
	if err != nil {
		return nil, common.NewUserError("--amount must be a number like 12.50", err)
	}

	date := model.CalendarDate(time.Now().In(settings.Location))
	if parsed, err := parseDate("date", dateFlag); err != nil {
		return nil, err
	} else if parsed != nil {
		date = *parsed
	}

	txn := &model.Transaction{
		Kind:     kind,
		Date:     date,
		Amount:   amount,
		Category: strings.TrimSpace(category),
		Notes:    strings.TrimSpace(notes),
	}
	if kind == model.KindExpense {
		account, _ := cmd.Flags().GetString("account")
		txn.Account = strings.TrimSpace(account)
	}
	return txn, nil
}

func listCmd(s series) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s, newest first", s.plural),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := filterFromFlags(cmd, s.kind)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, total, err := s.list(ctx, store, filter)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("Could not list %s", s.plural), err)
			}
			return cli.RenderTransactions(cmd.OutOrStdout(), records, total, settings.CurrencySymbol)
		},
	}

	cmd.Flags().String("from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date to include (YYYY-MM-DD)")
	cmd.Flags().StringSlice("category", nil, "only these categories (repeatable)")
	cmd.Flags().String("min-amount", "", "smallest amount to include")
	cmd.Flags().String("max-amount", "", "largest amount to include")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("page-size", 20, fmt.Sprintf("records per page (max %d)", service.MaxPageSize))
	if s.kind == model.KindExpense {
		cmd.Flags().StringSlice("account", nil, "only these accounts (repeatable)")
	}

	return cmd
}

func filterFromFlags(cmd *cobra.Command, kind model.Kind) (service.LedgerFilter, error) {
	var filter service.LedgerFilter
	var err error

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	minAmount, _ := cmd.Flags().GetString("min-amount")
	maxAmount, _ := cmd.Flags().GetString("max-amount")
	filter.Categories, _ = cmd.Flags().GetStringSlice("category")
	filter.Page, _ = cmd.Flags().GetInt("page")
	filter.PageSize, _ = cmd.Flags().GetInt("page-size")
	if kind == model.KindExpense {
		filter.Accounts, _ = cmd.Flags().GetStringSlice("account")
	}

	if filter.StartDate, err = parseDate("from", from); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDate("to", to); err != nil {
		return filter, err
	}
	if filter.MinAmount, err = parseAmount("min-amount", minAmount); err != nil {
		return filter, err
	}
	if filter.MaxAmount, err = parseAmount("max-amount", maxAmount); err != nil {
		return filter, err
	}
	return filter, nil
}
