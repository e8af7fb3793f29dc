package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List known categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kindFlag, _ := cmd.Flags().GetString("kind")
			kind := model.Kind(kindFlag)
			if kind != "" && !kind.Valid() {
				return fmt.Errorf("unsupported --kind %q: use expense or income", kindFlag)
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.ListCategories(ctx, kind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, k := range []model.Kind{model.KindExpense, model.KindIncome} {
				if kind != "" && kind != k {
					continue
				}
				var names []string
				for _, c := range categories {
					if c.Kind == k {
						names = append(names, c.Name)
					}
				}
				title := "Expense categories"
				if k == model.KindIncome {
					title = "Income categories"
				}
				if err := cli.RenderNames(out, title, names); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().String("kind", "", "only expense or income categories")
	return cmd
}

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List known expense accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.ListAccounts(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(accounts))
			for _, a := range accounts {
				names = append(names, a.Name)
			}
			return cli.RenderNames(cmd.OutOrStdout(), "Accounts", names)
		},
	}
}
