package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/tui"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question about your ledger",
		Long: `Answer a plain-English question about your expenses and income.

Examples:
  tally query "What are my expenses for November by category?"
  tally query "How much did I spend using Card in December?"
  tally query "Show me my income for February 2026" --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().StringP("output", "o", cli.OutputText, "output format (text, json)")
	cmd.Flags().Duration("timeout", 0, "give up after this long (0 waits indefinitely)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if output != cli.OutputText && output != cli.OutputJSON {
		return fmt.Errorf("unsupported --output %q: use text or json", output)
	}

	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	engine, closeLLM, err := newEngine(ctx, store)
	if err != nil {
		return err
	}
	defer closeLLM()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	answer, err := engine.Process(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return cli.RenderAnswer(cmd.OutOrStdout(), answer, output)
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask questions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			engine, closeLLM, err := newEngine(ctx, store)
			if err != nil {
				return err
			}
			defer closeLLM()

			return tui.Run(ctx, engine, timeout)
		},
	}

	cmd.Flags().Duration("timeout", 0, "per-question time limit (0 waits indefinitely)")
	return cmd
}
