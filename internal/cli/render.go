package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/query"
)

// Output formats accepted by the query command.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// RenderAnswer writes answer to w in the requested output format.
func RenderAnswer(w io.Writer, answer *query.FormattedAnswer, output string) error {
	switch output {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(answer); err != nil {
			return fmt.Errorf("failed to encode answer: %w", err)
		}
		return nil
	case "", OutputText:
		_, err := fmt.Fprintln(w, AnswerText(answer))
		return err
	default:
		return fmt.Errorf("%w: output format %q", common.ErrInvalidConfig, output)
	}
}

// AnswerText renders answer as a styled block for the terminal.
func AnswerText(answer *query.FormattedAnswer) string {
	body := BoldStyle.Render(answer.Summary)
	if answer.Breakdown != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", answer.Breakdown)
	}
	return RenderBox(ChartIcon+" "+answer.Query, body)
}

// ErrorText renders err for the terminal. Errors carrying user guidance
// show the guidance instead of the internal chain.
func ErrorText(err error) string {
	if guidance := query.Guidance(err); guidance != "" {
		if errors.Is(err, query.ErrCollaboratorUnavailable) {
			return FormatWarning(guidance)
		}
		return FormatError(firstLine(guidance)) + "\n" + SubtleStyle.Render(rest(guidance))
	}

	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return FormatError(userErr.UserMessage)
	}
	return FormatError(err.Error())
}

func firstLine(s string) string {
	head, _, _ := strings.Cut(s, "\n")
	return head
}

func rest(s string) string {
	_, tail, _ := strings.Cut(s, "\n")
	return strings.TrimLeft(tail, "\n")
}

// RenderTransactions writes records as a table. symbol prefixes amounts.
func RenderTransactions(w io.Writer, records []model.Transaction, total int, symbol string) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No records found."))
		return err
	}

	withAccount := records[0].Kind == model.KindExpense
	headers := []string{"ID", "Date", "Amount", "Category"}
	if withAccount {
		headers = append(headers, "Account")
	}
	headers = append(headers, "Notes")

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			fmt.Sprintf("%d", r.ID),
			r.Date.Format(model.DateLayout),
			query.FormatCurrency(symbol, r.Amount),
			r.Category,
		}
		if withAccount {
			row = append(row, r.Account)
		}
		rows = append(rows, append(row, r.Notes))
	}

	var b strings.Builder
	b.WriteString(table(headers, rows))
	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("Showing %d of %d records", len(records), total)))

	_, err := fmt.Fprintln(w, b.String())
	return err
}

// table lays out rows in padded columns under a styled header.
func table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			rendered[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	}

	out := []string{line(headers, TableHeaderStyle)}
	for _, row := range rows {
		out = append(out, line(row, TableCellStyle))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

// RenderNames writes a titled bullet list.
func RenderNames(w io.Writer, title string, names []string) error {
	var b strings.Builder
	b.WriteString(FormatTitle(title))
	b.WriteString("\n")
	for _, n := range names {
		b.WriteString("  • ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	_, err := fmt.Fprint(w, b.String())
	return err
}
