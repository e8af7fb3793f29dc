// Package ofx turns OFX/QFX bank and credit card statements into ledger records.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
)

// Default categories for imported records; OFX carries no categories.
const (
	DefaultExpenseCategory = "Other"
	DefaultIncomeCategory  = "Other Income"
)

// Options controls how statement lines become ledger records.
type Options struct {
	// Account names the ledger account for debits. Empty uses the statement's account ID.
	Account         string
	ExpenseCategory string
	IncomeCategory  string
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	opts Options
}

// NewParser creates a new OFX parser.
func NewParser(opts Options) *Parser {
	if opts.ExpenseCategory == "" {
		opts.ExpenseCategory = DefaultExpenseCategory
	}
	if opts.IncomeCategory == "" {
		opts.IncomeCategory = DefaultIncomeCategory
	}
	return &Parser{opts: opts}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN, or ERROR.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of bare opening tags.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func parseResponse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file. Debits become expenses and credits
// become income; zero-amount lines are dropped.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	resp, err := parseResponse(reader)
	if err != nil {
		return nil, err
	}

	var records []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			records = append(records, p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			records = append(records, p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	slog.Info("Parsed OFX file",
		"records", len(records),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return records, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID string) []model.Transaction {
	if list == nil {
		return nil
	}

	records := make([]model.Transaction, 0, len(list.Transactions))
	for _, line := range list.Transactions {
		record, ok := p.convertTransaction(line, accountID)
		if !ok {
			slog.Debug("skipping zero-amount OFX line", "fitid", line.FiTID)
			continue
		}
		records = append(records, record)
	}
	return records
}

// convertTransaction maps one statement line to a ledger record.
func (p *Parser) convertTransaction(line ofxgo.Transaction, accountID string) (model.Transaction, bool) {
	// OFX amounts are signed: negative for money leaving the account.
	amount, err := decimal.NewFromString(line.TrnAmt.FloatString(2))
	if err != nil || amount.IsZero() {
		return model.Transaction{}, false
	}

	record := model.Transaction{
		Date:   model.CalendarDate(line.DtPosted.Time),
		Amount: amount.Abs(),
		Notes:  describe(line),
	}

	if amount.IsNegative() {
		record.Kind = model.KindExpense
		record.Category = p.opts.ExpenseCategory
		record.Account = p.opts.Account
		if record.Account == "" {
			record.Account = accountID
		}
	} else {
		record.Kind = model.KindIncome
		record.Category = p.opts.IncomeCategory
	}

	// FITID is unique per account, so it makes a stable import key.
	if line.FiTID != "" {
		record.Hash = fmt.Sprintf("ofx:%s:%s", accountID, line.FiTID)
	} else {
		record.Hash = record.GenerateHash()
	}

	return record, true
}

// describe builds the record notes from the payee and check number.
func describe(line ofxgo.Transaction) string {
	notes := extractMerchantName(line)
	if line.CheckNum != "" {
		notes = strings.TrimSpace(fmt.Sprintf("%s (check %s)", notes, line.CheckNum))
	}
	if len(notes) > 500 {
		notes = notes[:500]
	}
	return notes
}

var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// GetAccounts returns the sorted, unique account IDs in the file.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := parseResponse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankAcctFrom.AcctID != "" {
			seen[string(stmt.BankAcctFrom.AcctID)] = true
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.CCAcctFrom.AcctID != "" {
			seen[string(stmt.CCAcctFrom.AcctID)] = true
		}
	}

	accounts := make([]string, 0, len(seen))
	for acct := range seen {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)
	return accounts, nil
}
