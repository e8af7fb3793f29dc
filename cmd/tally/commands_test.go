package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/cache"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
)

const testOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>JAN01
<NAME>STARBUCKS
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>3200.00
<FITID>JAN02
<NAME>PAYROLL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

// useTestSettings points the commands at a fresh database for one test.
func useTestSettings(t *testing.T) {
	t.Helper()
	prev := settings
	settings = &config.Settings{
		DatabasePath:   filepath.Join(t.TempDir(), "tally.db"),
		CurrencySymbol: "$",
		Location:       time.UTC,
		PageSize:       service.MaxPageSize,
		Cache:          cache.Options{Backend: cache.BackendMemory, TTL: time.Minute},
		LLM:            llm.Config{Provider: llm.ProviderGroq},
	}
	t.Cleanup(func() { settings = prev })
}

// run executes cmd with args and returns its output.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExpenseAddAndList(t *testing.T) {
	useTestSettings(t)

	out, err := run(t, ledgerCmd(expenseSeries), "add",
		"--amount", "12.5", "--category", "Food", "--account", "Card",
		"--date", "2026-02-03", "--notes", "lunch")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded expense #1: $12.50 Food on 2026-02-03")

	_, err = run(t, ledgerCmd(expenseSeries), "add",
		"--amount", "40", "--category", "Travel", "--account", "Cash", "--date", "2026-02-04")
	require.NoError(t, err)

	out, err = run(t, ledgerCmd(expenseSeries), "list", "--category", "Food")
	require.NoError(t, err)
	assert.Contains(t, out, "lunch")
	assert.NotContains(t, out, "Travel")
	assert.Contains(t, out, "Showing 1 of 1 records")

	out, err = run(t, ledgerCmd(expenseSeries), "list", "--min-amount", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "$40.00")
	assert.NotContains(t, out, "lunch")
}

func TestExpenseAdd_Rejections(t *testing.T) {
	useTestSettings(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "bad amount", args: []string{"add", "--amount", "ten", "--category", "Food", "--account", "Card"}},
		{name: "negative amount", args: []string{"add", "--amount", "-5", "--category", "Food", "--account", "Card"}},
		{name: "bad date", args: []string{"add", "--amount", "5", "--category", "Food", "--account", "Card", "--date", "03/02/2026"}},
		{name: "missing account", args: []string{"add", "--amount", "5", "--category", "Food"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, ledgerCmd(expenseSeries), tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestIncomeAddAndList(t *testing.T) {
	useTestSettings(t)

	_, err := run(t, ledgerCmd(incomeSeries), "add", "--amount", "3200", "--category", "Salary", "--date", "2026-02-01")
	require.NoError(t, err)

	out, err := run(t, ledgerCmd(incomeSeries), "list", "--from", "2026-02-01", "--to", "2026-02-28")
	require.NoError(t, err)
	assert.Contains(t, out, "$3,200.00")
	assert.Contains(t, out, "Salary")
	assert.NotContains(t, out, "Account")

	_, err = run(t, ledgerCmd(incomeSeries), "list", "--from", "yesterday")
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestCategoriesAndAccounts(t *testing.T) {
	useTestSettings(t)

	out, err := run(t, categoriesCmd(), "--kind", "income")
	require.NoError(t, err)
	assert.Contains(t, out, "Income categories")
	assert.Contains(t, out, "Salary")
	assert.NotContains(t, out, "Groceries")

	_, err = run(t, categoriesCmd(), "--kind", "transfer")
	assert.Error(t, err)

	out, err = run(t, accountsCmd())
	require.NoError(t, err)
	for _, name := range model.DefaultAccounts {
		assert.Contains(t, out, name)
	}
}

func writeOFX(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(testOFX), 0o600))
	return path
}

func TestImportOFX(t *testing.T) {
	useTestSettings(t)
	dir := t.TempDir()
	writeOFX(t, dir, "jan.qfx")

	out, err := run(t, importOFXCmd(), filepath.Join(dir, "*.qfx"), "--account", "Card")
	require.NoError(t, err)
	assert.Contains(t, out, "1 expenses and 1 income lines")
	assert.Contains(t, out, "Imported 2 new records (0 already present)")

	out, err = run(t, importOFXCmd(), filepath.Join(dir, "jan.qfx"))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 new records (2 already present)")

	sqlite, err := storage.NewSQLiteStorage(settings.DatabasePath)
	require.NoError(t, err)
	defer func() { _ = sqlite.Close() }()

	records, total, err := sqlite.ListExpenses(context.Background(), service.LedgerFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Card", records[0].Account)
}

func TestImportOFX_DryRunSavesNothing(t *testing.T) {
	useTestSettings(t)
	path := writeOFX(t, t.TempDir(), "jan.ofx")

	out, err := run(t, importOFXCmd(), path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: nothing saved")

	_, err = os.Stat(settings.DatabasePath)
	assert.True(t, os.IsNotExist(err))
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeOFX(t, dir, "a.qfx")
	b := writeOFX(t, dir, "b.qfx")

	files, err := expandFiles([]string{filepath.Join(dir, "*.qfx")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)

	_, err = expandFiles([]string{filepath.Join(dir, "*.csv")})
	assert.Error(t, err)
}

func TestMigrateStatus(t *testing.T) {
	useTestSettings(t)

	out, err := run(t, migrateCmd(), "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 0")

	out, err = run(t, migrateCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2")
}

func TestQuery_RequiresAPIKey(t *testing.T) {
	useTestSettings(t)

	_, err := run(t, queryCmd(), "How much did I spend on Food?")
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = run(t, queryCmd(), "Food", "--output", "xml")
	assert.Error(t, err)
}
