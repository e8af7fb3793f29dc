package query

import (
	"errors"
	"fmt"
	"strings"
)

// Failure conditions callers can test with errors.Is.
var (
	// ErrQueryUnparseable means the question could not be turned into an intent.
	ErrQueryUnparseable = errors.New("query could not be understood")
	// ErrCollaboratorUnavailable means the language model refused or could not serve the request.
	ErrCollaboratorUnavailable = errors.New("language model unavailable")
	// ErrInconsistentPagination means the ledger store broke its own paging contract.
	ErrInconsistentPagination = errors.New("inconsistent pagination from ledger store")
)

// ExampleQueries are shown to users whose question could not be understood.
var ExampleQueries = []string{
	"What are my expenses for November by category?",
	"Show me total spending on Food and Travel",
	"How much did I spend using Card in December?",
	"What are my monthly expenses for 2024?",
	"How much did I earn last month?",
	"Show me my income for February 2026",
}

// QueryError is the single error shape the pipeline returns for questions it
// could not answer. Guidance is text meant for the end user.
type QueryError struct {
	Kind     error
	Err      error
	Guidance string
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the condition and the underlying cause.
func (e *QueryError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unparseable(reason string, cause error) error {
	var b strings.Builder
	b.WriteString(reason)
	b.WriteString("\n\nYour query should mention:\n")
	b.WriteString("  • A time period (e.g., 'November', 'last month', 'February 2026')\n")
	b.WriteString("  • What you want to see (e.g., 'total spending', 'total income', 'breakdown by category')\n")
	b.WriteString("  • Optionally: specific categories (e.g., 'Food', 'Travel', 'Salary')\n")
	b.WriteString("  • Optionally: specific accounts (e.g., 'Card', 'Cash')\n\n")
	b.WriteString("Example queries:")
	for _, q := range ExampleQueries {
		b.WriteString("\n  • '")
		b.WriteString(q)
		b.WriteString("'")
	}

	return &QueryError{Kind: ErrQueryUnparseable, Err: cause, Guidance: b.String()}
}

func unavailable(cause error) error {
	return &QueryError{
		Kind:     ErrCollaboratorUnavailable,
		Err:      cause,
		Guidance: "Unable to process query due to service unavailability. Please try again in a moment.",
	}
}

// Guidance extracts user-facing text from err, or "" if err carries none.
func Guidance(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Guidance
	}
	return ""
}
