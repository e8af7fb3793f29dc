package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptBuilder_Build(t *testing.T) {
	b, err := NewPromptBuilder(time.UTC)
	require.NoError(t, err)

	prompt, err := b.Build(time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, prompt, "2026-03-15")
	assert.Contains(t, prompt, "2026-02-01")
	assert.Contains(t, prompt, "2026-02-28")
	assert.Contains(t, prompt, "by_category")
	assert.Contains(t, prompt, "time_period")
	assert.NotContains(t, prompt, "{{")
}

func TestPromptBuilder_UsesConfiguredZone(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	b, err := NewPromptBuilder(loc)
	require.NoError(t, err)

	// 20:00 UTC on Jan 31 is already Feb 1 in UTC+10.
	prompt, err := b.Build(time.Date(2026, 1, 31, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, prompt, "2026-02-01")
	assert.Contains(t, prompt, "UTC+10")
}

func TestShiftMonths(t *testing.T) {
	tests := []struct {
		from string
		want string
		n    int
	}{
		{"2026-05-31", "2026-02-28", -3},
		{"2024-05-31", "2024-02-29", -3},
		{"2026-01-15", "2025-10-15", -3},
		{"2026-03-31", "2026-04-30", 1},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got := shiftMonths(date(t, tt.from), tt.n)
			assert.Equal(t, tt.want, day(got))
		})
	}
}
