package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAt(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC) }

	tests := []struct {
		at   time.Time
		want Session
	}{
		{day(2, 59), SessionEvening},
		{day(3, 0), SessionMorning},
		{day(9, 30), SessionMorning},
		{day(14, 59), SessionMorning},
		{day(15, 0), SessionEvening},
		{day(23, 10), SessionEvening},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SessionAt(tt.at), tt.at.Format("15:04"))
	}
}

func TestTimeFromNanos(t *testing.T) {
	at := time.Date(2026, 3, 10, 23, 59, 59, 999_000_000, time.UTC)
	ns := NanosFromTime(at) + 123_456 // sub-millisecond noise is dropped

	got := TimeFromNanos(ns)
	assert.True(t, got.Equal(at), "got %s", got)
}

func TestParseSessionFilter(t *testing.T) {
	f, err := ParseSessionFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterBoth, f)

	f, err = ParseSessionFilter("Evening")
	require.NoError(t, err)
	assert.True(t, f.Includes(SessionEvening))
	assert.False(t, f.Includes(SessionMorning))

	_, err = ParseSessionFilter("night")
	assert.Error(t, err)
}

func TestRatesFor(t *testing.T) {
	r := Rates{VLC: 42, Thekadari: 55}
	assert.Equal(t, 42.0, r.For(MilkTypeVLC))
	assert.Equal(t, 55.0, r.For(MilkTypeThekadari))
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, CommandBalance, ParseCommand("/Balance").Type)
	assert.Equal(t, CommandRates, ParseCommand("rate today").Type)
	assert.Equal(t, []string{"today"}, ParseCommand("rate today").Args)
	assert.Equal(t, CommandUnknown, ParseCommand("  ").Type)
	assert.Equal(t, CommandUnknown, ParseCommand("hello").Type)
}
