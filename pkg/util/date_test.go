package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2024-03-15")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.True(t, ParseTimeDefault("", def).Equal(def))
	assert.True(t, ParseTimeDefault("yesterday", def).Equal(def))
}

func TestNextTradingDay(t *testing.T) {
	fri := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), NextTradingDay(fri))
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), NextTradingDay(fri.AddDate(0, 0, 3)))
	assert.True(t, NextTradingDay(time.Time{}).IsZero())
}

func TestTradingDays(t *testing.T) {
	assert.Equal(t, 252, TradingDays(1, 252))
	assert.Equal(t, 126, TradingDays(0.5, 252))
	assert.Equal(t, 1, TradingDays(0.0001, 252))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b ,"))
	assert.Nil(t, SplitList(""))
	assert.Equal(t, "AAPL", NormalizeTicker(" aapl "))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
}
