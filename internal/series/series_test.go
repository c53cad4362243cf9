package series

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var windowNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyPoints(n int, start time.Time, layout string) []EnrichedPoint {
	points := make([]EnrichedPoint, n)
	for i := 0; i < n; i++ {
		ts := start.AddDate(0, 0, i)
		points[i] = EnrichedPoint{
			Timestamp: ts.Format(layout),
			Open:      100 + float64(i),
			High:      101 + float64(i),
			Low:       99 + float64(i),
			Close:     100 + float64(i),
			Volume:    SyntheticVolume(ts.Format(layout), i, 100+float64(i), 100+float64(i)),
		}
	}
	return points
}

func TestWindowFallbackForStaleSeries(t *testing.T) {
	points := dailyPoints(40, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "2006-01-02T15:04:05.000Z")

	want := map[string]int{"1D": 1, "1W": 5, "1M": 22, "1Y": 40}
	for id, n := range want {
		got := Window(points, id, windowNow)
		require.Len(t, got, n, id)
		require.Equal(t, points[len(points)-1], got[len(got)-1], "%s must end at the most recent point", id)
	}
}

func TestWindowSixtyPointScenario(t *testing.T) {
	points := dailyPoints(60, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "2006-01-02")

	require.Len(t, Window(points, "1D", windowNow), 1)
	require.Len(t, Window(points, "1W", windowNow), 5)
	require.Len(t, Window(points, "1M", windowNow), 22)
	require.Len(t, Window(points, "1Y", windowNow), 60)
}

func TestWindowLongerSeriesThanFallback(t *testing.T) {
	points := dailyPoints(300, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), "2006-01-02")

	got := Window(points, "1Y", windowNow)
	require.Len(t, got, 252)
	require.Equal(t, points[300-252:], got)
}

func TestWindowCalendarFilterWins(t *testing.T) {
	// Thirty daily points ending the day before now.
	points := dailyPoints(30, windowNow.AddDate(0, 0, -30), "2006-01-02")

	got := Window(points, "1W", windowNow)
	require.Len(t, got, 7)
	require.Equal(t, points[23:], got)

	require.Len(t, Window(points, "1D", windowNow), 1)
	require.Len(t, Window(points, "1M", windowNow), 30)
}

func TestWindowCutoffIsInclusive(t *testing.T) {
	points := []EnrichedPoint{
		{Timestamp: "2025-12-24T23:59:59Z"},
		{Timestamp: "2025-12-25T00:00:00Z"},
		{Timestamp: "2025-12-31T00:00:00Z"},
	}
	got := Window(points, "1W", windowNow)
	require.Equal(t, points[1:], got)
}

func TestWindowDropsMalformedTimestamps(t *testing.T) {
	points := []EnrichedPoint{
		{Timestamp: "not-a-date"},
		{Timestamp: "2025-12-30"},
		{Timestamp: ""},
		{Timestamp: "2025-12-31"},
	}
	got := Window(points, "1W", windowNow)
	require.Equal(t, []EnrichedPoint{points[1], points[3]}, got)
}

func TestWindowAllPassthrough(t *testing.T) {
	points := dailyPoints(17, time.Date(1999, 6, 1, 0, 0, 0, 0, time.UTC), "2006-01-02")
	points[4].Timestamp = "garbage"

	for _, now := range []time.Time{windowNow, {}, time.Unix(1, 0)} {
		got := Window(points, "ALL", now)
		require.Equal(t, points, got)
	}
}

func TestWindowUnknownIntervalUsesOneMonth(t *testing.T) {
	points := dailyPoints(40, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "2006-01-02")
	require.Len(t, Window(points, "6H", windowNow), 22)
}

func TestWindowEmptyInput(t *testing.T) {
	require.Empty(t, Window(nil, "1D", windowNow))
	require.Empty(t, Window([]EnrichedPoint{}, "ALL", windowNow))
}

func TestWindowIsDeterministic(t *testing.T) {
	points := dailyPoints(90, windowNow.AddDate(0, -2, 0), "2006-01-02")
	first := Window(points, "1M", windowNow)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Window(points, "1M", windowNow))
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		"2020-01-05":                time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC),
		"2020-01-05T10:30:00":       time.Date(2020, 1, 5, 10, 30, 0, 0, time.UTC),
		"2020-01-05 10:30:00":       time.Date(2020, 1, 5, 10, 30, 0, 0, time.UTC),
		"2020-01-05T10:30:00.250Z":  time.Date(2020, 1, 5, 10, 30, 0, 250_000_000, time.UTC),
		"2020-01-05T10:30:00+02:00": time.Date(2020, 1, 5, 8, 30, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := ParseTimestamp(in)
		require.True(t, ok, in)
		require.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	for _, bad := range []string{"", "  ", "05/01/2020", "2020-13-01"} {
		_, ok := ParseTimestamp(bad)
		require.False(t, ok, bad)
	}
}

func TestSyntheticVolumeReferenceValues(t *testing.T) {
	require.Equal(t, int64(898199), SyntheticVolume("2020-01-01", 0, 100, 100))
	require.Equal(t, int64(567913), SyntheticVolume("2024-03-15", 7, 187.25, 185.5))
	require.Equal(t, int64(2151324), SyntheticVolume("2020-01-28T00:00:00.000Z", 59, 359, 300))
	require.Equal(t, int64(973199), SyntheticVolume("2020-01-01", 0, 103, 100))
	require.Equal(t, int64(914606), SyntheticVolume("é-ü", 3, 1, 2))
}

func TestSyntheticVolumeDeterministicAndNonNegative(t *testing.T) {
	a := SyntheticVolume("2021-07-09", 12, 55.1, 54.9)
	require.Equal(t, a, SyntheticVolume("2021-07-09", 12, 55.1, 54.9))
	require.GreaterOrEqual(t, a, int64(volumeBase))

	nan := SyntheticVolume("2021-07-09", 12, math.NaN(), 54.9)
	require.Equal(t, SyntheticVolume("2021-07-09", 12, 54.9, 54.9), nan)
}

func TestSyntheticVolumeNoCrossPointCoupling(t *testing.T) {
	raw := []RawPoint{
		NewRawPoint("2020-01-03", 10, 11, 9, 10.5),
		NewRawPoint("2020-01-02", 10, 11, 9, 9.5),
		NewRawPoint("2020-01-01", 10, 11, 9, 10),
	}
	before := Enrich(raw)

	raw[1] = NewRawPoint("2020-01-02", 10, 50, 1, 40)
	after := Enrich(raw)

	require.Equal(t, before[0].Volume, after[0].Volume)
	require.Equal(t, before[2].Volume, after[2].Volume)
	require.NotEqual(t, before[1].Volume, after[1].Volume)
}

func TestEnrichReversesAndSeedsWithReceivedIndex(t *testing.T) {
	raw := []RawPoint{
		NewRawPoint("2020-01-02", 101, 102, 100, 101),
		NewRawPoint("2020-01-01", 100, 101, 99, 100),
	}

	got := Enrich(raw)
	require.Len(t, got, 2)
	require.Equal(t, "2020-01-01", got[0].Timestamp)
	require.Equal(t, "2020-01-02", got[1].Timestamp)
	require.Equal(t, int64(898200), got[0].Volume)
	require.Equal(t, int64(899160), got[1].Volume)
	require.Equal(t, 99.0, got[0].Low)
}

func TestEnrichNullPricesBecomeNaN(t *testing.T) {
	var hist History
	payload := `{"symbol":"MSFT","interval":"daily","data":[{"timestamp":"2020-01-01","open":null,"high":"12.5","low":10,"close":11}]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &hist))

	got := Enrich(hist.Data)
	require.Len(t, got, 1)
	require.True(t, math.IsNaN(got[0].Open))
	require.Equal(t, 12.5, got[0].High)
	require.Equal(t, 10.0, got[0].Low)
	require.Equal(t, SyntheticVolume("2020-01-01", 0, 11, math.NaN()), got[0].Volume)
}

func TestSummarize(t *testing.T) {
	_, ok := Summarize(nil)
	require.False(t, ok)

	points := []EnrichedPoint{
		{Open: 10, High: 12, Low: 9, Close: 11, Volume: 1},
		{Open: 11, High: math.NaN(), Low: 7, Close: 10, Volume: 2},
		{Open: 10, High: 15, Low: 9.5, Close: 14, Volume: 3},
	}
	sum, ok := Summarize(points)
	require.True(t, ok)
	require.Equal(t, Summary{Open: 10, High: 15, Low: 7, Close: 14, Volume: 3}, sum)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "1M:22", StateString("1M", 22))
	require.Equal(t, "ALL:0", StateString("ALL", 0))
}
