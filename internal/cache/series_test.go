package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"stockchart/internal/interval"
	"stockchart/internal/series"
	"stockchart/internal/storage"
)

func history(symbol string, n int) series.History {
	data := make([]series.RawPoint, n)
	for idx := range data {
		price := 100 + float64(idx)
		data[idx] = series.NewRawPoint(fmt.Sprintf("2025-01-%02d", idx%28+1), price, price+1, price-1, price+0.5)
	}
	return series.History{Symbol: symbol, Interval: "daily", Data: data}
}

func TestKey(t *testing.T) {
	require.Equal(t, "stock_data_v2_AAPL_daily", Key(" aapl ", interval.Daily))
	require.Equal(t, "stock_data_v2_BRK.B_monthly", Key("brk.b", interval.Monthly))
}

func TestShortDailyEntryIsMissButStaysStored(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	c := New(kv, Options{}, zerolog.Nop())

	require.NoError(t, c.Put(ctx, "AAPL", interval.Daily, history("AAPL", 10)))

	_, ok := c.Get(ctx, "AAPL", interval.Daily)
	require.False(t, ok, "10 daily points must force a refetch")

	_, stored, err := kv.Get(ctx, Key("AAPL", interval.Daily))
	require.NoError(t, err)
	require.True(t, stored, "short entry must not be deleted")

	require.NoError(t, c.Put(ctx, "AAPL", interval.Daily, history("AAPL", 30)))
	got, ok := c.Get(ctx, "AAPL", interval.Daily)
	require.True(t, ok)
	require.Len(t, got.Data, 30)
	require.Equal(t, "AAPL", got.Symbol)
}

func TestWeeklyAndMonthlyHaveNoMinimum(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryKV(), Options{}, zerolog.Nop())

	for _, g := range []interval.Granularity{interval.Weekly, interval.Monthly} {
		require.NoError(t, c.Put(ctx, "MSFT", g, history("MSFT", 3)))
		got, ok := c.Get(ctx, "MSFT", g)
		require.True(t, ok, string(g))
		require.Len(t, got.Data, 3)
	}
}

func TestRoundTripPreservesOrderAndNulls(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryKV(), Options{MinDailyPoints: 1}, zerolog.Nop())

	in := history("TSLA", 2)
	in.Data[1].Low = series.RawPoint{}.Low

	require.NoError(t, c.Put(ctx, "TSLA", interval.Daily, in))
	got, ok := c.Get(ctx, "TSLA", interval.Daily)
	require.True(t, ok)
	require.Equal(t, in.Data[0].Timestamp, got.Data[0].Timestamp)
	require.True(t, got.Data[0].Close.Decimal.Equal(in.Data[0].Close.Decimal))
	require.False(t, got.Data[1].Low.Valid)
}

func TestEmptyPayloadIsNotCached(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	c := New(kv, Options{}, zerolog.Nop())

	require.NoError(t, c.Put(ctx, "AAPL", interval.Weekly, series.History{Symbol: "AAPL"}))
	_, stored, err := kv.Get(ctx, Key("AAPL", interval.Weekly))
	require.NoError(t, err)
	require.False(t, stored)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, Key("AAPL", interval.Weekly), []byte("{not json")))

	c := New(kv, Options{}, zerolog.Nop())
	_, ok := c.Get(ctx, "AAPL", interval.Weekly)
	require.False(t, ok)
}

type failingKV struct{ *MemoryKV }

func (failingKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingKV) Put(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	c := New(failingKV{NewMemoryKV()}, Options{}, zerolog.Nop())

	_, ok := c.Get(ctx, "AAPL", interval.Weekly)
	require.False(t, ok, "read errors degrade to a miss")

	err := c.Put(ctx, "AAPL", interval.Weekly, history("AAPL", 1))
	require.ErrorContains(t, err, "disk on fire")
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryKV(), Options{}, zerolog.Nop())

	for _, g := range interval.Granularities() {
		require.NoError(t, c.Put(ctx, "NVDA", g, history("NVDA", 40)))
	}
	require.NoError(t, c.Invalidate(ctx, "nvda", interval.Daily))
	_, ok := c.Get(ctx, "NVDA", interval.Daily)
	require.False(t, ok)
	_, ok = c.Get(ctx, "NVDA", interval.Weekly)
	require.True(t, ok)

	require.NoError(t, c.InvalidateSymbol(ctx, "NVDA"))
	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestEntriesOverSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := New(store, Options{}, zerolog.Nop())
	require.NoError(t, c.Put(ctx, "AAPL", interval.Daily, history("AAPL", 30)))
	require.NoError(t, c.Put(ctx, "AAPL", interval.Weekly, history("AAPL", 5)))

	got, ok := c.Get(ctx, "AAPL", interval.Daily)
	require.True(t, ok)
	require.Len(t, got.Data, 30)

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "stock_data_v2_AAPL_daily", entries[0].Key)
}

func TestEntriesUnsupported(t *testing.T) {
	c := New(struct{ KV }{NewMemoryKV()}, Options{}, zerolog.Nop())
	_, err := c.Entries(context.Background())
	require.ErrorIs(t, err, ErrListUnsupported)
}
