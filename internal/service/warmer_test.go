package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"stockchart/internal/cache"
	"stockchart/internal/interval"
	"stockchart/internal/series"
)

type fakeLocker struct {
	acquired bool
	err      error
	released int
}

func (l *fakeLocker) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	if l.err != nil || !l.acquired {
		return nil, false, l.err
	}
	return func() { l.released++ }, true, nil
}

type scriptedHistory struct {
	calls []string
	fail  map[interval.Granularity]bool
}

func (s *scriptedHistory) FetchHistory(_ context.Context, symbol string, granularity interval.Granularity) (series.History, error) {
	s.calls = append(s.calls, symbol+"/"+string(granularity))
	if s.fail[granularity] {
		return series.History{}, errors.New("upstream down")
	}
	if granularity == interval.Monthly {
		return series.History{Symbol: symbol}, nil
	}
	return series.History{Symbol: symbol, Data: dailyHistory(40)}, nil
}

func TestWarmOnceCoversEveryGranularity(t *testing.T) {
	ctx := context.Background()
	history := &scriptedHistory{fail: map[interval.Granularity]bool{interval.Weekly: true}}
	seriesCache := cache.New(cache.NewMemoryKV(), cache.Options{}, zerolog.Nop())

	w, err := NewWarmer(history, seriesCache, WarmerOptions{Symbols: []string{"aapl", " AAPL", "msft", ""}}, zerolog.Nop())
	require.NoError(t, err)

	result, err := w.WarmOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, WarmResult{Stored: 2, Empty: 2, Failed: 2}, result)
	require.Equal(t, []string{
		"AAPL/daily", "AAPL/weekly", "AAPL/monthly",
		"MSFT/daily", "MSFT/weekly", "MSFT/monthly",
	}, history.calls)

	_, ok := seriesCache.Get(ctx, "MSFT", interval.Daily)
	require.True(t, ok)
	_, ok = seriesCache.Get(ctx, "MSFT", interval.Monthly)
	require.False(t, ok, "empty payloads are not cached")
}

func TestWarmOnceHonoursAdvisoryLock(t *testing.T) {
	ctx := context.Background()
	history := &scriptedHistory{}
	seriesCache := cache.New(cache.NewMemoryKV(), cache.Options{}, zerolog.Nop())

	held := &fakeLocker{}
	w, err := NewWarmer(history, seriesCache, WarmerOptions{Symbols: []string{"AAPL"}, LockKey: 42, Locker: held}, zerolog.Nop())
	require.NoError(t, err)

	result, err := w.WarmOnce(ctx)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Empty(t, history.calls)

	free := &fakeLocker{acquired: true}
	w, err = NewWarmer(history, seriesCache, WarmerOptions{Symbols: []string{"AAPL"}, LockKey: 42, Locker: free}, zerolog.Nop())
	require.NoError(t, err)
	_, err = w.WarmOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, free.released)

	broken := &fakeLocker{err: errors.New("pool closed")}
	w, err = NewWarmer(history, seriesCache, WarmerOptions{Symbols: []string{"AAPL"}, LockKey: 42, Locker: broken}, zerolog.Nop())
	require.NoError(t, err)
	_, err = w.WarmOnce(ctx)
	require.ErrorContains(t, err, "pool closed")
}

func TestNewWarmerValidation(t *testing.T) {
	seriesCache := cache.New(cache.NewMemoryKV(), cache.Options{}, zerolog.Nop())

	_, err := NewWarmer(nil, seriesCache, WarmerOptions{}, zerolog.Nop())
	require.Error(t, err)

	_, err = NewWarmer(&scriptedHistory{}, seriesCache, WarmerOptions{Symbols: []string{"1234567"}}, zerolog.Nop())
	require.Error(t, err)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	w, err := NewWarmer(&scriptedHistory{}, cache.New(cache.NewMemoryKV(), cache.Options{}, zerolog.Nop()), WarmerOptions{}, zerolog.Nop())
	require.NoError(t, err)
	require.Error(t, w.Schedule(context.Background(), "every tuesday"))
}

func TestScheduleStopsOnCancel(t *testing.T) {
	w, err := NewWarmer(&scriptedHistory{}, cache.New(cache.NewMemoryKV(), cache.Options{}, zerolog.Nop()), WarmerOptions{}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Schedule(ctx, "0 30 6 * * 1-5"))
}
