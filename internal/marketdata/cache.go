package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"compinvest/internal/finance"
	"compinvest/internal/storage"
)

const memoTTL = 10 * time.Minute

type memoEntry struct {
	createdAt time.Time
	bars      []Bar
}

// CachedSource answers repeated requests from memory, then Redis and SQLite
// when configured, before asking the wrapped source.
type CachedSource struct {
	src    Source
	store  *storage.Store
	shared *RedisCache

	mu   sync.Mutex
	memo map[string]memoEntry
	now  func() time.Time
	log  zerolog.Logger
}

type CacheOption func(*CachedSource)

// WithRedis adds a shared Redis layer between memory and SQLite.
func WithRedis(r *RedisCache) CacheOption {
	return func(c *CachedSource) { c.shared = r }
}

// NewCachedSource wraps src. store may be nil for a memory-only cache.
func NewCachedSource(src Source, store *storage.Store, opts ...CacheOption) *CachedSource {
	c := &CachedSource{
		src:   src,
		store: store,
		memo:  map[string]memoEntry{},
		now:   time.Now,
		log:   log.With().Str("component", "cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func memoKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", symbol, start.Format(storage.DayLayout), end.Format(storage.DayLayout))
}

func (c *CachedSource) memoGet(key string) ([]Bar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.memo[key]; ok {
		if time.Now().Before(entry.createdAt.Add(memoTTL)) {
			return append([]Bar(nil), entry.bars...), true
		}
		delete(c.memo, key)
	}
	return nil, false
}

func (c *CachedSource) memoSet(key string, bars []Bar) {
	c.mu.Lock()
	c.memo[key] = memoEntry{createdAt: time.Now(), bars: append([]Bar(nil), bars...)}
	c.mu.Unlock()
}

func (c *CachedSource) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	start, end = finance.CalendarDay(start), finance.CalendarDay(end)
	key := memoKey(symbol, start, end)
	if bars, ok := c.memoGet(key); ok {
		cacheTotal.WithLabelValues("memory", "hit").Inc()
		return bars, nil
	}
	cacheTotal.WithLabelValues("memory", "miss").Inc()

	if c.shared != nil {
		bars, ok, err := c.shared.get(ctx, key)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("redis cache read failed")
		} else if ok {
			cacheTotal.WithLabelValues("redis", "hit").Inc()
			c.memoSet(key, bars)
			return bars, nil
		}
		cacheTotal.WithLabelValues("redis", "miss").Inc()
	}

	if c.store != nil {
		bars, ok, err := c.fromStore(ctx, symbol, start, end)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("sqlite cache read failed")
		} else if ok {
			cacheTotal.WithLabelValues("sqlite", "hit").Inc()
			c.memoSet(key, bars)
			c.share(ctx, symbol, key, bars)
			return bars, nil
		}
		cacheTotal.WithLabelValues("sqlite", "miss").Inc()
	}

	bars, err := c.src.Bars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	c.memoSet(key, bars)
	c.share(ctx, symbol, key, bars)

	if c.store != nil {
		if err := c.toStore(ctx, symbol, start, end, bars); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("sqlite cache write failed")
		}
	}
	return bars, nil
}

func (c *CachedSource) share(ctx context.Context, symbol, key string, bars []Bar) {
	if c.shared == nil {
		return
	}
	if err := c.shared.set(ctx, key, bars); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("redis cache write failed")
	}
}

func (c *CachedSource) fromStore(ctx context.Context, symbol string, start, end time.Time) ([]Bar, bool, error) {
	covered, err := c.store.Covered(ctx, symbol, start, end)
	if err != nil || !covered {
		return nil, false, err
	}
	rows, err := c.store.LoadBars(ctx, symbol, start, end)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		day, err := time.Parse(storage.DayLayout, r.Day)
		if err != nil {
			return nil, false, err
		}
		bars = append(bars, Bar{Day: day, Close: r.Close, ActualClose: r.ActualClose})
	}
	return bars, true, nil
}

func (c *CachedSource) toStore(ctx context.Context, symbol string, start, end time.Time, bars []Bar) error {
	rows := make([]storage.PriceRow, len(bars))
	for i, b := range bars {
		rows[i] = storage.PriceRow{
			Symbol:      symbol,
			Day:         b.Day.Format(storage.DayLayout),
			Close:       b.Close,
			ActualClose: b.ActualClose,
		}
	}
	if err := c.store.SaveBars(ctx, rows); err != nil {
		return err
	}
	covered, ok := c.settledEnd(end, bars)
	if !ok || covered.Before(start) {
		return nil
	}
	return c.store.MarkFetched(ctx, symbol, start, covered)
}

// settledEnd is the last day of a fetch that later requests may trust: no
// later than the last bar returned and no later than yesterday in New York.
// Days after it can still gain bars.
func (c *CachedSource) settledEnd(end time.Time, bars []Bar) (time.Time, bool) {
	if len(bars) == 0 {
		return time.Time{}, false
	}
	last := bars[0].Day
	for _, b := range bars[1:] {
		if b.Day.After(last) {
			last = b.Day
		}
	}
	if last.Before(end) {
		end = last
	}
	if yesterday := finance.TradingDay(c.now()).AddDate(0, 0, -1); yesterday.Before(end) {
		end = yesterday
	}
	return end, true
}
