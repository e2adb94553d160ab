package analysis

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"compinvest/internal/config"
	"compinvest/internal/marketdata"
	"compinvest/internal/storage"
)

// NewFromConfig opens the run store, builds the configured price source with
// its caches and returns a ready runner plus a close function.
func NewFromConfig(ctx context.Context, cfg config.Config) (*Runner, func() error, error) {
	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		return nil, nil, err
	}
	if err := storage.InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Debug().Str("path", cfg.DBPath).Msg("db: sqlite schema ensured")
	store := storage.NewStore(db)

	src, err := marketdata.NewSource(cfg.PriceSource, cfg.DataDir, marketdata.YahooOptions{
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	// csv files are already local, so only remote sources get the sqlite layer
	var priceStore *storage.Store
	if cfg.CacheEnabled && cfg.PriceSource != "csv" {
		priceStore = store
	}
	closeAll := db.Close
	var cacheOpts []marketdata.CacheOption
	if cfg.RedisAddr != "" && cfg.PriceSource != "csv" {
		shared, err := marketdata.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, continuing without shared cache")
		} else {
			cacheOpts = append(cacheOpts, marketdata.WithRedis(shared))
			closeAll = func() error {
				shared.Close()
				return db.Close()
			}
		}
	}
	src = marketdata.NewCachedSource(src, priceStore, cacheOpts...)

	runner := NewRunner(marketdata.NewLoader(src), store, Options{
		SharpePeriods:  cfg.SharpePeriods,
		MarketSymbol:   cfg.MarketSymbol,
		EventThreshold: cfg.EventThreshold,
	})
	return runner, closeAll, nil
}
