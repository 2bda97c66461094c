package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"backtest-gate/internal/config"
	"backtest-gate/internal/storage"
	chstore "backtest-gate/internal/storage/clickhouse"
	"backtest-gate/internal/storage/memory"
	"backtest-gate/internal/storage/migrations"
	pgstore "backtest-gate/internal/storage/postgres"
)

// ErrNoStorage is returned when a command needs a database and none is configured.
var ErrNoStorage = errors.New("no postgres_dsn configured")

// Stores holds the run and trade stores of a command. Both are nil when no
// database is configured.
type Stores struct {
	Runs   storage.RunStore
	Trades storage.TradeStore

	closers []func()
}

// OpenStores connects to the configured databases, applying migrations if
// enabled. Runs go to PostgreSQL; trades go to ClickHouse when configured
// and to memory otherwise.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}
	if cfg.Storage.PostgresDSN == "" {
		return s, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, pool.Close)
	if cfg.Storage.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}
	s.Runs = pgstore.NewRunStore(pool)

	if cfg.Storage.ClickhouseDSN == "" {
		log.Info().Msg("no clickhouse_dsn, trades are kept in memory")
		s.Trades = memory.NewTradeStore()
		return s, nil
	}

	var conn *chstore.Conn
	if cfg.Storage.Migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	s.closers = append(s.closers, func() {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Msg("close clickhouse")
		}
	})
	s.Trades = chstore.NewTradeStore(conn)
	return s, nil
}

// Enabled reports whether runs are persisted.
func (s *Stores) Enabled() bool {
	return s.Runs != nil
}

// Close releases every connection.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
