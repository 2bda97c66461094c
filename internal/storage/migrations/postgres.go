package migrations

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"backtest-gate/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are idempotent (CREATE ... IF NOT EXISTS).
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readSQL(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, f := range files {
		if _, err := pool.Exec(ctx, f.body); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
		log.Debug().Str("component", "migrations").Str("file", f.name).Msg("postgres migration applied")
	}
	return nil
}
