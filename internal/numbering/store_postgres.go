package numbering

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresCounterStore keeps one row per bucket in sequence_counters and
// relies on the upsert's row lock for atomicity. The increment-and-return
// happens in a single statement, so concurrent mints serialize on the row
// instead of racing a read-then-write.
type PostgresCounterStore struct {
	db *sql.DB
}

func NewPostgresCounterStore(db *sql.DB) *PostgresCounterStore {
	return &PostgresCounterStore{db: db}
}

func (s *PostgresCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	const q = `
		INSERT INTO sequence_counters (bucket, n)
		VALUES ($1, 1)
		ON CONFLICT (bucket) DO UPDATE SET n = sequence_counters.n + 1
		RETURNING n`
	var n int64
	if err := s.db.QueryRowContext(ctx, q, key).Scan(&n); err != nil {
		return 0, fmt.Errorf("increment sequence counter %s: %w", key, err)
	}
	return n, nil
}
