package storage

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS games (
	id UUID PRIMARY KEY,
	time_control TEXT NOT NULL,
	starting_fen TEXT NOT NULL,
	white_name TEXT NOT NULL,
	black_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	result TEXT,
	reason TEXT,
	finished_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS moves (
	game_id UUID NOT NULL REFERENCES games(id),
	ply INT NOT NULL,
	san TEXT NOT NULL,
	fen TEXT NOT NULL,
	ts_ms BIGINT NOT NULL,
	side TEXT NOT NULL,
	UNIQUE (game_id, ply)
);
CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves(game_id);
`

// Store persists games and their move lists to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the games/moves tables exist.
// If databaseURL is empty, NewStore returns (nil, nil) and no persistence
// occurs; callers should fall back to NullStore in that case.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool. Safe to call on a nil *Store.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// CreateGame inserts a new game row and returns its generated id.
func (s *Store) CreateGame(ctx context.Context, meta GameMeta) (string, error) {
	if s == nil || s.pool == nil {
		return "", nil
	}
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO games (id, time_control, starting_fen, white_name, black_name)
		VALUES ($1, $2, $3, $4, $5)`,
		id, meta.TimeControl, meta.StartingFEN, meta.White.Name, meta.Black.Name)
	if err != nil {
		return "", err
	}
	return id, nil
}

// AppendMove inserts one ply. The unique index on (game_id, ply) makes a
// duplicate insert a no-op rather than an error.
func (s *Store) AppendMove(ctx context.Context, id string, ply int, san, fen string, tsMS int64, side string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO moves (game_id, ply, san, fen, ts_ms, side)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, ply) DO NOTHING`,
		id, ply, san, fen, tsMS, side)
	return err
}

// FinishGame records the terminal result and reason for a game.
func (s *Store) FinishGame(ctx context.Context, id, result, reason string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE games SET result = $2, reason = $3, finished_at = now()
		WHERE id = $1`,
		id, result, reason)
	return err
}

// NullStore is a no-op HistoryStore, used when DATABASE_URL is unset and in
// tests that don't need persistence. Every method is a harmless no-op,
// mirroring the way *Store's own receiver methods already tolerate a nil
// pool.
type NullStore struct{}

func (NullStore) CreateGame(ctx context.Context, meta GameMeta) (string, error) { return "", nil }
func (NullStore) AppendMove(ctx context.Context, id string, ply int, san, fen string, tsMS int64, side string) error {
	return nil
}
func (NullStore) FinishGame(ctx context.Context, id, result, reason string) error { return nil }
func (NullStore) Close()                                                         {}
