package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eschota/secs-matchmaking/internal/shared/match"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

// PostgresStore writes terminal matches into a `matches` table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the matches table if it is missing. Called once
// at startup; the archive is append-only after that.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS matches (
			match_id     BIGINT PRIMARY KEY,
			format       TEXT NOT NULL,
			player_ids   TEXT[] NOT NULL,
			teams        INT[] NOT NULL,
			status       TEXT NOT NULL,
			winners      TEXT[],
			losers       TEXT[],
			draw         TEXT[],
			cancel_note  TEXT,
			timed_out    BOOLEAN NOT NULL DEFAULT FALSE,
			started_at   TIMESTAMPTZ NOT NULL,
			ended_at     TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure matches table: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveMatch(ctx context.Context, m match.Match) error {
	query := `
		INSERT INTO matches (match_id, format, player_ids, teams, status, winners, losers, draw, cancel_note, timed_out, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (match_id) DO NOTHING
	`
	_, err := s.db.Exec(ctx, query,
		m.MatchId,
		m.Format.String(),
		idStrings(m.PlayerIds),
		m.Teams,
		string(m.Status),
		idStrings(m.Winners),
		idStrings(m.Losers),
		idStrings(m.Draw),
		m.CancelNote,
		m.TimedOut,
		m.StartTime,
		m.EndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save match %d: %w", m.MatchId, err)
	}
	return nil
}

func idStrings(ids []uuidstring.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
