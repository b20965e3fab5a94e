package archive

import (
	"context"

	"github.com/eschota/secs-matchmaking/internal/shared/match"
)

// Store persists matches that reached a terminal status. Saving is
// best-effort: the in-memory transition has already committed by the
// time SaveMatch runs, so a failure costs durability, not consistency.
type Store interface {
	SaveMatch(ctx context.Context, m match.Match) error
}

// Discard is the no-op archive used when no database is configured.
type Discard struct{}

func (Discard) SaveMatch(context.Context, match.Match) error { return nil }
