package players

import (
	"time"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

const (
	DefaultRating = 500
	MinRating     = 500
)

// Stats is one player's standing in a single format.
type Stats struct {
	Rating      int `json:"rating"`
	GamesPlayed int `json:"games_played"`
	GamesWon    int `json:"games_won"`
}

// Record is everything the core tracks about one player. CurrentMatchId
// of 0 means the player is not in a match (registry ids start at 1). A
// zero LastHeartbeat means the player has never been observed active.
type Record struct {
	PlayerId       uuidstring.ID            `json:"player_id"`
	Stats          map[format.Format]*Stats `json:"stats"`
	CurrentMatchId int64                    `json:"current_match_id"`
	InQueue        bool                     `json:"in_queue"`
	LastHeartbeat  time.Time                `json:"last_heartbeat"`
	Inactive       bool                     `json:"inactive"`
}

// Deltas are the fixed linear rating adjustments applied on settlement.
// Lose is expected to be negative.
type Deltas struct {
	Win  int
	Lose int
	Draw int
}
