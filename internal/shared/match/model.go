package match

import (
	"time"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

type Status string

const (
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// Match is one formed game. PlayerIds and Teams are parallel: Teams[i]
// is the team number of PlayerIds[i]. An EndTime of zero means the match
// has not reached a terminal status yet.
type Match struct {
	MatchId     int64           `json:"match_id"`
	Format      format.Format   `json:"format"`
	PlayerIds   []uuidstring.ID `json:"player_ids"`
	Teams       []int           `json:"teams"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time,omitempty"`
	MaxDuration time.Duration   `json:"max_duration"`
	Status      Status          `json:"status"`
	Winners     []uuidstring.ID `json:"winners,omitempty"`
	Losers      []uuidstring.ID `json:"losers,omitempty"`
	Draw        []uuidstring.ID `json:"draw,omitempty"`
	CancelNote  string          `json:"cancel_note,omitempty"`

	// TimedOut marks an outcome produced by the timeout resolver
	// rather than reported gameplay, so clients can tell the two
	// apart.
	TimedOut bool `json:"timed_out,omitempty"`
}

// Expired reports whether an in-progress match has outlived its
// allotted duration at `now`.
func (m Match) Expired(now time.Time) bool {
	return m.Status == StatusInProgress && now.After(m.StartTime.Add(m.MaxDuration))
}

// HasPlayer reports whether the player holds a seat in this match.
func (m Match) HasPlayer(playerId uuidstring.ID) bool {
	for _, p := range m.PlayerIds {
		if p == playerId {
			return true
		}
	}
	return false
}

func (m Match) clone() Match {
	c := m
	c.PlayerIds = append([]uuidstring.ID(nil), m.PlayerIds...)
	c.Teams = append([]int(nil), m.Teams...)
	c.Winners = append([]uuidstring.ID(nil), m.Winners...)
	c.Losers = append([]uuidstring.ID(nil), m.Losers...)
	c.Draw = append([]uuidstring.ID(nil), m.Draw...)
	return c
}
