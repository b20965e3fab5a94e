package queue

import (
	"math"
	"time"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

// Ticket is one player's matchmaking request for one format. Rating is a
// snapshot taken at enqueue time and does not follow the live rating
// while the player waits.
type Ticket struct {
	PlayerId      uuidstring.ID `json:"player_id"`
	Format        format.Format `json:"format"`
	Rating        int           `json:"rating"`
	JoinTime      time.Time     `json:"join_time"`
	BaseThreshold int           `json:"base_threshold"`
}

func (t Ticket) SecondsInQueue(now time.Time) int {
	s := int(now.Sub(t.JoinTime).Seconds())
	if s < 0 {
		return 0
	}
	return s
}

// ThresholdPolicy controls how far a ticket's acceptable rating gap
// widens as it waits. Every Step waited grows the gap proportionally to
// the ticket's own rating, so high-rated players with sparse pools widen
// faster in absolute terms.
type ThresholdPolicy struct {
	Base       int
	Multiplier float64
	Step       time.Duration
	Min        int
}

// Current computes the ticket's acceptable rating gap at `now`:
// base + floor(rating * multiplier * stepsWaited), never below Min.
func (p ThresholdPolicy) Current(t Ticket, now time.Time) int {
	steps := 0
	if p.Step > 0 {
		steps = int(now.Sub(t.JoinTime) / p.Step)
		if steps < 0 {
			steps = 0
		}
	}
	base := t.BaseThreshold
	if base == 0 {
		base = p.Base
	}
	threshold := base + int(math.Floor(float64(t.Rating)*p.Multiplier*float64(steps)))
	if threshold < p.Min {
		threshold = p.Min
	}
	return threshold
}
