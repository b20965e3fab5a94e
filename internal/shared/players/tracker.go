package players

import (
	"sync"
	"time"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

// Tracker owns every player record. All mutations happen under the
// tracker lock so rating settlement is an atomic read-modify-write and
// flag changes are immediately visible to the next reader.
type Tracker struct {
	mu      sync.RWMutex
	records map[uuidstring.ID]*Record

	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		records: make(map[uuidstring.ID]*Record),
		now:     time.Now,
	}
}

// record returns the player's record, creating it with default ratings
// on first sight. Callers must hold the write lock.
func (tr *Tracker) record(playerId uuidstring.ID) *Record {
	r, ok := tr.records[playerId]
	if !ok {
		r = &Record{
			PlayerId: playerId,
			Stats:    make(map[format.Format]*Stats, len(format.All())),
		}
		for _, f := range format.All() {
			r.Stats[f] = &Stats{Rating: DefaultRating}
		}
		tr.records[playerId] = r
	}
	return r
}

func (tr *Tracker) GetRating(playerId uuidstring.ID, f format.Format) int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if r, ok := tr.records[playerId]; ok {
		if s, ok := r.Stats[f]; ok {
			return s.Rating
		}
	}
	return DefaultRating
}

func (tr *Tracker) GetStats(playerId uuidstring.ID, f format.Format) Stats {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if r, ok := tr.records[playerId]; ok {
		if s, ok := r.Stats[f]; ok {
			return *s
		}
	}
	return Stats{Rating: DefaultRating}
}

// AdjustRating applies delta to the player's rating in the format,
// flooring the result at MinRating.
func (tr *Tracker) AdjustRating(playerId uuidstring.ID, f format.Format, delta int) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	s := tr.record(playerId).Stats[f]
	s.Rating += delta
	if s.Rating < MinRating {
		s.Rating = MinRating
	}
	return s.Rating
}

func (tr *Tracker) SetCurrentMatch(playerId uuidstring.ID, matchId int64) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.record(playerId).CurrentMatchId = matchId
}

func (tr *Tracker) CurrentMatch(playerId uuidstring.ID) int64 {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if r, ok := tr.records[playerId]; ok {
		return r.CurrentMatchId
	}
	return 0
}

func (tr *Tracker) SetInQueue(playerId uuidstring.ID, inQueue bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.record(playerId).InQueue = inQueue
}

func (tr *Tracker) InQueue(playerId uuidstring.ID) bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if r, ok := tr.records[playerId]; ok {
		return r.InQueue
	}
	return false
}

// Touch records that the player was just observed active.
func (tr *Tracker) Touch(playerId uuidstring.ID) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	r := tr.record(playerId)
	r.LastHeartbeat = tr.now()
	r.Inactive = false
}

// IsStale reports whether the player's heartbeat is missing or older
// than staleAfter. A player the tracker has never seen is stale.
func (tr *Tracker) IsStale(playerId uuidstring.ID, staleAfter time.Duration) bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	r, ok := tr.records[playerId]
	if !ok || r.LastHeartbeat.IsZero() {
		return true
	}
	return tr.now().Sub(r.LastHeartbeat) > staleAfter
}

func (tr *Tracker) MarkInactive(playerId uuidstring.ID) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.record(playerId).Inactive = true
}

// ApplyMatchResult settles one finished match in a single critical
// section: winners gain d.Win and a win, losers take d.Lose, draws take
// d.Draw, everyone listed plays a game, ratings never drop below
// MinRating, and every listed player leaves the match.
func (tr *Tracker) ApplyMatchResult(f format.Format, winners, losers, draw []uuidstring.ID, d Deltas) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	settle := func(playerId uuidstring.ID, delta int, won bool) {
		r := tr.record(playerId)
		s := r.Stats[f]
		s.Rating += delta
		if s.Rating < MinRating {
			s.Rating = MinRating
		}
		s.GamesPlayed++
		if won {
			s.GamesWon++
		}
		r.CurrentMatchId = 0
	}

	for _, p := range winners {
		settle(p, d.Win, true)
	}
	for _, p := range losers {
		settle(p, d.Lose, false)
	}
	for _, p := range draw {
		settle(p, d.Draw, false)
	}
}

// ClearMatch detaches every listed player from their current match
// without touching ratings. Used on cancellation.
func (tr *Tracker) ClearMatch(playerIds []uuidstring.ID) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, p := range playerIds {
		tr.record(p).CurrentMatchId = 0
	}
}
