package match

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

var (
	ErrNotFound        = errors.New("match not found")
	ErrAlreadyFinished = errors.New("match already finished")
)

// Registry holds every in-progress match. Ids are assigned monotonically
// and never reused. Finished matches leave the active set immediately;
// their ids stay behind as tombstones for a while so a caller racing a
// concurrent finish hears "already finished" instead of "not found".
type Registry struct {
	mu       sync.Mutex
	nextId   int64
	active   map[int64]*Match
	finished map[int64]time.Time

	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		active:   make(map[int64]*Match),
		finished: make(map[int64]time.Time),
		now:      time.Now,
	}
}

// Create forms a new in-progress match and returns its id. PlayerIds
// and teams must already satisfy the format's shape.
func (r *Registry) Create(f format.Format, playerIds []uuidstring.ID, teams []int, maxDuration time.Duration) (int64, error) {
	if len(playerIds) != f.PartySize() || len(playerIds) != len(teams) {
		return 0, fmt.Errorf("format %s wants %d players, got %d players in %d teams", f, f.PartySize(), len(playerIds), len(teams))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	m := &Match{
		MatchId:     r.nextId,
		Format:      f,
		PlayerIds:   append([]uuidstring.ID(nil), playerIds...),
		Teams:       append([]int(nil), teams...),
		StartTime:   r.now(),
		MaxDuration: maxDuration,
		Status:      StatusInProgress,
	}
	r.active[m.MatchId] = m
	return m.MatchId, nil
}

func (r *Registry) Get(matchId int64) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.active[matchId]; ok {
		return m.clone(), nil
	}
	if _, ok := r.finished[matchId]; ok {
		return Match{}, ErrAlreadyFinished
	}
	return Match{}, ErrNotFound
}

func (r *Registry) ListActive() []Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Match, 0, len(r.active))
	for _, m := range r.active {
		out = append(out, m.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchId < out[j].MatchId })
	return out
}

func (r *Registry) ListActiveForPlayer(playerId uuidstring.ID) []Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Match
	for _, m := range r.active {
		if m.HasPlayer(playerId) {
			out = append(out, m.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchId < out[j].MatchId })
	return out
}

// Finish moves the match out of the active set with the given terminal
// status and outcome lists, stamping EndTime. Only the first caller to
// transition the match succeeds; later callers get ErrAlreadyFinished.
// The returned copy carries the final state for persistence.
func (r *Registry) Finish(matchId int64, status Status, winners, losers, draw []uuidstring.ID) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.active[matchId]
	if !ok {
		if _, finished := r.finished[matchId]; finished {
			return Match{}, ErrAlreadyFinished
		}
		return Match{}, ErrNotFound
	}
	m.Status = status
	m.EndTime = r.now()
	m.Winners = append([]uuidstring.ID(nil), winners...)
	m.Losers = append([]uuidstring.ID(nil), losers...)
	m.Draw = append([]uuidstring.ID(nil), draw...)

	delete(r.active, matchId)
	r.finished[matchId] = m.EndTime
	return m.clone(), nil
}

// ResolveTimeout completes a match the timeout path is settling,
// marking the outcome as timed out. Same first-transition-wins
// semantics as Finish.
func (r *Registry) ResolveTimeout(matchId int64, winners, losers []uuidstring.ID) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.active[matchId]
	if !ok {
		if _, finished := r.finished[matchId]; finished {
			return Match{}, ErrAlreadyFinished
		}
		return Match{}, ErrNotFound
	}
	m.Status = StatusCompleted
	m.EndTime = r.now()
	m.Winners = append([]uuidstring.ID(nil), winners...)
	m.Losers = append([]uuidstring.ID(nil), losers...)
	m.TimedOut = true

	delete(r.active, matchId)
	r.finished[matchId] = m.EndTime
	return m.clone(), nil
}

// Cancel transitions the match to Cancelled with no outcome, recording
// the caller's reason. Same first-transition-wins semantics as Finish.
func (r *Registry) Cancel(matchId int64, reason string) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.active[matchId]
	if !ok {
		if _, finished := r.finished[matchId]; finished {
			return Match{}, ErrAlreadyFinished
		}
		return Match{}, ErrNotFound
	}
	m.Status = StatusCancelled
	m.EndTime = r.now()
	m.CancelNote = reason

	delete(r.active, matchId)
	r.finished[matchId] = m.EndTime
	return m.clone(), nil
}

// PruneFinished drops tombstones older than retention. Called from the
// resolver tick so the tombstone set stays bounded.
func (r *Registry) PruneFinished(retention time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-retention)
	pruned := 0
	for id, endedAt := range r.finished {
		if endedAt.Before(cutoff) {
			delete(r.finished, id)
			pruned++
		}
	}
	return pruned
}
