package resolver

import (
	"context"
	"errors"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/eschota/secs-matchmaking/internal/shared/archive"
	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/internal/shared/match"
	"github.com/eschota/secs-matchmaking/internal/shared/players"
	"github.com/eschota/secs-matchmaking/internal/shared/queue"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

const archiveTimeout = 5 * time.Second

// Resolver is the cleanup half of the tick: it settles matches that
// outlived their max duration and evicts queued players whose
// heartbeats went quiet. It is the guarantee that matches never linger
// forever and queue state never deadlocks.
type Resolver struct {
	Queue             queue.Store
	Players           *players.Tracker
	Matches           *match.Registry
	Archive           archive.Store
	Deltas            players.Deltas
	StaleAfter        time.Duration
	FinishedRetention time.Duration

	now  func() time.Time
	pick func(n int) int
}

func New(q queue.Store, tr *players.Tracker, reg *match.Registry, ar archive.Store, d players.Deltas, staleAfter, finishedRetention time.Duration) *Resolver {
	return &Resolver{
		Queue:             q,
		Players:           tr,
		Matches:           reg,
		Archive:           ar,
		Deltas:            d,
		StaleAfter:        staleAfter,
		FinishedRetention: finishedRetention,
		now:               time.Now,
		pick:              rand.Intn,
	}
}

// Run executes one cleanup tick: expired matches first, then stale
// tickets, then tombstone pruning.
func (r *Resolver) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.resolveExpired(ctx)
	r.evictStale(ctx)
	r.Matches.PruneFinished(r.FinishedRetention)
	return ctx.Err()
}

// resolveExpired settles every in-progress match past its deadline:
// one player drawn uniformly at random wins, everyone else loses, and
// the timeout flag marks the outcome as unreported by gameplay.
func (r *Resolver) resolveExpired(ctx context.Context) {
	now := r.now()
	for _, m := range r.Matches.ListActive() {
		if !m.Expired(now) {
			continue
		}
		winnerIdx := r.pick(len(m.PlayerIds))
		winners := []uuidstring.ID{m.PlayerIds[winnerIdx]}
		losers := make([]uuidstring.ID, 0, len(m.PlayerIds)-1)
		for i, p := range m.PlayerIds {
			if i != winnerIdx {
				losers = append(losers, p)
			}
		}

		resolved, err := r.Matches.ResolveTimeout(m.MatchId, winners, losers)
		if err != nil {
			// an external finish beat us to it; nothing to settle
			if errors.Is(err, match.ErrAlreadyFinished) || errors.Is(err, match.ErrNotFound) {
				continue
			}
			log.Errorf("failed to resolve expired match %d - %v", m.MatchId, err)
			continue
		}

		r.Players.ApplyMatchResult(resolved.Format, winners, losers, nil, r.Deltas)
		log.Infof("match %d timed out after %s, winner %s", resolved.MatchId, resolved.MaxDuration, winners[0])

		r.archiveAsync(resolved)
	}
}

// evictStale removes every queued ticket whose owner has not been
// heard from within StaleAfter, so disconnected players stop occupying
// matchable pools.
func (r *Resolver) evictStale(ctx context.Context) {
	for _, f := range format.All() {
		if ctx.Err() != nil {
			return
		}
		for _, t := range r.Queue.Snapshot(f) {
			if !r.Players.IsStale(t.PlayerId, r.StaleAfter) {
				continue
			}
			r.Queue.Dequeue(t.PlayerId, f)
			r.Players.SetInQueue(t.PlayerId, false)
			r.Players.MarkInactive(t.PlayerId)
			log.Infof("evicted stale player %s from %s queue", t.PlayerId, f)
		}
	}
}

// PurgeQueues empties every queue. Runs once before the scheduler loop
// starts: in-memory state is not durable, so every ticket surviving a
// restart is stale by definition.
func (r *Resolver) PurgeQueues(ctx context.Context) {
	evicted := r.Queue.Purge()
	for _, t := range evicted {
		r.Players.SetInQueue(t.PlayerId, false)
	}
	if len(evicted) > 0 {
		log.Infof("startup purge removed %d tickets", len(evicted))
	}
}

func (r *Resolver) archiveAsync(m match.Match) {
	if r.Archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := r.Archive.SaveMatch(ctx, m); err != nil {
			log.Errorf("failed to archive match %d - %v", m.MatchId, err)
		}
	}()
}
