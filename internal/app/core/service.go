package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/eschota/secs-matchmaking/internal/app/matchmake"
	"github.com/eschota/secs-matchmaking/internal/app/resolver"
	"github.com/eschota/secs-matchmaking/internal/shared/archive"
	"github.com/eschota/secs-matchmaking/internal/shared/config"
	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/internal/shared/match"
	"github.com/eschota/secs-matchmaking/internal/shared/players"
	"github.com/eschota/secs-matchmaking/internal/shared/queue"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

const archiveTimeout = 5 * time.Second

type EnqueueResult string

const (
	EnqueueOK             EnqueueResult = "ok"
	EnqueueReplaced       EnqueueResult = "replaced"
	EnqueueAlreadyInMatch EnqueueResult = "already_in_match"
)

type DequeueResult string

const (
	DequeueOK        DequeueResult = "ok"
	DequeueNotQueued DequeueResult = "not_queued"
)

type FinishResult string

const (
	FinishOK              FinishResult = "ok"
	FinishNotFound        FinishResult = "not_found"
	FinishAlreadyFinished FinishResult = "already_finished"
)

type CancelResult string

const (
	CancelOK       CancelResult = "ok"
	CancelNotFound CancelResult = "not_found"
)

// QueueStatus is the caller-facing view of one player's wait.
type QueueStatus struct {
	InQueue          bool          `json:"in_queue"`
	Format           format.Format `json:"format,omitempty"`
	SecondsWaited    int           `json:"seconds_waited"`
	CurrentThreshold int           `json:"current_threshold"`
	Rating           int           `json:"rating"`
}

type QueueCounts struct {
	PerFormat map[format.Format]int `json:"per_format"`
	Total     int                   `json:"total"`
}

// Service is the facade external collaborators talk to. It owns the
// scheduler loop and serializes nothing itself: each store component
// carries its own locking, so caller operations interleave freely with
// the periodic tick.
type Service struct {
	Queue      queue.Store
	Players    *players.Tracker
	Matches    *match.Registry
	Archive    archive.Store
	Matchmaker *matchmake.Matchmaker
	Resolver   *resolver.Resolver
	Cfg        *config.Config

	now func() time.Time
}

func NewService(cfg *config.Config, q queue.Store, tr *players.Tracker, reg *match.Registry, ar archive.Store, mm *matchmake.Matchmaker, res *resolver.Resolver) *Service {
	return &Service{
		Queue:      q,
		Players:    tr,
		Matches:    reg,
		Archive:    ar,
		Matchmaker: mm,
		Resolver:   res,
		Cfg:        cfg,
		now:        time.Now,
	}
}

// EnqueuePlayer places the player into the format's queue with a
// rating snapshot taken now. A player already in a match is rejected;
// a player already queued for the format has the ticket replaced and
// the wait clock reset.
func (s *Service) EnqueuePlayer(ctx context.Context, playerId uuidstring.ID, f format.Format) (EnqueueResult, error) {
	if playerId.IsNil() {
		return "", errors.New("player id is required")
	}
	if !f.Valid() {
		return "", fmt.Errorf("unknown match format %q", f)
	}
	if s.Players.CurrentMatch(playerId) != 0 {
		return EnqueueAlreadyInMatch, nil
	}

	s.Players.Touch(playerId)
	t := queue.Ticket{
		PlayerId:      playerId,
		Format:        f,
		Rating:        s.Players.GetRating(playerId, f),
		JoinTime:      s.now(),
		BaseThreshold: s.Cfg.BaseThreshold,
	}
	replaced := s.Queue.Enqueue(t)
	s.Players.SetInQueue(playerId, true)
	if replaced {
		return EnqueueReplaced, nil
	}
	return EnqueueOK, nil
}

func (s *Service) DequeuePlayer(ctx context.Context, playerId uuidstring.ID, f format.Format) (DequeueResult, error) {
	if !f.Valid() {
		return "", fmt.Errorf("unknown match format %q", f)
	}
	if !s.Queue.Dequeue(playerId, f) {
		return DequeueNotQueued, nil
	}
	if len(s.Queue.TicketsFor(playerId)) == 0 {
		s.Players.SetInQueue(playerId, false)
	}
	return DequeueOK, nil
}

// GetQueueStatus reports on the player's oldest ticket: how long it has
// waited and how wide its acceptance window currently is.
func (s *Service) GetQueueStatus(playerId uuidstring.ID) QueueStatus {
	tickets := s.Queue.TicketsFor(playerId)
	if len(tickets) == 0 {
		return QueueStatus{}
	}
	t := tickets[0]
	now := s.now()
	return QueueStatus{
		InQueue:          true,
		Format:           t.Format,
		SecondsWaited:    t.SecondsInQueue(now),
		CurrentThreshold: s.Matchmaker.Policy.Current(t, now),
		Rating:           t.Rating,
	}
}

func (s *Service) GetQueueCounts() QueueCounts {
	counts := s.Queue.Counts()
	total := 0
	for _, n := range counts {
		total += n
	}
	return QueueCounts{PerFormat: counts, Total: total}
}

func (s *Service) GetMatch(matchId int64) (match.Match, error) {
	return s.Matches.Get(matchId)
}

func (s *Service) GetActiveMatchesForPlayer(playerId uuidstring.ID) []match.Match {
	return s.Matches.ListActiveForPlayer(playerId)
}

// FinishMatch records an externally reported outcome. The registry
// transition is the serialization point: whichever caller transitions
// the match first settles ratings, the loser of the race hears
// "already finished" and mutates nothing.
func (s *Service) FinishMatch(ctx context.Context, matchId int64, winners, losers, draw []uuidstring.ID) (FinishResult, error) {
	m, err := s.Matches.Get(matchId)
	if err != nil {
		return finishResultFromErr(err)
	}
	for _, p := range concat(winners, losers, draw) {
		if !m.HasPlayer(p) {
			return "", fmt.Errorf("player %s is not part of match %d", p, matchId)
		}
	}

	finished, err := s.Matches.Finish(matchId, match.StatusCompleted, winners, losers, draw)
	if err != nil {
		return finishResultFromErr(err)
	}

	s.Players.ApplyMatchResult(finished.Format, winners, losers, draw, players.Deltas{
		Win:  s.Cfg.WinDelta,
		Lose: s.Cfg.LoseDelta,
		Draw: s.Cfg.DrawDelta,
	})
	// seats not named in the outcome still leave the match
	s.Players.ClearMatch(unlisted(finished.PlayerIds, winners, losers, draw))

	s.archiveAsync(finished)
	return FinishOK, nil
}

// CancelMatch voids a match with no rating movement.
func (s *Service) CancelMatch(ctx context.Context, matchId int64, reason string) (CancelResult, error) {
	cancelled, err := s.Matches.Cancel(matchId, reason)
	if err != nil {
		if errors.Is(err, match.ErrNotFound) || errors.Is(err, match.ErrAlreadyFinished) {
			return CancelNotFound, nil
		}
		return "", err
	}
	s.Players.ClearMatch(cancelled.PlayerIds)
	s.archiveAsync(cancelled)
	log.Infof("match %d cancelled: %s", matchId, reason)
	return CancelOK, nil
}

// Touch is the heartbeat input: the session layer calls it for every
// request it handles on the player's behalf.
func (s *Service) Touch(playerId uuidstring.ID) {
	s.Players.Touch(playerId)
}

func finishResultFromErr(err error) (FinishResult, error) {
	switch {
	case errors.Is(err, match.ErrNotFound):
		return FinishNotFound, nil
	case errors.Is(err, match.ErrAlreadyFinished):
		return FinishAlreadyFinished, nil
	default:
		return "", err
	}
}

func (s *Service) archiveAsync(m match.Match) {
	if s.Archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := s.Archive.SaveMatch(ctx, m); err != nil {
			log.Errorf("failed to archive match %d - %v", m.MatchId, err)
		}
	}()
}

func concat(lists ...[]uuidstring.ID) []uuidstring.ID {
	var out []uuidstring.ID
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func unlisted(roster []uuidstring.ID, lists ...[]uuidstring.ID) []uuidstring.ID {
	named := make(map[uuidstring.ID]bool)
	for _, l := range lists {
		for _, p := range l {
			named[p] = true
		}
	}
	var out []uuidstring.ID
	for _, p := range roster {
		if !named[p] {
			out = append(out, p)
		}
	}
	return out
}
