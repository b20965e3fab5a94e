package matchmake

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/internal/shared/match"
	"github.com/eschota/secs-matchmaking/internal/shared/notify"
	"github.com/eschota/secs-matchmaking/internal/shared/players"
	"github.com/eschota/secs-matchmaking/internal/shared/queue"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

const notifyTimeout = 5 * time.Second

// Matchmaker runs one pairing pass per scheduler tick. Each format is
// paired independently against an oldest-first snapshot of its queue, so
// the earliest joiners always get the first pairing attempts and no
// ticket is starved while thresholds keep widening.
type Matchmaker struct {
	Queue        queue.Store
	Players      *players.Tracker
	Matches      *match.Registry
	Notifier     notify.Notifier
	Policy       queue.ThresholdPolicy
	MaxDurations map[format.Format]time.Duration

	now func() time.Time
}

func New(q queue.Store, tr *players.Tracker, reg *match.Registry, n notify.Notifier, policy queue.ThresholdPolicy, maxDurations map[format.Format]time.Duration) *Matchmaker {
	return &Matchmaker{
		Queue:        q,
		Players:      tr,
		Matches:      reg,
		Notifier:     n,
		Policy:       policy,
		MaxDurations: maxDurations,
		now:          time.Now,
	}
}

// Run executes one tick: every format gets one pairing pass.
func (m *Matchmaker) Run(ctx context.Context) error {
	for _, f := range format.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.pairFormat(ctx, f)
	}
	return nil
}

func (m *Matchmaker) pairFormat(ctx context.Context, f format.Format) {
	snapshot := m.Queue.Snapshot(f)
	// a player committed into a match earlier this tick (or attached to
	// one since enqueueing) is not a candidate
	eligible := snapshot[:0]
	for _, t := range snapshot {
		if m.Players.CurrentMatch(t.PlayerId) != 0 {
			continue
		}
		eligible = append(eligible, t)
	}
	if len(eligible) < f.PartySize() {
		return
	}
	now := m.now()

	var groups [][]queue.Ticket
	switch f {
	case format.OneVsOne:
		groups = m.pairOneVsOne(eligible, now)
	case format.TwoVsTwo:
		groups = m.pairTwoVsTwo(eligible, now)
	case format.FourPlayerFFA:
		groups = m.pairFourPlayerFFA(eligible, now)
	}

	for _, g := range groups {
		m.commit(ctx, f, g)
	}
}

// pairOneVsOne scans pairs (i, j), i<j, in snapshot order. Each
// unmatched i takes the first unmatched j whose rating gap fits inside
// both tickets' thresholds.
func (m *Matchmaker) pairOneVsOne(snapshot []queue.Ticket, now time.Time) [][]queue.Ticket {
	var groups [][]queue.Ticket
	used := make([]bool, len(snapshot))
	for i := 0; i < len(snapshot); i++ {
		if used[i] {
			continue
		}
		for j := i + 1; j < len(snapshot); j++ {
			if used[j] {
				continue
			}
			gap := absInt(snapshot[i].Rating - snapshot[j].Rating)
			if gap <= minInt(m.threshold(snapshot[i], now), m.threshold(snapshot[j], now)) {
				used[i], used[j] = true, true
				groups = append(groups, []queue.Ticket{snapshot[i], snapshot[j]})
				break
			}
		}
	}
	return groups
}

// pairTwoVsTwo greedily builds team one around the earliest ticket,
// team two from the remainder, and commits only when both teams fill
// and the team averages sit within the tightest of the four thresholds.
// The grouping is deliberately greedy: it can miss a valid combination
// a global search would find, and that behavior is part of the
// observable pairing contract.
func (m *Matchmaker) pairTwoVsTwo(snapshot []queue.Ticket, now time.Time) [][]queue.Ticket {
	var groups [][]queue.Ticket
	pool := append([]queue.Ticket(nil), snapshot...)
	for len(pool) >= 4 {
		group, rest, ok := m.buildTwoTeams(pool, now)
		if !ok {
			// the anchor found no team this tick; everyone it
			// pulled in goes back to the pool
			pool = pool[1:]
			continue
		}
		groups = append(groups, group)
		pool = rest
	}
	return groups
}

func (m *Matchmaker) buildTwoTeams(pool []queue.Ticket, now time.Time) (group []queue.Ticket, rest []queue.Ticket, ok bool) {
	teamOne, remainder := m.buildTeam(pool, now)
	if len(teamOne) != 2 {
		return nil, nil, false
	}
	teamTwo, remainder := m.buildTeam(remainder, now)
	if len(teamTwo) != 2 {
		return nil, nil, false
	}

	limit := m.threshold(teamOne[0], now)
	for _, t := range append(append([]queue.Ticket(nil), teamOne[1:]...), teamTwo...) {
		limit = minInt(limit, m.threshold(t, now))
	}
	if absInt(teamAverage(teamOne)-teamAverage(teamTwo)) > limit {
		return nil, nil, false
	}
	return append(teamOne, teamTwo...), remainder, true
}

// buildTeam seeds a team with the earliest ticket and adds the next
// ticket whose rating stays within the team's current threshold of the
// running team average, stopping at two players.
func (m *Matchmaker) buildTeam(pool []queue.Ticket, now time.Time) (team []queue.Ticket, rest []queue.Ticket) {
	if len(pool) == 0 {
		return nil, nil
	}
	team = []queue.Ticket{pool[0]}
	limit := m.threshold(pool[0], now)
	for i := 1; i < len(pool); i++ {
		if len(team) == 2 {
			rest = append(rest, pool[i:]...)
			break
		}
		candidate := pool[i]
		if absInt(candidate.Rating-teamAverage(team)) <= limit {
			team = append(team, candidate)
			limit = minInt(limit, m.threshold(candidate, now))
			continue
		}
		rest = append(rest, candidate)
	}
	return team, rest
}

// pairFourPlayerFFA anchors on the earliest ticket and collects up to
// three more whose ratings sit within the anchor's threshold of the
// anchor's rating. Only an exact four commits.
func (m *Matchmaker) pairFourPlayerFFA(snapshot []queue.Ticket, now time.Time) [][]queue.Ticket {
	var groups [][]queue.Ticket
	pool := append([]queue.Ticket(nil), snapshot...)
	for len(pool) >= 4 {
		anchor := pool[0]
		limit := m.threshold(anchor, now)
		group := []queue.Ticket{anchor}
		var rest []queue.Ticket
		for _, candidate := range pool[1:] {
			if len(group) < 4 && absInt(candidate.Rating-anchor.Rating) <= limit {
				group = append(group, candidate)
				continue
			}
			rest = append(rest, candidate)
		}
		if len(group) != 4 {
			// anchor could not fill a lobby this tick
			pool = pool[1:]
			continue
		}
		groups = append(groups, group)
		pool = rest
	}
	return groups
}

// commit turns one valid grouping into an in-progress match: registry
// entry first, then player flags, then queue removal, then the
// fire-and-forget announcement.
func (m *Matchmaker) commit(ctx context.Context, f format.Format, group []queue.Ticket) {
	ids := make([]uuidstring.ID, 0, len(group))
	for _, t := range group {
		ids = append(ids, t.PlayerId)
	}

	matchId, err := m.Matches.Create(f, ids, f.TeamNumbers(), m.MaxDurations[f])
	if err != nil {
		log.Errorf("failed to create %s match - %v", f, err)
		return
	}

	for _, t := range group {
		m.Players.SetCurrentMatch(t.PlayerId, matchId)
		m.Players.SetInQueue(t.PlayerId, false)
		// a matched player leaves every queue, not just the matched
		// format's
		for _, qf := range format.All() {
			m.Queue.Dequeue(t.PlayerId, qf)
		}
	}

	log.Infof("formed %s match %d with %d players", f, matchId, len(ids))

	if m.Notifier != nil {
		msg := notify.NewMatchFoundMessage(matchId, f, ids)
		go func() {
			nCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := m.Notifier.MatchFound(nCtx, msg); err != nil {
				log.Errorf("failed to announce match %d - %v", matchId, err)
			}
		}()
	}
}

func (m *Matchmaker) threshold(t queue.Ticket, now time.Time) int {
	return m.Policy.Current(t, now)
}

func teamAverage(team []queue.Ticket) int {
	if len(team) == 0 {
		return 0
	}
	sum := 0
	for _, t := range team {
		sum += t.Rating
	}
	return sum / len(team)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
