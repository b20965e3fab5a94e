package matchmake

import (
	"context"
	"testing"
	"time"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/internal/shared/match"
	"github.com/eschota/secs-matchmaking/internal/shared/notify"
	"github.com/eschota/secs-matchmaking/internal/shared/players"
	"github.com/eschota/secs-matchmaking/internal/shared/queue"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

var testPolicy = queue.ThresholdPolicy{Base: 20, Multiplier: 0.1, Step: 10 * time.Second, Min: 100}

var testDurations = map[format.Format]time.Duration{
	format.OneVsOne:      time.Minute,
	format.TwoVsTwo:      time.Minute,
	format.FourPlayerFFA: time.Minute,
}

type chanNotifier chan notify.MatchFoundMessage

func (c chanNotifier) MatchFound(_ context.Context, msg notify.MatchFoundMessage) error {
	c <- msg
	return nil
}

func newTestMatchmaker(now time.Time) (*Matchmaker, *queue.MemoryStore, *players.Tracker, *match.Registry) {
	q := queue.NewMemoryStore()
	tr := players.NewTracker()
	reg := match.NewRegistry()
	m := New(q, tr, reg, nil, testPolicy, testDurations)
	m.now = func() time.Time { return now }
	return m, q, tr, reg
}

func enqueue(q *queue.MemoryStore, f format.Format, rating int, joined time.Time) uuidstring.ID {
	playerId := uuidstring.NewID()
	q.Enqueue(queue.Ticket{
		PlayerId:      playerId,
		Format:        f,
		Rating:        rating,
		JoinTime:      joined,
		BaseThreshold: 20,
	})
	return playerId
}

func TestPairOneVsOneCloseRatings(t *testing.T) {
	now := time.Now()
	m, q, tr, reg := newTestMatchmaker(now)
	a := enqueue(q, format.OneVsOne, 500, now)
	b := enqueue(q, format.OneVsOne, 505, now)

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	active := reg.ListActive()
	if len(active) != 1 {
		t.Fatalf("expected one match, got %d", len(active))
	}
	made := active[0]
	if !made.HasPlayer(a) || !made.HasPlayer(b) {
		t.Errorf("match roster %v missing a player", made.PlayerIds)
	}
	if made.Teams[0] == made.Teams[1] {
		t.Errorf("OneVsOne teams must differ, got %v", made.Teams)
	}

	for _, p := range []uuidstring.ID{a, b} {
		if tr.CurrentMatch(p) != made.MatchId {
			t.Errorf("player %s not attached to match %d", p, made.MatchId)
		}
		if tr.InQueue(p) {
			t.Errorf("player %s still flagged in queue", p)
		}
	}
	if got := len(q.Snapshot(format.OneVsOne)); got != 0 {
		t.Errorf("queue still holds %d tickets after commit", got)
	}
}

func TestPairOneVsOneRespectsBothThresholds(t *testing.T) {
	now := time.Now()

	t.Run("wide gap waits for both windows", func(t *testing.T) {
		m, q, _, reg := newTestMatchmaker(now)
		// A has waited 95s (threshold 470) but B just arrived
		// (threshold 100); the 400 gap must not pair yet.
		enqueue(q, format.OneVsOne, 500, now.Add(-95*time.Second))
		enqueue(q, format.OneVsOne, 900, now)

		if err := m.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		if got := len(reg.ListActive()); got != 0 {
			t.Fatalf("premature match formed across a 400 rating gap")
		}
		if got := len(q.Snapshot(format.OneVsOne)); got != 2 {
			t.Errorf("unpaired tickets must stay queued, %d remain", got)
		}
	})

	t.Run("pairs once both windows cover the gap", func(t *testing.T) {
		m, q, _, reg := newTestMatchmaker(now)
		// 145s and 50s waited: thresholds 720 and 470, both over 400
		enqueue(q, format.OneVsOne, 500, now.Add(-145*time.Second))
		enqueue(q, format.OneVsOne, 900, now.Add(-50*time.Second))

		if err := m.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		if got := len(reg.ListActive()); got != 1 {
			t.Fatalf("expected the pair to match, got %d matches", got)
		}
	})
}

func TestPairOneVsOneOldestFirst(t *testing.T) {
	now := time.Now()
	m, q, _, reg := newTestMatchmaker(now)
	oldest := enqueue(q, format.OneVsOne, 500, now.Add(-3*time.Minute))
	middle := enqueue(q, format.OneVsOne, 500, now.Add(-2*time.Minute))
	enqueue(q, format.OneVsOne, 500, now.Add(-time.Minute))

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	active := reg.ListActive()
	if len(active) != 1 {
		t.Fatalf("expected one match from three tickets, got %d", len(active))
	}
	if !active[0].HasPlayer(oldest) || !active[0].HasPlayer(middle) {
		t.Errorf("the two oldest tickets should pair first, got %v", active[0].PlayerIds)
	}
	if got := len(q.Snapshot(format.OneVsOne)); got != 1 {
		t.Errorf("the newest ticket should remain queued, %d remain", got)
	}
}

func TestPairTwoVsTwo(t *testing.T) {
	now := time.Now()
	m, q, _, reg := newTestMatchmaker(now)
	for i := 0; i < 4; i++ {
		enqueue(q, format.TwoVsTwo, 500, now)
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	active := reg.ListActive()
	if len(active) != 1 {
		t.Fatalf("four equal players should form one TwoVsTwo match, got %d", len(active))
	}
	made := active[0]
	if len(made.PlayerIds) != 4 {
		t.Fatalf("TwoVsTwo roster has %d players, want 4", len(made.PlayerIds))
	}
	counts := map[int]int{}
	for _, team := range made.Teams {
		counts[team]++
	}
	if counts[1] != 2 || counts[2] != 2 {
		t.Errorf("TwoVsTwo team split = %v, want 2 per team", counts)
	}
}

func TestPairTwoVsTwoIncompatiblePool(t *testing.T) {
	now := time.Now()
	m, q, _, reg := newTestMatchmaker(now)
	// fresh tickets have a 100-point window; 2000 is unreachable
	enqueue(q, format.TwoVsTwo, 500, now)
	enqueue(q, format.TwoVsTwo, 500, now)
	enqueue(q, format.TwoVsTwo, 500, now)
	enqueue(q, format.TwoVsTwo, 2000, now)

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(reg.ListActive()); got != 0 {
		t.Errorf("a three-player team pool must not commit, got %d matches", got)
	}
	if got := len(q.Snapshot(format.TwoVsTwo)); got != 4 {
		t.Errorf("all tickets must survive a failed grouping, %d remain", got)
	}
}

func TestPairFourPlayerFFA(t *testing.T) {
	now := time.Now()
	m, q, _, reg := newTestMatchmaker(now)
	for i := 0; i < 5; i++ {
		enqueue(q, format.FourPlayerFFA, 500+i*10, now)
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	active := reg.ListActive()
	if len(active) != 1 {
		t.Fatalf("expected one FFA lobby, got %d", len(active))
	}
	made := active[0]
	if len(made.PlayerIds) != 4 {
		t.Fatalf("FFA roster has %d players, want 4", len(made.PlayerIds))
	}
	seen := map[int]bool{}
	for _, team := range made.Teams {
		if seen[team] {
			t.Errorf("FFA team %d appears twice", team)
		}
		seen[team] = true
	}
	if got := len(q.Snapshot(format.FourPlayerFFA)); got != 1 {
		t.Errorf("fifth player should remain queued, %d remain", got)
	}
}

func TestPairFourPlayerFFAShortPool(t *testing.T) {
	now := time.Now()
	m, q, _, reg := newTestMatchmaker(now)
	for i := 0; i < 3; i++ {
		enqueue(q, format.FourPlayerFFA, 500, now)
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(reg.ListActive()); got != 0 {
		t.Errorf("three players cannot fill an FFA lobby, got %d matches", got)
	}
}

func TestNoDoubleBookingAcrossTick(t *testing.T) {
	now := time.Now()
	m, q, _, reg := newTestMatchmaker(now)
	for i := 0; i < 6; i++ {
		enqueue(q, format.OneVsOne, 500, now.Add(-time.Duration(i)*time.Second))
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	seen := map[uuidstring.ID]bool{}
	for _, made := range reg.ListActive() {
		for _, p := range made.PlayerIds {
			if seen[p] {
				t.Errorf("player %s booked into two matches", p)
			}
			seen[p] = true
		}
	}
	for _, ticket := range q.Snapshot(format.OneVsOne) {
		if seen[ticket.PlayerId] {
			t.Errorf("player %s is both queued and in a match", ticket.PlayerId)
		}
	}
}

func TestMatchedPlayerLeavesEveryQueue(t *testing.T) {
	now := time.Now()
	m, q, tr, reg := newTestMatchmaker(now)
	// one player waits in two formats at once, with enough company to
	// fill a match in each
	doubled := enqueue(q, format.OneVsOne, 500, now)
	q.Enqueue(queue.Ticket{
		PlayerId:      doubled,
		Format:        format.TwoVsTwo,
		Rating:        500,
		JoinTime:      now,
		BaseThreshold: 20,
	})
	enqueue(q, format.OneVsOne, 505, now)
	for i := 0; i < 3; i++ {
		enqueue(q, format.TwoVsTwo, 500, now)
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	memberships := 0
	for _, made := range reg.ListActive() {
		if made.HasPlayer(doubled) {
			memberships++
		}
	}
	if memberships != 1 {
		t.Fatalf("player holds seats in %d matches, want exactly 1", memberships)
	}
	if got := len(q.TicketsFor(doubled)); got != 0 {
		t.Errorf("matched player still holds %d tickets", got)
	}
	if tr.InQueue(doubled) {
		t.Error("matched player still flagged in queue")
	}
	// the second format is one player short once the double ticket is gone
	if got := len(q.Snapshot(format.TwoVsTwo)); got != 3 {
		t.Errorf("%d TwoVsTwo tickets remain, want the 3 unmatched fillers", got)
	}
}

func TestPairSkipsPlayersAlreadyInMatches(t *testing.T) {
	now := time.Now()
	m, q, tr, reg := newTestMatchmaker(now)
	busy := enqueue(q, format.OneVsOne, 500, now)
	tr.SetCurrentMatch(busy, 99)
	enqueue(q, format.OneVsOne, 500, now)

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(reg.ListActive()); got != 0 {
		t.Errorf("a player already in a match was paired, got %d matches", got)
	}
}

func TestCommitAnnouncesMatch(t *testing.T) {
	now := time.Now()
	m, q, _, _ := newTestMatchmaker(now)
	ch := make(chanNotifier, 1)
	m.Notifier = ch
	a := enqueue(q, format.OneVsOne, 500, now)
	b := enqueue(q, format.OneVsOne, 505, now)

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		if msg.TypeDiscriminator != notify.MatchFoundDiscriminator {
			t.Errorf("announcement type = %s", msg.TypeDiscriminator)
		}
		if msg.Format != format.OneVsOne || len(msg.PlayerIds) != 2 {
			t.Errorf("announcement payload = %+v", msg)
		}
		for _, p := range []uuidstring.ID{a, b} {
			found := false
			for _, id := range msg.PlayerIds {
				if id == p {
					found = true
				}
			}
			if !found {
				t.Errorf("announcement missing player %s", p)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("no match announcement within a second")
	}
}
