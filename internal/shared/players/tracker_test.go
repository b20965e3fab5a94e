package players

import (
	"sync"
	"testing"
	"time"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

func TestRatingDefaultsAndFloor(t *testing.T) {
	tr := NewTracker()
	playerId := uuidstring.NewID()

	if got := tr.GetRating(playerId, format.OneVsOne); got != DefaultRating {
		t.Errorf("unseen player rating = %d, want %d", got, DefaultRating)
	}

	t.Run("adjustments apply per format", func(t *testing.T) {
		tr.AdjustRating(playerId, format.OneVsOne, 40)
		if got := tr.GetRating(playerId, format.OneVsOne); got != 540 {
			t.Errorf("rating = %d, want 540", got)
		}
		if got := tr.GetRating(playerId, format.TwoVsTwo); got != DefaultRating {
			t.Errorf("other format rating moved to %d", got)
		}
	})

	t.Run("never drops below the floor", func(t *testing.T) {
		tr.AdjustRating(playerId, format.OneVsOne, -10000)
		if got := tr.GetRating(playerId, format.OneVsOne); got != MinRating {
			t.Errorf("rating = %d, want floor %d", got, MinRating)
		}
	})
}

func TestAdjustRatingConcurrent(t *testing.T) {
	tr := NewTracker()
	playerId := uuidstring.NewID()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.AdjustRating(playerId, format.OneVsOne, 1)
		}()
	}
	wg.Wait()
	if got := tr.GetRating(playerId, format.OneVsOne); got != 600 {
		t.Errorf("rating after 100 concurrent +1 adjustments = %d, want 600 (lost updates)", got)
	}
}

func TestMatchAndQueueFlags(t *testing.T) {
	tr := NewTracker()
	playerId := uuidstring.NewID()

	tr.SetCurrentMatch(playerId, 7)
	if got := tr.CurrentMatch(playerId); got != 7 {
		t.Errorf("current match = %d, want 7", got)
	}
	tr.SetCurrentMatch(playerId, 0)
	if got := tr.CurrentMatch(playerId); got != 0 {
		t.Errorf("current match = %d, want cleared", got)
	}

	tr.SetInQueue(playerId, true)
	if !tr.InQueue(playerId) {
		t.Error("player should be flagged in queue")
	}
	tr.SetInQueue(playerId, false)
	if tr.InQueue(playerId) {
		t.Error("player should no longer be flagged in queue")
	}
}

func TestStaleness(t *testing.T) {
	tr := NewTracker()
	playerId := uuidstring.NewID()
	staleAfter := 3 * time.Minute

	if !tr.IsStale(playerId, staleAfter) {
		t.Error("a player with no heartbeat is stale")
	}

	base := time.Now()
	tr.now = func() time.Time { return base }
	tr.Touch(playerId)
	if tr.IsStale(playerId, staleAfter) {
		t.Error("a freshly touched player is not stale")
	}

	tr.now = func() time.Time { return base.Add(staleAfter + time.Second) }
	if !tr.IsStale(playerId, staleAfter) {
		t.Error("a heartbeat older than the window is stale")
	}

	tr.Touch(playerId)
	if tr.IsStale(playerId, staleAfter) {
		t.Error("touching again clears staleness")
	}
}

func TestApplyMatchResult(t *testing.T) {
	tr := NewTracker()
	winner := uuidstring.NewID()
	loser := uuidstring.NewID()
	deltas := Deltas{Win: 20, Lose: -20, Draw: 5}

	// give the loser headroom so the delta is visible above the floor
	tr.AdjustRating(loser, format.OneVsOne, 100)
	tr.SetCurrentMatch(winner, 3)
	tr.SetCurrentMatch(loser, 3)

	tr.ApplyMatchResult(format.OneVsOne, []uuidstring.ID{winner}, []uuidstring.ID{loser}, nil, deltas)

	if got := tr.GetRating(winner, format.OneVsOne); got != 520 {
		t.Errorf("winner rating = %d, want 520", got)
	}
	if got := tr.GetRating(loser, format.OneVsOne); got != 580 {
		t.Errorf("loser rating = %d, want 580", got)
	}

	ws := tr.GetStats(winner, format.OneVsOne)
	if ws.GamesPlayed != 1 || ws.GamesWon != 1 {
		t.Errorf("winner stats = %+v, want one game played and won", ws)
	}
	ls := tr.GetStats(loser, format.OneVsOne)
	if ls.GamesPlayed != 1 || ls.GamesWon != 0 {
		t.Errorf("loser stats = %+v, want one game played, none won", ls)
	}

	if tr.CurrentMatch(winner) != 0 || tr.CurrentMatch(loser) != 0 {
		t.Error("settlement must clear current match for everyone involved")
	}

	t.Run("loser at the floor stays at the floor", func(t *testing.T) {
		floored := uuidstring.NewID()
		tr.ApplyMatchResult(format.OneVsOne, nil, []uuidstring.ID{floored}, nil, deltas)
		if got := tr.GetRating(floored, format.OneVsOne); got != MinRating {
			t.Errorf("rating = %d, want floor %d", got, MinRating)
		}
	})

	t.Run("draw delta applies", func(t *testing.T) {
		drawn := uuidstring.NewID()
		tr.ApplyMatchResult(format.OneVsOne, nil, nil, []uuidstring.ID{drawn}, deltas)
		if got := tr.GetRating(drawn, format.OneVsOne); got != 505 {
			t.Errorf("rating = %d, want 505", got)
		}
	})
}
