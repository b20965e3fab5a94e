package queue

import (
	"sort"
	"sync"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

type Store interface {
	Enqueue(t Ticket) (replaced bool)
	Dequeue(playerId uuidstring.ID, f format.Format) bool
	Snapshot(f format.Format) []Ticket
	TicketsFor(playerId uuidstring.ID) []Ticket
	Counts() map[format.Format]int
	Purge() []Ticket
}

// MemoryStore holds one waiting list per format, each behind its own
// mutex so enqueue/dequeue traffic for one format never blocks another.
type MemoryStore struct {
	lists map[format.Format]*formatList
}

type formatList struct {
	mu      sync.Mutex
	tickets []Ticket
}

func NewMemoryStore() *MemoryStore {
	lists := make(map[format.Format]*formatList, len(format.All()))
	for _, f := range format.All() {
		lists[f] = &formatList{}
	}
	return &MemoryStore{lists: lists}
}

// Enqueue inserts the ticket, replacing any existing ticket the player
// already holds for that format. Re-joining resets the wait clock.
// Reports whether an existing ticket was replaced.
func (s *MemoryStore) Enqueue(t Ticket) bool {
	l, ok := s.lists[t.Format]
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.tickets {
		if l.tickets[i].PlayerId == t.PlayerId {
			l.tickets[i] = t
			return true
		}
	}
	l.tickets = append(l.tickets, t)
	return false
}

// Dequeue removes every ticket the player holds in the format. Returns
// false if there was nothing to remove.
func (s *MemoryStore) Dequeue(playerId uuidstring.ID, f format.Format) bool {
	l, ok := s.lists[f]
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := false
	kept := l.tickets[:0]
	for _, t := range l.tickets {
		if t.PlayerId == playerId {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	l.tickets = kept
	return removed
}

// Snapshot copies the format's waiting tickets ordered oldest-first, so
// the earliest joiners get the first pairing attempts.
func (s *MemoryStore) Snapshot(f format.Format) []Ticket {
	l, ok := s.lists[f]
	if !ok {
		return nil
	}
	l.mu.Lock()
	out := make([]Ticket, len(l.tickets))
	copy(out, l.tickets)
	l.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinTime.Before(out[j].JoinTime)
	})
	return out
}

// TicketsFor returns every ticket the player holds across formats,
// oldest-first.
func (s *MemoryStore) TicketsFor(playerId uuidstring.ID) []Ticket {
	var out []Ticket
	for _, f := range format.All() {
		l := s.lists[f]
		l.mu.Lock()
		for _, t := range l.tickets {
			if t.PlayerId == playerId {
				out = append(out, t)
			}
		}
		l.mu.Unlock()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinTime.Before(out[j].JoinTime)
	})
	return out
}

func (s *MemoryStore) Counts() map[format.Format]int {
	counts := make(map[format.Format]int, len(s.lists))
	for f, l := range s.lists {
		l.mu.Lock()
		counts[f] = len(l.tickets)
		l.mu.Unlock()
	}
	return counts
}

// Purge empties every format list and returns the evicted tickets.
func (s *MemoryStore) Purge() []Ticket {
	var evicted []Ticket
	for _, f := range format.All() {
		l := s.lists[f]
		l.mu.Lock()
		evicted = append(evicted, l.tickets...)
		l.tickets = nil
		l.mu.Unlock()
	}
	return evicted
}
