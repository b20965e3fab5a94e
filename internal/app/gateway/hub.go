package gateway

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/eschota/secs-matchmaking/internal/shared/notify"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

// Hub tracks connected clients by player id. It doubles as a
// notify.Notifier so players with a live socket hear about their match
// the moment it forms, without a round trip through the external bus.
type Hub struct {
	mu      sync.Mutex
	clients map[uuidstring.ID]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: map[uuidstring.ID]*Client{},
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.ID]; ok && old != c {
		// a reconnect replaces the previous socket
		old.Close()
	}
	h.clients[c.ID] = c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.ID] == c {
		delete(h.clients, c.ID)
	}
	c.Close()
}

func (h *Hub) get(playerId uuidstring.ID) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[playerId]
	return c, ok
}

// MatchFound pushes the announcement to every involved player that is
// currently connected.
func (h *Hub) MatchFound(ctx context.Context, msg notify.MatchFoundMessage) error {
	out := ServerMessage{TypeDiscriminator: notify.MatchFoundDiscriminator, Body: msg}
	for _, playerId := range msg.PlayerIds {
		c, ok := h.get(playerId)
		if !ok {
			continue
		}
		if err := c.Send(ctx, out); err != nil {
			log.Errorf("failed to push match %d to player %s - %v", msg.MatchId, playerId, err)
		}
	}
	return nil
}
