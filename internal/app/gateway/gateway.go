package gateway

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eschota/secs-matchmaking/internal/app/core"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

// Gateway exposes the core's operations over one websocket endpoint.
// It lives in the same process as the scheduler because the stores it
// fronts are in-memory. Every inbound frame counts as a heartbeat for
// the sending player.
type Gateway struct {
	addr string
	svc  *core.Service
	hub  *Hub
}

func New(port string, svc *core.Service) *Gateway {
	return &Gateway{
		addr: "0.0.0.0:" + port,
		svc:  svc,
		hub:  NewHub(),
	}
}

// Hub exposes the connection registry so main can wire it in as a
// notifier alongside the external bus.
func (g *Gateway) Hub() *Hub {
	return g.hub
}

func (g *Gateway) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS(ctx))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: g.addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Infof("gateway listening on %s", g.addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (g *Gateway) handleWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerId, err := uuidstring.Parse(r.URL.Query().Get("player_id"))
		if err != nil {
			http.Error(w, "player_id query parameter must be a uuid", http.StatusBadRequest)
			return
		}

		client, err := NewClient(w, r, playerId)
		if err != nil {
			log.Errorf("failed to upgrade client websocket - %v", err)
			return
		}
		g.hub.Register(client)
		defer g.hub.Unregister(client)

		g.svc.Touch(playerId)

		connCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		eg, eCtx := errgroup.WithContext(connCtx)
		eg.Go(func() error { return client.pingLoop(eCtx) })
		eg.Go(func() error { return client.writePump(eCtx) })
		eg.Go(func() error {
			defer cancel()
			return client.readPump(eCtx, g.route)
		})
		// Shutdown does not touch hijacked connections; closing the
		// socket here is what unblocks the read pump on shutdown
		eg.Go(func() error {
			<-eCtx.Done()
			client.Close()
			return nil
		})
		if err := eg.Wait(); err != nil {
			log.Debugf("ws{%s} session ended - %v", playerId, err)
		}
	}
}

// route decodes one inbound frame, applies the heartbeat, and answers.
func (g *Gateway) route(ctx context.Context, c *Client, data []byte) {
	g.svc.Touch(c.ID)

	msg, err := UnmarshalClientMessage(data)
	if err != nil {
		g.reply(ctx, c, NewErrorMessage("Error", err))
		return
	}

	switch msg.Type {
	case HeartbeatDiscriminator:
		// Touch above already did the work

	case EnqueueDiscriminator:
		m := msg.Payload.(*EnqueueMessage)
		result, err := g.svc.EnqueuePlayer(ctx, c.ID, m.Format)
		if err != nil {
			g.reply(ctx, c, NewErrorMessage(EnqueueDiscriminator, err))
			return
		}
		g.reply(ctx, c, NewResultMessage(EnqueueDiscriminator, string(result), nil))

	case DequeueDiscriminator:
		m := msg.Payload.(*DequeueMessage)
		result, err := g.svc.DequeuePlayer(ctx, c.ID, m.Format)
		if err != nil {
			g.reply(ctx, c, NewErrorMessage(DequeueDiscriminator, err))
			return
		}
		g.reply(ctx, c, NewResultMessage(DequeueDiscriminator, string(result), nil))

	case QueueStatusDiscriminator:
		g.reply(ctx, c, NewResultMessage(QueueStatusDiscriminator, "ok", g.svc.GetQueueStatus(c.ID)))

	case QueueCountsDiscriminator:
		g.reply(ctx, c, NewResultMessage(QueueCountsDiscriminator, "ok", g.svc.GetQueueCounts()))

	case GetMatchDiscriminator:
		m := msg.Payload.(*GetMatchMessage)
		found, err := g.svc.GetMatch(m.MatchId)
		if err != nil {
			g.reply(ctx, c, NewErrorMessage(GetMatchDiscriminator, err))
			return
		}
		g.reply(ctx, c, NewResultMessage(GetMatchDiscriminator, "ok", found))

	case ActiveMatchesDiscriminator:
		g.reply(ctx, c, NewResultMessage(ActiveMatchesDiscriminator, "ok", g.svc.GetActiveMatchesForPlayer(c.ID)))

	case FinishMatchDiscriminator:
		m := msg.Payload.(*FinishMatchMessage)
		result, err := g.svc.FinishMatch(ctx, m.MatchId, m.Winners, m.Losers, m.Draw)
		if err != nil {
			g.reply(ctx, c, NewErrorMessage(FinishMatchDiscriminator, err))
			return
		}
		g.reply(ctx, c, NewResultMessage(FinishMatchDiscriminator, string(result), nil))

	case CancelMatchDiscriminator:
		m := msg.Payload.(*CancelMatchMessage)
		result, err := g.svc.CancelMatch(ctx, m.MatchId, m.Reason)
		if err != nil {
			g.reply(ctx, c, NewErrorMessage(CancelMatchDiscriminator, err))
			return
		}
		g.reply(ctx, c, NewResultMessage(CancelMatchDiscriminator, string(result), nil))
	}
}

func (g *Gateway) reply(ctx context.Context, c *Client, msg ServerMessage) {
	if err := c.Send(ctx, msg); err != nil {
		log.Debugf("ws{%s} dropped reply - %v", c.ID, err)
	}
}
