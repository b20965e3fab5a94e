package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

const (
	pingInterval   = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{}

// Client is one player's websocket session. All writes go through the
// buffered send channel so the write pump is the only goroutine
// touching the connection for output.
type Client struct {
	conn *websocket.Conn
	ID   uuidstring.ID

	sendCh    chan ServerMessage
	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(w http.ResponseWriter, r *http.Request, playerId uuidstring.ID) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	return &Client{
		conn:   conn,
		ID:     playerId,
		sendCh: make(chan ServerMessage, sendBuffer),
		closed: make(chan struct{}),
	}, nil
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if err := c.conn.Close(); err != nil {
			log.Debugf("ws{%s} close - %v", c.ID, err)
		}
	})
}

// Send queues a message for the write pump. It never blocks forever: a
// full buffer on a dead connection gives up with an error.
func (c *Client) Send(ctx context.Context, msg ServerMessage) error {
	select {
	case c.sendCh <- msg:
		return nil
	case <-c.closed:
		return fmt.Errorf("ws{%s} connection closed", c.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) pingLoop(ctx context.Context) error {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("PING"), time.Now().Add(pingInterval)); err != nil {
				return fmt.Errorf("ws{%s} failed to send PING - %v", c.ID, err)
			}
		case <-ctx.Done():
			return nil
		case <-c.closed:
			return nil
		}
	}
}

func (c *Client) writePump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.closed:
			return nil
		case msg := <-c.sendCh:
			if err := c.conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("ws{%s} failed to write - %v", c.ID, err)
			}
		}
	}
}

// readPump feeds inbound frames to handle until the connection drops.
func (c *Client) readPump(ctx context.Context, handle func(context.Context, *Client, []byte)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.closed:
			return nil
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("ws{%s} read failed - %v", c.ID, err)
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		handle(ctx, c, data)
	}
}
