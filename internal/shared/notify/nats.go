package notify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
)

// NatsNotifier publishes match-found records to a NATS subject.
type NatsNotifier struct {
	conn    *nats.Conn
	subject string
}

func NewNatsNotifier(conn *nats.Conn, subject string) *NatsNotifier {
	return &NatsNotifier{
		conn:    conn,
		subject: subject,
	}
}

func (n *NatsNotifier) MatchFound(_ context.Context, msg MatchFoundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}
