package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

// Client messages carry a $type discriminator so one websocket can
// multiplex every operation the core exposes.
const (
	EnqueueDiscriminator       = "Enqueue"
	DequeueDiscriminator       = "Dequeue"
	QueueStatusDiscriminator   = "QueueStatus"
	QueueCountsDiscriminator   = "QueueCounts"
	GetMatchDiscriminator      = "GetMatch"
	ActiveMatchesDiscriminator = "ActiveMatches"
	FinishMatchDiscriminator   = "FinishMatch"
	CancelMatchDiscriminator   = "CancelMatch"
	HeartbeatDiscriminator     = "Heartbeat"
)

type EnqueueMessage struct {
	Format format.Format `json:"format"`
}

type DequeueMessage struct {
	Format format.Format `json:"format"`
}

type GetMatchMessage struct {
	MatchId int64 `json:"match_id"`
}

type FinishMatchMessage struct {
	MatchId int64           `json:"match_id"`
	Winners []uuidstring.ID `json:"winners"`
	Losers  []uuidstring.ID `json:"losers"`
	Draw    []uuidstring.ID `json:"draw,omitempty"`
}

type CancelMatchMessage struct {
	MatchId int64  `json:"match_id"`
	Reason  string `json:"reason"`
}

// ClientMessage is the decoded inbound envelope: the discriminator plus
// whichever payload struct it selected (nil for bare requests like
// Heartbeat).
type ClientMessage struct {
	Type    string
	Payload any
}

func UnmarshalClientMessage(data []byte) (ClientMessage, error) {
	var head struct {
		TypeDiscriminator string `json:"$type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ClientMessage{}, fmt.Errorf("malformed client message: %w", err)
	}

	msg := ClientMessage{Type: head.TypeDiscriminator}
	var payload any
	switch head.TypeDiscriminator {
	case EnqueueDiscriminator:
		payload = &EnqueueMessage{}
	case DequeueDiscriminator:
		payload = &DequeueMessage{}
	case GetMatchDiscriminator:
		payload = &GetMatchMessage{}
	case FinishMatchDiscriminator:
		payload = &FinishMatchMessage{}
	case CancelMatchDiscriminator:
		payload = &CancelMatchMessage{}
	case QueueStatusDiscriminator, QueueCountsDiscriminator, ActiveMatchesDiscriminator, HeartbeatDiscriminator:
		return msg, nil
	default:
		return ClientMessage{}, fmt.Errorf("unknown client message type: %s", head.TypeDiscriminator)
	}

	if err := json.Unmarshal(data, payload); err != nil {
		return ClientMessage{}, fmt.Errorf("malformed %s payload: %w", head.TypeDiscriminator, err)
	}
	msg.Payload = payload
	return msg, nil
}

// ServerMessage wraps every outbound frame with the discriminator of
// the request it answers (or the push it carries).
type ServerMessage struct {
	TypeDiscriminator string `json:"$type"`
	Result            string `json:"result,omitempty"`
	Error             string `json:"error,omitempty"`
	Body              any    `json:"body,omitempty"`
}

func NewResultMessage(t string, result string, body any) ServerMessage {
	return ServerMessage{TypeDiscriminator: t, Result: result, Body: body}
}

func NewErrorMessage(t string, err error) ServerMessage {
	return ServerMessage{TypeDiscriminator: t, Error: err.Error()}
}
