package notify

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
	"github.com/eschota/secs-matchmaking/pkg/uuidstring"
)

const MatchFoundDiscriminator = "MatchFound"

// MatchFoundMessage is the record published when the matchmaker commits
// a match. Subscribers use the $type discriminator to route it.
type MatchFoundMessage struct {
	TypeDiscriminator string          `json:"$type"`
	MatchId           int64           `json:"match_id"`
	Format            format.Format   `json:"format"`
	PlayerIds         []uuidstring.ID `json:"player_ids"`
}

func NewMatchFoundMessage(matchId int64, f format.Format, playerIds []uuidstring.ID) MatchFoundMessage {
	return MatchFoundMessage{
		TypeDiscriminator: MatchFoundDiscriminator,
		MatchId:           matchId,
		Format:            f,
		PlayerIds:         playerIds,
	}
}

// Notifier announces match formation to subscribers. Calls are
// fire-and-forget from the caller's point of view: a failed publish is
// logged, never propagated into the pairing pass.
type Notifier interface {
	MatchFound(ctx context.Context, msg MatchFoundMessage) error
}

// Multi fans one notification out to several notifiers, keeping going
// when one of them fails.
type Multi []Notifier

func (m Multi) MatchFound(ctx context.Context, msg MatchFoundMessage) error {
	var firstErr error
	for _, n := range m {
		if err := n.MatchFound(ctx, msg); err != nil {
			log.Errorf("match found notification failed - %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
