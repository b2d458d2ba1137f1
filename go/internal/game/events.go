package game

import (
	"context"
	"time"

	"github.com/mcdev12/rapidpoker/go/internal/models"
)

// EventType names a committed game change published to external consumers
type EventType string

const (
	EventTypeGameStarted   EventType = "GameStarted"
	EventTypePlayerJoined  EventType = "PlayerJoined"
	EventTypeCardUpdated   EventType = "CardUpdated"
	EventTypeCardsRevealed EventType = "CardsRevealed"
	EventTypeGameRestarted EventType = "GameRestarted"
	EventTypePlayerRenamed EventType = "PlayerRenamed"
	EventTypePlayerLeft    EventType = "PlayerLeft"
	EventTypeGameEvicted   EventType = "GameEvicted"
)

// Event describes a committed change to a game
type Event struct {
	Type       EventType
	GameID     string
	PlayerID   string // empty for game wide events
	Version    uint64
	OccurredAt time.Time
	Game       *models.Game // nil for evictions
}

// EventPublisher forwards committed events outside the process.
// Publish is called after the game lock has been released.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Notifier receives committed snapshots while the game is still locked so
// delivery order matches commit order. Implementations only enqueue.
type Notifier interface {
	GameUpdated(game *models.Game)
	PlayingCardsRestarted(gameID string)
}

type nopNotifier struct{}

func (nopNotifier) GameUpdated(*models.Game) {}
func (nopNotifier) PlayingCardsRestarted(string) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
