package game

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/rapidpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App coordinates the registry, the round rules and update delivery
type App struct {
	registry  *Registry
	notifier  Notifier
	publisher EventPublisher
	clock     clockwork.Clock
}

// NewApp creates a new game App. notifier and publisher may be nil.
func NewApp(registry *Registry, notifier Notifier, publisher EventPublisher) *App {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &App{
		registry:  registry,
		notifier:  notifier,
		publisher: publisher,
		clock:     registry.clock,
	}
}

// Registry exposes the underlying registry
func (a *App) Registry() *Registry {
	return a.registry
}

// StartGame creates an empty game with the id chosen by the caller
func (a *App) StartGame(ctx context.Context, gameID string) (*models.Game, error) {
	g, err := a.registry.Create(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	log.Info().Str("game_id", gameID).Msg("game started")
	a.publish(ctx, EventTypeGameStarted, "", g)
	return g, nil
}

// GetGame returns the game snapshot. A missing game is not an error.
func (a *App) GetGame(ctx context.Context, gameID string) (*models.Game, bool) {
	return a.registry.Get(gameID)
}

// JoinGame adds the player or renames them when they rejoin
func (a *App) JoinGame(ctx context.Context, gameID, playerID, playerName string) (*models.Game, error) {
	g, err := a.apply(ctx, gameID, playerID, EventTypePlayerJoined, func(g *models.Game) error {
		return Join(g, playerID, playerName)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join game: %w", err)
	}
	return g, nil
}

// UpdatePlayerCard records the player's card selection
func (a *App) UpdatePlayerCard(ctx context.Context, gameID, playerID, value string, selected bool) (*models.Game, error) {
	g, err := a.apply(ctx, gameID, playerID, EventTypeCardUpdated, func(g *models.Game) error {
		return SelectCard(g, playerID, value, selected)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update player card: %w", err)
	}
	return g, nil
}

// RevealCards shows every selection on the table
func (a *App) RevealCards(ctx context.Context, gameID string) (*models.Game, error) {
	g, err := a.apply(ctx, gameID, "", EventTypeCardsRevealed, Reveal)
	if err != nil {
		return nil, fmt.Errorf("failed to reveal cards: %w", err)
	}
	return g, nil
}

// RestartGame clears the table and tells clients to reset their hands
func (a *App) RestartGame(ctx context.Context, gameID string) (*models.Game, error) {
	g, err := a.apply(ctx, gameID, "", EventTypeGameRestarted, Restart, func(snapshot *models.Game) {
		a.notifier.PlayingCardsRestarted(snapshot.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restart game: %w", err)
	}
	return g, nil
}

// RenamePlayer changes the display name of a player in the game
func (a *App) RenamePlayer(ctx context.Context, gameID, playerID, newName string) (*models.Game, error) {
	g, err := a.apply(ctx, gameID, playerID, EventTypePlayerRenamed, func(g *models.Game) error {
		return Rename(g, playerID, newName)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rename player: %w", err)
	}
	return g, nil
}

// LeaveGame removes the player. Leaving twice is fine.
func (a *App) LeaveGame(ctx context.Context, gameID, playerID string) (*models.Game, error) {
	g, err := a.apply(ctx, gameID, playerID, EventTypePlayerLeft, func(g *models.Game) error {
		if !Leave(g, playerID) {
			log.Debug().
				Str("game_id", gameID).
				Str("player_id", playerID).
				Msg("leave for player not in game")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to leave game: %w", err)
	}
	return g, nil
}

// GameEvicted publishes the removal of an idle game
func (a *App) GameEvicted(ctx context.Context, gameID string) {
	a.publish(ctx, EventTypeGameEvicted, "", &models.Game{ID: gameID})
}

// apply commits mutate under the game lock, fans the snapshot out to the
// notifier and then publishes the event once the lock is released
func (a *App) apply(ctx context.Context, gameID, playerID string, eventType EventType, mutate MutateFunc, extra ...CommitFunc) (*models.Game, error) {
	commits := append([]CommitFunc{a.notifier.GameUpdated}, extra...)

	g, err := a.registry.Update(gameID, mutate, commits...)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("game_id", gameID).
		Str("event_type", string(eventType)).
		Uint64("version", g.Version).
		Str("phase", string(g.Phase())).
		Msg("game updated")

	a.publish(ctx, eventType, playerID, g)
	return g, nil
}

func (a *App) publish(ctx context.Context, eventType EventType, playerID string, g *models.Game) {
	event := Event{
		Type:       eventType,
		GameID:     g.ID,
		PlayerID:   playerID,
		Version:    g.Version,
		OccurredAt: a.clock.Now(),
	}
	if eventType != EventTypeGameEvicted {
		event.Game = g
	}

	if err := a.publisher.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("game_id", g.ID).
			Str("event_type", string(eventType)).
			Msg("failed to publish game event")
	}
}
