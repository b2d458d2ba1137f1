package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/rapidpoker/go/internal/game"
	"github.com/mcdev12/rapidpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// GameApp is what the dispatcher needs from the game app layer
type GameApp interface {
	StartGame(ctx context.Context, gameID string) (*models.Game, error)
	GetGame(ctx context.Context, gameID string) (*models.Game, bool)
	JoinGame(ctx context.Context, gameID, playerID, playerName string) (*models.Game, error)
	UpdatePlayerCard(ctx context.Context, gameID, playerID, value string, selected bool) (*models.Game, error)
	RevealCards(ctx context.Context, gameID string) (*models.Game, error)
	RestartGame(ctx context.Context, gameID string) (*models.Game, error)
	RenamePlayer(ctx context.Context, gameID, playerID, newName string) (*models.Game, error)
	LeaveGame(ctx context.Context, gameID, playerID string) (*models.Game, error)
}

// Subscriptions is what the dispatcher needs from the connection manager
type Subscriptions interface {
	Subscribe(conn *Connection, gameID string)
	Unsubscribe(conn *Connection, gameID string)
	SubscribedGame(conn *Connection) string
	SendTo(conn *Connection, data []byte) bool
}

// Dispatcher turns inbound socket events into game operations and replies to
// the requesting connection. Broadcasts to other connections happen through
// the game app's notifier.
type Dispatcher struct {
	app  GameApp
	subs Subscriptions
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(app GameApp, subs Subscriptions) *Dispatcher {
	return &Dispatcher{
		app:  app,
		subs: subs,
	}
}

// HandleFrame decodes and dispatches one frame. Failures only ever affect
// the requesting connection.
func (d *Dispatcher) HandleFrame(ctx context.Context, c *Connection, data []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Msg("dropping malformed frame")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("connection_id", c.ID).
				Str("event", string(frame.Event)).
				Msg("recovered from panic while handling frame")
			d.replyError(c, frame.Ack, fmt.Errorf("panic: %v", r))
		}
	}()

	log.Debug().
		Str("connection_id", c.ID).
		Str("event", string(frame.Event)).
		Msg("received client event")

	switch frame.Event {
	case EventStartGame:
		d.handleStartGame(ctx, c, frame)
	case EventGetGame:
		d.handleGetGame(ctx, c, frame)
	case EventJoinGame:
		d.handleJoinGame(ctx, c, frame)
	case EventUpdatePlayerCard:
		d.handleUpdatePlayerCard(ctx, c, frame)
	case EventRevealCards:
		d.handleRevealCards(ctx, c, frame)
	case EventRestartGame:
		d.handleRestartGame(ctx, c, frame)
	case EventRenamePlayer:
		d.handleRenamePlayer(ctx, c, frame)
	case EventLeaveGame:
		d.handleLeaveGame(ctx, c, frame)
	default:
		d.replyError(c, frame.Ack, fmt.Errorf("%w: unknown event %q", errBadRequest, frame.Event))
	}
}

func (d *Dispatcher) handleStartGame(ctx context.Context, c *Connection, frame ClientFrame) {
	var gameID string
	if err := decodeArgs(frame.Args, &gameID); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}

	if _, err := d.app.StartGame(ctx, gameID); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}
	d.subs.Subscribe(c, gameID)
	d.reply(c, frame.Ack)
}

func (d *Dispatcher) handleGetGame(ctx context.Context, c *Connection, frame ClientFrame) {
	var gameID string
	err := decodeArgs(frame.Args, &gameID)
	if err == nil {
		err = game.ValidateID(gameID)
	}
	if err != nil {
		// The client treats any non-null first arg as a game
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("malformed getGame")
		d.reply(c, frame.Ack, nil)
		return
	}

	// Subscribe first so no update between the read and the subscription is missed
	previous := d.subscribe(c, gameID)
	g, ok := d.app.GetGame(ctx, gameID)
	if !ok {
		d.restoreSubscription(c, gameID, previous)
		log.Debug().Str("game_id", gameID).Msg("game not found")
		d.reply(c, frame.Ack, nil)
		return
	}
	d.reply(c, frame.Ack, g)
}

func (d *Dispatcher) handleJoinGame(ctx context.Context, c *Connection, frame ClientFrame) {
	var gameID, playerID, playerName string
	if err := decodeArgs(frame.Args, &gameID, &playerID, &playerName); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}
	if err := game.ValidateID(gameID); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}

	previous := d.subscribe(c, gameID)
	g, err := d.app.JoinGame(ctx, gameID, playerID, playerName)
	if game.IsNotFound(err) {
		d.restoreSubscription(c, gameID, previous)
	}
	d.replyResult(c, frame.Ack, g, err)
}

func (d *Dispatcher) handleUpdatePlayerCard(ctx context.Context, c *Connection, frame ClientFrame) {
	var (
		gameID, playerID, value string
		selected                bool
	)
	if err := decodeArgs(frame.Args, &gameID, &playerID, &value, &selected); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}

	g, err := d.app.UpdatePlayerCard(ctx, gameID, playerID, value, selected)
	d.replyResult(c, frame.Ack, g, err)
}

func (d *Dispatcher) handleRevealCards(ctx context.Context, c *Connection, frame ClientFrame) {
	var gameID string
	if err := decodeArgs(frame.Args, &gameID); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}

	g, err := d.app.RevealCards(ctx, gameID)
	d.replyResult(c, frame.Ack, g, err)
}

func (d *Dispatcher) handleRestartGame(ctx context.Context, c *Connection, frame ClientFrame) {
	var gameID string
	if err := decodeArgs(frame.Args, &gameID); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}

	g, err := d.app.RestartGame(ctx, gameID)
	d.replyResult(c, frame.Ack, g, err)
}

func (d *Dispatcher) handleRenamePlayer(ctx context.Context, c *Connection, frame ClientFrame) {
	var gameID, playerID, oldName, newName string
	if err := decodeArgs(frame.Args, &gameID, &playerID, &oldName, &newName); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}

	g, err := d.app.RenamePlayer(ctx, gameID, playerID, newName)
	if err == nil {
		log.Debug().
			Str("game_id", gameID).
			Str("player_id", playerID).
			Str("old_name", oldName).
			Str("new_name", newName).
			Msg("player renamed")
	}
	d.replyResult(c, frame.Ack, g, err)
}

func (d *Dispatcher) handleLeaveGame(ctx context.Context, c *Connection, frame ClientFrame) {
	var gameID, playerID string
	if err := decodeArgs(frame.Args, &gameID, &playerID); err != nil {
		d.replyError(c, frame.Ack, err)
		return
	}

	g, err := d.app.LeaveGame(ctx, gameID, playerID)
	d.replyResult(c, frame.Ack, g, err)
}

// subscribe moves the connection onto gameID and returns the game it watched before
func (d *Dispatcher) subscribe(c *Connection, gameID string) string {
	previous := d.subs.SubscribedGame(c)
	d.subs.Subscribe(c, gameID)
	return previous
}

// restoreSubscription undoes subscribe when gameID turned out not to exist
func (d *Dispatcher) restoreSubscription(c *Connection, gameID, previous string) {
	if previous == "" || previous == gameID {
		d.subs.Unsubscribe(c, gameID)
		return
	}
	d.subs.Subscribe(c, previous)
}

// replyResult acks a mutating event with [error, snapshot]
func (d *Dispatcher) replyResult(c *Connection, ack *int64, g *models.Game, err error) {
	if err != nil {
		d.replyError(c, ack, err)
		return
	}
	d.reply(c, ack, nil, g)
}

// replyError acks with the error payload, or with an absent result for
// not found errors
func (d *Dispatcher) replyError(c *Connection, ack *int64, err error) {
	payload, absent := toErrorPayload(err)
	if absent {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("request target not found")
		d.reply(c, ack, nil, nil)
		return
	}

	logEvent := log.Debug()
	if payload.Code == ErrorCodeInternal {
		logEvent = log.Error()
	}
	logEvent.
		Err(err).
		Str("connection_id", c.ID).
		Str("code", string(payload.Code)).
		Msg("request rejected")

	d.reply(c, ack, payload, nil)
}

func (d *Dispatcher) reply(c *Connection, ack *int64, args ...any) {
	if ack == nil {
		return
	}
	data, err := encodeAck(*ack, args...)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal ack")
		return
	}
	d.subs.SendTo(c, data)
}
