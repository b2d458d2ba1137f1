package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/rapidpoker/go/internal/game"
)

// EventName is the name of a socket event. Names match the web client.
type EventName string

// Client to server events
const (
	EventStartGame        EventName = "startGame"
	EventGetGame          EventName = "getGame"
	EventJoinGame         EventName = "joinGame"
	EventUpdatePlayerCard EventName = "updatePlayerCard"
	EventRevealCards      EventName = "revealCards"
	EventRestartGame      EventName = "restartGame"
	EventRenamePlayer     EventName = "renamePlayer"
	EventLeaveGame        EventName = "leaveGame"
)

// Server to client events
const (
	EventConnect             EventName = "connect"
	EventUpdateGame          EventName = "updateGame"
	EventRestartPlayingCards EventName = "restartPlayingCards"
)

// ClientFrame is a single inbound websocket message.
// Ack is set when the client expects a callback reply.
type ClientFrame struct {
	Event EventName         `json:"event"`
	Args  []json.RawMessage `json:"args"`
	Ack   *int64            `json:"ack,omitempty"`
}

// ServerFrame is a single outbound websocket message. Either Event or Ack is set.
type ServerFrame struct {
	Event EventName `json:"event,omitempty"`
	Ack   *int64    `json:"ack,omitempty"`
	Args  []any     `json:"args"`
}

// ErrorCode is the machine readable reason attached to a rejected request
type ErrorCode string

const (
	ErrorCodeBadRequest    ErrorCode = "badRequest"
	ErrorCodeAlreadyExists ErrorCode = "alreadyExists"
	ErrorCodeNameTaken     ErrorCode = "nameTaken"
	ErrorCodeInvalidName   ErrorCode = "invalidName"
	ErrorCodeRevealed      ErrorCode = "revealed"
	ErrorCodeInternal      ErrorCode = "internal"
)

// ErrorPayload is sent back to the requesting connection only
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errBadRequest marks payloads rejected before reaching the game
var errBadRequest = errors.New("bad request")

// toErrorPayload maps a game error onto the wire. absent is true for not
// found errors, which are reported as an empty result rather than an error.
func toErrorPayload(err error) (payload *ErrorPayload, absent bool) {
	switch {
	case err == nil:
		return nil, false
	case game.IsNotFound(err):
		return nil, true
	case errors.Is(err, errBadRequest), errors.Is(err, game.ErrInvalidID):
		return &ErrorPayload{Code: ErrorCodeBadRequest, Message: err.Error()}, false
	case errors.Is(err, game.ErrAlreadyExists):
		return &ErrorPayload{Code: ErrorCodeAlreadyExists, Message: "game already exists"}, false
	case errors.Is(err, game.ErrNameTaken):
		return &ErrorPayload{Code: ErrorCodeNameTaken, Message: "name is already taken"}, false
	case errors.Is(err, game.ErrInvalidName):
		return &ErrorPayload{Code: ErrorCodeInvalidName, Message: "name is required"}, false
	case errors.Is(err, game.ErrRevealed):
		return &ErrorPayload{Code: ErrorCodeRevealed, Message: "cards are already revealed"}, false
	default:
		return &ErrorPayload{Code: ErrorCodeInternal, Message: "internal error"}, false
	}
}

// decodeArgs unmarshals positional args into dst. Extra args are ignored.
// null is rejected since it would otherwise decode to the zero value.
func decodeArgs(args []json.RawMessage, dst ...any) error {
	if len(args) < len(dst) {
		return fmt.Errorf("%w: expected %d args, got %d", errBadRequest, len(dst), len(args))
	}
	for i, d := range dst {
		if raw := bytes.TrimSpace(args[i]); len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return fmt.Errorf("%w: arg %d is missing", errBadRequest, i)
		}
		if err := json.Unmarshal(args[i], d); err != nil {
			return fmt.Errorf("%w: arg %d: %v", errBadRequest, i, err)
		}
	}
	return nil
}

// encodeEvent marshals a server pushed event
func encodeEvent(name EventName, args ...any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	return json.Marshal(ServerFrame{Event: name, Args: args})
}

// encodeAck marshals a callback reply
func encodeAck(id int64, args ...any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	return json.Marshal(ServerFrame{Ack: &id, Args: args})
}
