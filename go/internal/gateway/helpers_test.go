package gateway

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/rapidpoker/go/internal/models"
)

// testFrame is the decoded form of anything the server sends
type testFrame struct {
	Event EventName         `json:"event"`
	Ack   *int64            `json:"ack"`
	Args  []json.RawMessage `json:"args"`
}

// newTestConnection registers a connection without a socket. The buffer is
// large so tests never hit the slow consumer path, which closes the socket.
func newTestConnection(cm *ConnectionManager) *Connection {
	c := &Connection{
		ID:      uuid.New().String(),
		Send:    make(chan []byte, 64),
		Manager: cm,
	}
	cm.registerConnection(c)
	return c
}

// nextFrame pops the next queued frame. Enqueues are synchronous so an
// empty queue means nothing was sent.
func nextFrame(t *testing.T, c *Connection) testFrame {
	t.Helper()
	select {
	case data := <-c.Send:
		var f testFrame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("failed to decode frame %s: %v", data, err)
		}
		return f
	default:
		t.Fatalf("connection %s has no queued frame", c.ID)
		return testFrame{}
	}
}

func expectNoFrame(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame: %s", data)
	default:
	}
}

func decodeGame(t *testing.T, raw json.RawMessage) *models.Game {
	t.Helper()
	if string(raw) == "null" {
		return nil
	}
	var g models.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		t.Fatalf("failed to decode game %s: %v", raw, err)
	}
	return &g
}

func decodeError(t *testing.T, raw json.RawMessage) *ErrorPayload {
	t.Helper()
	if string(raw) == "null" {
		return nil
	}
	var p ErrorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("failed to decode error %s: %v", raw, err)
	}
	return &p
}

// clientFrame builds an inbound frame
func clientFrame(t *testing.T, event EventName, ack int64, args ...any) []byte {
	t.Helper()
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("failed to marshal arg: %v", err)
		}
		raw[i] = b
	}
	f := ClientFrame{Event: event, Args: raw}
	if ack >= 0 {
		f.Ack = &ack
	}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("failed to marshal frame: %v", err)
	}
	return data
}
