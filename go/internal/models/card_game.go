package models

// GamePhase is the derived position of a game within an estimation round
type GamePhase string

const (
	GamePhaseIdle      GamePhase = "idle"
	GamePhaseSelecting GamePhase = "selecting"
	GamePhaseRevealed  GamePhase = "revealed"
)

// Game holds all state for a single planning poker session.
// Players are kept in join order.
type Game struct {
	ID               string   `json:"id"`
	AreCardsRevealed bool     `json:"areCardsRevealed"`
	Players          []Player `json:"players"`

	// Version is bumped on every committed mutation. It is not part of the
	// client snapshot.
	Version uint64 `json:"-"`
}

// NewGame creates an empty, unrevealed game
func NewGame(id string) *Game {
	return &Game{
		ID:      id,
		Players: []Player{},
	}
}

// Clone returns a deep copy safe to hand to other goroutines
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	clone := &Game{
		ID:               g.ID,
		AreCardsRevealed: g.AreCardsRevealed,
		Players:          make([]Player, len(g.Players)),
		Version:          g.Version,
	}
	for i, p := range g.Players {
		clone.Players[i] = p
		if p.CardValue != nil {
			v := *p.CardValue
			clone.Players[i].CardValue = &v
		}
	}
	return clone
}

// PlayerIndex returns the index of the player with the given id, or -1
func (g *Game) PlayerIndex(playerID string) int {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// FindPlayer returns a pointer into the roster for the given id
func (g *Game) FindPlayer(playerID string) (*Player, bool) {
	idx := g.PlayerIndex(playerID)
	if idx < 0 {
		return nil, false
	}
	return &g.Players[idx], true
}

// NameHolder returns the id of the player using name (exact match)
func (g *Game) NameHolder(name string) (string, bool) {
	for _, p := range g.Players {
		if p.Name == name {
			return p.ID, true
		}
	}
	return "", false
}

// SelectedCount returns how many players have picked a card this round
func (g *Game) SelectedCount() int {
	n := 0
	for _, p := range g.Players {
		if p.IsCardSelected {
			n++
		}
	}
	return n
}

// Phase derives the round phase from the reveal flag and selections
func (g *Game) Phase() GamePhase {
	switch {
	case g.AreCardsRevealed:
		return GamePhaseRevealed
	case g.SelectedCount() > 0:
		return GamePhaseSelecting
	default:
		return GamePhaseIdle
	}
}
