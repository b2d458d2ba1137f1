package game

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mcdev12/rapidpoker/go/internal/models"
)

// MaxIDLength bounds client supplied game and player ids.
// Clients generate 10 character ids, anything much longer is garbage.
const MaxIDLength = 64

// ValidateID checks a client supplied game or player id
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// NormalizeName trims the name and rejects blank values
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

// claimName verifies nobody other than playerID holds name
func claimName(g *models.Game, playerID, name string) error {
	if holder, ok := g.NameHolder(name); ok && holder != playerID {
		return fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	return nil
}

// Join adds a player to the game. Joining again with a known player id
// renames that player instead of failing on its own name.
func Join(g *models.Game, playerID, playerName string) error {
	if err := ValidateID(playerID); err != nil {
		return err
	}
	name, err := NormalizeName(playerName)
	if err != nil {
		return err
	}
	if err := claimName(g, playerID, name); err != nil {
		return err
	}

	if p, ok := g.FindPlayer(playerID); ok {
		p.Name = name
		return nil
	}

	g.Players = append(g.Players, models.Player{
		ID:   playerID,
		Name: name,
	})
	return nil
}

// SelectCard stores the player's selection. The deck lives on the client so
// any value is accepted. Deselecting clears the value as well.
func SelectCard(g *models.Game, playerID, value string, selected bool) error {
	p, ok := g.FindPlayer(playerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}

	if selected && p.HasCard(value) {
		return nil
	}
	if !selected && !p.IsCardSelected {
		return nil
	}
	if g.AreCardsRevealed {
		return ErrRevealed
	}

	if selected {
		p.SelectCard(value)
	} else {
		p.ClearCard()
	}
	return nil
}

// Reveal shows every card on the table. It does not wait for all players.
func Reveal(g *models.Game) error {
	g.AreCardsRevealed = true
	return nil
}

// Restart hides the cards and clears every hand in a single step
func Restart(g *models.Game) error {
	g.AreCardsRevealed = false
	for i := range g.Players {
		g.Players[i].ClearCard()
	}
	return nil
}

// Rename changes a player's display name
func Rename(g *models.Game, playerID, newName string) error {
	p, ok := g.FindPlayer(playerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	name, err := NormalizeName(newName)
	if err != nil {
		return err
	}
	if err := claimName(g, playerID, name); err != nil {
		return err
	}
	p.Name = name
	return nil
}

// Leave removes the player from the roster. Unknown ids are ignored.
func Leave(g *models.Game, playerID string) bool {
	idx := g.PlayerIndex(playerID)
	if idx < 0 {
		return false
	}
	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	return true
}
