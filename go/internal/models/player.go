package models

// Player represents a participant holding a hand in a card game
type Player struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CardValue      *string `json:"cardValue"` // nil until a card is selected
	IsCardSelected bool    `json:"isCardSelected"`
}

// SelectCard sets the card value and selection flag together
func (p *Player) SelectCard(value string) {
	v := value
	p.CardValue = &v
	p.IsCardSelected = true
}

// ClearCard removes any selection from the player's hand
func (p *Player) ClearCard() {
	p.CardValue = nil
	p.IsCardSelected = false
}

// HasCard reports whether the player holds the given selected value
func (p Player) HasCard(value string) bool {
	return p.IsCardSelected && p.CardValue != nil && *p.CardValue == value
}
