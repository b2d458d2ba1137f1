package game

import "errors"

var (
	// ErrNotFound is returned when a game does not exist
	ErrNotFound = errors.New("game not found")
	// ErrPlayerNotFound is returned when a player is not part of the game
	ErrPlayerNotFound = errors.New("player not found")
	// ErrAlreadyExists is returned when starting a game with an id that is taken
	ErrAlreadyExists = errors.New("game already exists")
	// ErrNameTaken is returned when another player in the game uses the name
	ErrNameTaken = errors.New("player name already taken")
	// ErrInvalidName is returned for names that are blank after trimming
	ErrInvalidName = errors.New("invalid player name")
	// ErrInvalidID is returned for malformed game or player ids
	ErrInvalidID = errors.New("invalid id")
	// ErrRevealed is returned when changing a card after cards were revealed
	ErrRevealed = errors.New("cards already revealed")
)

// IsNotFound reports whether err means the game or player is absent.
// Absence is a routine outcome, callers usually turn it into an empty result.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPlayerNotFound)
}
