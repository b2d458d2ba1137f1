package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/rapidpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// MutateFunc applies a change to a working copy of a game.
// Returning an error discards the working copy.
type MutateFunc func(g *models.Game) error

// CommitFunc observes a committed snapshot while the game is still locked.
// It must not block on network I/O.
type CommitFunc func(snapshot *models.Game)

// entry guards a single game. All reads and writes of game go through mu.
type entry struct {
	mu         sync.Mutex
	game       *models.Game
	lastActive time.Time
	removed    bool
}

// Registry owns every live game and serializes mutations per game id
type Registry struct {
	games map[string]*entry
	mu    sync.RWMutex
	clock clockwork.Clock
}

// RegistryStats is a point in time summary of the registry
type RegistryStats struct {
	Games   int                      `json:"games"`
	Players int                      `json:"players"`
	Phases  map[models.GamePhase]int `json:"phases"`
}

// NewRegistry creates an empty registry using clock for activity tracking
func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		games: make(map[string]*entry),
		clock: clock,
	}
}

// Create registers a new empty game under the caller supplied id
func (r *Registry) Create(id string) (*models.Game, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}

	g := models.NewGame(id)
	r.games[id] = &entry{
		game:       g,
		lastActive: r.clock.Now(),
	}

	log.Debug().
		Str("game_id", id).
		Int("total_games", len(r.games)).
		Msg("game registered")

	return g.Clone(), nil
}

// CreateOrGet returns the existing game or creates it. created reports
// whether a new game was registered.
func (r *Registry) CreateOrGet(id string) (g *models.Game, created bool, err error) {
	if existing, ok := r.Get(id); ok {
		return existing, false, nil
	}
	g, err = r.Create(id)
	if err == nil {
		return g, true, nil
	}
	// Lost a race with another creator
	if existing, ok := r.Get(id); ok {
		return existing, false, nil
	}
	return nil, false, err
}

// Get returns a snapshot of the game, or false when it does not exist
func (r *Registry) Get(id string) (*models.Game, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, false
	}
	e.lastActive = r.clock.Now()
	return e.game.Clone(), true
}

// Peek returns a snapshot of the game without touching its activity time
func (r *Registry) Peek(id string) (*models.Game, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, false
	}
	return e.game.Clone(), true
}

// Update runs mutate against a working copy of the game while holding that
// game's lock. On success the copy replaces the game, the version is bumped
// and every commit func sees the new snapshot before the lock is released.
func (r *Registry) Update(id string, mutate MutateFunc, commits ...CommitFunc) (*models.Game, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	working := e.game.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}

	working.Version++
	e.game = working
	e.lastActive = r.clock.Now()

	snapshot := working.Clone()
	for _, commit := range commits {
		commit(snapshot)
	}
	return snapshot, nil
}

// Delete removes the game. It reports whether the game existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	e, ok := r.games[id]
	if ok {
		delete(r.games, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return true
}

// Len returns the number of live games
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Stats summarizes the live games
func (r *Registry) Stats() RegistryStats {
	stats := RegistryStats{Phases: make(map[models.GamePhase]int)}

	for _, e := range r.entries() {
		e.mu.Lock()
		if !e.removed {
			stats.Games++
			stats.Players += len(e.game.Players)
			stats.Phases[e.game.Phase()]++
		}
		e.mu.Unlock()
	}
	return stats
}

// EvictIdle removes games idle for longer than ttl for which keep returns
// false. keep is called with the game lock held and must not block.
func (r *Registry) EvictIdle(ttl time.Duration, keep func(id string) bool) []string {
	cutoff := r.clock.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, e := range r.games {
		e.mu.Lock()
		if e.lastActive.Before(cutoff) && (keep == nil || !keep(id)) {
			e.removed = true
			delete(r.games, id)
			evicted = append(evicted, id)
		}
		e.mu.Unlock()
	}
	return evicted
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.games[id]
	return e, ok
}

// entries snapshots the entry pointers so callers can lock them one at a time
func (r *Registry) entries() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.games))
	for _, e := range r.games {
		out = append(out, e)
	}
	return out
}
