package game

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SubscriberCounter reports how many connections watch a game
type SubscriberCounter interface {
	SubscriberCount(gameID string) int
}

// SweeperConfig controls idle game eviction
type SweeperConfig struct {
	Interval time.Duration
	IdleTTL  time.Duration
}

// DefaultSweeperConfig returns default eviction settings
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: time.Minute,
		IdleTTL:  6 * time.Hour,
	}
}

// Sweeper periodically evicts games that nobody is connected to and that
// have not been touched for IdleTTL
type Sweeper struct {
	registry    *Registry
	subscribers SubscriberCounter
	clock       clockwork.Clock
	config      SweeperConfig
	onEvict     func(gameID string)
}

// NewSweeper creates a sweeper. onEvict may be nil.
func NewSweeper(registry *Registry, subscribers SubscriberCounter, clock clockwork.Clock, config SweeperConfig, onEvict func(gameID string)) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sweeper{
		registry:    registry,
		subscribers: subscribers,
		clock:       clock,
		config:      config,
		onEvict:     onEvict,
	}
}

// Run sweeps on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	if s.config.Interval <= 0 || s.config.IdleTTL <= 0 {
		log.Info().Msg("game eviction disabled")
		<-ctx.Done()
		return nil
	}

	ticker := s.clock.NewTicker(s.config.Interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", s.config.Interval).
		Dur("idle_ttl", s.config.IdleTTL).
		Msg("game sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("game sweeper shutting down")
			return nil
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// Sweep performs one eviction pass and returns the evicted game ids
func (s *Sweeper) Sweep() []string {
	evicted := s.registry.EvictIdle(s.config.IdleTTL, func(id string) bool {
		return s.subscribers != nil && s.subscribers.SubscriberCount(id) > 0
	})

	for _, id := range evicted {
		log.Info().Str("game_id", id).Msg("evicted idle game")
		if s.onEvict != nil {
			s.onEvict(id)
		}
	}
	if len(evicted) > 0 {
		log.Debug().
			Int("evicted", len(evicted)).
			Int("remaining", s.registry.Len()).
			Msg("sweep complete")
	}
	return evicted
}
