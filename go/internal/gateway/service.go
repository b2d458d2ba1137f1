package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/rapidpoker/go/internal/game"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Service is the poker gateway: it owns the game registry, terminates
// websocket connections and fans game updates out to subscribers
type Service struct {
	registry          *game.Registry
	app               *game.App
	connectionManager *ConnectionManager
	dispatcher        *Dispatcher
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	sweeper           *game.Sweeper
	publisher         *NATSPublisher
	config            Config
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	SweeperConfig    game.SweeperConfig
	// PublisherConfig enables the NATS event feed when non-nil
	PublisherConfig *NATSPublisherConfig
	AllowedOrigins  []string
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		SweeperConfig:    game.DefaultSweeperConfig(),
		AllowedOrigins:   []string{"*"},
	}
}

// NewService creates a new gateway service. clock may be nil.
func NewService(config Config, clock clockwork.Clock) (*Service, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	registry := game.NewRegistry(clock)
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	var (
		publisher      *NATSPublisher
		eventPublisher game.EventPublisher
	)
	if config.PublisherConfig != nil {
		p, err := NewNATSPublisher(*config.PublisherConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		publisher = p
		eventPublisher = p
	}

	app := game.NewApp(registry, connectionManager, eventPublisher)
	dispatcher := NewDispatcher(app, connectionManager)

	s := &Service{
		registry:          registry,
		app:               app,
		connectionManager: connectionManager,
		dispatcher:        dispatcher,
		wsHandler:         NewWebSocketHandler(connectionManager, dispatcher),
		stateHandler:      NewStateHandler(registry, connectionManager),
		publisher:         publisher,
		config:            config,
	}
	s.sweeper = game.NewSweeper(registry, connectionManager, clock, config.SweeperConfig, func(gameID string) {
		app.GameEvicted(context.Background(), gameID)
	})

	return s, nil
}

// Start runs the idle game sweeper until ctx is cancelled, then stops the service
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting poker gateway service")

	if err := s.sweeper.Run(ctx); err != nil {
		log.Error().Err(err).Msg("game sweeper failed")
	}

	log.Info().Msg("poker gateway service shutting down")
	return s.Stop()
}

// Stop closes every connection and the event publisher
func (s *Service) Stop() error {
	s.connectionManager.CloseAll()

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event publisher")
		}
	}

	log.Info().Msg("poker gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and REST routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	setupHealthCheck(mux)
	log.Info().Msg("poker gateway routes registered")
}

// Handler returns every route wrapped with CORS
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// App exposes the game app, mostly for tests
func (s *Service) App() *game.App {
	return s.app
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	registryStats := s.registry.Stats()
	stats["service"] = "poker_gateway"
	stats["status"] = "running"
	stats["games"] = registryStats.Games
	stats["players"] = registryStats.Players
	return stats
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
