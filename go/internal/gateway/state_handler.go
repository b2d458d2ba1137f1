package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mcdev12/rapidpoker/go/internal/game"
	"github.com/mcdev12/rapidpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// GameStateResponse is the read only view of a game served over HTTP
type GameStateResponse struct {
	Game          *models.Game     `json:"game"`
	Phase         models.GamePhase `json:"phase"`
	Version       uint64           `json:"version"`
	SelectedCount int              `json:"selected_count"`
	Subscribers   int              `json:"subscribers"`
}

// StateHandler handles HTTP requests for game state
type StateHandler struct {
	registry    *game.Registry
	subscribers game.SubscriberCounter
}

// NewStateHandler creates a new state handler
func NewStateHandler(registry *game.Registry, subscribers game.SubscriberCounter) *StateHandler {
	return &StateHandler{
		registry:    registry,
		subscribers: subscribers,
	}
}

// HandleGetGameState handles GET /api/games/{id}/state
func (h *StateHandler) HandleGetGameState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	gameID := extractGameIDFromPath(r.URL.Path)
	if err := game.ValidateID(gameID); err != nil {
		http.Error(w, "Invalid game ID", http.StatusBadRequest)
		return
	}

	g, ok := h.registry.Peek(gameID)
	if !ok {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	resp := GameStateResponse{
		Game:          g,
		Phase:         g.Phase(),
		Version:       g.Version,
		SelectedCount: g.SelectedCount(),
		Subscribers:   h.subscribers.SubscriberCount(gameID),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode game state response")
	}
}

// HandleGetGameStats handles GET /api/games/stats
func (h *StateHandler) HandleGetGameStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.registry.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode game stats response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/games/stats", h.HandleGetGameStats)

	mux.HandleFunc("/api/games/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/state") {
			h.HandleGetGameState(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// extractGameIDFromPath extracts the game ID from a path like /api/games/{id}/state
func extractGameIDFromPath(path string) string {
	const prefix = "/api/games/"
	const suffix = "/state"

	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}
