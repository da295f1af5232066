// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/pietjesbak/puppies/internal/game"
)

// requireUser authenticates the request via the auth_token cookie. Writes the
// HTTP error itself and returns false when the caller should bail.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if token == "" {
		http.Error(w, "missing auth_token", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	userID, _, err := resolveToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return uuid.Nil, false
	}
	return userID, true
}

// parseGameID reads the game_id from the JSON body.
func parseGameID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req struct {
		GameID uuid.UUID `json:"game_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == uuid.Nil {
		http.Error(w, "missing or invalid game_id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return req.GameID, true
}

// CreateGameHandler opens a new table and returns its id. Players then
// connect to /game/ws/{game_id} to claim seats.
func CreateGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		s := gs.CreateGame()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"game_id":     s.ID,
			"max_players": game.MaxPlayers,
		})
	}
}

// ListGamesHandler returns every open or running table.
func ListGamesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		type entry struct {
			GameID  uuid.UUID `json:"game_id"`
			Joined  int       `json:"joined"`
			Running bool      `json:"running"`
		}
		out := []entry{}
		for _, s := range gs.Store.List() {
			out = append(out, entry{
				GameID:  s.ID,
				Joined:  s.JoinedCount(),
				Running: s.Game != nil,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

// StartGameHandler force-starts a table before it fills up.
func StartGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}
		gameID, ok := parseGameID(w, r)
		if !ok {
			return
		}

		s := gs.Store.Get(gameID)
		if s == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		if err := s.ForceStart(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// AddBotHandler seats an AI player at the table.
func AddBotHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		var req struct {
			GameID      uuid.UUID         `json:"game_id"`
			Name        string            `json:"name"`
			Personality *game.Personality `json:"personality"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == uuid.Nil {
			http.Error(w, "missing or invalid game_id", http.StatusBadRequest)
			return
		}

		s := gs.Store.Get(req.GameID)
		if s == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		personality := game.DefaultPersonality
		if req.Personality != nil {
			personality = *req.Personality
			if personality.Delay == 0 {
				personality.Delay = game.DefaultPersonality.Delay
			}
		}
		name := req.Name
		if name == "" {
			name = "Bot"
		}

		if err := s.Join(name, game.NewAIPlayer(personality)); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
