// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pietjesbak/puppies/internal/middleware"
)

// GameMessage is the envelope for every incoming websocket message during a
// game. Which fields matter depends on Type; see RemotePlayer.Handle.
type GameMessage struct {
	Type string `json:"type"`

	// Cards carries the selection of a "play" message as wire identifiers.
	Cards []string `json:"cards,omitempty"`

	// Target is the chosen seat for a "select_target" answer.
	Target *int `json:"target,omitempty"`

	// Card is the chosen type for a "select_card" answer.
	Card string `json:"card,omitempty"`

	// Position is the deck position for an "insert" answer.
	Position *int `json:"position,omitempty"`
}

// GameWSHandler upgrades the connection for /game/ws/{game_id}, authenticates
// the user (creating an ephemeral guest if needed), claims a seat on the game
// server and then pumps client messages into the seat's actor until the
// connection drops.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		gameID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "invalid game id (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}

		s := gs.Store.Get(gameID)
		if s == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		userID, username, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("authentication failed for game %s: %v", gameID, err)
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "client must speak the 'game' subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		rp := NewRemotePlayer(userID, username, c, logger)
		if err := s.Join(username, rp); err != nil {
			logger.Warnf("user %s cannot join game %s: %v", userID, gameID, err)
			c.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}
		gs.register(gameID, rp)
		rp.send(map[string]interface{}{"type": "welcome", "game": gameID, "name": username})

		readErr := readGameMessages(r.Context(), c, rp, logger)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
		gs.unregister(gameID, rp)
	}
}

// readGameMessages pumps the connection until it closes or the context ends.
func readGameMessages(ctx context.Context, c *websocket.Conn, rp *RemotePlayer, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.Warnf("ignoring non-text message from %s", rp.UserID)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("invalid json from %s: %v", rp.UserID, err)
			rp.sendError("invalid json")
			continue
		}
		rp.Handle(msg)
	}
}

// EnsureEphemeralUser resolves the auth cookie to a user, minting a guest
// account and token when the client arrives without (valid) credentials.
// Returns the user's id and display name.
func EnsureEphemeralUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, error) {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if token != "" {
		if userID, username, err := resolveToken(r.Context(), token); err == nil {
			return userID, username, nil
		}
	}
	return createGuest(w, r)
}
