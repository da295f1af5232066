// internal/handlers/remote_player.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pietjesbak/puppies/internal/game"
)

// wsWriter is the slice of the websocket connection the adapter writes
// through; tests substitute a recording fake.
type wsWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// RemotePlayer adapts one websocket client to the engine's Actor contract.
// Every prompt is forwarded to the client as a JSON message; the read loop
// feeds answers back through the stored callbacks. Callbacks are taken
// exactly once and dropped on ClearCallbacks, so late or duplicate client
// messages are harmless.
type RemotePlayer struct {
	UserID uuid.UUID
	Name   string

	conn   wsWriter
	logger *logrus.Logger

	mu        sync.Mutex
	onDraw    func()
	onPlay    func(selection []game.CardType)
	onNope    func()
	onTarget  func(target *game.Player)
	onCard    func(t game.CardType)
	onInsert  func(pos int)
	onConfirm func()
	targets   []*game.Player

	seat *game.Player
	game *game.Game
}

// NewRemotePlayer wraps an accepted websocket connection.
func NewRemotePlayer(userID uuid.UUID, name string, conn wsWriter, logger *logrus.Logger) *RemotePlayer {
	return &RemotePlayer{
		UserID: userID,
		Name:   name,
		conn:   conn,
		logger: logger,
	}
}

// Bind attaches the seat once the game is built.
func (rp *RemotePlayer) Bind(g *game.Game, p *game.Player) {
	rp.mu.Lock()
	rp.game = g
	rp.seat = p
	rp.mu.Unlock()
	rp.send(map[string]interface{}{"type": "seated", "seat": p.ID})
}

// Seat returns the bound seat, or nil before the game starts.
func (rp *RemotePlayer) Seat() *game.Player {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.seat
}

// send marshals and writes one message with a short timeout. Write errors are
// logged and otherwise ignored; the read loop notices dead connections.
func (rp *RemotePlayer) send(message interface{}) {
	if rp.conn == nil {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		rp.logger.Errorf("marshal message for %s: %v", rp.UserID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rp.conn.Write(ctx, websocket.MessageText, data); err != nil {
		rp.logger.Warnf("write to %s failed: %v", rp.UserID, err)
	}
}

func (rp *RemotePlayer) handTypes() []game.CardType {
	if rp.seat == nil {
		return nil
	}
	types := make([]game.CardType, 0, len(rp.seat.Hand))
	for _, c := range rp.seat.Hand {
		types = append(types, c.Type)
	}
	return types
}

// GiveOptions tells the client it is their turn, including the current hand.
func (rp *RemotePlayer) GiveOptions(onDraw func(), onPlay func(selection []game.CardType)) {
	rp.mu.Lock()
	rp.onDraw = onDraw
	rp.onPlay = onPlay
	hand := rp.handTypes()
	rp.mu.Unlock()

	rp.send(map[string]interface{}{"type": "options", "hand": hand})
}

// AllowNope opens the reaction window on the client.
func (rp *RemotePlayer) AllowNope(onNope func()) {
	rp.mu.Lock()
	rp.onNope = onNope
	rp.mu.Unlock()

	rp.send(map[string]interface{}{"type": "nope_window"})
}

// AllowSelectTarget asks the client to pick one of the offered seats.
func (rp *RemotePlayer) AllowSelectTarget(options []*game.Player, onSelect func(target *game.Player)) {
	rp.mu.Lock()
	rp.onTarget = onSelect
	rp.targets = options
	rp.mu.Unlock()

	seats := make([]map[string]interface{}, len(options))
	for i, o := range options {
		seats[i] = map[string]interface{}{"seat": o.ID, "name": o.Name, "cards": len(o.Hand)}
	}
	rp.send(map[string]interface{}{"type": "select_target", "options": seats})
}

// AllowSelectCard asks the client to pick one of the offered card types.
func (rp *RemotePlayer) AllowSelectCard(options []game.CardType, onSelect func(t game.CardType)) {
	rp.mu.Lock()
	rp.onCard = onSelect
	rp.mu.Unlock()

	rp.send(map[string]interface{}{"type": "select_card", "options": options})
}

// AllowInsertIntoDeck asks where the defused bomb should go back in.
func (rp *RemotePlayer) AllowInsertIntoDeck(maxPosition int, onInsert func(pos int)) {
	rp.mu.Lock()
	rp.onInsert = onInsert
	rp.mu.Unlock()

	rp.send(map[string]interface{}{"type": "insert_position", "max": maxPosition})
}

// SeeFuture reveals the peeked cards privately to this client.
func (rp *RemotePlayer) SeeFuture(cards []*game.Card, onConfirm func()) {
	rp.mu.Lock()
	rp.onConfirm = onConfirm
	rp.mu.Unlock()

	types := make([]game.CardType, len(cards))
	for i, c := range cards {
		types[i] = c.Type
	}
	rp.send(map[string]interface{}{"type": "future", "cards": types})
}

// ClearCallbacks drops every stored callback.
func (rp *RemotePlayer) ClearCallbacks() {
	rp.mu.Lock()
	rp.onDraw = nil
	rp.onPlay = nil
	rp.onNope = nil
	rp.onTarget = nil
	rp.onCard = nil
	rp.onInsert = nil
	rp.onConfirm = nil
	rp.targets = nil
	rp.mu.Unlock()
}

// Handle routes one decoded client message to the matching pending callback.
// Messages with no pending callback are answered with an error.
func (rp *RemotePlayer) Handle(msg GameMessage) {
	switch msg.Type {
	case "draw":
		rp.mu.Lock()
		cb := rp.onDraw
		rp.onDraw, rp.onPlay = nil, nil
		rp.mu.Unlock()
		if cb == nil {
			rp.sendError("it is not your turn")
			return
		}
		cb()

	case "play":
		rp.mu.Lock()
		cb := rp.onPlay
		rp.onDraw, rp.onPlay = nil, nil
		rp.mu.Unlock()
		if cb == nil {
			rp.sendError("it is not your turn")
			return
		}
		sel := make([]game.CardType, 0, len(msg.Cards))
		for _, key := range msg.Cards {
			t, err := game.ParseCardType(key)
			if err != nil {
				rp.sendError(err.Error())
				return
			}
			sel = append(sel, t)
		}
		cb(sel)

	case "nope":
		rp.mu.Lock()
		cb := rp.onNope
		rp.onNope = nil
		rp.mu.Unlock()
		if cb == nil {
			rp.sendError("no play to nope right now")
			return
		}
		cb()

	case "select_target":
		rp.mu.Lock()
		cb := rp.onTarget
		targets := rp.targets
		rp.onTarget, rp.targets = nil, nil
		rp.mu.Unlock()
		if cb == nil {
			rp.sendError("no target selection pending")
			return
		}
		for _, o := range targets {
			if msg.Target != nil && o.ID == *msg.Target {
				cb(o)
				return
			}
		}
		rp.sendError("invalid target seat")

	case "select_card":
		rp.mu.Lock()
		cb := rp.onCard
		rp.onCard = nil
		rp.mu.Unlock()
		if cb == nil {
			rp.sendError("no card selection pending")
			return
		}
		t, err := game.ParseCardType(msg.Card)
		if err != nil {
			rp.sendError(err.Error())
			return
		}
		cb(t)

	case "insert":
		rp.mu.Lock()
		cb := rp.onInsert
		rp.onInsert = nil
		rp.mu.Unlock()
		if cb == nil {
			rp.sendError("no insert position pending")
			return
		}
		pos := 0
		if msg.Position != nil {
			pos = *msg.Position
		}
		cb(pos)

	case "confirm":
		rp.mu.Lock()
		cb := rp.onConfirm
		rp.onConfirm = nil
		rp.mu.Unlock()
		if cb != nil {
			cb()
		}

	case "ping":
		rp.send(map[string]string{"type": "pong"})

	default:
		rp.sendError("unknown message type: " + msg.Type)
	}
}

func (rp *RemotePlayer) sendError(message string) {
	rp.send(map[string]interface{}{"type": "error", "message": message})
}
