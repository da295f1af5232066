// internal/handlers/game_server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pietjesbak/puppies/internal/cache"
	"github.com/pietjesbak/puppies/internal/database"
	"github.com/pietjesbak/puppies/internal/game"
)

// GameServer owns every live table: it creates game servers, tracks the
// websocket clients seated at each one, fans announcements out to them and
// persists snapshots and results around the game lifecycle.
type GameServer struct {
	Store  *game.ServerStore
	Logger *logrus.Logger

	mu      sync.Mutex
	clients map[uuid.UUID][]*RemotePlayer
	feeds   map[uuid.UUID]chan feedItem
}

// feedItem is one announcement queued for delivery, numbered in engine order
// so clients can detect gaps.
type feedItem struct {
	Index        int
	Announcement game.Announcement
}

func NewGameServer(logger *logrus.Logger) *GameServer {
	return &GameServer{
		Store:   game.NewServerStore(),
		Logger:  logger,
		clients: make(map[uuid.UUID][]*RemotePlayer),
		feeds:   make(map[uuid.UUID]chan feedItem),
	}
}

// CreateGame builds a new table, wires its lifecycle hooks and starts its run
// loop in the background.
func (gs *GameServer) CreateGame() *game.Server {
	s := game.NewServer()
	gameID := s.ID

	feed := make(chan feedItem, 64)
	gs.mu.Lock()
	gs.feeds[gameID] = feed
	gs.mu.Unlock()
	go gs.writeFeed(gameID, feed)

	var announceIdx int
	s.AnnounceFn = func(a game.Announcement) {
		announceIdx++
		feed <- feedItem{Index: announceIdx, Announcement: a}

		data, err := json.Marshal(a)
		if err != nil {
			gs.Logger.Errorf("marshal announcement for game %s: %v", gameID, err)
			return
		}
		record := cache.AnnouncementRecord{
			GameID:       gameID,
			Index:        announceIdx,
			Announcement: data,
			Timestamp:    time.Now().UnixMilli(),
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := cache.PublishAnnouncement(ctx, record); err != nil {
			gs.Logger.Warnf("publish announcement for game %s: %v", gameID, err)
		}
	}

	s.OnGameStart = func(g *game.Game) {
		if database.DB == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreInitialGameState(ctx, g.ID, game.SerializeFull(g)); err != nil {
			gs.Logger.Errorf("store initial state for game %s: %v", g.ID, err)
		}
	}

	s.OnGameEnd = func(g *game.Game) {
		gs.persistResults(g)
		gs.cleanup(gameID)
	}

	gs.Store.Add(s)

	go func() {
		if err := s.Run(context.Background()); err != nil {
			gs.Logger.Warnf("game %s run loop: %v", gameID, err)
			gs.cleanup(gameID)
		}
	}()

	return s
}

// cleanup tears a finished table down: the feed writer drains and exits once
// its channel closes.
func (gs *GameServer) cleanup(gameID uuid.UUID) {
	gs.mu.Lock()
	if feed, ok := gs.feeds[gameID]; ok {
		close(feed)
		delete(gs.feeds, gameID)
	}
	delete(gs.clients, gameID)
	gs.mu.Unlock()
	gs.Store.Delete(gameID)
}

// register tracks a connected client for broadcasts.
func (gs *GameServer) register(gameID uuid.UUID, rp *RemotePlayer) {
	gs.mu.Lock()
	gs.clients[gameID] = append(gs.clients[gameID], rp)
	gs.mu.Unlock()
}

// unregister drops a client and, if the game is already running, marks its
// seat gone so the engine stops waiting on it.
func (gs *GameServer) unregister(gameID uuid.UUID, rp *RemotePlayer) {
	gs.mu.Lock()
	conns := gs.clients[gameID]
	for i, c := range conns {
		if c == rp {
			gs.clients[gameID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	gs.mu.Unlock()

	if seat := rp.Seat(); seat != nil {
		if s := gs.Store.Get(gameID); s != nil && s.Game != nil {
			s.Game.MarkGone(seat.ID)
		}
	}
}

// writeFeed delivers announcements to every seated client one item at a
// time, so clients observe the feed in the exact order the engine produced
// it. Slow sockets are bounded by the per-write timeout in RemotePlayer.send.
func (gs *GameServer) writeFeed(gameID uuid.UUID, feed <-chan feedItem) {
	for item := range feed {
		gs.mu.Lock()
		conns := append([]*RemotePlayer{}, gs.clients[gameID]...)
		gs.mu.Unlock()

		for _, rp := range conns {
			rp.send(map[string]interface{}{
				"type":         "announcement",
				"index":        item.Index,
				"announcement": item.Announcement,
			})
		}
	}
}

// persistResults writes the final snapshot and per-seat outcomes. AI seats
// are stored with a null user id.
func (gs *GameServer) persistResults(g *game.Game) {
	if database.DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.StoreFinalGameState(ctx, g.ID, game.SerializeFull(g)); err != nil {
		gs.Logger.Errorf("store final state for game %s: %v", g.ID, err)
	}

	results := make([]database.SeatResult, 0, len(g.Players))
	for _, p := range g.Players {
		r := database.SeatResult{
			Seat:     p.ID,
			Survived: p.Alive,
			Won:      g.Winner == p,
		}
		if rp, ok := p.Actor.(*RemotePlayer); ok {
			r.UserID = rp.UserID
		}
		results = append(results, r)
	}
	if err := database.RecordGameResults(ctx, g.ID, results); err != nil {
		gs.Logger.Errorf("record results for game %s: %v", g.ID, err)
	}
}
