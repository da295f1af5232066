// internal/game/server.go
package game

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/pietjesbak/puppies/internal/async"
)

// Server owns one game's full lifecycle: it accumulates join requests as
// correlated async slots, force-starts early on demand, then builds the Game,
// deals and drives the turn loop. Seat ids are assigned 0-based in join order.
type Server struct {
	ID uuid.UUID

	handler      *async.Handler
	joinKeys     []string
	joinPromises []*async.Promise

	mu      sync.Mutex
	joined  int
	started bool

	Game *Game

	// AnnounceFn, when set, is installed on the Game so every announcement
	// reaches the transport layer from the very first event.
	AnnounceFn func(Announcement)

	// OnGameStart is invoked once right after the deal.
	OnGameStart func(g *Game)

	// OnGameEnd is invoked once after the loop stops with a winner.
	OnGameEnd func(g *Game)
}

// NewServer opens MaxPlayers join slots.
func NewServer() *Server {
	id, _ := uuid.NewRandom()
	s := &Server{
		ID:      id,
		handler: async.NewHandler(),
	}
	for i := 0; i < MaxPlayers; i++ {
		key := s.handler.CreatePromise(actionJoin, map[string]interface{}{"seat": i}, 0)
		s.joinKeys = append(s.joinKeys, key)
		s.joinPromises = append(s.joinPromises, s.handler.GetPromise(key))
	}
	return s
}

// Join claims the next open seat for the named actor.
func (s *Server) Join(name string, actor Actor) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("game %s has already started", s.ID)
	}
	if s.joined >= MaxPlayers {
		s.mu.Unlock()
		return fmt.Errorf("game %s is full", s.ID)
	}
	key := s.joinKeys[s.joined]
	s.joined++
	s.mu.Unlock()

	return s.handler.Resolve(key, map[string]interface{}{"name": name, "actor": actor})
}

// JoinedCount returns how many seats have been claimed so far.
func (s *Server) JoinedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined
}

// ForceStart rejects the remaining open join slots so WaitForPlayers resolves
// with the seats claimed so far. Requires at least MinPlayers.
func (s *Server) ForceStart() error {
	s.mu.Lock()
	if s.joined < MinPlayers {
		s.mu.Unlock()
		return fmt.Errorf("cannot start game %s with %d player(s)", s.ID, s.joined)
	}
	s.mu.Unlock()

	s.handler.RejectRemaining(s.joinKeys)
	return nil
}

// WaitForPlayers blocks until every seat is claimed or ForceStart cancels the
// open ones, then returns the joined players with seat ids 0..n-1.
func (s *Server) WaitForPlayers(ctx context.Context) ([]*Player, error) {
	players := []*Player{}
	for i, promise := range s.joinPromises {
		res, err := promise.Wait()
		if err != nil {
			// Force-start: no more joins are coming.
			break
		}
		name, _ := res.Data["name"].(string)
		actor, ok := res.Data["actor"].(Actor)
		if !ok {
			return nil, fmt.Errorf("join slot %d resolved without an actor", i)
		}
		players = append(players, NewPlayer(i, name, actor))
	}
	if len(players) < MinPlayers {
		return nil, fmt.Errorf("game %s ended up with %d player(s), need at least %d", s.ID, len(players), MinPlayers)
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return players, nil
}

// Run waits for the table to fill, deals, and drives the game to completion.
func (s *Server) Run(ctx context.Context) error {
	players, err := s.WaitForPlayers(ctx)
	if err != nil {
		return err
	}

	g := NewGame(players)
	if s.AnnounceFn != nil {
		g.AnnounceFn = s.AnnounceFn
	}
	s.mu.Lock()
	s.Game = g
	s.mu.Unlock()

	for _, p := range players {
		if binder, ok := p.Actor.(interface {
			Bind(*Game, *Player)
		}); ok {
			binder.Bind(g, p)
		}
	}

	for _, p := range players {
		g.announce(Announcement{
			Type:    AnnouncePlayerJoined,
			Player:  seat(p),
			Payload: map[string]interface{}{"name": p.Name},
		})
	}
	g.Deal()
	if s.OnGameStart != nil {
		s.OnGameStart(g)
	}

	if err := g.GameLoop(ctx); err != nil {
		return fmt.Errorf("game %s loop: %w", g.ID, err)
	}

	log.Printf("game %s finished, winner: %s", g.ID, g.Winner.Name)
	if s.OnGameEnd != nil {
		s.OnGameEnd(g)
	}
	return nil
}
