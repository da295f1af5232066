// internal/game/game_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// ServerStore tracks every live game server in memory.
type ServerStore struct {
	mu      sync.Mutex
	servers map[uuid.UUID]*Server
}

// NewServerStore creates an empty store.
func NewServerStore() *ServerStore {
	return &ServerStore{
		servers: make(map[uuid.UUID]*Server),
	}
}

// Add registers a server by its ID.
func (s *ServerStore) Add(srv *Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[srv.ID] = srv
}

// Get returns the server with the given ID, or nil.
func (s *ServerStore) Get(id uuid.UUID) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servers[id]
}

// Delete removes a server from the store.
func (s *ServerStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.servers, id)
}

// List returns every registered server in unspecified order.
func (s *ServerStore) List() []*Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Server, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, srv)
	}
	return out
}
