// internal/handlers/game_server_test.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pietjesbak/puppies/internal/game"
)

// recordingConn captures every frame written to it, in write order.
type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) Write(ctx context.Context, _ websocket.MessageType, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte{}, p...))
	return nil
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestAnnouncementsReachClientsInOrder(t *testing.T) {
	gs := NewGameServer(logrus.New())
	s := gs.CreateGame()

	conn := &recordingConn{}
	rp := NewRemotePlayer(uuid.New(), "watcher", conn, logrus.New())
	gs.register(s.ID, rp)

	const n = 40
	for i := 0; i < n; i++ {
		s.AnnounceFn(game.Announcement{Type: game.AnnounceTurnStarted})
	}

	require.Eventually(t, func() bool { return conn.count() == n },
		2*time.Second, 10*time.Millisecond, "feed writer never delivered everything")

	conn.mu.Lock()
	defer conn.mu.Unlock()
	for i, frame := range conn.frames {
		var msg struct {
			Type  string `json:"type"`
			Index int    `json:"index"`
		}
		require.NoError(t, json.Unmarshal(frame, &msg))
		assert.Equal(t, "announcement", msg.Type)
		assert.Equal(t, i+1, msg.Index, "clients see the feed in engine order")
	}
}
