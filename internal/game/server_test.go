// internal/game/server_test.go
package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerForceStartWithThreeSeats(t *testing.T) {
	s := NewServer()

	require.NoError(t, s.Join("alice", &scriptActor{}))
	require.NoError(t, s.Join("bob", &scriptActor{}))
	require.NoError(t, s.Join("carol", &scriptActor{}))
	assert.Equal(t, 3, s.JoinedCount())

	require.NoError(t, s.ForceStart())

	players, err := s.WaitForPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 3)
	for i, name := range []string{"alice", "bob", "carol"} {
		assert.Equal(t, i, players[i].ID, "seat ids follow join order")
		assert.Equal(t, name, players[i].Name)
	}
	assert.Equal(t, 0, s.handler.Pending(), "no join slot is left dangling")
}

func TestServerFullTableStartsWithoutForce(t *testing.T) {
	s := NewServer()
	for i := 0; i < MaxPlayers; i++ {
		require.NoError(t, s.Join("p", &scriptActor{}))
	}

	players, err := s.WaitForPlayers(context.Background())
	require.NoError(t, err)
	assert.Len(t, players, MaxPlayers)

	err = s.Join("late", &scriptActor{})
	assert.Error(t, err, "a full table rejects further joins")
}

func TestServerForceStartNeedsTwoPlayers(t *testing.T) {
	s := NewServer()
	require.NoError(t, s.Join("solo", &scriptActor{}))
	assert.Error(t, s.ForceStart())
}

func TestServerRunPlaysToCompletion(t *testing.T) {
	s := NewServer()
	s.OnGameEnd = func(g *Game) {
		assert.True(t, g.GameOver)
	}

	require.NoError(t, s.Join("a", &scriptActor{}))
	require.NoError(t, s.Join("b", &scriptActor{}))
	require.NoError(t, s.ForceStart())

	// Both seats always draw; the game ends when someone hits a bomb without
	// a spare defuse.
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("game did not finish")
	}

	g := s.Game
	require.NotNil(t, g)
	assert.True(t, g.GameOver)
	require.NotNil(t, g.Winner)
	assert.True(t, g.Winner.Alive)
}
