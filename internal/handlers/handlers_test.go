// internal/handlers/handlers_test.go
package handlers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pietjesbak/puppies/internal/game"
)

func TestExtractCookieToken(t *testing.T) {
	header := "session=abc; auth_token=tok123; theme=dark"
	assert.Equal(t, "tok123", extractCookieToken(header, "auth_token"))
	assert.Equal(t, "dark", extractCookieToken(header, "theme"))
	assert.Equal(t, "", extractCookieToken(header, "missing"))
	assert.Equal(t, "", extractCookieToken("", "auth_token"))
}

func newTestRemotePlayer() *RemotePlayer {
	logger := logrus.New()
	return NewRemotePlayer(uuid.New(), "tester", nil, logger)
}

func TestRemotePlayerDrawDispatch(t *testing.T) {
	rp := newTestRemotePlayer()

	drew := false
	rp.mu.Lock()
	rp.onDraw = func() { drew = true }
	rp.onPlay = func([]game.CardType) { t.Error("play callback must not fire on draw") }
	rp.mu.Unlock()

	rp.Handle(GameMessage{Type: "draw"})
	assert.True(t, drew)

	rp.mu.Lock()
	assert.Nil(t, rp.onDraw, "callbacks are consumed once")
	assert.Nil(t, rp.onPlay, "the sibling option is dropped too")
	rp.mu.Unlock()
}

func TestRemotePlayerPlayParsesCardKeys(t *testing.T) {
	rp := newTestRemotePlayer()

	var got []game.CardType
	rp.mu.Lock()
	rp.onPlay = func(sel []game.CardType) { got = sel }
	rp.onDraw = func() {}
	rp.mu.Unlock()

	rp.Handle(GameMessage{Type: "play", Cards: []string{"corgi", "corgi"}})
	assert.Equal(t, []game.CardType{game.PuppyCorgi, game.PuppyCorgi}, got)
}

func TestRemotePlayerTargetValidatesSeat(t *testing.T) {
	rp := newTestRemotePlayer()
	p1 := game.NewPlayer(1, "p1", nil)
	p2 := game.NewPlayer(2, "p2", nil)

	var picked *game.Player
	rp.mu.Lock()
	rp.onTarget = func(p *game.Player) { picked = p }
	rp.targets = []*game.Player{p1, p2}
	rp.mu.Unlock()

	seat := 2
	rp.Handle(GameMessage{Type: "select_target", Target: &seat})
	require.NotNil(t, picked)
	assert.Equal(t, 2, picked.ID)
}

func TestRemotePlayerInsertDispatch(t *testing.T) {
	rp := newTestRemotePlayer()

	pos := -1
	rp.mu.Lock()
	rp.onInsert = func(p int) { pos = p }
	rp.mu.Unlock()

	want := 3
	rp.Handle(GameMessage{Type: "insert", Position: &want})
	assert.Equal(t, 3, pos)
}

func TestRemotePlayerClearCallbacksDropsAll(t *testing.T) {
	rp := newTestRemotePlayer()

	rp.mu.Lock()
	rp.onNope = func() { t.Error("cleared callback fired") }
	rp.onConfirm = func() { t.Error("cleared callback fired") }
	rp.mu.Unlock()

	rp.ClearCallbacks()
	rp.Handle(GameMessage{Type: "confirm"})

	rp.mu.Lock()
	assert.Nil(t, rp.onNope)
	assert.Nil(t, rp.onConfirm)
	rp.mu.Unlock()
}
