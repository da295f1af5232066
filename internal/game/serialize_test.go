// internal/game/serialize_test.go
package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{}, &scriptActor{})
	g.Deal()
	g.currentPlayer = 2
	g.nextQueue = []int{2, 0}
	players[1].Alive = false
	players[0].Selection = []CardType{PuppyCorgi, PuppyCorgi}

	snap := SerializeFull(g)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored, err := DeserializeFull(&decoded)
	require.NoError(t, err)

	assert.Equal(t, g.ID, restored.ID)
	assert.Equal(t, g.TotalCards(), restored.TotalCards())
	assert.Equal(t, 2, restored.currentPlayer)
	assert.Equal(t, []int{2, 0}, restored.nextQueue)
	assert.False(t, restored.GameOver)

	require.Len(t, restored.Players, 3)
	for i, p := range restored.Players {
		orig := g.Players[i]
		assert.Equal(t, orig.ID, p.ID)
		assert.Equal(t, orig.Name, p.Name)
		assert.Equal(t, orig.Alive, p.Alive)
		require.Len(t, p.Hand, len(orig.Hand))
		for j, c := range p.Hand {
			assert.Equal(t, orig.Hand[j].ID, c.ID)
			assert.Equal(t, orig.Hand[j].Type, c.Type)
		}
		assert.Nil(t, p.Actor, "controllers are reattached by the caller")
	}
	assert.Equal(t, []CardType{PuppyCorgi, PuppyCorgi}, restored.Players[0].Selection)

	require.Equal(t, g.Deck.Len(), restored.Deck.Len())
	for i, c := range restored.Deck.Cards() {
		assert.Equal(t, g.Deck.Cards()[i].ID, c.ID, "deck order survives the round trip")
	}
}

func TestSerializeIsStableCopy(t *testing.T) {
	g, _ := newTestGame(&scriptActor{}, &scriptActor{})
	g.Deal()

	snap := SerializeFull(g)
	deckBefore := len(snap.Deck)

	// Mutating the live game must not reach into the snapshot.
	_, err := g.Deck.Pick()
	require.NoError(t, err)
	g.nextQueue = append(g.nextQueue, 1)

	assert.Len(t, snap.Deck, deckBefore)
	assert.Empty(t, snap.NextQueue)
}

func TestSerializeGameOverCarriesWinner(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{})
	players[0].Alive = false
	g.checkWin()
	require.True(t, g.GameOver)

	snap := SerializeFull(g)
	restored, err := DeserializeFull(snap)
	require.NoError(t, err)

	assert.True(t, restored.GameOver)
	require.NotNil(t, restored.Winner)
	assert.Equal(t, 1, restored.Winner.ID)
}

func TestDeserializeRejectsTinySnapshots(t *testing.T) {
	_, err := DeserializeFull(&Snapshot{})
	assert.Error(t, err)
}
