// internal/game/serialize.go
package game

import (
	"fmt"

	"github.com/google/uuid"
)

// Snapshot is the full serializable state of a game at a quiescent point
// (between suspension points, no pending async slot). It carries everything
// needed to resume: exact card identities and their locations, the turn
// schedule and the card ID sequence.
type Snapshot struct {
	ID          uuid.UUID        `json:"id"`
	Players     []PlayerSnapshot `json:"players"`
	Deck        []*Card          `json:"deck"`
	DiscardPile []*Card          `json:"discardPile"`

	CurrentPlayer int   `json:"currentPlayer"`
	NextQueue     []int `json:"nextQueue"`

	GameOver bool `json:"gameOver"`
	Winner   *int `json:"winner,omitempty"`

	CardSeq int `json:"cardSeq"`
}

// PlayerSnapshot is one seat's serializable state. The actor is deliberately
// absent; reattaching controllers is the caller's job on restore.
type PlayerSnapshot struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Hand      []*Card    `json:"hand"`
	Alive     bool       `json:"alive"`
	Selection []CardType `json:"selection,omitempty"`
}

// SerializeFull captures the complete game state. Card slices are copied so
// the snapshot stays stable while the game moves on.
func SerializeFull(g *Game) *Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	snap := &Snapshot{
		ID:            g.ID,
		Deck:          append([]*Card{}, g.Deck.Cards()...),
		DiscardPile:   append([]*Card{}, g.DiscardPile...),
		CurrentPlayer: g.currentPlayer,
		NextQueue:     append([]int{}, g.nextQueue...),
		GameOver:      g.GameOver,
		CardSeq:       g.cardSeq,
	}
	if g.Winner != nil {
		id := g.Winner.ID
		snap.Winner = &id
	}
	for _, p := range g.Players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:        p.ID,
			Name:      p.Name,
			Hand:      append([]*Card{}, p.Hand...),
			Alive:     p.Alive,
			Selection: append([]CardType{}, p.Selection...),
		})
	}
	return snap
}

// DeserializeFull rebuilds a game from a snapshot. Every seat comes back with
// a nil actor; attach controllers (or AI seats) before resuming the loop.
func DeserializeFull(snap *Snapshot) (*Game, error) {
	if len(snap.Players) < MinPlayers {
		return nil, fmt.Errorf("snapshot %s has %d player(s), need at least %d", snap.ID, len(snap.Players), MinPlayers)
	}

	players := make([]*Player, 0, len(snap.Players))
	for _, ps := range snap.Players {
		p := NewPlayer(ps.ID, ps.Name, nil)
		p.Hand = append([]*Card{}, ps.Hand...)
		p.Alive = ps.Alive
		if len(ps.Selection) > 0 {
			p.Selection = append([]CardType{}, ps.Selection...)
		}
		players = append(players, p)
	}

	g := NewGame(players)
	g.ID = snap.ID
	g.Deck = NewDeck(append([]*Card{}, snap.Deck...))
	g.DiscardPile = append([]*Card{}, snap.DiscardPile...)
	g.currentPlayer = snap.CurrentPlayer
	g.nextQueue = append([]int{}, snap.NextQueue...)
	g.GameOver = snap.GameOver
	g.cardSeq = snap.CardSeq
	if snap.Winner != nil {
		g.Winner = g.playerByID(*snap.Winner)
		if g.Winner == nil {
			return nil, fmt.Errorf("snapshot %s names winner %d who is not seated", snap.ID, *snap.Winner)
		}
	}
	return g, nil
}
