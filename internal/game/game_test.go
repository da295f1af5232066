// internal/game/game_test.go
package game

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptActor is a synchronous test double: every prompt is answered
// immediately from canned data. One play per queued selection, then draws.
type scriptActor struct {
	plays    [][]CardType
	nopes    int
	targetID int
	pick     func(options []CardType) CardType
	insertAt int
	seen     []*Card
}

func (a *scriptActor) GiveOptions(onDraw func(), onPlay func(selection []CardType)) {
	if len(a.plays) > 0 {
		sel := a.plays[0]
		a.plays = a.plays[1:]
		onPlay(sel)
		return
	}
	onDraw()
}

func (a *scriptActor) AllowNope(onNope func()) {
	if a.nopes > 0 {
		a.nopes--
		onNope()
	}
}

func (a *scriptActor) AllowSelectTarget(options []*Player, onSelect func(target *Player)) {
	for _, o := range options {
		if o.ID == a.targetID {
			onSelect(o)
			return
		}
	}
	onSelect(options[0])
}

func (a *scriptActor) AllowSelectCard(options []CardType, onSelect func(t CardType)) {
	if a.pick != nil {
		onSelect(a.pick(options))
		return
	}
	onSelect(options[0])
}

func (a *scriptActor) AllowInsertIntoDeck(maxPosition int, onInsert func(pos int)) {
	pos := a.insertAt
	if pos > maxPosition {
		pos = maxPosition
	}
	onInsert(pos)
}

func (a *scriptActor) SeeFuture(cards []*Card, onConfirm func()) {
	a.seen = cards
	onConfirm()
}

func (a *scriptActor) ClearCallbacks() {}

// silentActor never answers any prompt, like a remote seat whose connection
// went dark.
type silentActor struct{}

func (silentActor) GiveOptions(func(), func(selection []CardType))      {}
func (silentActor) AllowNope(func())                                    {}
func (silentActor) AllowSelectTarget([]*Player, func(target *Player))   {}
func (silentActor) AllowSelectCard([]CardType, func(t CardType))        {}
func (silentActor) AllowInsertIntoDeck(int, func(pos int))              {}
func (silentActor) SeeFuture([]*Card, func())                           {}
func (silentActor) ClearCallbacks()                                     {}

// newTestGame builds a quiet game over scripted seats with short timeouts.
func newTestGame(actors ...*scriptActor) (*Game, []*Player) {
	players := make([]*Player, len(actors))
	for i, a := range actors {
		players[i] = NewPlayer(i, fmt.Sprintf("p%d", i), a)
	}
	g := NewGame(players)
	g.AnnounceFn = func(Announcement) {}
	g.NopeTimeout = 30 * time.Millisecond
	g.ChoiceTimeout = 100 * time.Millisecond
	return g, players
}

// give replaces a player's hand with fresh cards of the given types.
func give(g *Game, p *Player, types ...CardType) {
	p.Hand = nil
	for _, t := range types {
		p.Hand = append(p.Hand, g.newCard(t))
	}
}

func countAnnouncements(g *Game, typ AnnouncementType) int {
	n := 0
	for _, a := range g.Announcements() {
		if a.Type == typ {
			n++
		}
	}
	return n
}

func countInPile(pile []*Card, t CardType) int {
	n := 0
	for _, c := range pile {
		if c.Type == t {
			n++
		}
	}
	return n
}

func TestDealCountsAndConservation(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{}, &scriptActor{})
	g.Deal()

	for _, p := range players {
		assert.Len(t, p.Hand, HandSize+1, "player %d hand size", p.ID)
		assert.Equal(t, 1, p.CountCards(Defuse), "player %d dealt defuses", p.ID)
		assert.Equal(t, 0, p.CountCards(Bomb), "player %d dealt bombs", p.ID)
	}

	assert.Equal(t, 2, countInPile(g.Deck.Cards(), Bomb), "bombs in deck for 3 players")
	assert.Equal(t, 3, countInPile(g.Deck.Cards(), Defuse), "leftover defuses in deck")

	total := g.Deck.Len()
	for _, p := range players {
		total += len(p.Hand)
	}
	total += len(g.DiscardPile)
	assert.Equal(t, g.TotalCards(), total, "every created card is in exactly one zone")
}

func TestDrawEndsTurn(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{})
	p0 := players[0]
	give(g, p0, Skip)
	g.Deck = NewDeck([]*Card{g.newCard(PuppyPug), g.newCard(PuppyLab)})

	require.NoError(t, g.resolveDraw(context.Background(), p0))

	assert.True(t, g.skip)
	assert.Len(t, p0.Hand, 2)
	assert.Equal(t, PuppyPug, p0.Hand[1].Type)
	assert.Equal(t, 1, g.Deck.Len())
}

func TestBombWithDefuseGoesBackAtChosenSpot(t *testing.T) {
	actor := &scriptActor{insertAt: 2}
	g, players := newTestGame(actor, &scriptActor{})
	p0 := players[0]
	give(g, p0, Defuse, PuppyCorgi)
	g.Deck = NewDeck([]*Card{
		g.newCard(Bomb),
		g.newCard(Skip),
		g.newCard(Shuffle),
		g.newCard(Favor),
	})

	require.NoError(t, g.resolveDraw(context.Background(), p0))

	assert.True(t, p0.Alive)
	assert.Equal(t, 4, g.Deck.Len(), "deck length is net unchanged after a defusal")
	assert.Equal(t, Bomb, g.Deck.Cards()[2].Type, "bomb sits at the chosen position")
	assert.Equal(t, 0, p0.CountCards(Bomb))
	assert.Equal(t, 0, p0.CountCards(Defuse), "defuse was auto-consumed")
	require.Len(t, g.DiscardPile, 1)
	assert.Equal(t, Defuse, g.DiscardPile[0].Type)
	assert.Equal(t, 1, countAnnouncements(g, AnnounceBombDefused))
	assert.False(t, g.GameOver)
}

func TestBombWithoutDefuseKillsAndDiscardsHand(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{}, &scriptActor{})
	p0 := players[0]
	give(g, p0, Skip, PuppyBeagle)
	g.Deck = NewDeck([]*Card{g.newCard(Bomb), g.newCard(Shuffle)})

	require.NoError(t, g.resolveDraw(context.Background(), p0))

	assert.False(t, p0.Alive)
	assert.Empty(t, p0.Hand, "a dead player's whole hand is discarded")
	assert.Len(t, g.DiscardPile, 3, "bomb plus both hand cards")
	assert.Equal(t, Bomb, g.DiscardPile[0].Type)
	assert.Equal(t, 1, countAnnouncements(g, AnnouncePlayerDied))
	assert.False(t, g.GameOver, "two players still alive")
}

func TestBombDeathEndsTwoPlayerGame(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{})
	p0 := players[0]
	give(g, p0)
	g.Deck = NewDeck([]*Card{g.newCard(Bomb)})

	require.NoError(t, g.resolveDraw(context.Background(), p0))

	assert.True(t, g.GameOver)
	require.NotNil(t, g.Winner)
	assert.Equal(t, 1, g.Winner.ID)
	assert.Equal(t, 1, countAnnouncements(g, AnnounceGameOver))
}

func TestSingleNopeCancelsPlay(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{nopes: 1}, &scriptActor{})
	p0, p1 := players[0], players[1]
	give(g, p0, Skip)
	give(g, p1, Nope)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{Skip}))

	assert.False(t, g.skip, "a noped skip must not end the turn")
	assert.Equal(t, 0, p1.CountCards(Nope), "the nope was consumed")
	assert.Empty(t, p0.Hand, "the noped selection is still discarded")
	assert.Equal(t, 1, countAnnouncements(g, AnnouncePlayNoped))
	assert.Equal(t, 2, len(g.DiscardPile), "nope card plus the skipped skip")
}

func TestCounterNopeRestoresPlay(t *testing.T) {
	// p1 nopes p0's skip, p0 nopes the nope: even parity, the skip executes.
	g, players := newTestGame(&scriptActor{nopes: 1}, &scriptActor{nopes: 1}, &scriptActor{})
	p0, p1 := players[0], players[1]
	give(g, p0, Skip, Nope)
	give(g, p1, Nope)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{Skip}))

	assert.True(t, g.skip, "even nope parity lets the action through")
	assert.Equal(t, 0, p0.CountCards(Nope))
	assert.Equal(t, 0, p1.CountCards(Nope))
	assert.Equal(t, 2, countAnnouncements(g, AnnounceNope))
	assert.Equal(t, 0, countAnnouncements(g, AnnouncePlayNoped))
}

func TestNopeRequiresHoldingTheCard(t *testing.T) {
	// p1 wants to nope but holds none: the window simply times out.
	g, players := newTestGame(&scriptActor{}, &scriptActor{nopes: 5}, &scriptActor{})
	p0, p1 := players[0], players[1]
	give(g, p0, Skip)
	give(g, p1, PuppyShiba)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{Skip}))

	assert.True(t, g.skip)
	assert.Equal(t, 0, countAnnouncements(g, AnnounceNope))
}

func TestAttackQueuesNextPlayerTwice(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{}, &scriptActor{})
	p0 := players[0]
	give(g, p0, Attack)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{Attack}))

	assert.True(t, g.skip, "attack ends the attacker's turn without a draw")
	assert.Equal(t, []int{1, 1}, g.nextQueue)
	assert.Empty(t, p0.Hand)
	assert.Equal(t, 1, countAnnouncements(g, AnnounceAttacked))

	// The victim takes the next two turns, then rotation resumes.
	g.decideNextPlayer()
	assert.Equal(t, 1, g.CurrentPlayer().ID)
	g.decideNextPlayer()
	assert.Equal(t, 1, g.CurrentPlayer().ID)
	g.decideNextPlayer()
	assert.Equal(t, 2, g.CurrentPlayer().ID)
}

func TestAttackSkipsDeadSeats(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{}, &scriptActor{})
	players[1].Alive = false
	give(g, players[0], Attack)

	require.NoError(t, g.resolveAction(context.Background(), players[0], []CardType{Attack}))
	assert.Equal(t, []int{2, 2}, g.nextQueue, "the dead seat is never queued")
}

func TestTwoOfAKindStealsRandomCard(t *testing.T) {
	g, players := newTestGame(&scriptActor{targetID: 1}, &scriptActor{}, &scriptActor{})
	p0, p1 := players[0], players[1]
	give(g, p0, PuppyCorgi, PuppyCorgi)
	give(g, p1, Favor)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{PuppyCorgi, PuppyCorgi}))

	assert.Empty(t, p1.Hand)
	assert.Equal(t, 1, p0.CountCards(Favor), "the stolen card moved over")
	assert.Equal(t, 2, countInPile(g.DiscardPile, PuppyCorgi))
	assert.Equal(t, 1, countAnnouncements(g, AnnounceCardStolen))
}

func TestTwoOfAKindAgainstEmptyHandMisses(t *testing.T) {
	g, players := newTestGame(&scriptActor{targetID: 1}, &scriptActor{}, &scriptActor{})
	p0, p1 := players[0], players[1]
	give(g, p0, PuppyCorgi, PuppyCorgi)
	give(g, p1)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{PuppyCorgi, PuppyCorgi}))

	assert.Empty(t, p0.Hand, "the pair is consumed even on a miss")
	assert.Equal(t, 1, countAnnouncements(g, AnnounceStealMissed))
	assert.Equal(t, 0, countAnnouncements(g, AnnounceCardStolen))
}

func TestThreeOfAKindNamedSteal(t *testing.T) {
	actor := &scriptActor{
		targetID: 2,
		pick: func(options []CardType) CardType {
			for _, o := range options {
				if o == Defuse {
					return o
				}
			}
			return options[0]
		},
	}
	g, players := newTestGame(actor, &scriptActor{}, &scriptActor{})
	p0, p2 := players[0], players[2]
	give(g, p0, PuppyPug, PuppyPug, PuppyPug)
	give(g, p2, Defuse, Skip)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{PuppyPug, PuppyPug, PuppyPug}))

	assert.Equal(t, 1, p0.CountCards(Defuse))
	assert.Equal(t, 0, p2.CountCards(Defuse))
	assert.Equal(t, 1, countAnnouncements(g, AnnounceCardStolen))
}

func TestThreeOfAKindMissConsumesCards(t *testing.T) {
	actor := &scriptActor{
		targetID: 1,
		pick:     func([]CardType) CardType { return Defuse },
	}
	g, players := newTestGame(actor, &scriptActor{}, &scriptActor{})
	p0, p1 := players[0], players[1]
	give(g, p0, PuppyPug, PuppyPug, PuppyPug)
	give(g, p1, Skip)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{PuppyPug, PuppyPug, PuppyPug}))

	assert.Empty(t, p0.Hand)
	assert.Equal(t, 1, p1.CountCards(Skip), "nothing moved on a miss")
	assert.Equal(t, 1, countAnnouncements(g, AnnounceStealMissed))
}

func TestFiveDistinctRetrievesOnlyPriorDiscards(t *testing.T) {
	var offered []CardType
	actor := &scriptActor{
		pick: func(options []CardType) CardType {
			offered = append([]CardType{}, options...)
			return Skip
		},
	}
	g, players := newTestGame(actor, &scriptActor{})
	p0 := players[0]
	give(g, p0, PuppyCorgi, PuppyPug, PuppyBeagle, PuppyShiba, PuppyLab)
	g.DiscardPile = []*Card{g.newCard(Skip)}

	sel := []CardType{PuppyCorgi, PuppyPug, PuppyBeagle, PuppyShiba, PuppyLab}
	require.NoError(t, g.resolveAction(context.Background(), p0, sel))

	assert.Equal(t, []CardType{Skip}, offered, "the just-played cards are not retrievable")
	require.Len(t, p0.Hand, 1)
	assert.Equal(t, Skip, p0.Hand[0].Type)
	assert.Len(t, g.DiscardPile, 5, "the five played cards replaced the retrieved one")
	assert.Equal(t, 1, countAnnouncements(g, AnnounceCardRetrieved))
}

func TestFiveDistinctRequiresNonEmptyDiscard(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{})
	p0 := players[0]
	give(g, p0, PuppyCorgi, PuppyPug, PuppyBeagle, PuppyShiba, PuppyLab)

	sel := []CardType{PuppyCorgi, PuppyPug, PuppyBeagle, PuppyShiba, PuppyLab}
	err := g.resolveAction(context.Background(), p0, sel)
	assert.Error(t, err, "no rule matches a five-distinct play over an empty discard pile")
}

func TestSelectionMustBeHeldInFull(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{})
	p0 := players[0]
	give(g, p0, PuppyCorgi)

	err := g.resolveAction(context.Background(), p0, []CardType{PuppyCorgi, PuppyCorgi})
	assert.Error(t, err, "a pair needs two copies in hand")
}

func TestShufflePlayKeepsCardSet(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{})
	p0 := players[0]
	give(g, p0, Shuffle)
	g.Deck = NewDeck([]*Card{g.newCard(Skip), g.newCard(Favor), g.newCard(Nope)})

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{Shuffle}))

	assert.Equal(t, 3, g.Deck.Len())
	assert.Equal(t, 1, countAnnouncements(g, AnnounceShuffled))
	assert.False(t, g.skip, "shuffle does not end the turn")
}

func TestFavorTargetChoosesCardToGive(t *testing.T) {
	giver := &scriptActor{
		pick: func(options []CardType) CardType {
			for _, o := range options {
				if o == PuppyLab {
					return o
				}
			}
			return options[0]
		},
	}
	g, players := newTestGame(&scriptActor{targetID: 1}, giver)
	p0, p1 := players[0], players[1]
	give(g, p0, Favor)
	give(g, p1, Defuse, PuppyLab)

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{Favor}))

	assert.Equal(t, 1, p0.CountCards(PuppyLab), "the target chose what to give")
	assert.Equal(t, 1, p1.CountCards(Defuse), "the defuse stayed put")
	assert.Equal(t, 1, countAnnouncements(g, AnnounceFavor))
}

func TestSeeFutureShowsTopThree(t *testing.T) {
	actor := &scriptActor{}
	g, players := newTestGame(actor, &scriptActor{})
	p0 := players[0]
	give(g, p0, SeeFuture)
	g.Deck = NewDeck([]*Card{
		g.newCard(Bomb),
		g.newCard(Skip),
		g.newCard(Favor),
		g.newCard(Nope),
	})

	require.NoError(t, g.resolveAction(context.Background(), p0, []CardType{SeeFuture}))

	require.Len(t, actor.seen, 3)
	assert.Equal(t, Bomb, actor.seen[0].Type)
	assert.Equal(t, 4, g.Deck.Len(), "peeking does not move cards")
	assert.Equal(t, 1, countAnnouncements(g, AnnounceFutureSeen))
}

func TestGonePlayerIsForcedToDraw(t *testing.T) {
	g, players := newTestGame(&scriptActor{plays: [][]CardType{{Skip}}}, &scriptActor{})
	p0 := players[0]
	give(g, p0, Skip)
	g.Deck = NewDeck([]*Card{g.newCard(PuppyPug)})
	g.MarkGone(0)

	require.NoError(t, g.offerOptions(context.Background(), p0))

	assert.True(t, g.skip)
	assert.Equal(t, 1, p0.CountCards(Skip), "the scripted play never ran")
	assert.Equal(t, 1, p0.CountCards(PuppyPug))
}

func TestMarkGoneSettlesOpenTurnOffer(t *testing.T) {
	p0 := NewPlayer(0, "p0", silentActor{})
	p1 := NewPlayer(1, "p1", &scriptActor{})
	g := NewGame([]*Player{p0, p1})
	g.AnnounceFn = func(Announcement) {}
	g.Deck = NewDeck([]*Card{g.newCard(PuppyPug)})

	done := make(chan error, 1)
	go func() { done <- g.offerOptions(context.Background(), p0) }()

	time.Sleep(20 * time.Millisecond)
	g.MarkGone(0)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("turn offer never settled after the seat vanished")
	}
	assert.True(t, g.skip, "the forced draw ends the turn")
	assert.Equal(t, 1, p0.CountCards(PuppyPug))
}

func TestGonePlayerCannotNope(t *testing.T) {
	g, players := newTestGame(&scriptActor{}, &scriptActor{nopes: 3}, &scriptActor{})
	give(g, players[0], Skip)
	give(g, players[1], Nope)
	g.MarkGone(1)

	require.NoError(t, g.resolveAction(context.Background(), players[0], []CardType{Skip}))

	assert.True(t, g.skip)
	assert.Equal(t, 1, players[1].CountCards(Nope), "a gone seat's nope window never opens")
}

func TestTurnOfferRunsPlayThenDraw(t *testing.T) {
	// One turn: play a pair (turn continues), then draw (turn ends).
	actor := &scriptActor{
		plays:    [][]CardType{{PuppyCorgi, PuppyCorgi}},
		targetID: 1,
	}
	g, players := newTestGame(actor, &scriptActor{})
	p0, p1 := players[0], players[1]
	give(g, p0, PuppyCorgi, PuppyCorgi)
	give(g, p1, Skip)
	g.Deck = NewDeck([]*Card{g.newCard(PuppyLab), g.newCard(Favor)})

	require.NoError(t, g.playTurn(context.Background(), p0))

	assert.Equal(t, 1, p0.CountCards(Skip), "pair steal landed mid-turn")
	assert.Equal(t, 1, p0.CountCards(PuppyLab), "the turn still ended with a draw")
	assert.Equal(t, 1, g.CurrentPlayer().ID, "rotation advanced")
}
