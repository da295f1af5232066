// internal/game/game.go
package game

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pietjesbak/puppies/internal/async"
)

// Async slot action names.
const (
	actionJoin         = "join"
	actionDraw         = "draw"
	actionPlay         = "play"
	actionNope         = "nope"
	actionSelectTarget = "select_target"
	actionSelectCard   = "select_card"
	actionInsert       = "insert"
	actionSeeFuture    = "see_future"
)

const (
	// MaxPlayers caps the seat count; games force-start with at least MinPlayers.
	MaxPlayers = 5
	MinPlayers = 2

	// HandSize is the number of non-defuse cards dealt to each player.
	HandSize = 4

	// TotalDefuses caps the defuse count; extras beyond the one dealt per
	// player go into the play deck, floored at zero.
	TotalDefuses = 6

	// DefaultNopeTimeout bounds each round of the nope negotiation.
	DefaultNopeTimeout = 2 * time.Second

	// DefaultChoiceTimeout bounds targeted sub-choices (target, card, insert
	// position, future confirmation) before the engine picks for the player.
	DefaultChoiceTimeout = 30 * time.Second
)

// Game holds the entire authoritative state for a single game instance in
// memory. External actors (UI adapters, remote peers, AI) never mutate it
// directly: they only ever settle async slots, and the single engine goroutine
// applies the results between suspension points.
type Game struct {
	ID uuid.UUID

	Players     []*Player
	Deck        *Deck
	DiscardPile []*Card

	// Turn scheduling. The next-player queue is authoritative; modulo rotation
	// applies only when it is empty.
	currentPlayer int
	nextQueue     []int
	skip          bool

	GameOver bool
	Winner   *Player

	// Log is the append-only announcement feed.
	Log []Announcement

	// AnnounceFn, when set, receives every announcement as it is emitted.
	AnnounceFn func(Announcement)

	NopeTimeout   time.Duration
	ChoiceTimeout time.Duration

	handler *async.Handler
	rng     *rand.Rand
	cardSeq int

	// The currently open turn offer, if any. MarkGone force-resolves the
	// draw slot so a seat that vanishes mid-offer cannot wedge the loop.
	offerSeat    int
	offerDrawKey string

	// Mu guards the pieces read from outside the engine goroutine: the
	// announcement log, full-state snapshots and the open turn offer.
	Mu sync.Mutex
}

// NewGame builds a game over the given seats. Card IDs and the deck are not
// created until Deal is called.
func NewGame(players []*Player) *Game {
	id, _ := uuid.NewRandom()
	return &Game{
		ID:            id,
		Players:       players,
		Deck:          NewDeck(nil),
		DiscardPile:   []*Card{},
		NopeTimeout:   DefaultNopeTimeout,
		ChoiceTimeout: DefaultChoiceTimeout,
		handler:       async.NewHandler(),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// newCard allocates the next card in the per-game sequence.
func (g *Game) newCard(t CardType) *Card {
	g.cardSeq++
	return &Card{ID: g.cardSeq, Type: t}
}

// TotalCards returns how many cards have been created for this game. At any
// quiescent point, deck + hands + discard pile must add up to this.
func (g *Game) TotalCards() int {
	return g.cardSeq
}

// CurrentPlayer returns the seat whose turn it is.
func (g *Game) CurrentPlayer() *Player {
	return g.Players[g.currentPlayer]
}

// LivingPlayers returns every player still alive, in seat order.
func (g *Game) LivingPlayers() []*Player {
	living := make([]*Player, 0, len(g.Players))
	for _, p := range g.Players {
		if p.Alive {
			living = append(living, p)
		}
	}
	return living
}

func (g *Game) playerByID(id int) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Deal builds the deck and hands deterministically: every non-bomb non-defuse
// type per its count rule, shuffled; four cards plus one guaranteed defuse per
// player; then the leftover defuses and the playerCount-1 bombs join the pool,
// which is shuffled again before becoming the play deck.
func (g *Game) Deal() {
	n := len(g.Players)

	pool := []*Card{}
	for t := CardType(0); t < numCardTypes; t++ {
		if t == Bomb || t == Defuse {
			continue
		}
		for i := 0; i < Catalog[t].Count(n); i++ {
			pool = append(pool, g.newCard(t))
		}
	}
	poolDeck := NewDeck(pool)
	poolDeck.Shuffle(g.rng)

	for _, p := range g.Players {
		p.Hand = make([]*Card, 0, HandSize+1)
		for i := 0; i < HandSize; i++ {
			card, err := poolDeck.Pick()
			if err != nil {
				log.Printf("game %s: pool exhausted during deal", g.ID)
				break
			}
			p.Hand = append(p.Hand, card)
		}
		p.Hand = append(p.Hand, g.newCard(Defuse))
	}

	for i := 0; i < TotalDefuses-n; i++ {
		poolDeck.Insert(g.newCard(Defuse), 0)
	}
	for i := 0; i < Catalog[Bomb].Count(n); i++ {
		poolDeck.Insert(g.newCard(Bomb), 0)
	}
	poolDeck.Shuffle(g.rng)
	g.Deck = poolDeck

	g.announce(Announcement{
		Type:    AnnounceGameStarted,
		Payload: map[string]interface{}{"players": n, "deckSize": g.Deck.Len()},
	})
}

// GameLoop drives turns until one player remains. Errors from effects or
// protocol violations halt the loop; they are never retried.
func (g *Game) GameLoop(ctx context.Context) error {
	for !g.GameOver {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.playTurn(ctx, g.CurrentPlayer()); err != nil {
			return err
		}
	}
	return nil
}

// playTurn runs one player's full turn: repeated draw-or-play offers until the
// turn ends by drawing, by a skip/attack effect, or by the game finishing.
func (g *Game) playTurn(ctx context.Context, p *Player) error {
	g.skip = false
	g.announce(Announcement{Type: AnnounceTurnStarted, Player: seat(p)})

	for !g.skip && !g.GameOver {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.offerOptions(ctx, p); err != nil {
			return err
		}
	}

	if !g.GameOver {
		g.decideNextPlayer()
	}
	return nil
}

// offerOptions opens the two competing slots for the current player and
// resolves whichever branch settles first. The losing branch is rejected
// immediately: a player cannot both draw and play in response to one offer.
func (g *Game) offerOptions(ctx context.Context, p *Player) error {
	if p.Gone {
		// A gone player cannot answer; force the draw so the game converges.
		return g.resolveDraw(ctx, p)
	}

	drawKey := g.handler.CreatePromise(actionDraw, map[string]interface{}{"player": p.ID}, 0)
	playKey := g.handler.CreatePromise(actionPlay, map[string]interface{}{"player": p.ID}, 0)
	promises := g.handler.GetPromises([]string{drawKey, playKey})

	// Publish the open offer so MarkGone can settle it, re-checking Gone
	// under the same lock: a disconnect between the check above and this
	// point would otherwise see neither the flag nor the key.
	g.Mu.Lock()
	g.offerSeat, g.offerDrawKey = p.ID, drawKey
	gone := p.Gone
	g.Mu.Unlock()
	if gone {
		g.clearOffer()
		g.handler.RejectRemaining([]string{drawKey, playKey})
		return g.resolveDraw(ctx, p)
	}

	p.Actor.GiveOptions(
		func() {
			if err := g.handler.Resolve(drawKey, nil); err != nil {
				log.Printf("game %s: late draw from player %d: %v", g.ID, p.ID, err)
			}
		},
		func(sel []CardType) {
			if err := g.handler.Resolve(playKey, map[string]interface{}{"selection": sel}); err != nil {
				log.Printf("game %s: late play from player %d: %v", g.ID, p.ID, err)
			}
		},
	)

	settled := async.Race(promises...)
	g.clearOffer()
	g.handler.RejectRemaining([]string{drawKey, playKey})
	p.Actor.ClearCallbacks()
	if settled.Err != nil {
		return fmt.Errorf("turn offer for player %d failed: %w", p.ID, settled.Err)
	}

	switch settled.Result.Action {
	case actionDraw:
		return g.resolveDraw(ctx, p)
	case actionPlay:
		sel, ok := settled.Result.Data["selection"].([]CardType)
		if !ok {
			return fmt.Errorf("play option for player %d resolved without a selection", p.ID)
		}
		return g.resolveAction(ctx, p, sel)
	default:
		return fmt.Errorf("unexpected action %q in turn offer", settled.Result.Action)
	}
}

// resolveDraw picks the top card for p and ends the turn. The drawn type is
// not part of the public feed; a bomb announces itself through its draw effect.
func (g *Game) resolveDraw(ctx context.Context, p *Player) error {
	card, err := g.Deck.Pick()
	if err != nil {
		return fmt.Errorf("draw for player %d: %w", p.ID, err)
	}
	g.announce(Announcement{
		Type:    AnnounceCardDrawn,
		Player:  seat(p),
		Payload: map[string]interface{}{"remaining": g.Deck.Len()},
	})
	if err := p.DrawCard(ctx, card, g); err != nil {
		return err
	}
	g.skip = true
	return nil
}

// resolveAction runs a submitted play: nope negotiation first, then dispatch
// through the Plays table, and finally the selected cards move to the discard
// pile whether or not the action survived.
func (g *Game) resolveAction(ctx context.Context, p *Player, sel []CardType) error {
	rule := matchPlay(g, sel)
	if rule == nil {
		return fmt.Errorf("selection %v from player %d matches no play rule", sel, p.ID)
	}
	need := make(map[CardType]int)
	for _, t := range sel {
		need[t]++
	}
	for t, n := range need {
		if p.CountCards(t) < n {
			return fmt.Errorf("player %d submitted %dx %s but holds %d", p.ID, n, t, p.CountCards(t))
		}
	}
	p.Selection = sel
	defer func() { p.Selection = nil }()

	g.announce(Announcement{Type: AnnouncePlayAttempt, Player: seat(p), Cards: sel})

	noped, err := g.nopeNegotiation(ctx, p)
	if err != nil {
		return err
	}

	if noped {
		g.discardSelection(p, sel)
		g.announce(Announcement{Type: AnnouncePlayNoped, Player: seat(p), Cards: sel})
		return nil
	}

	if err := rule.Action(ctx, g, p, sel); err != nil {
		return err
	}
	g.discardSelection(p, sel)
	return nil
}

// discardSelection moves the played cards from the hand to the discard pile,
// each move announced individually.
func (g *Game) discardSelection(p *Player, sel []CardType) {
	for _, t := range sel {
		card := p.removeCard(t)
		if card == nil {
			// Validated before negotiation; reaching this means the hand was
			// mutated mid-resolution.
			log.Printf("game %s: selection card %s vanished from player %d's hand", g.ID, t, p.ID)
			continue
		}
		g.DiscardPile = append(g.DiscardPile, card)
		g.announce(Announcement{Type: AnnounceCardDiscarded, Player: seat(p), Cards: []CardType{t}})
	}
}

// nopeNegotiation runs the reaction window as an explicit parity loop. Each
// round opens one slot per living nope-holder other than whoever asserted the
// current state (the acting player first, then the most recent noper) and
// races them against the round timeouts. A fresh nope toggles parity and
// starts another round; a full timeout round ends the negotiation. Odd parity
// cancels the action.
func (g *Game) nopeNegotiation(ctx context.Context, actor *Player) (bool, error) {
	parity := 0
	last := actor

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		keys := []string{}
		promises := []*async.Promise{}
		responders := []*Player{}
		for _, p := range g.Players {
			if !p.Alive || p.Gone || p == last || !p.HasCard(Nope) {
				continue
			}
			key := g.handler.CreatePromise(actionNope, map[string]interface{}{"player": p.ID}, g.NopeTimeout)
			promise := g.handler.GetPromise(key)
			responder := p
			p.Actor.AllowNope(func() {
				if err := g.handler.Resolve(key, nil); err != nil {
					log.Printf("game %s: late nope from player %d: %v", g.ID, responder.ID, err)
				}
			})
			keys = append(keys, key)
			promises = append(promises, promise)
			responders = append(responders, responder)
		}
		if len(keys) == 0 {
			break
		}

		settled := async.Race(promises...)
		g.handler.RejectRemaining(keys)
		for _, p := range responders {
			p.Actor.ClearCallbacks()
		}
		if settled.Err != nil {
			// Every slot timed out or was rejected: nobody noped this round.
			break
		}

		noperID, ok := settled.Result.Data["player"].(int)
		if !ok {
			return false, fmt.Errorf("nope slot %s resolved without a player id", settled.Key)
		}
		noper := g.playerByID(noperID)
		if err := noper.UseCard(ctx, Nope, g); err != nil {
			return false, err
		}
		parity++
		g.announce(Announcement{
			Type:    AnnounceNope,
			Player:  seat(noper),
			Target:  seat(last),
			Payload: map[string]interface{}{"parity": parity},
		})
		last = noper
	}

	return parity%2 == 1, nil
}

// processSkip ends the current player's turn without a draw.
func (g *Game) processSkip(p *Player) {
	g.skip = true
}

// processAttack replaces any pending turn queue with two entries for the next
// living seat, so they take the next two action-turns and the attacker does
// not get one in between. Returns the attacked player.
func (g *Game) processAttack(p *Player) *Player {
	target := g.nextLivingSeat(g.currentPlayer)
	g.nextQueue = g.nextQueue[:0]
	g.nextQueue = append(g.nextQueue, target, target)
	return g.Players[target]
}

func (g *Game) nextLivingSeat(from int) int {
	next := from
	for {
		next = (next + 1) % len(g.Players)
		if g.Players[next].Alive {
			return next
		}
	}
}

// decideNextPlayer drains the next-player queue before falling back to modulo
// rotation. Dead seats are skipped in both paths.
func (g *Game) decideNextPlayer() {
	for len(g.nextQueue) > 0 {
		next := g.nextQueue[0]
		g.nextQueue = g.nextQueue[1:]
		if g.Players[next].Alive {
			g.currentPlayer = next
			return
		}
	}
	g.currentPlayer = g.nextLivingSeat(g.currentPlayer)
}

func (g *Game) clearOffer() {
	g.Mu.Lock()
	g.offerDrawKey = ""
	g.Mu.Unlock()
}

// MarkGone records that a seat's controller is unreachable. The seat stays in
// the game; its decisions degrade to instant timeouts. If the seat's own turn
// offer is open right now, the draw is forced so the loop keeps moving.
func (g *Game) MarkGone(playerID int) {
	p := g.playerByID(playerID)
	if p == nil {
		return
	}

	g.Mu.Lock()
	p.Gone = true
	var key string
	if g.offerSeat == playerID {
		key, g.offerDrawKey = g.offerDrawKey, ""
	}
	g.Mu.Unlock()

	if key != "" {
		// A resolve error means the seat answered just before vanishing.
		_ = g.handler.Resolve(key, nil)
	}
	log.Printf("game %s: player %d marked gone", g.ID, playerID)
}

// checkWin ends the game the moment exactly one player remains alive.
func (g *Game) checkWin() {
	living := g.LivingPlayers()
	if len(living) != 1 || g.GameOver {
		return
	}
	g.GameOver = true
	g.Winner = living[0]
	g.announce(Announcement{
		Type:    AnnounceGameOver,
		Player:  seat(g.Winner),
		Payload: map[string]interface{}{"winner": g.Winner.Name},
	})
}

// chooseTarget prompts p for a target among the other living players. A
// timeout picks a random eligible target instead of failing the action.
func (g *Game) chooseTarget(ctx context.Context, p *Player) (*Player, error) {
	options := []*Player{}
	for _, o := range g.Players {
		if o.Alive && o != p {
			options = append(options, o)
		}
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("no living target available for player %d", p.ID)
	}
	if p.Gone {
		return options[g.rng.Intn(len(options))], nil
	}

	key := g.handler.CreatePromise(actionSelectTarget, map[string]interface{}{"player": p.ID}, g.ChoiceTimeout)
	promise := g.handler.GetPromise(key)
	p.Actor.AllowSelectTarget(options, func(target *Player) {
		if err := g.handler.Resolve(key, map[string]interface{}{"target": target.ID}); err != nil {
			log.Printf("game %s: late target select from player %d: %v", g.ID, p.ID, err)
		}
	})

	res, err := promise.Wait()
	p.Actor.ClearCallbacks()
	if err != nil {
		return options[g.rng.Intn(len(options))], nil
	}
	targetID, ok := res.Data["target"].(int)
	if !ok {
		return nil, fmt.Errorf("target slot %s resolved without a target id", key)
	}
	target := g.playerByID(targetID)
	if target == nil || !target.Alive {
		return nil, fmt.Errorf("target slot %s resolved with invalid target %d", key, targetID)
	}
	return target, nil
}

// chooseCard prompts who to pick one of the offered card types. A timeout
// picks a random option.
func (g *Game) chooseCard(ctx context.Context, who *Player, options []CardType) (CardType, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no card options to offer player %d", who.ID)
	}
	if who.Gone {
		return options[g.rng.Intn(len(options))], nil
	}

	key := g.handler.CreatePromise(actionSelectCard, map[string]interface{}{"player": who.ID}, g.ChoiceTimeout)
	promise := g.handler.GetPromise(key)
	who.Actor.AllowSelectCard(options, func(t CardType) {
		if err := g.handler.Resolve(key, map[string]interface{}{"card": t}); err != nil {
			log.Printf("game %s: late card select from player %d: %v", g.ID, who.ID, err)
		}
	})

	res, err := promise.Wait()
	who.Actor.ClearCallbacks()
	if err != nil {
		return options[g.rng.Intn(len(options))], nil
	}
	chosen, ok := res.Data["card"].(CardType)
	if !ok {
		return 0, fmt.Errorf("card slot %s resolved without a card type", key)
	}
	return chosen, nil
}

// chooseInsertPosition prompts p for a deck position between 0 (top) and max
// (bottom). A timeout picks a random position.
func (g *Game) chooseInsertPosition(ctx context.Context, p *Player, max int) int {
	if p.Gone {
		return g.rng.Intn(max + 1)
	}
	key := g.handler.CreatePromise(actionInsert, map[string]interface{}{"player": p.ID}, g.ChoiceTimeout)
	promise := g.handler.GetPromise(key)
	p.Actor.AllowInsertIntoDeck(max, func(pos int) {
		if err := g.handler.Resolve(key, map[string]interface{}{"position": pos}); err != nil {
			log.Printf("game %s: late insert from player %d: %v", g.ID, p.ID, err)
		}
	})

	res, err := promise.Wait()
	p.Actor.ClearCallbacks()
	if err != nil {
		return g.rng.Intn(max + 1)
	}
	pos, ok := res.Data["position"].(int)
	if !ok {
		return g.rng.Intn(max + 1)
	}
	return pos
}

// confirmFuture shows p the peeked cards and waits for acknowledgement; a
// timeout simply moves on.
func (g *Game) confirmFuture(ctx context.Context, p *Player, cards []*Card) {
	if p.Gone {
		return
	}
	key := g.handler.CreatePromise(actionSeeFuture, map[string]interface{}{"player": p.ID}, g.ChoiceTimeout)
	promise := g.handler.GetPromise(key)
	p.Actor.SeeFuture(cards, func() {
		if err := g.handler.Resolve(key, nil); err != nil {
			log.Printf("game %s: late future confirm from player %d: %v", g.ID, p.ID, err)
		}
	})

	_, _ = promise.Wait()
	p.Actor.ClearCallbacks()
}
