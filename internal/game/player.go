// internal/game/player.go
package game

import (
	"context"
	"fmt"
)

// Actor is the decision contract a seat's controller implements. Human
// websocket adapters, AI seats and test fakes all satisfy it identically; the
// engine never special-cases one kind. The engine calls these methods and the
// adapter eventually invokes the passed callback, or never, in which case the
// engine's timeout path applies where one exists.
type Actor interface {
	// GiveOptions offers the two competing turn options. Exactly one callback
	// may be invoked.
	GiveOptions(onDraw func(), onPlay func(selection []CardType))

	// AllowNope opens a reaction window against another player's pending play.
	AllowNope(onNope func())

	// AllowSelectTarget asks for a target player among options.
	AllowSelectTarget(options []*Player, onSelect func(target *Player))

	// AllowSelectCard asks for a card type among options.
	AllowSelectCard(options []CardType, onSelect func(t CardType))

	// AllowInsertIntoDeck asks where to reinsert a defused bomb; positions run
	// from 0 (top) to maxPosition (bottom).
	AllowInsertIntoDeck(maxPosition int, onInsert func(pos int))

	// SeeFuture reveals the top cards; onConfirm acknowledges the peek.
	SeeFuture(cards []*Card, onConfirm func())

	// ClearCallbacks invalidates every callback previously handed out, so a
	// late invocation after a lost race or a timeout is a no-op.
	ClearCallbacks()
}

// Player is one seat's state: a stable 0-based id assigned at start, the
// ordered hand (order carries no meaning), the alive flag and the transient
// multi-card selection the interactive layer is building.
type Player struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Hand      []*Card    `json:"hand"`
	Alive     bool       `json:"alive"`
	Selection []CardType `json:"selection,omitempty"`

	// Gone marks a seat whose controller can no longer respond (transport
	// lost). The engine treats every decision of a gone player as an instant
	// timeout and forces draws on their turns.
	Gone bool `json:"-"`

	Actor Actor `json:"-"`
}

// NewPlayer returns a living, empty-handed player.
func NewPlayer(id int, name string, actor Actor) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Alive: true,
		Actor: actor,
	}
}

// CountCards returns how many copies of t the player holds.
func (p *Player) CountCards(t CardType) int {
	n := 0
	for _, c := range p.Hand {
		if c.Type == t {
			n++
		}
	}
	return n
}

// DistinctTypes returns the number of distinct card types in the hand.
func (p *Player) DistinctTypes() int {
	seen := make(map[CardType]bool)
	for _, c := range p.Hand {
		seen[c.Type] = true
	}
	return len(seen)
}

// HasCard reports whether the player holds at least one card of type t.
func (p *Player) HasCard(t CardType) bool {
	return p.CountCards(t) > 0
}

// removeCard takes one instance of t out of the hand, or nil if none is held.
func (p *Player) removeCard(t CardType) *Card {
	for i, c := range p.Hand {
		if c.Type == t {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c
		}
	}
	return nil
}

// DrawCard adds a card to the hand and, if its type defines a draw effect
// (only the bomb does), awaits it.
func (p *Player) DrawCard(ctx context.Context, card *Card, g *Game) error {
	p.Hand = append(p.Hand, card)
	if spec := Catalog[card.Type]; spec.DrawEffect != nil {
		return spec.DrawEffect(ctx, g, p, card)
	}
	return nil
}

// UseCard removes one instance of t from the hand, discards it, announces the
// use and invokes its catalog play effect if any. Using a card the player does
// not hold is an invariant violation and returns an error.
func (p *Player) UseCard(ctx context.Context, t CardType, g *Game) error {
	card := p.removeCard(t)
	if card == nil {
		return fmt.Errorf("player %d (%s) does not hold a %s card", p.ID, p.Name, t)
	}
	g.DiscardPile = append(g.DiscardPile, card)
	g.announce(Announcement{
		Type:   AnnounceCardDiscarded,
		Player: seat(p),
		Cards:  []CardType{t},
	})
	if spec := Catalog[t]; spec.PlayEffect != nil {
		return spec.PlayEffect(ctx, g, p, nil)
	}
	return nil
}

// StealCard removes and returns a card from the hand: a specific type if t is
// non-nil, otherwise a uniformly random card. Returns nil on an empty hand (or
// when the named type is not held) without error.
func (p *Player) StealCard(t *CardType, g *Game) *Card {
	if t != nil {
		return p.removeCard(*t)
	}
	if len(p.Hand) == 0 {
		return nil
	}
	i := g.rng.Intn(len(p.Hand))
	card := p.Hand[i]
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	return card
}

// AddCard appends a card to the hand without validation.
func (p *Player) AddCard(card *Card, g *Game) {
	p.Hand = append(p.Hand, card)
}

// DiscardCard moves a card from the hand to the discard pile and announces it.
// Used for bomb-death cleanup and the reaction discard path.
func (p *Player) DiscardCard(card *Card, g *Game) {
	for i, c := range p.Hand {
		if c.ID == card.ID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			break
		}
	}
	g.DiscardPile = append(g.DiscardPile, card)
	g.announce(Announcement{
		Type:   AnnounceCardDiscarded,
		Player: seat(p),
		Cards:  []CardType{card.Type},
	})
}
