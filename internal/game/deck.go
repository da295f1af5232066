// internal/game/deck.go
package game

import (
	"errors"
	"math/rand"
)

// ErrEmptyDeck is returned by Pick when there are no cards left. Callers are
// expected to never pick from an empty deck; seeing this error means the turn
// engine lost track of the card count.
var ErrEmptyDeck = errors.New("pick from empty deck")

// Deck is an ordered, mutable sequence of cards. Index 0 is the top: Pick
// always removes from that end, and Insert can reinsert at an arbitrary index
// (used when a defused bomb is returned).
type Deck struct {
	cards []*Card
}

// NewDeck wraps the given cards, top-first.
func NewDeck(cards []*Card) *Deck {
	return &Deck{cards: cards}
}

// Pick removes and returns the top card.
func (d *Deck) Pick() (*Card, error) {
	if len(d.cards) == 0 {
		return nil, ErrEmptyDeck
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// Shuffle randomizes the full sequence in place using the provided source.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// SeeTop returns up to the top three cards in pick order without mutating the
// deck. Used by the see-the-future card.
func (d *Deck) SeeTop() []*Card {
	n := 3
	if len(d.cards) < n {
		n = len(d.cards)
	}
	top := make([]*Card, n)
	copy(top, d.cards[:n])
	return top
}

// Insert places card at the given position, 0 meaning on top and Len() meaning
// at the very bottom. Positions outside that range are clamped.
func (d *Deck) Insert(card *Card, pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(d.cards) {
		pos = len(d.cards)
	}
	d.cards = append(d.cards, nil)
	copy(d.cards[pos+1:], d.cards[pos:])
	d.cards[pos] = card
}

// Cards exposes the live ordered sequence for length checks and iteration.
// Callers must not mutate it directly; reinsertion goes through Insert.
func (d *Deck) Cards() []*Card {
	return d.cards
}

// Len returns the number of cards left.
func (d *Deck) Len() int {
	return len(d.cards)
}
