// internal/game/plays.go
package game

import (
	"context"
	"fmt"
)

// PlayRule is one composite play: a predicate over the submitted selection of
// card types plus the action that resolves it.
type PlayRule struct {
	Name   string
	Test   func(g *Game, sel []CardType) bool
	Action func(ctx context.Context, g *Game, p *Player, sel []CardType) error
}

// Plays is the ordered table of composite play rules. Matching is
// first-match-wins; exactly one rule must match a legal selection. A selection
// matching no rule should have been rejected by the per-card PlayTest
// predicates before ever reaching the engine.
var Plays = []PlayRule{
	{
		Name: "single",
		Test: func(g *Game, sel []CardType) bool {
			return len(sel) == 1 && Catalog[sel[0]].PlayEffect != nil
		},
		Action: playSingle,
	},
	{
		Name: "two of a kind",
		Test: func(g *Game, sel []CardType) bool {
			return len(sel) == 2 && sel[0] == sel[1]
		},
		Action: playTwoOfAKind,
	},
	{
		Name: "three of a kind",
		Test: func(g *Game, sel []CardType) bool {
			return len(sel) == 3 && sel[0] == sel[1] && sel[1] == sel[2]
		},
		Action: playThreeOfAKind,
	},
	{
		Name: "five distinct",
		Test: func(g *Game, sel []CardType) bool {
			if len(sel) != 5 || len(g.DiscardPile) == 0 {
				return false
			}
			seen := make(map[CardType]bool, 5)
			for _, t := range sel {
				if seen[t] {
					return false
				}
				seen[t] = true
			}
			return true
		},
		Action: playFiveDistinct,
	},
}

// matchPlay returns the first rule matching the selection, or nil.
func matchPlay(g *Game, sel []CardType) *PlayRule {
	for i := range Plays {
		if Plays[i].Test(g, sel) {
			return &Plays[i]
		}
	}
	return nil
}

// playSingle dispatches the one selected card's effect, resolving a target
// first when the card requires one.
func playSingle(ctx context.Context, g *Game, p *Player, sel []CardType) error {
	spec := Catalog[sel[0]]
	var target *Player
	if spec.NeedsTarget {
		var err error
		target, err = g.chooseTarget(ctx, p)
		if err != nil {
			return err
		}
	}
	return spec.PlayEffect(ctx, g, p, target)
}

// playTwoOfAKind steals one random card from a chosen target. A target with an
// empty hand yields nothing, without error.
func playTwoOfAKind(ctx context.Context, g *Game, p *Player, sel []CardType) error {
	target, err := g.chooseTarget(ctx, p)
	if err != nil {
		return err
	}
	card := target.StealCard(nil, g)
	if card == nil {
		g.announce(Announcement{Type: AnnounceStealMissed, Player: seat(p), Target: seat(target)})
		return nil
	}
	p.AddCard(card, g)
	g.announce(Announcement{
		Type:    AnnounceCardStolen,
		Player:  seat(p),
		Target:  seat(target),
		Payload: map[string]interface{}{"random": true},
	})
	return nil
}

// playThreeOfAKind asks the acting player to name a card type (bomb excluded);
// if the chosen target holds it, one copy moves over. A miss still consumed
// the three cards and is announced.
func playThreeOfAKind(ctx context.Context, g *Game, p *Player, sel []CardType) error {
	target, err := g.chooseTarget(ctx, p)
	if err != nil {
		return err
	}

	options := make([]CardType, 0, int(numCardTypes)-1)
	for t := CardType(0); t < numCardTypes; t++ {
		if t != Bomb {
			options = append(options, t)
		}
	}
	named, err := g.chooseCard(ctx, p, options)
	if err != nil {
		return err
	}

	card := target.StealCard(&named, g)
	if card == nil {
		g.announce(Announcement{
			Type:   AnnounceStealMissed,
			Player: seat(p),
			Target: seat(target),
			Cards:  []CardType{named},
		})
		return nil
	}
	p.AddCard(card, g)
	g.announce(Announcement{
		Type:   AnnounceCardStolen,
		Player: seat(p),
		Target: seat(target),
		Cards:  []CardType{named},
	})
	return nil
}

// playFiveDistinct lets the acting player retrieve a chosen card type from the
// discard pile. The selection itself has not been discarded yet, so the just
// played cards are not retrievable.
func playFiveDistinct(ctx context.Context, g *Game, p *Player, sel []CardType) error {
	present := make([]CardType, 0, len(g.DiscardPile))
	seen := make(map[CardType]bool)
	for _, c := range g.DiscardPile {
		if !seen[c.Type] {
			seen[c.Type] = true
			present = append(present, c.Type)
		}
	}
	if len(present) == 0 {
		return fmt.Errorf("five-distinct play resolved against an empty discard pile")
	}

	chosen, err := g.chooseCard(ctx, p, present)
	if err != nil {
		return err
	}
	for i, c := range g.DiscardPile {
		if c.Type == chosen {
			g.DiscardPile = append(g.DiscardPile[:i], g.DiscardPile[i+1:]...)
			p.AddCard(c, g)
			g.announce(Announcement{
				Type:   AnnounceCardRetrieved,
				Player: seat(p),
				Cards:  []CardType{chosen},
			})
			return nil
		}
	}
	return fmt.Errorf("chosen card type %s not present in discard pile", chosen)
}
