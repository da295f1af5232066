// internal/game/effects.go
package game

import (
	"context"
)

// shufflePlayEffect randomizes the deck.
func shufflePlayEffect(ctx context.Context, g *Game, p *Player, target *Player) error {
	g.Deck.Shuffle(g.rng)
	g.announce(Announcement{Type: AnnounceShuffled, Player: seat(p)})
	return nil
}

// skipPlayEffect ends the current player's turn without a draw.
func skipPlayEffect(ctx context.Context, g *Game, p *Player, target *Player) error {
	g.processSkip(p)
	g.announce(Announcement{Type: AnnounceSkipped, Player: seat(p)})
	return nil
}

// attackPlayEffect ends the turn without a draw and forces the next living
// player to take the next two action-turns.
func attackPlayEffect(ctx context.Context, g *Game, p *Player, target *Player) error {
	g.processSkip(p)
	attacked := g.processAttack(p)
	g.announce(Announcement{Type: AnnounceAttacked, Player: seat(p), Target: seat(attacked)})
	return nil
}

// favorPlayEffect asks the target to hand over a card of their choosing. A
// target that never answers gives up a random card instead; an empty-handed
// target gives nothing.
func favorPlayEffect(ctx context.Context, g *Game, p *Player, target *Player) error {
	if target == nil || len(target.Hand) == 0 {
		g.announce(Announcement{Type: AnnounceStealMissed, Player: seat(p), Target: seat(target)})
		return nil
	}

	options := make([]CardType, 0, len(target.Hand))
	seen := make(map[CardType]bool)
	for _, c := range target.Hand {
		if !seen[c.Type] {
			seen[c.Type] = true
			options = append(options, c.Type)
		}
	}

	var card *Card
	chosen, err := g.chooseCard(ctx, target, options)
	if err != nil {
		card = target.StealCard(nil, g)
	} else {
		card = target.StealCard(&chosen, g)
	}
	if card == nil {
		g.announce(Announcement{Type: AnnounceStealMissed, Player: seat(p), Target: seat(target)})
		return nil
	}
	p.AddCard(card, g)
	g.announce(Announcement{Type: AnnounceFavor, Player: seat(p), Target: seat(target)})
	return nil
}

// seeFuturePlayEffect reveals the top three cards to the acting player and
// waits for their acknowledgement.
func seeFuturePlayEffect(ctx context.Context, g *Game, p *Player, target *Player) error {
	top := g.Deck.SeeTop()
	g.confirmFuture(ctx, p, top)
	g.announce(Announcement{
		Type:    AnnounceFutureSeen,
		Player:  seat(p),
		Payload: map[string]interface{}{"count": len(top)},
	})
	return nil
}

// bombDrawEffect resolves a drawn bomb. Holding a defuse keeps the player
// alive: the defuse is auto-consumed to the discard pile and the bomb goes
// back into the deck at a position the player chooses, leaving the deck length
// net unchanged. Without one, the player dies and their whole hand is
// discarded card by card.
func bombDrawEffect(ctx context.Context, g *Game, p *Player, card *Card) error {
	g.announce(Announcement{Type: AnnounceBombDrawn, Player: seat(p)})

	if p.HasCard(Defuse) {
		defuse := p.removeCard(Defuse)
		g.DiscardPile = append(g.DiscardPile, defuse)
		g.announce(Announcement{
			Type:   AnnounceCardDiscarded,
			Player: seat(p),
			Cards:  []CardType{Defuse},
		})

		// Take the bomb back out of the hand and let the player pick its spot.
		// The chosen position stays out of the public payload.
		bomb := p.removeCard(Bomb)
		pos := g.chooseInsertPosition(ctx, p, g.Deck.Len())
		g.Deck.Insert(bomb, pos)
		g.announce(Announcement{Type: AnnounceBombDefused, Player: seat(p)})
		return nil
	}

	p.Alive = false
	bomb := p.removeCard(Bomb)
	g.DiscardPile = append(g.DiscardPile, bomb)
	g.announce(Announcement{Type: AnnouncePlayerDied, Player: seat(p)})

	for len(p.Hand) > 0 {
		p.DiscardCard(p.Hand[0], g)
	}

	g.checkWin()
	return nil
}
