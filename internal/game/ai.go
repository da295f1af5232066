// internal/game/ai.go
package game

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Personality tunes an AI seat's decision weights. All three knobs run 0..1.
type Personality struct {
	// Paranoia scales the perceived bomb risk; a paranoid bot hoards skips
	// and attacks and reinserts defused bombs near the top.
	Paranoia float64 `json:"paranoia"`

	// Randomness is the chance of ignoring the score table for a turn and
	// acting uniformly at random.
	Randomness float64 `json:"randomness"`

	// Generosity biases favor responses toward giving useful cards away.
	Generosity float64 `json:"generosity"`

	// Delay is the think time before each decision lands, in nanoseconds.
	Delay time.Duration `json:"delay,omitempty"`
}

// DefaultPersonality is a middle-of-the-road bot.
var DefaultPersonality = Personality{
	Paranoia:   0.5,
	Randomness: 0.15,
	Generosity: 0.3,
	Delay:      300 * time.Millisecond,
}

// AIPlayer is an in-process Actor that answers every engine prompt after a
// short think delay. Decisions run off the catalog Score table weighted by an
// estimated bomb risk; the estimate improves with see-the-future peeks.
type AIPlayer struct {
	Personality Personality

	game *Game
	seat *Player
	rng  *rand.Rand

	// gen invalidates outstanding scheduled callbacks; ClearCallbacks bumps
	// it and any decision goroutine holding an older value drops its answer.
	gen atomic.Int64

	mu sync.Mutex
	// knownTop remembers a see-the-future peek together with the deck size at
	// peek time, so later draws shift the window instead of invalidating it.
	knownTop   []CardType
	knownAtLen int
}

// NewAIPlayer builds an AI seat with the given personality. The seat binds to
// its game and player when the table starts.
func NewAIPlayer(p Personality) *AIPlayer {
	return &AIPlayer{
		Personality: p,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Bind attaches the AI to its game and seat. The server calls this once after
// the game is built.
func (a *AIPlayer) Bind(g *Game, p *Player) {
	a.game = g
	a.seat = p
}

// schedule runs fn after the think delay unless ClearCallbacks ran in between.
func (a *AIPlayer) schedule(fn func()) {
	gen := a.gen.Load()
	go func() {
		if a.Personality.Delay > 0 {
			time.Sleep(a.Personality.Delay)
		}
		if a.gen.Load() != gen {
			return
		}
		fn()
	}()
}

// ClearCallbacks invalidates every decision currently in flight.
func (a *AIPlayer) ClearCallbacks() {
	a.gen.Add(1)
}

// bombRisk estimates the probability that the top card is a bomb. A still
// valid peek gives certainty; otherwise bombs-left over deck size, scaled by
// paranoia.
func (a *AIPlayer) bombRisk() float64 {
	deckLen := a.game.Deck.Len()
	if deckLen == 0 {
		return 0
	}

	a.mu.Lock()
	if len(a.knownTop) > 0 {
		offset := a.knownAtLen - deckLen
		if offset >= 0 && offset < len(a.knownTop) {
			top := a.knownTop[offset]
			a.mu.Unlock()
			if top == Bomb {
				return 1
			}
			return 0
		}
		a.knownTop = nil
	}
	a.mu.Unlock()

	bombsOut := 0
	for _, c := range a.game.DiscardPile {
		if c.Type == Bomb {
			bombsOut++
		}
	}
	total := Catalog[Bomb].Count(len(a.game.Players))
	risk := float64(total-bombsOut) / float64(deckLen)
	if risk > 1 {
		risk = 1
	}
	return risk * (0.5 + a.Personality.Paranoia)
}

// candidateSelections enumerates the legal plays from the current hand: every
// playable single plus puppy pairs.
func (a *AIPlayer) candidateSelections() [][]CardType {
	sels := [][]CardType{}
	seen := make(map[CardType]bool)
	for _, c := range a.seat.Hand {
		if seen[c.Type] {
			continue
		}
		seen[c.Type] = true
		spec := Catalog[c.Type]
		if spec.PlayEffect != nil && spec.PlayTest(a.game, a.seat) {
			sels = append(sels, []CardType{c.Type})
		}
		if a.seat.CountCards(c.Type) >= 2 {
			for _, t := range PuppyTypes {
				if t == c.Type {
					sels = append(sels, []CardType{t, t})
				}
			}
		}
	}
	return sels
}

func (a *AIPlayer) scoreSelection(sel []CardType, risk float64) float64 {
	if len(sel) == 1 {
		return Catalog[sel[0]].Score(risk)
	}
	// Pair steal: worth more the safer the turn is.
	return 1.5 * (1 - risk)
}

// GiveOptions weighs drawing against the best available play. Defensive cards
// win out as the bomb risk climbs; a random personality roll occasionally
// overrides the table entirely.
func (a *AIPlayer) GiveOptions(onDraw func(), onPlay func(selection []CardType)) {
	a.schedule(func() {
		sels := a.candidateSelections()

		if a.rng.Float64() < a.Personality.Randomness {
			if len(sels) > 0 && a.rng.Intn(2) == 0 {
				onPlay(sels[a.rng.Intn(len(sels))])
				return
			}
			onDraw()
			return
		}

		risk := a.bombRisk()
		var best []CardType
		bestScore := 0.0
		for _, sel := range sels {
			if s := a.scoreSelection(sel, risk); s > bestScore {
				bestScore = s
				best = sel
			}
		}

		// Drawing is fine while the deck looks safe.
		drawScore := 3 * (1 - risk)
		if best != nil && bestScore > drawScore {
			onPlay(best)
			return
		}
		onDraw()
	})
}

// AllowNope spends a nope mostly against plays that threaten this seat.
func (a *AIPlayer) AllowNope(onNope func()) {
	a.schedule(func() {
		if a.rng.Float64() < 0.3+0.4*a.Personality.Paranoia {
			onNope()
		}
	})
}

// AllowSelectTarget picks the seat with the largest hand, or anyone at random
// on a randomness roll.
func (a *AIPlayer) AllowSelectTarget(options []*Player, onSelect func(target *Player)) {
	a.schedule(func() {
		if len(options) == 0 {
			return
		}
		if a.rng.Float64() < a.Personality.Randomness {
			onSelect(options[a.rng.Intn(len(options))])
			return
		}
		best := options[0]
		for _, o := range options[1:] {
			if len(o.Hand) > len(best.Hand) {
				best = o
			}
		}
		onSelect(best)
	})
}

// cardGivePreference orders types from most to least expendable.
var cardGivePreference = []CardType{
	PuppyCorgi, PuppyPug, PuppyBeagle, PuppyShiba, PuppyLab,
	Shuffle, SeeFuture, Favor, Skip, Attack, Nope, Defuse,
}

// AllowSelectCard distinguishes giving from taking by context: when asked for
// a card it holds (a favor demand) it gives the most expendable one unless
// generous; when naming a steal it wants a defuse first.
func (a *AIPlayer) AllowSelectCard(options []CardType, onSelect func(t CardType)) {
	a.schedule(func() {
		if len(options) == 0 {
			return
		}
		holdsAll := true
		for _, t := range options {
			if !a.seat.HasCard(t) {
				holdsAll = false
				break
			}
		}

		order := append([]CardType{}, cardGivePreference...)
		if !holdsAll {
			// Naming a card to take: reverse the expendability order.
			for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
				order[i], order[j] = order[j], order[i]
			}
		} else if a.rng.Float64() < a.Personality.Generosity {
			onSelect(options[a.rng.Intn(len(options))])
			return
		}

		for _, t := range order {
			for _, o := range options {
				if o == t {
					onSelect(o)
					return
				}
			}
		}
		onSelect(options[0])
	})
}

// AllowInsertIntoDeck puts a defused bomb right on top when paranoid enough to
// pass the problem on, otherwise somewhere random.
func (a *AIPlayer) AllowInsertIntoDeck(maxPosition int, onInsert func(pos int)) {
	a.schedule(func() {
		pos := a.rng.Intn(maxPosition + 1)
		if a.rng.Float64() < a.Personality.Paranoia {
			pos = 0
		}
		a.mu.Lock()
		a.knownTop = nil
		a.mu.Unlock()
		onInsert(pos)
	})
}

// SeeFuture memorizes the peek for later bomb-risk estimates.
func (a *AIPlayer) SeeFuture(cards []*Card, onConfirm func()) {
	a.schedule(func() {
		types := make([]CardType, len(cards))
		for i, c := range cards {
			types[i] = c.Type
		}
		a.mu.Lock()
		a.knownTop = types
		a.knownAtLen = a.game.Deck.Len()
		a.mu.Unlock()
		onConfirm()
	})
}
