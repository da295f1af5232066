// internal/game/cards.go
package game

import (
	"context"
	"encoding/json"
	"fmt"
)

// CardType enumerates every card kind in the game. The set is closed; the
// Catalog below must have an entry for each value.
type CardType int

const (
	Bomb CardType = iota
	Defuse
	Shuffle
	Nope
	Skip
	Attack
	Favor
	SeeFuture
	PuppyCorgi
	PuppyPug
	PuppyBeagle
	PuppyShiba
	PuppyLab

	numCardTypes
)

// PuppyTypes lists the five collectable puppy variants. They have no effect of
// their own and exist for the of-a-kind and five-distinct plays.
var PuppyTypes = []CardType{PuppyCorgi, PuppyPug, PuppyBeagle, PuppyShiba, PuppyLab}

func (t CardType) String() string {
	if spec, ok := Catalog[t]; ok {
		return spec.Name
	}
	return fmt.Sprintf("CardType(%d)", int(t))
}

// cardTypeKeys are the stable wire identifiers. They appear in websocket
// messages, announcements and persisted snapshots; renaming one breaks stored
// data.
var cardTypeKeys = map[CardType]string{
	Bomb:        "bomb",
	Defuse:      "defuse",
	Shuffle:     "shuffle",
	Nope:        "nope",
	Skip:        "skip",
	Attack:      "attack",
	Favor:       "favor",
	SeeFuture:   "see_future",
	PuppyCorgi:  "corgi",
	PuppyPug:    "pug",
	PuppyBeagle: "beagle",
	PuppyShiba:  "shiba",
	PuppyLab:    "lab",
}

var cardTypesByKey = func() map[string]CardType {
	m := make(map[string]CardType, len(cardTypeKeys))
	for t, k := range cardTypeKeys {
		m[k] = t
	}
	return m
}()

// Key returns the wire identifier for t.
func (t CardType) Key() string {
	if k, ok := cardTypeKeys[t]; ok {
		return k
	}
	return fmt.Sprintf("unknown_%d", int(t))
}

// ParseCardType maps a wire identifier back to its card type.
func ParseCardType(key string) (CardType, error) {
	t, ok := cardTypesByKey[key]
	if !ok {
		return 0, fmt.Errorf("unknown card type %q", key)
	}
	return t, nil
}

// MarshalJSON encodes the card type as its wire identifier.
func (t CardType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Key())
}

// UnmarshalJSON decodes a wire identifier.
func (t *CardType) UnmarshalJSON(b []byte) error {
	var key string
	if err := json.Unmarshal(b, &key); err != nil {
		return err
	}
	parsed, err := ParseCardType(key)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Card is a single physical card: a per-game monotonic sequence ID (so
// otherwise-identical copies stay distinguishable) plus its type. A card lives
// in exactly one of: a player's hand, the deck, or the discard pile.
type Card struct {
	ID   int      `json:"id"`
	Type CardType `json:"type"`
}

// CardSpec is the static catalog record for one card type: display metadata,
// how many copies a game gets, and the behavior hooks the engine dispatches on.
type CardSpec struct {
	Name  string
	Icon  string
	Color string

	// Count returns how many copies exist in a game with the given player count.
	Count func(playerCount int) int

	// NeedsTarget marks cards whose play requires selecting a target player.
	NeedsTarget bool

	// PlayTest reports whether the interactive layer may offer this card as
	// selectable for the given player. The engine assumes selections that reach
	// it already passed this predicate.
	PlayTest func(g *Game, p *Player) bool

	// PlayEffect runs the card's single-card action. May suspend on further
	// async sub-choices. Nil for cards with no single-card play.
	PlayEffect func(ctx context.Context, g *Game, p *Player, target *Player) error

	// DrawEffect runs when the card is drawn. Only the bomb has one.
	DrawEffect func(ctx context.Context, g *Game, p *Player, c *Card) error

	// Score rates how attractive playing this card is right now, given the
	// estimated probability that the next draw is a bomb. Used by the AI only.
	Score func(bombRisk float64) float64
}

func fixedCount(n int) func(int) int {
	return func(int) int { return n }
}

// hasEffect is the PlayTest for single-card action cards.
func hasEffect(g *Game, p *Player) bool {
	return true
}

// puppyPlayable allows a puppy either as part of an of-a-kind pair/triple or
// toward a five-distinct discard retrieval.
func puppyPlayable(t CardType) func(g *Game, p *Player) bool {
	return func(g *Game, p *Player) bool {
		if p.CountCards(t) >= 2 {
			return true
		}
		return len(g.DiscardPile) > 0 && p.DistinctTypes() >= 5
	}
}

// neverPlayable covers bomb, defuse and nope: they are consumed reactively,
// never submitted as a proactive play.
func neverPlayable(g *Game, p *Player) bool {
	return false
}

// Catalog maps each card type to its static metadata and behavior. Behavior is
// bound through plain function values so the dispatch stays compiler-checked.
var Catalog = map[CardType]*CardSpec{
	Bomb: {
		Name:       "Imploding Puppy",
		Icon:       "💥",
		Color:      "#d33682",
		Count:      func(playerCount int) int { return playerCount - 1 },
		PlayTest:   neverPlayable,
		DrawEffect: bombDrawEffect,
		Score:      func(float64) float64 { return 0 },
	},
	Defuse: {
		Name:     "Belly Rub",
		Icon:     "🐾",
		Color:    "#859900",
		Count:    func(playerCount int) int { return 6 },
		PlayTest: neverPlayable,
		Score:    func(float64) float64 { return 0 },
	},
	Shuffle: {
		Name:       "Shuffle",
		Icon:       "🔀",
		Color:      "#6c71c4",
		Count:      fixedCount(4),
		PlayTest:   hasEffect,
		PlayEffect: shufflePlayEffect,
		Score: func(risk float64) float64 {
			return 6 * risk
		},
	},
	Nope: {
		Name:     "Nope",
		Icon:     "🙅",
		Color:    "#dc322f",
		Count:    fixedCount(5),
		PlayTest: neverPlayable,
		Score:    func(float64) float64 { return 0 },
	},
	Skip: {
		Name:       "Skip",
		Icon:       "⏭️",
		Color:      "#268bd2",
		Count:      fixedCount(4),
		PlayTest:   hasEffect,
		PlayEffect: skipPlayEffect,
		Score: func(risk float64) float64 {
			return 1 + 10*risk
		},
	},
	Attack: {
		Name:       "Attack",
		Icon:       "⚔️",
		Color:      "#cb4b16",
		Count:      fixedCount(4),
		PlayTest:   hasEffect,
		PlayEffect: attackPlayEffect,
		Score: func(risk float64) float64 {
			return 2 + 10*risk
		},
	},
	Favor: {
		Name:        "Favor",
		Icon:        "🤝",
		Color:       "#b58900",
		Count:       fixedCount(4),
		NeedsTarget: true,
		PlayTest:    hasEffect,
		PlayEffect:  favorPlayEffect,
		Score: func(risk float64) float64 {
			return 2 * (1 - risk)
		},
	},
	SeeFuture: {
		Name:       "See the Future",
		Icon:       "🔮",
		Color:      "#2aa198",
		Count:      fixedCount(5),
		PlayTest:   hasEffect,
		PlayEffect: seeFuturePlayEffect,
		Score: func(risk float64) float64 {
			return 3 + 2*risk
		},
	},
	PuppyCorgi: {
		Name:     "Corgi",
		Icon:     "🐕",
		Color:    "#fdf6e3",
		Count:    fixedCount(4),
		PlayTest: puppyPlayable(PuppyCorgi),
		Score:    puppyScore,
	},
	PuppyPug: {
		Name:     "Pug",
		Icon:     "🐶",
		Color:    "#eee8d5",
		Count:    fixedCount(4),
		PlayTest: puppyPlayable(PuppyPug),
		Score:    puppyScore,
	},
	PuppyBeagle: {
		Name:     "Beagle",
		Icon:     "🦴",
		Color:    "#93a1a1",
		Count:    fixedCount(4),
		PlayTest: puppyPlayable(PuppyBeagle),
		Score:    puppyScore,
	},
	PuppyShiba: {
		Name:     "Shiba",
		Icon:     "🐩",
		Color:    "#839496",
		Count:    fixedCount(4),
		PlayTest: puppyPlayable(PuppyShiba),
		Score:    puppyScore,
	},
	PuppyLab: {
		Name:     "Labrador",
		Icon:     "🎾",
		Color:    "#586e75",
		Count:    fixedCount(4),
		PlayTest: puppyPlayable(PuppyLab),
		Score:    puppyScore,
	},
}

func puppyScore(risk float64) float64 {
	return 0.5 * (1 - risk)
}
