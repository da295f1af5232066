// internal/game/announce.go
package game

import (
	"log"
	"time"
)

// AnnouncementType is an enum-like type for the structured event feed.
type AnnouncementType string

const (
	AnnouncePlayerJoined  AnnouncementType = "player_joined"
	AnnounceGameStarted   AnnouncementType = "game_started"
	AnnounceTurnStarted   AnnouncementType = "turn_started"
	AnnounceCardDrawn     AnnouncementType = "card_drawn"
	AnnouncePlayAttempt   AnnouncementType = "play_attempt"
	AnnouncePlayNoped     AnnouncementType = "play_noped"
	AnnounceNope          AnnouncementType = "nope"
	AnnounceCardDiscarded AnnouncementType = "card_discarded"
	AnnounceShuffled      AnnouncementType = "deck_shuffled"
	AnnounceSkipped       AnnouncementType = "turn_skipped"
	AnnounceAttacked      AnnouncementType = "player_attacked"
	AnnounceFavor         AnnouncementType = "favor_given"
	AnnounceFutureSeen    AnnouncementType = "future_seen"
	AnnounceCardStolen    AnnouncementType = "card_stolen"
	AnnounceStealMissed   AnnouncementType = "steal_missed"
	AnnounceCardRetrieved AnnouncementType = "card_retrieved"
	AnnounceBombDrawn     AnnouncementType = "bomb_drawn"
	AnnounceBombDefused   AnnouncementType = "bomb_defused"
	AnnouncePlayerDied    AnnouncementType = "player_died"
	AnnounceGameOver      AnnouncementType = "game_over"
)

// Announcement is one timestamped entry of the game's append-only event feed:
// the only externally visible narration of game progress besides a full-state
// snapshot. Player and Target are seat indices; they are pointers so seat 0
// can be told apart from "not attributed".
type Announcement struct {
	Type      AnnouncementType       `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Player    *int                   `json:"player,omitempty"`
	Target    *int                   `json:"target,omitempty"`
	Cards     []CardType             `json:"cards,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

func seat(p *Player) *int {
	if p == nil {
		return nil
	}
	id := p.ID
	return &id
}

// announce appends an event to the game log and forwards it to AnnounceFn if
// one is registered.
func (g *Game) announce(a Announcement) {
	a.Timestamp = time.Now()

	g.Mu.Lock()
	g.Log = append(g.Log, a)
	fn := g.AnnounceFn
	g.Mu.Unlock()

	if fn != nil {
		fn(a)
	} else {
		log.Printf("game %s: %s (player=%v target=%v cards=%v)", g.ID, a.Type, a.Player, a.Target, a.Cards)
	}
}

// Announcements returns a copy of the event log so far.
func (g *Game) Announcements() []Announcement {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	out := make([]Announcement, len(g.Log))
	copy(out, g.Log)
	return out
}
