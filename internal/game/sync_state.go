// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyeights/engine"
)

// ViewCard is a card as the human player sees it.
type ViewCard struct {
	ID       uuid.UUID   `json:"id"`
	Rank     engine.Rank `json:"rank"`
	Suit     engine.Suit `json:"suit"`
	Symbol   string      `json:"symbol"`
	Red      bool        `json:"red"`
	Playable bool        `json:"playable,omitempty"` // only set for cards in the player's hand
}

// View is the state projected for the human player: the opponent's hand and
// the draw pile are reduced to counts.
type View struct {
	SessionID     uuid.UUID    `json:"sessionId"`
	Version       int          `json:"version"`
	PlayerHand    []ViewCard   `json:"playerHand"`
	OpponentCount int          `json:"opponentCount"`
	DrawCount     int          `json:"drawCount"`
	DiscardTop    ViewCard     `json:"discardTop"`
	DiscardCount  int          `json:"discardCount"`
	ActiveSuit    engine.Suit  `json:"activeSuit"`
	ActiveRank    engine.Rank  `json:"activeRank"`
	Turn          engine.Side  `json:"turn"`
	Phase         engine.Phase `json:"phase"`
	LastEvent     string       `json:"lastEvent"`
}

func viewCard(c engine.Card) ViewCard {
	return ViewCard{
		ID:     c.ID,
		Rank:   c.Rank,
		Suit:   c.Suit,
		Symbol: c.Suit.Symbol(),
		Red:    c.Suit.IsRed(),
	}
}

// view builds the View of the current state.
// Assumes lock is held by caller.
func (s *Session) view() View {
	g := s.state
	v := View{
		SessionID:     s.ID,
		Version:       s.version,
		PlayerHand:    make([]ViewCard, len(g.PlayerHand)),
		OpponentCount: len(g.OpponentHand),
		DrawCount:     len(g.DrawPile),
		DiscardTop:    viewCard(g.Top()),
		DiscardCount:  len(g.DiscardPile),
		ActiveSuit:    g.ActiveSuit,
		ActiveRank:    g.ActiveRank,
		Turn:          g.Turn,
		Phase:         g.Phase,
		LastEvent:     g.LastEvent,
	}
	for i, c := range g.PlayerHand {
		v.PlayerHand[i] = viewCard(c)
		v.PlayerHand[i].Playable = g.CanPlay(engine.SidePlayer, c.ID)
	}
	return v
}

// Event wraps v in an event of type t.
func (v View) Event(t GameEventType) GameEvent {
	return GameEvent{Type: t, Version: v.Version, State: &v}
}
