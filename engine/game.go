// Package engine implements the Crazy Eights rules for one human player and
// one computer opponent.
//
// A *GameState is never modified once built. Every accepted transition
// returns a new state; a rejected transition returns the receiver itself, so
// callers detect "nothing changed" with a pointer comparison.
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// HandSize is the number of cards dealt to each side.
const HandSize = 8

// GameState is the complete state of one game.
type GameState struct {
	DrawPile     []Card `json:"drawPile"` // drawn from the end
	PlayerHand   []Card `json:"playerHand"`
	OpponentHand []Card `json:"opponentHand"`
	DiscardPile  []Card `json:"discardPile"` // most recent first
	ActiveSuit   Suit   `json:"activeSuit"`
	ActiveRank   Rank   `json:"activeRank"`
	Turn         Side   `json:"turn"`
	Phase        Phase  `json:"phase"`
	LastEvent    string `json:"lastEvent"`
}

// NewGame shuffles a fresh deck with r and deals it. A nil r uses a
// time-seeded source.
func NewGame(r *rand.Rand) *GameState {
	g, err := NewGameFromDeck(NewDeck(r))
	if err != nil {
		// NewDeck always yields a full deck.
		panic(err)
	}
	return g
}

// NewGameFromDeck deals an already-ordered deck: the first HandSize cards to
// the player, the next HandSize to the opponent, then the first non-eight of
// the remainder starts the discard pile. The player moves first.
func NewGameFromDeck(deck []Card) (*GameState, error) {
	if len(deck) != DeckSize {
		return nil, fmt.Errorf("deal: deck has %d cards, want %d", len(deck), DeckSize)
	}
	if err := checkUnique(deck); err != nil {
		return nil, fmt.Errorf("deal: %w", err)
	}

	rest := make([]Card, 0, DeckSize-2*HandSize)
	rest = append(rest, deck[2*HandSize:]...)

	start := -1
	for i, c := range rest {
		if !c.IsWild() {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, errors.New("deal: no non-wild card left for the discard pile")
	}
	first := rest[start]
	rest = append(rest[:start], rest[start+1:]...)

	g := &GameState{
		DrawPile:     rest,
		PlayerHand:   append([]Card(nil), deck[:HandSize]...),
		OpponentHand: append([]Card(nil), deck[HandSize:2*HandSize]...),
		DiscardPile:  []Card{first},
		ActiveSuit:   first.Suit,
		ActiveRank:   first.Rank,
		Turn:         SidePlayer,
		Phase:        PhaseInProgress,
		LastEvent:    "Game started. Your turn.",
	}
	return g, nil
}

// Hand returns side's hand. The slice must not be modified.
func (g *GameState) Hand(side Side) []Card {
	if side == SidePlayer {
		return g.PlayerHand
	}
	return g.OpponentHand
}

// Top returns the most recently played card. Every dealt game has one.
func (g *GameState) Top() Card { return g.DiscardPile[0] }

// IsTerminal is true once either side has won.
func (g *GameState) IsTerminal() bool { return g.Phase.IsTerminal() }

// Winner returns the side that emptied its hand, if any.
func (g *GameState) Winner() (Side, bool) {
	switch g.Phase {
	case PhasePlayerWon:
		return SidePlayer, true
	case PhaseOpponentWon:
		return SideOpponent, true
	}
	return 0, false
}

// CardCount is the number of cards across all four piles.
func (g *GameState) CardCount() int {
	return len(g.DrawPile) + len(g.PlayerHand) + len(g.OpponentHand) + len(g.DiscardPile)
}

// Validate checks the structural invariants: the four piles hold exactly the
// 52-card deck, there is a discard, and while play is in progress the active
// suit/rank agree with the top discard.
func (g *GameState) Validate() error {
	if n := g.CardCount(); n != DeckSize {
		return fmt.Errorf("state holds %d cards, want %d", n, DeckSize)
	}
	all := make([]Card, 0, DeckSize)
	all = append(all, g.DrawPile...)
	all = append(all, g.PlayerHand...)
	all = append(all, g.OpponentHand...)
	all = append(all, g.DiscardPile...)
	if err := checkUnique(all); err != nil {
		return err
	}
	if len(g.DiscardPile) == 0 {
		return errors.New("discard pile is empty")
	}
	if !g.ActiveSuit.Valid() || !g.ActiveRank.Valid() {
		return fmt.Errorf("invalid active suit/rank %d/%d", g.ActiveSuit, g.ActiveRank)
	}
	if g.Phase == PhaseInProgress {
		top := g.Top()
		if top.IsWild() {
			if g.ActiveRank != WildRank {
				return fmt.Errorf("top card %s is wild but active rank is %s", top, g.ActiveRank)
			}
		} else if top.Suit != g.ActiveSuit || top.Rank != g.ActiveRank {
			return fmt.Errorf("top card %s disagrees with active %s%s", top, g.ActiveRank, g.ActiveSuit.Symbol())
		}
	}
	return nil
}

// checkUnique rejects repeated ids, repeated (suit, rank) pairs and
// out-of-range values.
func checkUnique(cards []Card) error {
	var seen [4][NumRanks]bool
	ids := make(map[uuid.UUID]struct{}, len(cards))
	for _, c := range cards {
		if !c.Suit.Valid() || !c.Rank.Valid() {
			return fmt.Errorf("invalid card %d/%d", c.Suit, c.Rank)
		}
		if seen[c.Suit][c.Rank] {
			return fmt.Errorf("duplicate card %s", c)
		}
		seen[c.Suit][c.Rank] = true
		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("duplicate card id %s", c.ID)
		}
		ids[c.ID] = struct{}{}
	}
	return nil
}

// clone copies g so the copy's slices can be edited without touching g.
func (g *GameState) clone() *GameState {
	n := *g
	n.DrawPile = append([]Card(nil), g.DrawPile...)
	n.PlayerHand = append([]Card(nil), g.PlayerHand...)
	n.OpponentHand = append([]Card(nil), g.OpponentHand...)
	n.DiscardPile = append([]Card(nil), g.DiscardPile...)
	return &n
}

func (g *GameState) setHand(side Side, hand []Card) {
	if side == SidePlayer {
		g.PlayerHand = hand
	} else {
		g.OpponentHand = hand
	}
}
