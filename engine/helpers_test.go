package engine

import "testing"

// card builds a card with a fresh id.
func card(s Suit, r Rank) Card { return NewCard(s, r) }

// tableState builds an in-progress game with the given hands and top discard.
// Every card not named goes to the draw pile in deck order, so the 52-card
// invariant holds.
func tableState(t *testing.T, player, opponent []Card, top Card, turn Side) *GameState {
	t.Helper()
	used := map[[2]uint8]bool{}
	mark := func(cs ...Card) {
		for _, c := range cs {
			k := [2]uint8{uint8(c.Suit), uint8(c.Rank)}
			if used[k] {
				t.Fatalf("tableState: %s used twice", c)
			}
			used[k] = true
		}
	}
	mark(player...)
	mark(opponent...)
	mark(top)

	var draw []Card
	for _, s := range Suits {
		for r := RankAce; r <= RankKing; r++ {
			if !used[[2]uint8{uint8(s), uint8(r)}] {
				draw = append(draw, card(s, r))
			}
		}
	}
	return &GameState{
		DrawPile:     draw,
		PlayerHand:   append([]Card(nil), player...),
		OpponentHand: append([]Card(nil), opponent...),
		DiscardPile:  []Card{top},
		ActiveSuit:   top.Suit,
		ActiveRank:   top.Rank,
		Turn:         turn,
		Phase:        PhaseInProgress,
	}
}

// emptyDrawPile moves every draw-pile card beneath the top discard so the
// draw pile is empty while the deck stays complete.
func emptyDrawPile(g *GameState) *GameState {
	n := g.clone()
	n.DiscardPile = append(n.DiscardPile, n.DrawPile...)
	n.DrawPile = nil
	return n
}

// orderedDeck returns the 52 cards in suit-major order.
func orderedDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for r := RankAce; r <= RankKing; r++ {
			deck = append(deck, card(s, r))
		}
	}
	return deck
}
