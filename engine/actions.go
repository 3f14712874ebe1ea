package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Draw moves the last card of the draw pile into side's hand and ends side's
// turn. With an empty draw pile the turn passes without a card.
func (g *GameState) Draw(side Side) *GameState {
	if g.rejectTurn(side) != "" {
		return g
	}
	n := g.clone()
	n.Turn = side.Other()

	if len(n.DrawPile) == 0 {
		n.LastEvent = describe(side, "Draw pile is empty, you pass.", "Opponent passes, the draw pile is empty.")
		return n
	}

	last := len(n.DrawPile) - 1
	drawn := n.DrawPile[last]
	n.DrawPile = n.DrawPile[:last]
	n.setHand(side, append(n.Hand(side), drawn))
	n.LastEvent = describe(side, fmt.Sprintf("You drew %s.", drawn), "Opponent drew a card.")
	return n
}

// Play moves cardID from side's hand to the top of the discard pile.
// Emptying the hand wins the game; an eight waits for DeclareSuit with the
// turn unchanged; any other card becomes the active suit/rank and passes the
// turn.
func (g *GameState) Play(side Side, cardID uuid.UUID) *GameState {
	if g.rejectPlay(side, cardID) != "" {
		return g
	}
	n := g.clone()
	hand := n.Hand(side)
	i := indexOf(hand, cardID)
	card := hand[i]
	n.setHand(side, append(hand[:i], hand[i+1:]...))
	n.DiscardPile = append([]Card{card}, n.DiscardPile...)

	switch {
	case len(n.Hand(side)) == 0:
		n.Phase = wonPhase(side)
		n.LastEvent = describe(side,
			fmt.Sprintf("You played %s and won!", card),
			fmt.Sprintf("Opponent played %s and won.", card))
	case card.IsWild():
		n.Phase = PhaseAwaitingSuit
		n.LastEvent = describe(side,
			fmt.Sprintf("You played %s. Choose a suit.", card),
			fmt.Sprintf("Opponent played %s.", card))
	default:
		n.ActiveSuit = card.Suit
		n.ActiveRank = card.Rank
		n.Turn = side.Other()
		n.LastEvent = describe(side,
			fmt.Sprintf("You played %s.", card),
			fmt.Sprintf("Opponent played %s.", card))
	}
	return n
}

// DeclareSuit resolves a pending eight: suit becomes active with the wild
// rank, and the turn passes to the side that did not play the eight.
func (g *GameState) DeclareSuit(suit Suit) *GameState {
	if g.rejectDeclare(suit) != "" {
		return g
	}
	n := g.clone()
	n.ActiveSuit = suit
	n.ActiveRank = WildRank
	n.Phase = PhaseInProgress
	n.LastEvent = describe(n.Turn,
		fmt.Sprintf("You declared %s.", suit.Symbol()),
		fmt.Sprintf("Opponent played %s and declared %s.", g.Top(), suit.Symbol()))
	n.Turn = n.Turn.Other()
	return n
}

func describe(side Side, player, opponent string) string {
	if side == SidePlayer {
		return player
	}
	return opponent
}
