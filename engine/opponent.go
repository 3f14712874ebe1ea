package engine

import "github.com/google/uuid"

// MoveKind distinguishes the opponent's two possible moves.
type MoveKind uint8

const (
	MoveDraw MoveKind = iota
	MovePlay
)

// Move is the opponent's decision for one turn. Declare is meaningful only
// when Card is an eight that does not empty the hand.
type Move struct {
	Kind    MoveKind
	Card    Card
	Declare Suit
}

// ChooseOpponentMove picks the computer's move for g. Non-eights beat eights,
// and among equals the first card in hand order wins. With nothing playable
// the opponent draws. The choice is deterministic for a given state.
func ChooseOpponentMove(g *GameState) Move {
	playable := g.PlayableCards(SideOpponent)
	if len(playable) == 0 {
		return Move{Kind: MoveDraw}
	}

	chosen := playable[0]
	for _, c := range playable {
		if !c.IsWild() {
			chosen = c
			break
		}
	}

	m := Move{Kind: MovePlay, Card: chosen}
	if chosen.IsWild() {
		m.Declare = MostFrequentSuit(without(g.OpponentHand, chosen.ID))
	}
	return m
}

// PlayOpponentTurn applies the opponent's chosen move, declaring a suit right
// away when it plays an eight. It returns g unchanged when it is not the
// opponent's turn to act.
func PlayOpponentTurn(g *GameState) *GameState {
	if g.Phase != PhaseInProgress || g.Turn != SideOpponent {
		return g
	}
	m := ChooseOpponentMove(g)
	if m.Kind == MoveDraw {
		return g.Draw(SideOpponent)
	}
	n := g.Play(SideOpponent, m.Card.ID)
	if n.Phase == PhaseAwaitingSuit {
		n = n.DeclareSuit(m.Declare)
	}
	return n
}

// MostFrequentSuit returns the suit occurring most often in hand. Ties go to
// the latest suit in enumeration order, so an empty hand gives spades.
func MostFrequentSuit(hand []Card) Suit {
	var counts [4]int
	for _, c := range hand {
		counts[c.Suit]++
	}
	best := SuitHearts
	for _, s := range Suits {
		if counts[s] >= counts[best] {
			best = s
		}
	}
	return best
}

func without(hand []Card, id uuid.UUID) []Card {
	out := make([]Card, 0, len(hand))
	for _, c := range hand {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
