package engine

import "github.com/google/uuid"

// IsPlayable reports whether card may be played onto a table whose active
// suit and rank are activeSuit and activeRank. Eights are always playable.
func IsPlayable(card Card, activeSuit Suit, activeRank Rank) bool {
	if card.Rank.IsWild() {
		return true
	}
	return card.Suit == activeSuit || card.Rank == activeRank
}

// PlayableCards returns the cards of side's hand that may be played now, in
// hand order. It is empty whenever side may not play.
func (g *GameState) PlayableCards(side Side) []Card {
	if g.Phase != PhaseInProgress || g.Turn != side {
		return nil
	}
	var out []Card
	for _, c := range g.Hand(side) {
		if IsPlayable(c, g.ActiveSuit, g.ActiveRank) {
			out = append(out, c)
		}
	}
	return out
}

// CanDraw reports whether a Draw by side would be accepted.
func (g *GameState) CanDraw(side Side) bool {
	return g.Phase == PhaseInProgress && g.Turn == side
}

// CanPlay reports whether a Play of cardID by side would be accepted.
func (g *GameState) CanPlay(side Side, cardID uuid.UUID) bool {
	return g.rejectPlay(side, cardID) == ""
}

// CanDeclareSuit reports whether a DeclareSuit would be accepted.
func (g *GameState) CanDeclareSuit() bool { return g.Phase == PhaseAwaitingSuit }

// Rejection explains why an intent would be ignored; "" means accepted.
type Rejection string

const (
	RejectGameOver    Rejection = "game is over"
	RejectNotYourTurn Rejection = "not your turn"
	RejectWrongPhase  Rejection = "not allowed in this phase"
	RejectNotInHand   Rejection = "card is not in hand"
	RejectIllegalCard Rejection = "card does not match active suit or rank"
	RejectBadSuit     Rejection = "unknown suit"
)

func (g *GameState) rejectTurn(side Side) Rejection {
	switch {
	case g.Phase.IsTerminal():
		return RejectGameOver
	case g.Phase != PhaseInProgress:
		return RejectWrongPhase
	case g.Turn != side:
		return RejectNotYourTurn
	}
	return ""
}

func (g *GameState) rejectPlay(side Side, cardID uuid.UUID) Rejection {
	if r := g.rejectTurn(side); r != "" {
		return r
	}
	i := indexOf(g.Hand(side), cardID)
	if i < 0 {
		return RejectNotInHand
	}
	if !IsPlayable(g.Hand(side)[i], g.ActiveSuit, g.ActiveRank) {
		return RejectIllegalCard
	}
	return ""
}

func (g *GameState) rejectDeclare(suit Suit) Rejection {
	switch {
	case g.Phase.IsTerminal():
		return RejectGameOver
	case g.Phase != PhaseAwaitingSuit:
		return RejectWrongPhase
	case !suit.Valid():
		return RejectBadSuit
	}
	return ""
}

// RejectDraw returns why Draw(side) would be ignored, or "".
func (g *GameState) RejectDraw(side Side) Rejection { return g.rejectTurn(side) }

// RejectPlay returns why Play(side, cardID) would be ignored, or "".
func (g *GameState) RejectPlay(side Side, cardID uuid.UUID) Rejection {
	return g.rejectPlay(side, cardID)
}

// RejectDeclareSuit returns why DeclareSuit(suit) would be ignored, or "".
func (g *GameState) RejectDeclareSuit(suit Suit) Rejection { return g.rejectDeclare(suit) }

func indexOf(hand []Card, id uuid.UUID) int {
	for i, c := range hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}
