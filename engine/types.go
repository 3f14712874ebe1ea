package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Suit of a card. The numeric order is the fixed enumeration order used for
// tie breaks.
type Suit uint8

const (
	SuitHearts Suit = iota
	SuitDiamonds
	SuitClubs
	SuitSpades
)

// Suits lists every suit in enumeration order.
var Suits = [4]Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

var suitNames = [4]string{"hearts", "diamonds", "clubs", "spades"}
var suitSymbols = [4]string{"♥", "♦", "♣", "♠"}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool { return s <= SuitSpades }

func (s Suit) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Suit(%d)", uint8(s))
	}
	return suitNames[s]
}

// Symbol returns the suit glyph, e.g. "♥".
func (s Suit) Symbol() string {
	if !s.Valid() {
		return "?"
	}
	return suitSymbols[s]
}

// IsRed is true for hearts and diamonds.
func (s Suit) IsRed() bool { return s == SuitHearts || s == SuitDiamonds }

// ParseSuit converts a public suit name ("hearts", ...) to a Suit.
func ParseSuit(name string) (Suit, error) {
	for i, n := range suitNames {
		if n == name {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid suit %d", uint8(s))
	}
	return []byte(suitNames[s]), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	v, err := ParseSuit(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Rank of a card, Ace low.
type Rank uint8

const (
	RankAce Rank = iota
	RankTwo
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
)

// WildRank is always playable and forces a suit declaration.
const WildRank = RankEight

// NumRanks is the number of ranks per suit.
const NumRanks = 13

var rankNames = [NumRanks]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Valid reports whether r is one of the thirteen ranks.
func (r Rank) Valid() bool { return r <= RankKing }

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", uint8(r))
	}
	return rankNames[r]
}

// IsWild reports whether r is the wild rank.
func (r Rank) IsWild() bool { return r == WildRank }

// ParseRank converts a public rank name ("A", "10", "K", ...) to a Rank.
func ParseRank(name string) (Rank, error) {
	for i, n := range rankNames {
		if n == name {
			return Rank(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", name)
}

func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rank %d", uint8(r))
	}
	return []byte(rankNames[r]), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	v, err := ParseRank(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Card is one physical card. ID tracks the card across state changes; two
// cards of one deck never share a (Suit, Rank) pair.
type Card struct {
	ID   uuid.UUID `json:"id"`
	Suit Suit      `json:"suit"`
	Rank Rank      `json:"rank"`
}

// NewCard tags a (suit, rank) pair with a fresh id.
func NewCard(suit Suit, rank Rank) Card {
	return Card{ID: uuid.New(), Suit: suit, Rank: rank}
}

// String renders the card as rank followed by suit symbol, e.g. "10♥".
func (c Card) String() string { return c.Rank.String() + c.Suit.Symbol() }

// IsWild reports whether the card is an eight.
func (c Card) IsWild() bool { return c.Rank.IsWild() }

// Side identifies one of the two seats.
type Side uint8

const (
	SidePlayer Side = iota
	SideOpponent
)

var sideNames = [2]string{"player", "opponent"}

// Other returns the opposing side.
func (s Side) Other() Side { return 1 - s }

func (s Side) String() string {
	if s > SideOpponent {
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
	return sideNames[s]
}

func (s Side) MarshalText() ([]byte, error) {
	if s > SideOpponent {
		return nil, fmt.Errorf("invalid side %d", uint8(s))
	}
	return []byte(sideNames[s]), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	for i, n := range sideNames {
		if n == string(b) {
			*s = Side(i)
			return nil
		}
	}
	return fmt.Errorf("unknown side %q", string(b))
}

// Phase of the game.
type Phase uint8

const (
	PhaseInProgress Phase = iota
	PhaseAwaitingSuit
	PhasePlayerWon
	PhaseOpponentWon
)

var phaseNames = [4]string{"in_progress", "awaiting_suit_declaration", "player_won", "opponent_won"}

// IsTerminal is true for the two won phases.
func (p Phase) IsTerminal() bool { return p == PhasePlayerWon || p == PhaseOpponentWon }

func (p Phase) String() string {
	if p > PhaseOpponentWon {
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	if p > PhaseOpponentWon {
		return nil, fmt.Errorf("invalid phase %d", uint8(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// wonPhase returns the terminal phase for a side emptying its hand.
func wonPhase(s Side) Phase {
	if s == SidePlayer {
		return PhasePlayerWon
	}
	return PhaseOpponentWon
}
