package engine

import (
	"math/rand/v2"
	"time"
)

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// NewRand returns a PCG source seeded from seed. The same seed always yields
// the same deck order.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewDeck builds the 52 (Suit, Rank) combinations, each with a fresh id, and
// returns them shuffled. A nil r uses a time-seeded source.
func NewDeck(r *rand.Rand) []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for rank := RankAce; rank <= RankKing; rank++ {
			deck = append(deck, NewCard(suit, rank))
		}
	}
	return Shuffle(deck, r)
}

// Shuffle returns a Fisher-Yates permutation of cards. The input is not
// modified.
func Shuffle(cards []Card, r *rand.Rand) []Card {
	if r == nil {
		r = NewRand(uint64(time.Now().UnixNano()))
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
