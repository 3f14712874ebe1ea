// internal/game/game_test.go
package game

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyeights/engine"
	"github.com/jason-s-yu/crazyeights/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster captures game events for testing assertions.
type mockBroadcaster struct {
	mu        sync.Mutex
	allEvents []GameEvent
	wins      int
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) onPlayerWon(uuid.UUID) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.wins++
}

func (mb *mockBroadcaster) types() []GameEventType {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]GameEventType, len(mb.allEvents))
	for i, ev := range mb.allEvents {
		out[i] = ev.Type
	}
	return out
}

func (mb *mockBroadcaster) count() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.allEvents)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testOptions(delay time.Duration) Options {
	return Options{
		OpponentDelay: delay,
		Logger:        quietLogger(),
		NewRand:       func() *rand.Rand { return engine.NewRand(42) },
	}
}

// attach wires a mock broadcaster into s.
func attach(s *Session) *mockBroadcaster {
	mb := &mockBroadcaster{}
	s.Mu.Lock()
	s.BroadcastFn = mb.broadcastFn
	s.OnPlayerWon = mb.onPlayerWon
	s.Mu.Unlock()
	return mb
}

// tableState builds an in-progress state with the given hands and top card;
// every other card goes to the draw pile.
func tableState(t *testing.T, player, opponent []engine.Card, top engine.Card, turn engine.Side) *engine.GameState {
	t.Helper()
	used := map[[2]uint8]bool{}
	for _, c := range append(append(append([]engine.Card{}, player...), opponent...), top) {
		used[[2]uint8{uint8(c.Suit), uint8(c.Rank)}] = true
	}
	var draw []engine.Card
	for _, s := range engine.Suits {
		for r := engine.RankAce; r <= engine.RankKing; r++ {
			if !used[[2]uint8{uint8(s), uint8(r)}] {
				draw = append(draw, engine.NewCard(s, r))
			}
		}
	}
	g := &engine.GameState{
		DrawPile:     draw,
		PlayerHand:   player,
		OpponentHand: opponent,
		DiscardPile:  []engine.Card{top},
		ActiveSuit:   top.Suit,
		ActiveRank:   top.Rank,
		Turn:         turn,
		Phase:        engine.PhaseInProgress,
	}
	require.NoError(t, g.Validate())
	return g
}

// TestNewSession verifies the initial deal, view and stored snapshot.
func TestNewSession(t *testing.T) {
	store := cache.NewMemoryStore(0)
	opts := testOptions(0)
	opts.Store = store
	s := NewSession(opts)

	assert.NotEqual(t, uuid.Nil, s.ID)
	v := s.Snapshot()
	assert.Equal(t, 1, v.Version)
	assert.Len(t, v.PlayerHand, engine.HandSize)
	assert.Equal(t, engine.HandSize, v.OpponentCount)
	assert.Equal(t, engine.DeckSize-2*engine.HandSize-1, v.DrawCount)
	assert.Equal(t, engine.SidePlayer, v.Turn)
	assert.Equal(t, engine.PhaseInProgress, v.Phase)

	stored, err := store.Load(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.State().PlayerHand, stored.PlayerHand)
}

// TestViewMarksPlayableCards verifies the playable flag matches the engine.
func TestViewMarksPlayableCards(t *testing.T) {
	s := NewSession(testOptions(0))
	g := s.State()
	for _, c := range s.Snapshot().PlayerHand {
		assert.Equal(t, engine.IsPlayable(engine.Card{Suit: c.Suit, Rank: c.Rank}, g.ActiveSuit, g.ActiveRank), c.Playable)
	}
}

// TestRejectedIntentChangesNothing verifies an illegal intent emits nothing.
func TestRejectedIntentChangesNothing(t *testing.T) {
	top := engine.NewCard(engine.SuitHearts, engine.RankNine)
	c2 := engine.NewCard(engine.SuitClubs, engine.RankTwo)
	state := tableState(t, []engine.Card{c2}, []engine.Card{engine.NewCard(engine.SuitSpades, engine.RankTwo)}, top, engine.SidePlayer)
	s := ResumeSession(uuid.New(), state, testOptions(0))
	mb := attach(s)

	assert.False(t, s.RequestPlay(c2.ID))
	assert.False(t, s.RequestPlay(uuid.New()))
	assert.False(t, s.RequestDeclareSuit(engine.SuitClubs))
	assert.Same(t, state, s.State())
	assert.Equal(t, 1, s.Snapshot().Version)
	assert.Zero(t, mb.count())
}

// TestDrawRunsOpponentImmediately verifies that with no delay the computer
// answers inside the same intent call.
func TestDrawRunsOpponentImmediately(t *testing.T) {
	top := engine.NewCard(engine.SuitHearts, engine.RankNine)
	h3 := engine.NewCard(engine.SuitHearts, engine.RankThree)
	state := tableState(t,
		[]engine.Card{engine.NewCard(engine.SuitClubs, engine.RankTwo)},
		[]engine.Card{h3, engine.NewCard(engine.SuitSpades, engine.RankTwo)},
		top, engine.SidePlayer)
	s := ResumeSession(uuid.New(), state, testOptions(0))
	mb := attach(s)

	require.True(t, s.RequestDraw())

	g := s.State()
	assert.Equal(t, engine.SidePlayer, g.Turn)
	assert.Equal(t, h3, g.Top(), "opponent should have played 3♥")
	assert.Len(t, g.PlayerHand, 2)
	assert.Equal(t, []GameEventType{EventGameState, EventGameState}, mb.types())
	assert.Equal(t, 3, s.Snapshot().Version)
	assert.False(t, s.OpponentPending())
}

// TestPlayerWinSignal verifies the celebratory signal fires once and the game
// then ignores intents.
func TestPlayerWinSignal(t *testing.T) {
	top := engine.NewCard(engine.SuitHearts, engine.RankNine)
	h5 := engine.NewCard(engine.SuitHearts, engine.RankFive)
	state := tableState(t, []engine.Card{h5}, []engine.Card{engine.NewCard(engine.SuitSpades, engine.RankTwo)}, top, engine.SidePlayer)
	s := ResumeSession(uuid.New(), state, testOptions(0))
	mb := attach(s)

	require.True(t, s.RequestPlay(h5.ID))

	assert.Equal(t, engine.PhasePlayerWon, s.State().Phase)
	assert.Equal(t, []GameEventType{EventGameState, EventPlayerWon}, mb.types())
	assert.Equal(t, 1, mb.wins)

	assert.False(t, s.RequestDraw())
	assert.False(t, s.RequestDeclareSuit(engine.SuitClubs))
	assert.Equal(t, 1, mb.wins)
}

// TestOpponentWinEvent verifies the computer's win is broadcast without the
// celebratory callback.
func TestOpponentWinEvent(t *testing.T) {
	top := engine.NewCard(engine.SuitHearts, engine.RankNine)
	h3 := engine.NewCard(engine.SuitHearts, engine.RankThree)
	state := tableState(t, []engine.Card{engine.NewCard(engine.SuitClubs, engine.RankTwo)}, []engine.Card{h3}, top, engine.SidePlayer)
	s := ResumeSession(uuid.New(), state, testOptions(0))
	mb := attach(s)

	require.True(t, s.RequestDraw())
	assert.Equal(t, engine.PhaseOpponentWon, s.State().Phase)
	assert.Equal(t, []GameEventType{EventGameState, EventGameState, EventOpponentWon}, mb.types())
	assert.Zero(t, mb.wins)
}

// TestWildThenDeclare verifies the opponent waits for the human's suit.
func TestWildThenDeclare(t *testing.T) {
	top := engine.NewCard(engine.SuitHearts, engine.RankNine)
	s8 := engine.NewCard(engine.SuitSpades, engine.RankEight)
	c2 := engine.NewCard(engine.SuitClubs, engine.RankTwo)
	c4 := engine.NewCard(engine.SuitClubs, engine.RankFour)
	state := tableState(t, []engine.Card{s8, c2}, []engine.Card{c4, engine.NewCard(engine.SuitDiamonds, engine.RankTwo)}, top, engine.SidePlayer)
	s := ResumeSession(uuid.New(), state, testOptions(0))
	attach(s)

	require.True(t, s.RequestPlay(s8.ID))
	require.Equal(t, engine.PhaseAwaitingSuit, s.State().Phase)
	assert.Equal(t, engine.SidePlayer, s.State().Turn)
	assert.False(t, s.RequestDraw())

	require.True(t, s.RequestDeclareSuit(engine.SuitClubs))
	g := s.State()
	assert.Equal(t, c4, g.Top(), "opponent follows the declared suit")
	assert.Equal(t, engine.SidePlayer, g.Turn)
}

// TestDelayedOpponent verifies the computer moves after the turn-yield delay.
func TestDelayedOpponent(t *testing.T) {
	s := NewSession(testOptions(20 * time.Millisecond))
	attach(s)

	require.True(t, s.RequestDraw())
	assert.Equal(t, engine.SideOpponent, s.State().Turn)
	assert.True(t, s.OpponentPending())

	require.Eventually(t, func() bool {
		return s.State().Turn == engine.SidePlayer
	}, time.Second, 5*time.Millisecond)
	assert.False(t, s.OpponentPending())
}

// TestRestartCancelsPendingOpponent verifies a restart drops the scheduled
// computer move.
func TestRestartCancelsPendingOpponent(t *testing.T) {
	s := NewSession(testOptions(50 * time.Millisecond))
	mb := attach(s)

	require.True(t, s.RequestDraw())
	require.True(t, s.OpponentPending())

	s.Restart()
	fresh := s.State()
	assert.False(t, s.OpponentPending())
	assert.Equal(t, engine.SidePlayer, fresh.Turn)
	assert.Len(t, fresh.PlayerHand, engine.HandSize)

	time.Sleep(120 * time.Millisecond)
	assert.Same(t, fresh, s.State())
	assert.Equal(t, []GameEventType{EventGameState, EventGameRestart}, mb.types())
}

// TestStaleTimerIgnored verifies a timer that fires after the version moved
// on does nothing.
func TestStaleTimerIgnored(t *testing.T) {
	s := NewSession(testOptions(time.Hour))
	require.True(t, s.RequestDraw())

	s.Mu.Lock()
	before := s.state
	s.version++ // as if another transition had been committed
	s.Mu.Unlock()

	// Fire the captured callback directly instead of waiting an hour.
	s.Mu.Lock()
	timer := s.opponentTimer
	s.Mu.Unlock()
	require.NotNil(t, timer)
	require.True(t, timer.Reset(time.Millisecond))

	time.Sleep(50 * time.Millisecond)
	assert.Same(t, before, s.State())
	s.Close()
}

// TestCloseRejectsIntents verifies a closed session accepts nothing.
func TestCloseRejectsIntents(t *testing.T) {
	s := NewSession(testOptions(0))
	s.Close()
	before := s.State()
	assert.False(t, s.RequestDraw())
	s.Restart()
	assert.Same(t, before, s.State())
}

// TestHandleAction verifies intent dispatch.
func TestHandleAction(t *testing.T) {
	s := NewSession(testOptions(0))
	assert.True(t, s.HandleAction(Action{Type: ActionDraw}))
	assert.True(t, s.HandleAction(Action{Type: ActionRestart}))
	assert.False(t, s.HandleAction(Action{Type: "shuffle"}))
	assert.False(t, s.HandleAction(Action{Type: ActionPlay, CardID: uuid.New()}))
}

// TestVersionCountsTransitions verifies Version is safe to read while intents
// run and counts each accepted transition.
func TestVersionCountsTransitions(t *testing.T) {
	s := NewSession(testOptions(0))
	assert.Equal(t, 1, s.Version())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = s.Version()
		}
	}()
	require.True(t, s.RequestDraw())
	wg.Wait()

	// The draw and the computer's reply.
	assert.Equal(t, 3, s.Version())
	assert.False(t, s.RequestPlay(uuid.New()))
	assert.Equal(t, 3, s.Version())
}
