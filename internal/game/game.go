// internal/game/game.go
package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyeights/engine"
	"github.com/jason-s-yu/crazyeights/internal/cache"
	"github.com/sirupsen/logrus"
)

// GameEventType names an event sent to the presentation layer.
type GameEventType string

const (
	EventGameState   GameEventType = "game_state"   // State changed after an accepted intent.
	EventGameRestart GameEventType = "game_restart" // A fresh deal replaced the previous game.
	EventPlayerWon   GameEventType = "player_won"   // The human emptied their hand; celebrate.
	EventOpponentWon GameEventType = "opponent_won" // The computer emptied its hand.
)

// GameEvent is broadcast after every accepted transition.
type GameEvent struct {
	Type    GameEventType `json:"type"`
	Version int           `json:"version"`
	State   *View         `json:"state,omitempty"`
}

// ActionType names an intent from the presentation layer.
type ActionType string

const (
	ActionDraw        ActionType = "draw"
	ActionPlay        ActionType = "play"
	ActionDeclareSuit ActionType = "declare_suit"
	ActionRestart     ActionType = "restart"
)

// Action is one intent issued on behalf of the human player.
type Action struct {
	Type   ActionType  `json:"type"`
	CardID uuid.UUID   `json:"cardId,omitempty"`
	Suit   engine.Suit `json:"suit"`
}

// Options configures a Session.
type Options struct {
	// OpponentDelay is the turn-yield pause before the computer moves. Zero
	// makes the computer move inside the intent call that handed it the turn.
	OpponentDelay time.Duration
	// Store receives the latest state after every accepted transition. May be nil.
	Store cache.SnapshotStore
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// NewRand supplies the shuffle source for each deal. Nil uses a
	// time-seeded source.
	NewRand func() *rand.Rand
}

// Session is one human-vs-computer game and its collaborator-side plumbing.
// All access to the state goes through Mu.
type Session struct {
	ID uuid.UUID

	Mu      sync.Mutex
	state   *engine.GameState
	version int // bumped on every accepted transition; stale opponent timers compare against it
	closed  bool

	lastActive time.Time // last accepted transition or client disconnect

	opponentDelay time.Duration
	opponentTimer *time.Timer

	store   cache.SnapshotStore
	log     logrus.FieldLogger
	newRand func() *rand.Rand

	// BroadcastFn receives every event. Called with Mu held.
	BroadcastFn func(ev GameEvent)
	// OnPlayerWon fires once when the human wins. Called with Mu held.
	OnPlayerWon func(sessionID uuid.UUID)
}

// NewSession deals a new game.
func NewSession(opts Options) *Session {
	s := newSession(uuid.New(), opts)
	s.state = engine.NewGame(s.rand())
	s.version = 1
	s.log.WithField("top", s.state.Top().String()).Info("Session created.")
	s.persist()
	return s
}

// ResumeSession wraps a previously stored state, for example after a reconnect
// to a different server process.
func ResumeSession(id uuid.UUID, state *engine.GameState, opts Options) *Session {
	s := newSession(id, opts)
	s.state = state
	s.version = 1
	s.log.WithField("phase", state.Phase).Info("Session resumed.")
	s.Mu.Lock()
	s.scheduleOpponent()
	s.Mu.Unlock()
	return s
}

func newSession(id uuid.UUID, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		ID:            id,
		opponentDelay: opts.OpponentDelay,
		store:         opts.Store,
		log:           logger.WithField("session", id),
		newRand:       opts.NewRand,
		lastActive:    time.Now(),
	}
}

func (s *Session) rand() *rand.Rand {
	if s.newRand == nil {
		return nil
	}
	return s.newRand()
}

// State returns the current snapshot. Snapshots are immutable, so the caller
// may keep it after the lock is released.
func (s *Session) State() *engine.GameState {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.state
}

// Version returns the number of the current state; it grows by one with every
// accepted transition.
func (s *Session) Version() int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.version
}

// LastActive returns when the session last changed state or lost a client.
func (s *Session) LastActive() time.Time {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.lastActive
}

// Touch marks the session as active now.
func (s *Session) Touch() {
	s.Mu.Lock()
	s.lastActive = time.Now()
	s.Mu.Unlock()
}

// Snapshot returns the observer view of the current state.
func (s *Session) Snapshot() View {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.view()
}

// HandleAction dispatches one intent and reports whether it was accepted.
func (s *Session) HandleAction(a Action) bool {
	switch a.Type {
	case ActionDraw:
		return s.RequestDraw()
	case ActionPlay:
		return s.RequestPlay(a.CardID)
	case ActionDeclareSuit:
		return s.RequestDeclareSuit(a.Suit)
	case ActionRestart:
		s.Restart()
		return true
	}
	s.log.WithField("action", a.Type).Warn("Unknown action ignored.")
	return false
}

// RequestDraw draws for the human player.
func (s *Session) RequestDraw() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return false
	}
	return s.apply(string(ActionDraw), s.state.RejectDraw(engine.SidePlayer), s.state.Draw(engine.SidePlayer))
}

// RequestPlay plays cardID from the human player's hand.
func (s *Session) RequestPlay(cardID uuid.UUID) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return false
	}
	return s.apply(string(ActionPlay), s.state.RejectPlay(engine.SidePlayer, cardID), s.state.Play(engine.SidePlayer, cardID))
}

// RequestDeclareSuit resolves the human player's eight.
func (s *Session) RequestDeclareSuit(suit engine.Suit) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return false
	}
	// Only the human declares through this path; the computer declares inside
	// its own move.
	if s.state.Turn != engine.SidePlayer {
		s.log.WithField("intent", ActionDeclareSuit).Debug("Intent ignored: not your turn.")
		return false
	}
	return s.apply(string(ActionDeclareSuit), s.state.RejectDeclareSuit(suit), s.state.DeclareSuit(suit))
}

// Restart throws the current game away and deals a new one. Any pending
// opponent move is cancelled.
func (s *Session) Restart() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return
	}
	s.stopOpponentTimer()
	s.state = engine.NewGame(s.rand())
	s.version++
	s.lastActive = time.Now()
	s.log.WithField("version", s.version).Info("Game restarted.")
	s.persist()
	s.fireEvent(EventGameRestart)
	s.scheduleOpponent()
}

// Close cancels any pending opponent move and rejects further intents.
func (s *Session) Close() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.closed = true
	s.stopOpponentTimer()
}

// fireEvent broadcasts an event carrying the current view.
// Assumes lock is held by caller.
func (s *Session) fireEvent(t GameEventType) {
	if s.BroadcastFn == nil {
		return
	}
	v := s.view()
	s.BroadcastFn(GameEvent{Type: t, Version: s.version, State: &v})
}

// persist writes the current state to the snapshot store.
// Assumes lock is held by caller.
func (s *Session) persist() {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, s.ID, s.state); err != nil {
		s.log.WithError(err).WithField("version", s.version).Error("Failed to save snapshot.")
	}
}
