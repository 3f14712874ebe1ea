// internal/game/engine_adapter.go
package game

import (
	"time"

	"github.com/jason-s-yu/crazyeights/engine"
	"github.com/sirupsen/logrus"
)

// apply installs next as the current state if the engine accepted the intent.
// reason is the engine's explanation when it did not.
// Assumes lock is held by caller.
func (s *Session) apply(intent string, reason engine.Rejection, next *engine.GameState) bool {
	if next == s.state {
		s.log.WithFields(logrus.Fields{"intent": intent, "reason": string(reason)}).Debug("Intent ignored.")
		return false
	}
	s.commit(intent, next)
	s.scheduleOpponent()
	return true
}

// commit records an accepted transition and notifies the collaborator.
// Assumes lock is held by caller.
func (s *Session) commit(intent string, next *engine.GameState) {
	s.stopOpponentTimer()
	s.state = next
	s.version++
	s.lastActive = time.Now()

	s.log.WithFields(logrus.Fields{
		"intent":  intent,
		"version": s.version,
		"turn":    next.Turn,
		"phase":   next.Phase,
	}).Debug(next.LastEvent)

	s.persist()
	s.fireEvent(EventGameState)

	switch next.Phase {
	case engine.PhasePlayerWon:
		s.log.WithField("version", s.version).Info("Player won.")
		s.fireEvent(EventPlayerWon)
		if s.OnPlayerWon != nil {
			s.OnPlayerWon(s.ID)
		}
	case engine.PhaseOpponentWon:
		s.log.WithField("version", s.version).Info("Opponent won.")
		s.fireEvent(EventOpponentWon)
	}
}

// scheduleOpponent arranges the computer's move when the turn is its own.
// A timer captures the current version; if anything is committed, or the game
// is restarted or closed before it fires, the move is dropped.
// Assumes lock is held by caller.
func (s *Session) scheduleOpponent() {
	s.stopOpponentTimer()
	if s.closed || s.state.Phase != engine.PhaseInProgress || s.state.Turn != engine.SideOpponent {
		return
	}
	if s.opponentDelay <= 0 {
		s.runOpponent()
		return
	}

	expected := s.version
	s.opponentTimer = time.AfterFunc(s.opponentDelay, func() {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		if s.closed || s.version != expected {
			s.log.WithField("expected", expected).Debug("Stale opponent move dropped.")
			return
		}
		s.opponentTimer = nil
		s.runOpponent()
	})
}

// runOpponent computes and commits the computer's move.
// Assumes lock is held by caller.
func (s *Session) runOpponent() {
	next := engine.PlayOpponentTurn(s.state)
	if next == s.state {
		return
	}
	// The computer's move always ends its turn.
	s.commit("opponent", next)
}

// stopOpponentTimer cancels a pending opponent move.
// Assumes lock is held by caller.
func (s *Session) stopOpponentTimer() {
	if s.opponentTimer != nil {
		s.opponentTimer.Stop()
		s.opponentTimer = nil
	}
}

// OpponentPending reports whether a delayed opponent move is scheduled.
func (s *Session) OpponentPending() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.opponentTimer != nil
}
