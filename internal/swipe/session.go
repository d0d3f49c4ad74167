// Package swipe holds the per-viewer card stack and its advance protocol.
//
// States:
//
//	Empty     (len == 0)
//	Ready     (cursor < len) ──beginAdvance──► Ready+locked ──completeAdvance──► Ready | Exhausted
//	                                                    └──abortAdvance──► Ready (same card)
//	Exhausted (cursor == len)
//
// Reset and Replace return to cursor 0 and bump the generation, so any result
// issued under the previous generation can be recognised as stale.
package swipe

import (
	"fmt"

	"jobmate/swipe-service/internal/model"
)

// State is the derived position of a session.
type State string

const (
	StateEmpty     State = "EMPTY"
	StateReady     State = "READY"
	StateExhausted State = "EXHAUSTED"
)

// Session is a single viewer's card stack. It is not safe for concurrent use;
// callers serialise access.
type Session struct {
	cards      []model.Card
	cursor     int
	locked     bool
	generation uint64
}

// New returns a session over cards at generation 1.
func New(cards []model.Card) *Session {
	s := &Session{}
	s.Replace(cards)
	return s
}

// State reports Empty, Ready or Exhausted.
func (s *Session) State() State {
	switch {
	case len(s.cards) == 0:
		return StateEmpty
	case s.cursor >= len(s.cards):
		return StateExhausted
	default:
		return StateReady
	}
}

// CurrentCard returns the card under the cursor. It still returns that card
// while an advance is in progress.
func (s *Session) CurrentCard() (model.Card, bool) {
	if s.State() != StateReady {
		return model.Card{}, false
	}
	return s.cards[s.cursor], true
}

// Cursor is the index of the current card.
func (s *Session) Cursor() int { return s.cursor }

// Len is the number of cards in the stack.
func (s *Session) Len() int { return len(s.cards) }

// Locked reports whether an advance is in progress.
func (s *Session) Locked() bool { return s.locked }

// Generation identifies the current card stack.
func (s *Session) Generation() uint64 { return s.generation }

// Cards returns a copy of the stack.
func (s *Session) Cards() []model.Card {
	out := make([]model.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// BeginAdvance locks the session for the current card. It fails with
// ErrInvalidTransition when already locked or not Ready, leaving state untouched.
func (s *Session) BeginAdvance() error {
	if s.locked {
		return fmt.Errorf("%w: advance already in progress", model.ErrInvalidTransition)
	}
	if st := s.State(); st != StateReady {
		return fmt.Errorf("%w: cannot advance from %s", model.ErrInvalidTransition, st)
	}
	s.locked = true
	return nil
}

// CompleteAdvance moves the cursor forward by exactly one and unlocks. The
// decision does not influence the move. Without a matching BeginAdvance it is
// a no-op and returns false.
func (s *Session) CompleteAdvance(model.Decision) bool {
	if !s.locked {
		return false
	}
	s.cursor++
	s.locked = false
	return true
}

// AbortAdvance unlocks without moving, so the current card is presented again.
func (s *Session) AbortAdvance() {
	s.locked = false
}

// Reset returns to the first card of the same stack.
func (s *Session) Reset() {
	s.cursor = 0
	s.locked = false
	s.generation++
}

// Replace installs a new stack at cursor 0.
func (s *Session) Replace(cards []model.Card) {
	s.cards = make([]model.Card, len(cards))
	copy(s.cards, cards)
	s.cursor = 0
	s.locked = false
	s.generation++
}
