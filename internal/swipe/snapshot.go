package swipe

import (
	"fmt"

	"jobmate/swipe-service/internal/model"
)

// Snapshot is the persisted form of a Session. The lock is never persisted.
type Snapshot struct {
	Cards      []model.Card `json:"cards"`
	Cursor     int          `json:"cursor"`
	Generation uint64       `json:"generation"`
}

// Snapshot captures the session for persistence.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{Cards: s.Cards(), Cursor: s.cursor, Generation: s.generation}
}

// Restore rebuilds an unlocked session from a snapshot.
func Restore(snap Snapshot) (*Session, error) {
	if snap.Cursor < 0 || snap.Cursor > len(snap.Cards) {
		return nil, fmt.Errorf("snapshot cursor %d out of range [0,%d]", snap.Cursor, len(snap.Cards))
	}
	cards := make([]model.Card, len(snap.Cards))
	copy(cards, snap.Cards)
	return &Session{cards: cards, cursor: snap.Cursor, generation: snap.Generation}, nil
}
