// Package favorites keeps a viewer's saved cards as an insertion-ordered set
// keyed by card id. Every mutation flushes the whole collection.
package favorites

import (
	"context"
	"errors"
	"fmt"

	"jobmate/swipe-service/internal/model"
)

// Backend persists favorites outside process lifetime.
type Backend interface {
	LoadFavorites(ctx context.Context, userID string) ([]model.Card, error)
	SaveFavorites(ctx context.Context, userID string, cards []model.Card) error
}

// Store is one user's favorites. It is not safe for concurrent use.
type Store struct {
	userID  string
	backend Backend
	items   []model.Card
}

// Load reads the persisted collection, dropping duplicate ids.
func Load(ctx context.Context, userID string, backend Backend) (*Store, error) {
	cards, err := backend.LoadFavorites(ctx, userID)
	if err != nil {
		return nil, persistenceErr("load favorites", err)
	}
	s := &Store{userID: userID, backend: backend, items: make([]model.Card, 0, len(cards))}
	for _, c := range cards {
		if !s.Contains(c.ID) {
			s.items = append(s.items, c)
		}
	}
	return s, nil
}

// Add appends card unless its id is already present. Returns whether the
// collection changed. On flush failure the collection is left as before.
func (s *Store) Add(ctx context.Context, card model.Card) (bool, error) {
	if s.Contains(card.ID) {
		return false, nil
	}
	next := make([]model.Card, len(s.items), len(s.items)+1)
	copy(next, s.items)
	next = append(next, card)
	if err := s.flush(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the card with id. Absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	next := make([]model.Card, 0, len(s.items)-1)
	next = append(next, s.items[:idx]...)
	next = append(next, s.items[idx+1:]...)
	if err := s.flush(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Contains reports whether id is saved.
func (s *Store) Contains(id string) bool { return s.indexOf(id) >= 0 }

// All returns the saved cards in insertion order.
func (s *Store) All() []model.Card {
	out := make([]model.Card, len(s.items))
	copy(out, s.items)
	return out
}

// Len is the number of saved cards.
func (s *Store) Len() int { return len(s.items) }

func (s *Store) indexOf(id string) int {
	for i, c := range s.items {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) flush(ctx context.Context, next []model.Card) error {
	if err := s.backend.SaveFavorites(ctx, s.userID, next); err != nil {
		return persistenceErr("save favorites", err)
	}
	s.items = next
	return nil
}

func persistenceErr(op string, err error) error {
	if errors.Is(err, model.ErrPersistenceUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, model.ErrPersistenceUnavailable, err)
}
