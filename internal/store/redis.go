package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/swipe-service/internal/model"
	"jobmate/swipe-service/internal/swipe"
)

const (
	favoritesKeyPrefix = "swipe:favorites:"
	sessionKeyPrefix   = "swipe:session:"
)

// ErrCorruptSession is returned by LoadSession when the stored snapshot does
// not decode. Callers may treat it as no session.
var ErrCorruptSession = errors.New("corrupt session snapshot")

// Favorites persists each user's favorites as one JSON document.
type Favorites struct {
	rdb *redis.Client
}

// NewFavorites returns a Redis-backed favorites backend.
func NewFavorites(rdb *redis.Client) *Favorites {
	return &Favorites{rdb: rdb}
}

// LoadFavorites returns the saved cards, or an empty slice for a new user.
func (f *Favorites) LoadFavorites(ctx context.Context, userID string) ([]model.Card, error) {
	raw, err := f.rdb.Get(ctx, favoritesKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.Card{}, nil
	}
	if err != nil {
		return nil, unavailable("get favorites", err)
	}
	var cards []model.Card
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, unavailable("decode favorites for "+userID, err)
	}
	return cards, nil
}

// SaveFavorites replaces the whole collection.
func (f *Favorites) SaveFavorites(ctx context.Context, userID string, cards []model.Card) error {
	raw, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := f.rdb.Set(ctx, favoritesKeyPrefix+userID, raw, 0).Err(); err != nil {
		return unavailable("set favorites", err)
	}
	return nil
}

// SessionRecord is a persisted swipe session plus the feed scope it was built for.
type SessionRecord struct {
	Snapshot     swipe.Snapshot `json:"snapshot"`
	ContextJobID string         `json:"contextJobId,omitempty"`
}

// Sessions stores swipe session snapshots with a TTL.
type Sessions struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessions returns a Redis-backed session store.
func NewSessions(rdb *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{rdb: rdb, ttl: ttl}
}

// LoadSession returns the stored record, or false when none exists.
func (s *Sessions) LoadSession(ctx context.Context, viewerID string) (SessionRecord, bool, error) {
	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+viewerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, unavailable("get session", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return SessionRecord{}, false, fmt.Errorf("%w for %s: %v", ErrCorruptSession, viewerID, err)
	}
	return rec, true, nil
}

// SaveSession writes the record and refreshes its TTL.
func (s *Sessions) SaveSession(ctx context.Context, viewerID string, rec SessionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+viewerID, raw, s.ttl).Err(); err != nil {
		return unavailable("set session", err)
	}
	return nil
}

// MatchEvent is published whenever a match is created.
type MatchEvent struct {
	Type              string    `json:"type"`
	MatchID           string    `json:"matchId"`
	HirerID           string    `json:"hirerId"`
	SeekerID          string    `json:"seekerId"`
	HirerCompanyName  string    `json:"hirerCompanyName"`
	SeekerDisplayName string    `json:"seekerDisplayName"`
	ContextJobID      string    `json:"contextJobId,omitempty"`
	ContextJobTitle   string    `json:"contextJobTitle,omitempty"`
	MatchedAt         time.Time `json:"matchedAt"`
}

// EventMatchCreated is the event type of MatchEvent.
const EventMatchCreated = "EVENT_MATCH_CREATED"

// Publisher publishes match events on a Redis channel.
type Publisher struct {
	rdb     *redis.Client
	channel string
}

// NewPublisher returns a publisher for channel.
func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

// PublishMatch sends the match event.
func (p *Publisher) PublishMatch(ctx context.Context, rec model.MatchRecord) error {
	event, err := json.Marshal(MatchEvent{
		Type:              EventMatchCreated,
		MatchID:           rec.ID,
		HirerID:           rec.HirerID,
		SeekerID:          rec.SeekerID,
		HirerCompanyName:  rec.HirerCompanyName,
		SeekerDisplayName: rec.SeekerDisplayName,
		ContextJobID:      rec.ContextJobID,
		ContextJobTitle:   rec.ContextJobTitle,
		MatchedAt:         rec.MatchTimestamp,
	})
	if err != nil {
		return fmt.Errorf("encode match event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, event).Err(); err != nil {
		return unavailable("publish "+EventMatchCreated, err)
	}
	return nil
}
