// Package discovery wires the feed ranker, swipe session, match engine and
// favorites store into the operations the transports expose.
//
// Each viewer owns one session. A swipe locks the session, runs the match
// decision without holding the viewer's mutex, then applies the result only if
// the session generation is unchanged.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobmate/swipe-service/internal/favorites"
	"jobmate/swipe-service/internal/feed"
	"jobmate/swipe-service/internal/logger"
	"jobmate/swipe-service/internal/match"
	"jobmate/swipe-service/internal/model"
	"jobmate/swipe-service/internal/store"
	"jobmate/swipe-service/internal/swipe"
)

// Catalog is the read side of the persistence collaborator plus match inserts.
type Catalog interface {
	FetchViewer(ctx context.Context, viewerID string) (model.Viewer, error)
	FetchJobFeed(ctx context.Context, viewerID string) ([]model.Card, error)
	FetchSeekerFeed(ctx context.Context, viewerID, jobID string) ([]model.Card, error)
	PersistMatch(ctx context.Context, rec model.MatchRecord) error
	MarkNotified(ctx context.Context, matchID string) error
}

// Decider evaluates a swipe.
type Decider interface {
	Decide(ctx context.Context, req match.Request) (match.Result, error)
}

// SessionStore persists session snapshots.
type SessionStore interface {
	LoadSession(ctx context.Context, viewerID string) (store.SessionRecord, bool, error)
	SaveSession(ctx context.Context, viewerID string, rec store.SessionRecord) error
}

// Publisher announces new matches.
type Publisher interface {
	PublishMatch(ctx context.Context, rec model.MatchRecord) error
}

// Deps aggregates the collaborators of a Service.
type Deps struct {
	Catalog   Catalog
	Decider   Decider
	Sessions  SessionStore
	Favorites favorites.Backend
	Publisher Publisher
	Logger    *zap.Logger

	// IdleTTL bounds how long an untouched viewer stays in memory. Zero
	// disables EvictIdle.
	IdleTTL time.Duration
	Now     func() time.Time
}

// View describes the viewer's position in the feed.
type View struct {
	Card         *model.Card `json:"card,omitempty"`
	MatchScore   *int        `json:"matchScore,omitempty"`
	Cursor       int         `json:"cursor"`
	Total        int         `json:"total"`
	Generation   uint64      `json:"generation"`
	State        swipe.State `json:"state"`
	ContextJobID string      `json:"contextJobId,omitempty"`
}

// SwipeResult is the outcome of a swipe. Dropped is set when the gesture was
// ignored because an advance was already in progress or the feed is exhausted.
type SwipeResult struct {
	View      View               `json:"view"`
	Dropped   bool               `json:"dropped"`
	IsMatch   bool               `json:"isMatch"`
	Match     *model.MatchRecord `json:"match,omitempty"`
	Favorited bool               `json:"favorited"`
}

type viewerState struct {
	mu           sync.Mutex
	loaded       bool
	viewer       model.Viewer
	session      *swipe.Session
	contextJobID string
	favorites    *favorites.Store
	lastSeen     time.Time // guarded by Service.mu
	detached     bool      // removed from Service.viewers
}

// Service implements the discovery operations for all viewers.
type Service struct {
	deps   Deps
	logger *zap.Logger

	mu      sync.Mutex
	viewers map[string]*viewerState
}

// NewService returns a configured Service.
func NewService(deps Deps) *Service {
	return &Service{
		deps:    deps,
		logger:  logger.Component(deps.Logger, "discovery"),
		viewers: make(map[string]*viewerState),
	}
}

// Refresh fetches and ranks a new feed and replaces the viewer's session.
// jobID scopes a hirer's seeker feed to one of their jobs.
func (s *Service) Refresh(ctx context.Context, viewerID, jobID string) (View, error) {
	viewer, err := s.deps.Catalog.FetchViewer(ctx, viewerID)
	if err != nil {
		return View{}, err
	}

	var cards []model.Card
	switch viewer.Role {
	case model.RoleSeeker:
		if jobID != "" {
			return View{}, fmt.Errorf("%w: job-scoped feeds are for hirers", model.ErrInvalidRole)
		}
		cards, err = s.deps.Catalog.FetchJobFeed(ctx, viewerID)
	case model.RoleHirer:
		cards, err = s.deps.Catalog.FetchSeekerFeed(ctx, viewerID, jobID)
	default:
		return View{}, fmt.Errorf("%w: %q", model.ErrInvalidRole, viewer.Role)
	}
	if err != nil {
		return View{}, err
	}
	ranked := feed.ForViewer(viewer, cards)

	st, err := s.state(ctx, viewerID)
	if err != nil {
		return View{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.viewer = viewer
	st.contextJobID = jobID
	if st.session == nil {
		st.session = swipe.New(ranked)
	} else {
		st.session.Replace(ranked)
	}
	s.saveSession(ctx, viewerID, st)

	s.logger.Info("feed refreshed",
		zap.String("viewer_id", viewerID),
		zap.String("role", string(viewer.Role)),
		zap.Int("cards", len(ranked)),
		zap.Uint64("generation", st.session.Generation()),
	)
	return st.view(), nil
}

// Current returns the viewer's position, building a feed on first use.
func (s *Service) Current(ctx context.Context, viewerID string) (View, error) {
	st, err := s.state(ctx, viewerID)
	if err != nil {
		return View{}, err
	}

	st.mu.Lock()
	if st.session != nil {
		v := st.view()
		st.mu.Unlock()
		return v, nil
	}
	st.mu.Unlock()

	return s.Refresh(ctx, viewerID, "")
}

// StartOver rewinds the viewer's session to the first card.
func (s *Service) StartOver(ctx context.Context, viewerID string) (View, error) {
	st, err := s.state(ctx, viewerID)
	if err != nil {
		return View{}, err
	}

	st.mu.Lock()
	if st.session == nil {
		st.mu.Unlock()
		return s.Refresh(ctx, viewerID, "")
	}
	defer st.mu.Unlock()

	st.session.Reset()
	s.saveSession(ctx, viewerID, st)
	return st.view(), nil
}

// Swipe processes one gesture on the current card. generation must equal the
// session's generation (zero skips the check). On any error the cursor stays
// put and the card can be swiped again.
func (s *Service) Swipe(ctx context.Context, viewerID string, generation uint64, decision model.Decision) (SwipeResult, error) {
	st, err := s.state(ctx, viewerID)
	if err != nil {
		return SwipeResult{}, err
	}

	st.mu.Lock()
	if st.session == nil {
		st.mu.Unlock()
		return SwipeResult{}, fmt.Errorf("%w: no feed loaded", model.ErrInvalidTransition)
	}
	if generation != 0 && generation != st.session.Generation() {
		st.mu.Unlock()
		return SwipeResult{}, fmt.Errorf("%w: got %d, session is at %d", model.ErrStaleSession, generation, st.session.Generation())
	}

	card, _ := st.session.CurrentCard()
	if err := st.session.BeginAdvance(); err != nil {
		s.logger.Debug("gesture dropped", zap.String("viewer_id", viewerID), zap.Error(err))
		v := st.view()
		st.mu.Unlock()
		return SwipeResult{View: v, Dropped: true}, nil
	}
	issued := st.session.Generation()
	req := match.Request{
		Card:         card,
		Viewer:       st.viewer,
		Decision:     decision,
		ContextJobID: st.contextJobID,
	}
	st.mu.Unlock()

	result, decideErr := s.deps.Decider.Decide(ctx, req)

	res, err := s.apply(ctx, st, viewerID, issued, req, result, decideErr)
	if err != nil {
		return SwipeResult{}, err
	}
	if res.Match != nil {
		s.notify(ctx, *res.Match)
	}
	return res, nil
}

// apply installs a decision result on the session it was issued for.
func (s *Service) apply(
	ctx context.Context,
	st *viewerState,
	viewerID string,
	issued uint64,
	req match.Request,
	result match.Result,
	decideErr error,
) (SwipeResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.session.Generation() != issued {
		s.logger.Info("discarding stale swipe result",
			zap.String("viewer_id", viewerID),
			zap.Uint64("issued", issued),
			zap.Uint64("current", st.session.Generation()),
		)
		return SwipeResult{}, fmt.Errorf("%w: session refreshed during decision", model.ErrStaleSession)
	}

	if decideErr != nil {
		st.session.AbortAdvance()
		return SwipeResult{}, decideErr
	}

	// A failed match insert undoes the favorite added for this swipe.
	var fav *favorites.Store
	favorited := false
	if req.Decision.IsPositive() {
		var err error
		fav, err = st.favoritesStore(ctx, viewerID, s.deps.Favorites)
		if err == nil {
			favorited, err = fav.Add(ctx, req.Card)
		}
		if err != nil {
			st.session.AbortAdvance()
			return SwipeResult{}, err
		}
	}

	if result.IsMatch {
		if err := s.deps.Catalog.PersistMatch(ctx, *result.Match); err != nil {
			if favorited {
				if _, rbErr := fav.Remove(ctx, req.Card.ID); rbErr != nil {
					s.logger.Warn("favorite rollback failed",
						zap.String("viewer_id", viewerID),
						zap.String("card_id", req.Card.ID),
						zap.Error(rbErr),
					)
				}
			}
			st.session.AbortAdvance()
			return SwipeResult{}, err
		}
	}

	st.session.CompleteAdvance(req.Decision)
	s.saveSession(ctx, viewerID, st)

	s.logger.Debug("swipe applied",
		zap.String("viewer_id", viewerID),
		zap.String("card_id", req.Card.ID),
		zap.String("decision", string(req.Decision)),
		zap.Bool("match", result.IsMatch),
	)

	return SwipeResult{
		View:      st.view(),
		IsMatch:   result.IsMatch,
		Match:     result.Match,
		Favorited: favorited,
	}, nil
}

// Favorites lists the viewer's saved cards in insertion order.
func (s *Service) Favorites(ctx context.Context, viewerID string) ([]model.Card, error) {
	st, err := s.state(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	fav, err := st.favoritesStore(ctx, viewerID, s.deps.Favorites)
	if err != nil {
		return nil, err
	}
	return fav.All(), nil
}

// AddFavorite saves card. Saving an existing id is a no-op.
func (s *Service) AddFavorite(ctx context.Context, viewerID string, card model.Card) (bool, error) {
	st, err := s.state(ctx, viewerID)
	if err != nil {
		return false, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	fav, err := st.favoritesStore(ctx, viewerID, s.deps.Favorites)
	if err != nil {
		return false, err
	}
	return fav.Add(ctx, card)
}

// RemoveFavorite deletes a saved card. Absent ids are a no-op.
func (s *Service) RemoveFavorite(ctx context.Context, viewerID, cardID string) (bool, error) {
	st, err := s.state(ctx, viewerID)
	if err != nil {
		return false, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	fav, err := st.favoritesStore(ctx, viewerID, s.deps.Favorites)
	if err != nil {
		return false, err
	}
	return fav.Remove(ctx, cardID)
}

// state returns the viewer's state, restoring the persisted session and
// loading the profile on first access. A failed first load leaves no entry
// behind.
func (s *Service) state(ctx context.Context, viewerID string) (*viewerState, error) {
	for {
		s.mu.Lock()
		st, ok := s.viewers[viewerID]
		if !ok {
			st = &viewerState{}
			s.viewers[viewerID] = st
		}
		st.lastSeen = s.now()
		s.mu.Unlock()

		st.mu.Lock()
		if st.detached {
			// Evicted or abandoned while we waited; start over with a fresh entry.
			st.mu.Unlock()
			continue
		}
		if st.loaded {
			st.mu.Unlock()
			return st, nil
		}
		err := s.load(ctx, viewerID, st)
		if err != nil {
			st.detached = true
			s.mu.Lock()
			if s.viewers[viewerID] == st {
				delete(s.viewers, viewerID)
			}
			s.mu.Unlock()
		}
		st.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

func (s *Service) load(ctx context.Context, viewerID string, st *viewerState) error {
	viewer, err := s.deps.Catalog.FetchViewer(ctx, viewerID)
	if err != nil {
		return err
	}

	rec, found, err := s.deps.Sessions.LoadSession(ctx, viewerID)
	switch {
	case errors.Is(err, store.ErrCorruptSession):
		s.logger.Warn("ignoring corrupt session snapshot", zap.String("viewer_id", viewerID), zap.Error(err))
		found = false
	case err != nil:
		return err
	}
	if found {
		sess, err := swipe.Restore(rec.Snapshot)
		if err != nil {
			s.logger.Warn("ignoring corrupt session snapshot", zap.String("viewer_id", viewerID), zap.Error(err))
		} else {
			st.session = sess
			st.contextJobID = rec.ContextJobID
		}
	}

	st.viewer = viewer
	st.loaded = true
	return nil
}

// EvictIdle drops in-memory state for viewers not seen for IdleTTL. Their
// sessions are restored from the snapshot store on next access. Viewers with
// an advance in flight or a busy mutex are kept. Returns the number evicted.
func (s *Service) EvictIdle() int {
	if s.deps.IdleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.deps.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.viewers {
		if st.lastSeen.After(cutoff) {
			continue
		}
		// Lock order elsewhere is st.mu then s.mu, so never block here.
		if !st.mu.TryLock() {
			continue
		}
		if st.session == nil || !st.session.Locked() {
			st.detached = true
			delete(s.viewers, id)
			n++
		}
		st.mu.Unlock()
	}
	if n > 0 {
		s.logger.Info("evicted idle viewers", zap.Int("evicted", n), zap.Int("remaining", len(s.viewers)))
	}
	return n
}

// ActiveViewers is the number of viewers held in memory.
func (s *Service) ActiveViewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

func (s *Service) now() time.Time {
	if s.deps.Now != nil {
		return s.deps.Now()
	}
	return time.Now()
}

// saveSession persists the snapshot. Failures are logged: the in-memory
// session stays authoritative until the process restarts.
func (s *Service) saveSession(ctx context.Context, viewerID string, st *viewerState) {
	rec := store.SessionRecord{Snapshot: st.session.Snapshot(), ContextJobID: st.contextJobID}
	if err := s.deps.Sessions.SaveSession(ctx, viewerID, rec); err != nil {
		s.logger.Warn("save session snapshot failed", zap.String("viewer_id", viewerID), zap.Error(err))
	}
}

// notify publishes the match event and marks it delivered. The relay retries
// anything left unmarked.
func (s *Service) notify(ctx context.Context, rec model.MatchRecord) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.PublishMatch(ctx, rec); err != nil {
		s.logger.Warn("publish match failed", zap.String("match_id", rec.ID), zap.Error(err))
		return
	}
	if err := s.deps.Catalog.MarkNotified(ctx, rec.ID); err != nil {
		s.logger.Warn("mark match notified failed", zap.String("match_id", rec.ID), zap.Error(err))
	}
}

func (st *viewerState) favoritesStore(ctx context.Context, viewerID string, backend favorites.Backend) (*favorites.Store, error) {
	if st.favorites != nil {
		return st.favorites, nil
	}
	fav, err := favorites.Load(ctx, viewerID, backend)
	if err != nil {
		return nil, err
	}
	st.favorites = fav
	return fav, nil
}

func (st *viewerState) view() View {
	v := View{ContextJobID: st.contextJobID, State: swipe.StateEmpty}
	if st.session == nil {
		return v
	}
	v.Cursor = st.session.Cursor()
	v.Total = st.session.Len()
	v.Generation = st.session.Generation()
	v.State = st.session.State()
	if card, ok := st.session.CurrentCard(); ok {
		v.Card = &card
		if st.viewer.Role == model.RoleSeeker {
			score := feed.Score(card.Tags, st.viewer.Skills)
			v.MatchScore = &score
		}
	}
	return v
}
