// Package match turns a positive swipe into a probabilistic match record.
//
// The engine does not check for mutual interest: it simulates the other party
// with a single weighted draw.
package match

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobmate/swipe-service/internal/feed"
	"jobmate/swipe-service/internal/model"
)

const (
	// BaseProbability applies to every positive swipe without a skill signal.
	BaseProbability = 0.3

	skillFloor = 0.2
	skillSpan  = 0.6
)

// Resolver looks up swiped entities in the catalogue.
type Resolver interface {
	ResolveEntity(ctx context.Context, id string, kind model.Kind) (model.Entity, error)
}

// Rand is the source of the match draw.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Request carries everything one decision needs. ContextJobID is set when a
// hirer swipes inside a job-scoped feed.
type Request struct {
	Card         model.Card
	Viewer       model.Viewer
	Decision     model.Decision
	ContextJobID string
}

// Result is the outcome of Decide. Match is non-nil iff IsMatch.
type Result struct {
	IsMatch     bool
	Probability float64
	Match       *model.MatchRecord
}

// Engine decides matches.
type Engine struct {
	resolver Resolver
	rand     Rand
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand replaces the random source.
func WithRand(r Rand) Option { return func(e *Engine) { e.rand = r } }

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDGenerator replaces the match id generator.
func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

// NewEngine constructs an Engine backed by resolver.
func NewEngine(resolver Resolver, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		resolver: resolver,
		rand:     globalRand{},
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates one swipe. A pass returns immediately without drawing.
// It fails with ErrInvalidRole when the viewer cannot act on the card kind and
// with ErrNotFound when the card cannot be resolved.
func (e *Engine) Decide(ctx context.Context, req Request) (Result, error) {
	if !req.Decision.IsPositive() {
		return Result{}, nil
	}

	want, err := req.Viewer.Role.FeedKind()
	if err != nil {
		return Result{}, err
	}
	if req.Card.Kind != want {
		return Result{}, fmt.Errorf("%w: %s cannot swipe on %s", model.ErrInvalidRole, req.Viewer.Role, req.Card.Kind)
	}

	entity, err := e.resolver.ResolveEntity(ctx, req.Card.ID, req.Card.Kind)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s %s: %w", req.Card.Kind, req.Card.ID, err)
	}

	p := Probability(req.Viewer, entity)
	u := e.rand.Float64()

	e.logger.Debug("match draw",
		zap.String("viewer_id", req.Viewer.ID),
		zap.String("card_id", req.Card.ID),
		zap.String("decision", string(req.Decision)),
		zap.Float64("probability", p),
		zap.Float64("draw", u),
	)

	if u >= p {
		return Result{Probability: p}, nil
	}

	record, err := e.buildRecord(ctx, req, entity)
	if err != nil {
		return Result{}, err
	}
	return Result{IsMatch: true, Probability: p, Match: record}, nil
}

// Probability is the chance a positive swipe becomes a match. A seeker swiping
// a job with required skills gets 0.2 + 0.6 * overlap; everything else gets
// BaseProbability.
func Probability(viewer model.Viewer, entity model.Entity) float64 {
	job, ok := entity.(*model.JobRecord)
	if !ok || viewer.Role != model.RoleSeeker {
		return BaseProbability
	}
	matching, required := feed.Overlap(job.RequiredSkills, viewer.Skills)
	if required == 0 {
		return BaseProbability
	}
	return skillFloor + skillSpan*float64(matching)/float64(required)
}

func (e *Engine) buildRecord(ctx context.Context, req Request, entity model.Entity) (*model.MatchRecord, error) {
	rec := &model.MatchRecord{
		ID:             e.newID(),
		MatchTimestamp: e.now(),
	}

	switch ent := entity.(type) {
	case *model.JobRecord:
		if req.Viewer.Role != model.RoleSeeker {
			return nil, fmt.Errorf("%w: %s cannot match a job", model.ErrInvalidRole, req.Viewer.Role)
		}
		rec.HirerID = ent.HirerID
		rec.HirerCompanyName = ent.CompanyName
		rec.SeekerID = req.Viewer.ID
		rec.SeekerDisplayName = req.Viewer.DisplayName
		rec.ContextJobID = ent.ID
		rec.ContextJobTitle = ent.Title

	case *model.SeekerRecord:
		if req.Viewer.Role != model.RoleHirer {
			return nil, fmt.Errorf("%w: %s cannot match a seeker", model.ErrInvalidRole, req.Viewer.Role)
		}
		rec.HirerID = req.Viewer.ID
		rec.HirerCompanyName = req.Viewer.CompanyName
		rec.SeekerID = ent.ID
		rec.SeekerDisplayName = ent.DisplayName
		if req.ContextJobID != "" {
			job, err := e.resolveJob(ctx, req.ContextJobID)
			if err != nil {
				return nil, err
			}
			rec.ContextJobID = job.ID
			rec.ContextJobTitle = job.Title
		}

	default:
		return nil, fmt.Errorf("%w: unsupported entity %T", model.ErrInvalidRole, entity)
	}

	return rec, nil
}

func (e *Engine) resolveJob(ctx context.Context, id string) (*model.JobRecord, error) {
	ent, err := e.resolver.ResolveEntity(ctx, id, model.KindJob)
	if err != nil {
		return nil, fmt.Errorf("resolve context job %s: %w", id, err)
	}
	job, ok := ent.(*model.JobRecord)
	if !ok {
		return nil, fmt.Errorf("%w: context %s is not a job", model.ErrNotFound, id)
	}
	return job, nil
}
