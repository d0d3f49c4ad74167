package match_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobmate/swipe-service/internal/match"
	"jobmate/swipe-service/internal/model"
)

type stubRand struct {
	value float64
	calls int
}

func (s *stubRand) Float64() float64 {
	s.calls++
	return s.value
}

type fakeResolver struct {
	entities map[string]model.Entity
	err      error
	calls    int
}

func (f *fakeResolver) ResolveEntity(_ context.Context, id string, kind model.Kind) (model.Entity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.entities[id]
	if !ok || e.EntityKind() != kind {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return e, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(res match.Resolver, r match.Rand) *match.Engine {
	return match.NewEngine(res, zap.NewNop(),
		match.WithRand(r),
		match.WithClock(func() time.Time { return fixedNow }),
		match.WithIDGenerator(func() string { return "m-1" }),
	)
}

func catalogue() *fakeResolver {
	return &fakeResolver{entities: map[string]model.Entity{
		"job-abc": &model.JobRecord{
			ID: "job-abc", HirerID: "h1", Title: "Backend Engineer", CompanyName: "Acme",
			RequiredSkills: model.NewSkillSet("A", "B", "C"),
		},
		"job-open": &model.JobRecord{ID: "job-open", HirerID: "h1", Title: "Generalist", CompanyName: "Acme"},
		"seeker-1": &model.SeekerRecord{ID: "seeker-1", DisplayName: "Sam", KeySkills: model.NewSkillSet("A")},
	}}
}

var (
	seeker = model.Viewer{ID: "s9", Role: model.RoleSeeker, DisplayName: "Alex", Skills: model.NewSkillSet("A", "B")}
	hirer  = model.Viewer{ID: "h1", Role: model.RoleHirer, DisplayName: "Hana", CompanyName: "Acme"}
)

// ── Pass never draws ───────────────────────────────────────────────────────

func TestDecide_PassNeverMatchesAndNeverDraws(t *testing.T) {
	r := &stubRand{value: 0}
	res := catalogue()
	e := newEngine(res, r)

	got, err := e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "job-abc", Kind: model.KindJob},
		Viewer:   seeker,
		Decision: model.DecisionPass,
	})
	require.NoError(t, err)
	assert.False(t, got.IsMatch)
	assert.Nil(t, got.Match)
	assert.Equal(t, 0, r.calls)
	assert.Equal(t, 0, res.calls)
}

// ── Base probability scenario ──────────────────────────────────────────────

func TestDecide_BaseProbabilityLikeMatches(t *testing.T) {
	r := &stubRand{value: 0.25}
	e := newEngine(catalogue(), r)

	got, err := e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "seeker-1", Kind: model.KindSeeker},
		Viewer:   hirer,
		Decision: model.DecisionLike,
	})
	require.NoError(t, err)
	assert.True(t, got.IsMatch)
	assert.InDelta(t, 0.3, got.Probability, 1e-9)
	require.NotNil(t, got.Match)
	assert.Equal(t, model.MatchRecord{
		ID:                "m-1",
		HirerID:           "h1",
		SeekerID:          "seeker-1",
		HirerCompanyName:  "Acme",
		SeekerDisplayName: "Sam",
		MatchTimestamp:    fixedNow,
	}, *got.Match)

	got, err = e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "seeker-1", Kind: model.KindSeeker},
		Viewer:   hirer,
		Decision: model.DecisionPass,
	})
	require.NoError(t, err)
	assert.False(t, got.IsMatch)
}

func TestDecide_DrawAtProbabilityIsNoMatch(t *testing.T) {
	e := newEngine(catalogue(), &stubRand{value: 0.3})
	got, err := e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "seeker-1", Kind: model.KindSeeker},
		Viewer:   hirer,
		Decision: model.DecisionSuperLike,
	})
	require.NoError(t, err)
	assert.False(t, got.IsMatch)
	assert.Nil(t, got.Match)
}

// ── Skill-weighted probability ─────────────────────────────────────────────

func TestProbability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		viewer model.Viewer
		entity model.Entity
		expect float64
	}{
		{
			name:   "seeker full overlap",
			viewer: model.Viewer{Role: model.RoleSeeker, Skills: model.NewSkillSet("A")},
			entity: &model.JobRecord{RequiredSkills: model.NewSkillSet("A")},
			expect: 0.8,
		},
		{
			name:   "seeker no overlap",
			viewer: model.Viewer{Role: model.RoleSeeker, Skills: model.NewSkillSet("Z")},
			entity: &model.JobRecord{RequiredSkills: model.NewSkillSet("A")},
			expect: 0.2,
		},
		{
			name:   "seeker two of three",
			viewer: model.Viewer{Role: model.RoleSeeker, Skills: model.NewSkillSet("A", "B")},
			entity: &model.JobRecord{RequiredSkills: model.NewSkillSet("A", "B", "C")},
			expect: 0.6,
		},
		{
			name:   "job without required skills keeps base",
			viewer: model.Viewer{Role: model.RoleSeeker, Skills: model.NewSkillSet("A")},
			entity: &model.JobRecord{},
			expect: match.BaseProbability,
		},
		{
			name:   "hirer swiping seeker keeps base",
			viewer: model.Viewer{Role: model.RoleHirer, Skills: model.NewSkillSet("A")},
			entity: &model.SeekerRecord{KeySkills: model.NewSkillSet("A")},
			expect: match.BaseProbability,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.expect, match.Probability(tt.viewer, tt.entity), 1e-9)
		})
	}
}

func TestDecide_SeekerMatchCarriesJobContext(t *testing.T) {
	e := newEngine(catalogue(), &stubRand{value: 0.59})

	got, err := e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "job-abc", Kind: model.KindJob},
		Viewer:   seeker,
		Decision: model.DecisionLike,
	})
	require.NoError(t, err)
	require.True(t, got.IsMatch)
	assert.Equal(t, "h1", got.Match.HirerID)
	assert.Equal(t, "s9", got.Match.SeekerID)
	assert.Equal(t, "Acme", got.Match.HirerCompanyName)
	assert.Equal(t, "Alex", got.Match.SeekerDisplayName)
	assert.Equal(t, "job-abc", got.Match.ContextJobID)
	assert.Equal(t, "Backend Engineer", got.Match.ContextJobTitle)
}

func TestDecide_SuperLikeSameAsLikeForOpenJob(t *testing.T) {
	for _, d := range []model.Decision{model.DecisionLike, model.DecisionSuperLike} {
		e := newEngine(catalogue(), &stubRand{value: 0.29})
		got, err := e.Decide(context.Background(), match.Request{
			Card:     model.Card{ID: "job-open", Kind: model.KindJob},
			Viewer:   seeker,
			Decision: d,
		})
		require.NoError(t, err)
		assert.True(t, got.IsMatch, "decision %s", d)
		assert.InDelta(t, match.BaseProbability, got.Probability, 1e-9)
	}
}

func TestDecide_HirerJobScopedContext(t *testing.T) {
	e := newEngine(catalogue(), &stubRand{value: 0})
	got, err := e.Decide(context.Background(), match.Request{
		Card:         model.Card{ID: "seeker-1", Kind: model.KindSeeker},
		Viewer:       hirer,
		Decision:     model.DecisionLike,
		ContextJobID: "job-abc",
	})
	require.NoError(t, err)
	require.True(t, got.IsMatch)
	assert.Equal(t, "job-abc", got.Match.ContextJobID)
	assert.Equal(t, "Backend Engineer", got.Match.ContextJobTitle)
}

// ── Errors ─────────────────────────────────────────────────────────────────

func TestDecide_InvalidRole(t *testing.T) {
	r := &stubRand{value: 0}
	e := newEngine(catalogue(), r)

	_, err := e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "seeker-1", Kind: model.KindSeeker},
		Viewer:   seeker,
		Decision: model.DecisionLike,
	})
	assert.True(t, errors.Is(err, model.ErrInvalidRole))

	_, err = e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "job-abc", Kind: model.KindJob},
		Viewer:   model.Viewer{ID: "x", Role: "admin"},
		Decision: model.DecisionLike,
	})
	assert.True(t, errors.Is(err, model.ErrInvalidRole))
	assert.Equal(t, 0, r.calls)
}

func TestDecide_NotFound(t *testing.T) {
	e := newEngine(catalogue(), &stubRand{value: 0})
	_, err := e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "job-gone", Kind: model.KindJob},
		Viewer:   seeker,
		Decision: model.DecisionLike,
	})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDecide_MissingContextJobIsNotFound(t *testing.T) {
	e := newEngine(catalogue(), &stubRand{value: 0})
	_, err := e.Decide(context.Background(), match.Request{
		Card:         model.Card{ID: "seeker-1", Kind: model.KindSeeker},
		Viewer:       hirer,
		Decision:     model.DecisionLike,
		ContextJobID: "job-gone",
	})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDecide_PersistenceErrorPropagates(t *testing.T) {
	res := &fakeResolver{err: fmt.Errorf("%w: connection refused", model.ErrPersistenceUnavailable)}
	e := newEngine(res, &stubRand{value: 0})
	_, err := e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "job-abc", Kind: model.KindJob},
		Viewer:   seeker,
		Decision: model.DecisionLike,
	})
	assert.True(t, errors.Is(err, model.ErrPersistenceUnavailable))
}

func TestNewEngine_DefaultsProduceIDs(t *testing.T) {
	e := match.NewEngine(catalogue(), nil, match.WithRand(&stubRand{value: 0}))
	got, err := e.Decide(context.Background(), match.Request{
		Card:     model.Card{ID: "seeker-1", Kind: model.KindSeeker},
		Viewer:   hirer,
		Decision: model.DecisionLike,
	})
	require.NoError(t, err)
	require.True(t, got.IsMatch)
	assert.NotEmpty(t, got.Match.ID)
	assert.False(t, got.Match.MatchTimestamp.IsZero())
}
