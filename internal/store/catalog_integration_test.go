package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/swipe-service/internal/model"
)

// newTestCatalog connects to TEST_DATABASE_URL and resets the tables.
func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	c := NewCatalog(pool)
	require.NoError(t, c.Migrate(ctx))
	_, err = pool.Exec(ctx, `TRUNCATE matches, job_posts, profiles CASCADE`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		`INSERT INTO profiles (id, role, display_name, company_name, skills, created_at) VALUES
		 ('h1', 'hirer',  'Hana', 'Acme', '{}',          NOW() - INTERVAL '3 hours'),
		 ('s1', 'seeker', 'Sam',  '',     '{Go,SQL}',    NOW() - INTERVAL '2 hours'),
		 ('s2', 'seeker', 'Ada',  '',     '{Rust}',      NOW() - INTERVAL '1 hour')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO job_posts (id, hirer_id, title, company_name, location, required_skills, is_active, created_at) VALUES
		 ('j1', 'h1', 'Backend',  'Acme', 'Paris', '{Go}',     true,  NOW() - INTERVAL '2 hours'),
		 ('j2', 'h1', 'Platform', 'Acme', '',      '{Go,K8s}', true,  NOW() - INTERVAL '1 hour'),
		 ('j3', 'h1', 'Closed',   'Acme', '',      '{}',       false, NOW())`)
	require.NoError(t, err)
	return c
}

func TestCatalogIntegration_Feeds(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	jobs, err := c.FetchJobFeed(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "j2", jobs[0].ID, "newest first")
	assert.True(t, jobs[1].Tags.Has("Go"))

	seekers, err := c.FetchSeekerFeed(ctx, "h1", "j1")
	require.NoError(t, err)
	require.Len(t, seekers, 2)
	assert.Equal(t, "s2", seekers[0].ID)

	_, err = c.FetchSeekerFeed(ctx, "s1", "j1")
	assert.True(t, errors.Is(err, model.ErrNotFound), "job must belong to viewer")
}

func TestCatalogIntegration_ViewerAndEntities(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	v, err := c.FetchViewer(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSeeker, v.Role)
	assert.True(t, v.Skills.Has("SQL"))

	_, err = c.FetchViewer(ctx, "nobody")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	ent, err := c.ResolveEntity(ctx, "j1", model.KindJob)
	require.NoError(t, err)
	assert.Equal(t, "h1", ent.(*model.JobRecord).HirerID)

	_, err = c.ResolveEntity(ctx, "j3", model.KindJob)
	assert.True(t, errors.Is(err, model.ErrNotFound), "inactive jobs do not resolve")

	_, err = c.ResolveEntity(ctx, "h1", model.KindSeeker)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestCatalogIntegration_MatchOutbox(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	rec := model.MatchRecord{
		ID:                "6f1c3c52-6a43-4d4b-9d43-0d2b8f0f7d11",
		HirerID:           "h1",
		SeekerID:          "s1",
		HirerCompanyName:  "Acme",
		SeekerDisplayName: "Sam",
		MatchTimestamp:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, c.PersistMatch(ctx, rec))
	require.NoError(t, c.PersistMatch(ctx, rec), "duplicate insert is a no-op")

	pending, err := c.PendingMatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, rec.ID, pending[0].ID)
	assert.Empty(t, pending[0].ContextJobID)

	require.NoError(t, c.MarkNotified(ctx, rec.ID))
	pending, err = c.PendingMatches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
