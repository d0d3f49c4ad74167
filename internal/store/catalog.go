// Package store implements the persistence collaborators of the swipe
// service: the Postgres catalogue of profiles, jobs and matches, and the Redis
// stores for favorites, session snapshots and match events.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobmate/swipe-service/internal/model"
)

// feedLimit caps one feed snapshot.
const feedLimit = 200

//go:embed schema.sql
var schemaSQL string

// querier is the subset of pgxpool.Pool the catalogue uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Catalog reads profiles and jobs and records matches in PostgreSQL.
type Catalog struct {
	db querier
}

// NewCatalog wraps a pool (or transaction).
func NewCatalog(db querier) *Catalog {
	return &Catalog{db: db}
}

// Migrate applies the embedded schema. It is idempotent.
func (c *Catalog) Migrate(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// FetchViewer loads the acting user's profile.
func (c *Catalog) FetchViewer(ctx context.Context, viewerID string) (model.Viewer, error) {
	var (
		v      model.Viewer
		role   string
		skills []string
	)
	err := c.db.QueryRow(ctx,
		`SELECT id, role, display_name, company_name, skills
		 FROM profiles
		 WHERE id = $1`,
		viewerID,
	).Scan(&v.ID, &role, &v.DisplayName, &v.CompanyName, &skills)
	if err != nil {
		return model.Viewer{}, rowErr("fetch viewer "+viewerID, err)
	}
	if v.Role, err = model.ParseRole(role); err != nil {
		return model.Viewer{}, fmt.Errorf("%w: %v", model.ErrInvalidRole, err)
	}
	v.Skills = model.NewSkillSet(skills...)
	return v, nil
}

// FetchViewerSkills returns the viewer's skill set.
func (c *Catalog) FetchViewerSkills(ctx context.Context, viewerID string) (model.SkillSet, error) {
	v, err := c.FetchViewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return v.Skills, nil
}

// FetchJobFeed returns active jobs not posted by the viewer, newest first.
func (c *Catalog) FetchJobFeed(ctx context.Context, viewerID string) ([]model.Card, error) {
	rows, err := c.db.Query(ctx,
		`SELECT id, hirer_id, title, company_name, location, salary_range,
		        image_url, required_skills, created_at
		 FROM job_posts
		 WHERE is_active = true AND hirer_id <> $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		viewerID, feedLimit,
	)
	if err != nil {
		return nil, unavailable("query job feed", err)
	}
	defer rows.Close()

	cards := make([]model.Card, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, unavailable("scan job", err)
		}
		cards = append(cards, model.JobCard(job))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate job feed", err)
	}
	return cards, nil
}

// FetchSeekerFeed returns seeker profiles, newest first. When jobID is set it
// must name one of the viewer's jobs.
func (c *Catalog) FetchSeekerFeed(ctx context.Context, viewerID, jobID string) ([]model.Card, error) {
	if jobID != "" {
		var one int
		err := c.db.QueryRow(ctx,
			`SELECT 1 FROM job_posts WHERE id = $1 AND hirer_id = $2`,
			jobID, viewerID,
		).Scan(&one)
		if err != nil {
			return nil, rowErr("job "+jobID, err)
		}
	}

	rows, err := c.db.Query(ctx,
		`SELECT id, display_name, headline, location, experience_years,
		        avatar_url, skills, created_at
		 FROM profiles
		 WHERE role = 'seeker' AND id <> $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		viewerID, feedLimit,
	)
	if err != nil {
		return nil, unavailable("query seeker feed", err)
	}
	defer rows.Close()

	cards := make([]model.Card, 0)
	for rows.Next() {
		s, err := scanSeeker(rows)
		if err != nil {
			return nil, unavailable("scan seeker", err)
		}
		cards = append(cards, model.SeekerCard(s))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate seeker feed", err)
	}
	return cards, nil
}

// ResolveEntity loads the job or seeker behind a card id.
func (c *Catalog) ResolveEntity(ctx context.Context, id string, kind model.Kind) (model.Entity, error) {
	switch kind {
	case model.KindJob:
		row := c.db.QueryRow(ctx,
			`SELECT id, hirer_id, title, company_name, location, salary_range,
			        image_url, required_skills, created_at
			 FROM job_posts
			 WHERE id = $1 AND is_active = true`,
			id,
		)
		job, err := scanJob(row)
		if err != nil {
			return nil, rowErr("job "+id, err)
		}
		return job, nil

	case model.KindSeeker:
		row := c.db.QueryRow(ctx,
			`SELECT id, display_name, headline, location, experience_years,
			        avatar_url, skills, created_at
			 FROM profiles
			 WHERE id = $1 AND role = 'seeker'`,
			id,
		)
		s, err := scanSeeker(row)
		if err != nil {
			return nil, rowErr("seeker "+id, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", model.ErrInvalidRole, kind)
}

// PersistMatch appends a match record. Inserting the same id twice is a no-op.
func (c *Catalog) PersistMatch(ctx context.Context, rec model.MatchRecord) error {
	_, err := c.db.Exec(ctx,
		`INSERT INTO matches (id, hirer_id, seeker_id, hirer_company_name, seeker_display_name,
		                      context_job_id, context_job_title, matched_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.HirerID, rec.SeekerID, rec.HirerCompanyName, rec.SeekerDisplayName,
		rec.ContextJobID, rec.ContextJobTitle, rec.MatchTimestamp,
	)
	if err != nil {
		return unavailable("insert match", err)
	}
	return nil
}

// PendingMatches returns matches whose notification has not been published, oldest first.
func (c *Catalog) PendingMatches(ctx context.Context, limit int) ([]model.MatchRecord, error) {
	rows, err := c.db.Query(ctx,
		`SELECT id::text, hirer_id, seeker_id, hirer_company_name, seeker_display_name,
		        COALESCE(context_job_id, ''), COALESCE(context_job_title, ''), matched_at
		 FROM matches
		 WHERE notified_at IS NULL
		 ORDER BY matched_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, unavailable("query pending matches", err)
	}
	defer rows.Close()

	recs := make([]model.MatchRecord, 0)
	for rows.Next() {
		var r model.MatchRecord
		if err := rows.Scan(
			&r.ID, &r.HirerID, &r.SeekerID, &r.HirerCompanyName, &r.SeekerDisplayName,
			&r.ContextJobID, &r.ContextJobTitle, &r.MatchTimestamp,
		); err != nil {
			return nil, unavailable("scan match", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate pending matches", err)
	}
	return recs, nil
}

// MarkNotified records that the match event was published.
func (c *Catalog) MarkNotified(ctx context.Context, matchID string) error {
	_, err := c.db.Exec(ctx,
		`UPDATE matches SET notified_at = NOW() WHERE id = $1 AND notified_at IS NULL`,
		matchID,
	)
	if err != nil {
		return unavailable("mark match notified", err)
	}
	return nil
}

func scanJob(row pgx.Row) (*model.JobRecord, error) {
	var (
		j      model.JobRecord
		skills []string
	)
	if err := row.Scan(
		&j.ID, &j.HirerID, &j.Title, &j.CompanyName, &j.Location, &j.SalaryRange,
		&j.ImageURL, &skills, &j.CreatedAt,
	); err != nil {
		return nil, err
	}
	j.RequiredSkills = model.NewSkillSet(skills...)
	return &j, nil
}

func scanSeeker(row pgx.Row) (*model.SeekerRecord, error) {
	var (
		s      model.SeekerRecord
		skills []string
	)
	if err := row.Scan(
		&s.ID, &s.DisplayName, &s.Headline, &s.Location, &s.ExperienceYears,
		&s.AvatarURL, &skills, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.KeySkills = model.NewSkillSet(skills...)
	return &s, nil
}

func rowErr(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", model.ErrNotFound, what)
	}
	return unavailable(what, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, model.ErrPersistenceUnavailable, err)
}
