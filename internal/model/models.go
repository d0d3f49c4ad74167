// Package model defines the data structures shared by the swipe feed and
// matching packages.
package model

import (
	"fmt"
	"sort"
	"time"
)

// Kind identifies what a Card represents.
type Kind string

const (
	KindJob    Kind = "job"
	KindSeeker Kind = "seeker"
)

// ParseKind converts a raw string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	switch k {
	case KindJob, KindSeeker:
		return k, nil
	}
	return "", fmt.Errorf("unknown card kind %q", s)
}

// Role is the role of the acting user.
type Role string

const (
	RoleSeeker Role = "seeker"
	RoleHirer  Role = "hirer"
)

// ParseRole converts a raw string to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleSeeker, RoleHirer:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// FeedKind returns the card kind a viewer with this role swipes on.
func (r Role) FeedKind() (Kind, error) {
	switch r {
	case RoleSeeker:
		return KindJob, nil
	case RoleHirer:
		return KindSeeker, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, r)
}

// Card is a feed entry. Identity is ID, unique within one feed snapshot.
type Card struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	DetailLines []string `json:"detailLines,omitempty"` // at most two lines
	ImageURL    string   `json:"imageUrl,omitempty"`
	Tags        SkillSet `json:"tags"`
}

// SkillSet is an unordered set of skill names.
type SkillSet map[string]struct{}

// NewSkillSet builds a SkillSet, collapsing duplicates and dropping empty names.
func NewSkillSet(skills ...string) SkillSet {
	s := make(SkillSet, len(skills))
	for _, sk := range skills {
		if sk == "" {
			continue
		}
		s[sk] = struct{}{}
	}
	return s
}

// Has reports whether skill is in the set.
func (s SkillSet) Has(skill string) bool {
	_, ok := s[skill]
	return ok
}

// Slice returns the skills sorted, for stable serialisation.
func (s SkillSet) Slice() []string {
	out := make([]string, 0, len(s))
	for sk := range s {
		out = append(out, sk)
	}
	sort.Strings(out)
	return out
}

// Viewer is the acting user, passed explicitly into every operation.
type Viewer struct {
	ID          string
	Role        Role
	DisplayName string
	CompanyName string // hirers only
	Skills      SkillSet
}

// Entity is a resolved swipe target: *JobRecord or *SeekerRecord.
type Entity interface {
	EntityID() string
	EntityKind() Kind
	entity()
}

// JobRecord is a job posting owned by a hirer.
type JobRecord struct {
	ID             string
	HirerID        string
	Title          string
	CompanyName    string
	Location       string
	SalaryRange    string
	ImageURL       string
	RequiredSkills SkillSet
	CreatedAt      time.Time
}

func (j *JobRecord) EntityID() string { return j.ID }
func (j *JobRecord) EntityKind() Kind { return KindJob }
func (*JobRecord) entity()            {}

// SeekerRecord is a job seeker profile.
type SeekerRecord struct {
	ID              string
	DisplayName     string
	Headline        string
	Location        string
	ExperienceYears int
	AvatarURL       string
	KeySkills       SkillSet
	CreatedAt       time.Time
}

func (s *SeekerRecord) EntityID() string { return s.ID }
func (s *SeekerRecord) EntityKind() Kind { return KindSeeker }
func (*SeekerRecord) entity()            {}

// MatchRecord is created once per successful match decision and never mutated.
type MatchRecord struct {
	ID                string    `json:"id"`
	HirerID           string    `json:"hirerId"`
	SeekerID          string    `json:"seekerId"`
	HirerCompanyName  string    `json:"hirerCompanyName"`
	SeekerDisplayName string    `json:"seekerDisplayName"`
	ContextJobID      string    `json:"contextJobId,omitempty"`
	ContextJobTitle   string    `json:"contextJobTitle,omitempty"`
	MatchTimestamp    time.Time `json:"matchTimestamp"`
}
