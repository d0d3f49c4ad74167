package feed

import (
	"sort"

	"jobmate/swipe-service/internal/model"
)

// Scored pairs a card with its match score.
type Scored struct {
	Card  model.Card
	Score int
}

// Rank returns a new slice ordered by descending Score. Equal scores keep
// their input order, since retrieval order reflects recency.
func Rank(cards []model.Card, viewerSkills model.SkillSet) []model.Card {
	scored := RankScored(cards, viewerSkills)
	out := make([]model.Card, len(scored))
	for i, s := range scored {
		out[i] = s.Card
	}
	return out
}

// RankScored is Rank, keeping the computed scores.
func RankScored(cards []model.Card, viewerSkills model.SkillSet) []Scored {
	scored := make([]Scored, len(cards))
	for i, c := range cards {
		scored[i] = Scored{Card: c, Score: Score(c.Tags, viewerSkills)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// ForViewer applies the ranking appropriate to the viewer's role. Seekers get
// jobs ranked by skill overlap; hirers get seekers in retrieval order.
func ForViewer(viewer model.Viewer, cards []model.Card) []model.Card {
	switch viewer.Role {
	case model.RoleSeeker:
		return Rank(cards, viewer.Skills)
	default:
		out := make([]model.Card, len(cards))
		copy(out, cards)
		return out
	}
}
