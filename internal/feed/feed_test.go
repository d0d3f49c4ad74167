package feed_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobmate/swipe-service/internal/feed"
	"jobmate/swipe-service/internal/model"
)

func skills(s ...string) model.SkillSet { return model.NewSkillSet(s...) }

func card(id string, tags ...string) model.Card {
	return model.Card{ID: id, Kind: model.KindJob, Tags: skills(tags...)}
}

func ids(cards []model.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

// ── Score ──────────────────────────────────────────────────────────────────

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		card   model.SkillSet
		viewer model.SkillSet
		expect int
	}{
		{name: "empty card skills scores zero", card: skills(), viewer: skills("A"), expect: 0},
		{name: "both empty", card: skills(), viewer: skills(), expect: 0},
		{name: "identical sets", card: skills("A", "B"), viewer: skills("A", "B"), expect: 100},
		{name: "two of three rounds up", card: skills("A", "B", "C"), viewer: skills("A", "B"), expect: 67},
		{name: "one of three rounds down", card: skills("A", "B", "C"), viewer: skills("A"), expect: 33},
		{name: "viewer superset", card: skills("A"), viewer: skills("A", "B", "C"), expect: 100},
		{name: "no overlap", card: skills("A"), viewer: skills("B"), expect: 0},
		{name: "half", card: skills("A", "B"), viewer: skills("B"), expect: 50},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := feed.Score(tt.card, tt.viewer)
			assert.Equal(t, tt.expect, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestOverlap(t *testing.T) {
	m, r := feed.Overlap(skills("A", "B", "C"), skills("B", "C", "D"))
	assert.Equal(t, 2, m)
	assert.Equal(t, 3, r)
}

// ── Rank ───────────────────────────────────────────────────────────────────

func TestRank_HigherScoreFirst(t *testing.T) {
	cards := []model.Card{card("jobABC", "A", "B", "C"), card("jobA", "A")}
	got := feed.Rank(cards, skills("A", "B"))
	assert.Equal(t, []string{"jobA", "jobABC"}, ids(got))
}

func TestRank_StableOnTies(t *testing.T) {
	cards := []model.Card{
		card("first", "X"),
		card("top", "A"),
		card("second", "Y"),
		card("third"),
		card("fourth", "Z"),
	}
	got := feed.Rank(cards, skills("A"))
	assert.Equal(t, []string{"top", "first", "second", "third", "fourth"}, ids(got))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	cards := []model.Card{card("b", "X"), card("a", "A")}
	_ = feed.Rank(cards, skills("A"))
	assert.Equal(t, []string{"b", "a"}, ids(cards))
}

func TestRank_EmptyInput(t *testing.T) {
	got := feed.Rank(nil, skills("A"))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRankScored_KeepsScores(t *testing.T) {
	got := feed.RankScored([]model.Card{card("a", "A", "B", "C")}, skills("A", "B"))
	assert.Equal(t, 67, got[0].Score)
}

// ── ForViewer ──────────────────────────────────────────────────────────────

func TestForViewer_SeekerIsRanked(t *testing.T) {
	v := model.Viewer{ID: "s1", Role: model.RoleSeeker, Skills: skills("A")}
	got := feed.ForViewer(v, []model.Card{card("none", "Z"), card("match", "A")})
	assert.Equal(t, []string{"match", "none"}, ids(got))
}

func TestForViewer_HirerKeepsRetrievalOrder(t *testing.T) {
	v := model.Viewer{ID: "h1", Role: model.RoleHirer, Skills: skills("A")}
	in := []model.Card{card("none", "Z"), card("match", "A")}
	got := feed.ForViewer(v, in)
	assert.Equal(t, []string{"none", "match"}, ids(got))

	got[0].ID = "changed"
	assert.Equal(t, "none", in[0].ID)
}
