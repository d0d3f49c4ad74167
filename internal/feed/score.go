// Package feed scores and orders discovery cards against a viewer's skills.
package feed

import (
	"math"

	"jobmate/swipe-service/internal/model"
)

// Overlap returns how many of the card's skills the viewer has, and how many
// the card lists in total.
func Overlap(cardSkills, viewerSkills model.SkillSet) (matching, required int) {
	for sk := range cardSkills {
		if viewerSkills.Has(sk) {
			matching++
		}
	}
	return matching, len(cardSkills)
}

// Score returns round(100 * matching / required) in [0,100].
// A card with no skills scores 0: no requirements, no demonstrable match.
func Score(cardSkills, viewerSkills model.SkillSet) int {
	matching, required := Overlap(cardSkills, viewerSkills)
	if required == 0 {
		return 0
	}
	return int(math.Round(100 * float64(matching) / float64(required)))
}
