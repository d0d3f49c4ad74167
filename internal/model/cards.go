package model

import "fmt"

// JobCard renders a job posting as a feed card.
func JobCard(j *JobRecord) Card {
	return Card{
		ID:          j.ID,
		Kind:        KindJob,
		Title:       j.Title,
		Subtitle:    j.CompanyName,
		DetailLines: detailLines(j.Location, j.SalaryRange),
		ImageURL:    j.ImageURL,
		Tags:        copySkills(j.RequiredSkills),
	}
}

// SeekerCard renders a seeker profile as a feed card.
func SeekerCard(s *SeekerRecord) Card {
	experience := ""
	if s.ExperienceYears > 0 {
		experience = fmt.Sprintf("%d years experience", s.ExperienceYears)
	}
	return Card{
		ID:          s.ID,
		Kind:        KindSeeker,
		Title:       s.DisplayName,
		Subtitle:    s.Headline,
		DetailLines: detailLines(s.Location, experience),
		ImageURL:    s.AvatarURL,
		Tags:        copySkills(s.KeySkills),
	}
}

func detailLines(lines ...string) []string {
	out := make([]string, 0, 2)
	for _, l := range lines {
		if l != "" && len(out) < 2 {
			out = append(out, l)
		}
	}
	return out
}

func copySkills(s SkillSet) SkillSet {
	out := make(SkillSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
