// Package matching scores how well a volunteer fits a project.
package matching

import (
	"math"
	"sort"
	"strings"

	"justbecause/internal/domain"
)

const (
	weightSkills       = 0.55
	weightCauses       = 0.20
	weightWorkMode     = 0.15
	weightAvailability = 0.10

	categoryOnlyCredit = 0.4
	noRequirements     = 0.5
)

var levelFactor = map[domain.SkillLevel]float64{
	domain.LevelBeginner:     0.6,
	domain.LevelIntermediate: 0.8,
	domain.LevelExpert:       1.0,
}

// Result breaks a score into its components.
type Result struct {
	Score         int                       `json:"score"`
	Skills        float64                   `json:"skills"`
	Causes        float64                   `json:"causes"`
	WorkMode      float64                   `json:"work_mode"`
	Availability  float64                   `json:"availability"`
	MatchedSkills []domain.SkillRequirement `json:"matched_skills,omitempty"`
}

// Score computes a 0..100 fit of v for p.
func Score(v domain.VolunteerProfile, p domain.Project) Result {
	var r Result
	r.Skills, r.MatchedSkills = skillScore(v.Skills, p.Skills)
	r.Causes = causeScore(v.Causes, p.Causes)
	r.WorkMode = workModeScore(v.WorkMode, p.WorkMode)
	r.Availability = availabilityScore(v.HoursPerWeek, p.HoursPerWeek)

	total := weightSkills*r.Skills + weightCauses*r.Causes + weightWorkMode*r.WorkMode + weightAvailability*r.Availability
	r.Score = int(math.Round(100 * total))
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	return r
}

func skillScore(have []domain.Skill, need []domain.SkillRequirement) (float64, []domain.SkillRequirement) {
	if len(need) == 0 {
		return noRequirements, nil
	}
	var (
		sum     float64
		matched []domain.SkillRequirement
	)
	for _, req := range need {
		best := 0.0
		for _, s := range have {
			switch {
			case s.Category == req.Category && s.Subskill == req.Subskill:
				f, ok := levelFactor[s.Level]
				if !ok {
					f = levelFactor[domain.LevelBeginner]
				}
				if f > best {
					best = f
				}
			case s.Category == req.Category && best < categoryOnlyCredit:
				best = categoryOnlyCredit
			}
		}
		if hasSkill(have, req) {
			matched = append(matched, req)
		}
		sum += best
	}
	return sum / float64(len(need)), matched
}

func hasSkill(have []domain.Skill, req domain.SkillRequirement) bool {
	for _, s := range have {
		if s.Category == req.Category && s.Subskill == req.Subskill {
			return true
		}
	}
	return false
}

func causeScore(have, need []string) float64 {
	if len(need) == 0 {
		return 1
	}
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[strings.ToLower(c)] = true
	}
	hits := 0
	for _, c := range need {
		if set[strings.ToLower(c)] {
			hits++
		}
	}
	return float64(hits) / float64(len(need))
}

func workModeScore(volunteer, project domain.WorkMode) float64 {
	switch {
	case volunteer == "":
		return 0.5
	case volunteer == project:
		return 1
	case volunteer == domain.WorkHybrid || project == domain.WorkHybrid:
		return 0.5
	case project == domain.WorkRemote && volunteer == domain.WorkOnsite:
		return 0.25
	}
	return 0
}

func availabilityScore(hours, projectHours int) float64 {
	if projectHours <= 0 || hours >= projectHours {
		return 1
	}
	if hours <= 0 {
		return 0
	}
	return float64(hours) / float64(projectHours)
}

// Ranked pairs a candidate id with its result.
type Ranked struct {
	ID     string
	Result Result
}

// Rank sorts by score descending, ties by id.
func Rank(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Result.Score != items[j].Result.Score {
			return items[i].Result.Score > items[j].Result.Score
		}
		return items[i].ID < items[j].ID
	})
}
