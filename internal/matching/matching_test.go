package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justbecause/internal/domain"
)

func volunteer() domain.VolunteerProfile {
	return domain.VolunteerProfile{
		Skills: []domain.Skill{
			{Category: "technology", Subskill: "web-development", Level: domain.LevelExpert},
			{Category: "design", Subskill: "graphic-design", Level: domain.LevelBeginner},
		},
		Causes:       []string{"Education"},
		WorkMode:     domain.WorkRemote,
		HoursPerWeek: 15,
	}
}

func TestScoreComponents(t *testing.T) {
	p := domain.Project{
		Skills: []domain.SkillRequirement{
			{Category: "technology", Subskill: "web-development"},
			{Category: "design", Subskill: "ux-design"},
		},
		Causes:       []string{"education", "health"},
		WorkMode:     domain.WorkRemote,
		HoursPerWeek: 20,
	}
	r := Score(volunteer(), p)
	assert.InDelta(t, 0.7, r.Skills, 1e-9)
	assert.InDelta(t, 0.5, r.Causes, 1e-9)
	assert.InDelta(t, 1.0, r.WorkMode, 1e-9)
	assert.InDelta(t, 0.75, r.Availability, 1e-9)
	assert.Equal(t, 71, r.Score)
	require.Len(t, r.MatchedSkills, 1)
	assert.Equal(t, "web-development", r.MatchedSkills[0].Subskill)
}

func TestSkillMatchNeedsSameCategory(t *testing.T) {
	v := domain.VolunteerProfile{Skills: []domain.Skill{{Category: "design", Subskill: "web-development", Level: domain.LevelExpert}}}
	p := domain.Project{Skills: []domain.SkillRequirement{{Category: "technology", Subskill: "web-development"}}}
	r := Score(v, p)
	assert.InDelta(t, 0.0, r.Skills, 1e-9)
	assert.Empty(t, r.MatchedSkills)

	p.Skills[0].Category = "design"
	r = Score(v, p)
	assert.InDelta(t, 1.0, r.Skills, 1e-9)
	assert.Len(t, r.MatchedSkills, 1)
}

func TestScoreEmptyProject(t *testing.T) {
	r := Score(domain.VolunteerProfile{}, domain.Project{})
	assert.Equal(t, 65, r.Score)
}

func TestWorkModeScore(t *testing.T) {
	cases := []struct {
		v, p domain.WorkMode
		want float64
	}{
		{domain.WorkRemote, domain.WorkRemote, 1},
		{domain.WorkHybrid, domain.WorkOnsite, 0.5},
		{domain.WorkOnsite, domain.WorkHybrid, 0.5},
		{domain.WorkOnsite, domain.WorkRemote, 0.25},
		{domain.WorkRemote, domain.WorkOnsite, 0},
		{"", domain.WorkOnsite, 0.5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, workModeScore(tc.v, tc.p), "%s vs %s", tc.v, tc.p)
	}
}

func TestPerfectMatchIsHundred(t *testing.T) {
	v := volunteer()
	p := domain.Project{
		Skills:       []domain.SkillRequirement{{Category: "technology", Subskill: "web-development"}},
		Causes:       []string{"education"},
		WorkMode:     domain.WorkRemote,
		HoursPerWeek: 10,
	}
	assert.Equal(t, 100, Score(v, p).Score)
}

func TestRank(t *testing.T) {
	items := []Ranked{
		{ID: "b", Result: Result{Score: 50}},
		{ID: "a", Result: Result{Score: 50}},
		{ID: "c", Result: Result{Score: 90}},
	}
	Rank(items)
	assert.Equal(t, []string{"c", "a", "b"}, []string{items[0].ID, items[1].ID, items[2].ID})
}
