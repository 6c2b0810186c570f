package domain

import (
	"strings"
	"time"
)

// SkillLevel grades a volunteer's proficiency in a subskill.
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "beginner"
	LevelIntermediate SkillLevel = "intermediate"
	LevelExpert       SkillLevel = "expert"
)

// Valid reports whether l is a known level.
func (l SkillLevel) Valid() bool {
	return l == LevelBeginner || l == LevelIntermediate || l == LevelExpert
}

// WorkMode describes where work happens.
type WorkMode string

const (
	WorkRemote WorkMode = "remote"
	WorkOnsite WorkMode = "onsite"
	WorkHybrid WorkMode = "hybrid"
)

// Valid reports whether m is a known work mode.
func (m WorkMode) Valid() bool {
	return m == WorkRemote || m == WorkOnsite || m == WorkHybrid
}

// VolunteerType tells whether an Impact Agent works pro-bono, low-bono or both.
// The same values describe a project's compensation.
type VolunteerType string

const (
	VolunteerFree VolunteerType = "free"
	VolunteerPaid VolunteerType = "paid"
	VolunteerBoth VolunteerType = "both"
)

// Valid reports whether t is a known type.
func (t VolunteerType) Valid() bool {
	return t == VolunteerFree || t == VolunteerPaid || t == VolunteerBoth
}

// Skill is a taxonomy subskill held by a volunteer.
type Skill struct {
	Category string     `json:"category"`
	Subskill string     `json:"subskill"`
	Level    SkillLevel `json:"level"`
}

// Location is a coarse city/country pair.
type Location struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// VolunteerProfile is the Impact Agent document embedded in User.
type VolunteerProfile struct {
	Headline          string        `json:"headline"`
	Bio               string        `json:"bio"`
	Skills            []Skill       `json:"skills"`
	Causes            []string      `json:"causes"`
	Languages         []string      `json:"languages,omitempty"`
	Location          Location      `json:"location"`
	WorkMode          WorkMode      `json:"work_mode"`
	HoursPerWeek      int           `json:"hours_per_week"`
	VolunteerType     VolunteerType `json:"volunteer_type"`
	HourlyRate        int64         `json:"hourly_rate,omitempty"`
	Currency          string        `json:"currency,omitempty"`
	Phone             string        `json:"phone,omitempty"`
	LinkedInURL       string        `json:"linkedin_url,omitempty"`
	PortfolioURL      string        `json:"portfolio_url,omitempty"`
	OpenToWork        bool          `json:"open_to_work"`
	CompletedProjects int           `json:"completed_projects"`
	HoursContributed  int           `json:"hours_contributed"`
}

// Complete reports whether the profile carries everything needed to apply.
func (p *VolunteerProfile) Complete() bool {
	if p == nil {
		return false
	}
	return len(p.Skills) > 0 && len(p.Causes) > 0 && p.WorkMode.Valid() &&
		p.VolunteerType.Valid() && p.HoursPerWeek > 0
}

// GatesContact reports whether the volunteer's contact details sit behind the
// profile unlock paywall. Only paid and both volunteers advertise contacts
// openly; a missing profile or unset type stays gated.
func (p *VolunteerProfile) GatesContact() bool {
	return p == nil || (p.VolunteerType != VolunteerPaid && p.VolunteerType != VolunteerBoth)
}

// Redacted returns a copy without contact fields.
func (p VolunteerProfile) Redacted() VolunteerProfile {
	p.Phone = ""
	p.LinkedInURL = ""
	p.PortfolioURL = ""
	return p
}

// HasSubskill reports whether the volunteer lists subskill (case-insensitive).
func (p *VolunteerProfile) HasSubskill(subskill string) bool {
	for _, s := range p.Skills {
		if strings.EqualFold(s.Subskill, subskill) {
			return true
		}
	}
	return false
}

// NGOProfile is the organisation document embedded in User.
type NGOProfile struct {
	OrgName            string     `json:"org_name"`
	RegistrationNumber string     `json:"registration_number,omitempty"`
	Website            string     `json:"website,omitempty"`
	Description        string     `json:"description"`
	Causes             []string   `json:"causes"`
	Location           Location   `json:"location"`
	ContactEmail       string     `json:"contact_email,omitempty"`
	ContactPhone       string     `json:"contact_phone,omitempty"`
	LogoURL            string     `json:"logo_url,omitempty"`
	YearFounded        int        `json:"year_founded,omitempty"`
	TeamSize           int        `json:"team_size,omitempty"`
	Verified           bool       `json:"verified"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
}

// Complete reports whether the NGO has finished onboarding.
func (p *NGOProfile) Complete() bool {
	if p == nil {
		return false
	}
	return strings.TrimSpace(p.OrgName) != "" && len(strings.TrimSpace(p.Description)) >= 30 &&
		len(p.Causes) > 0 && p.Location.Country != ""
}

// UnlockSource records how an NGO obtained a volunteer's contact details.
type UnlockSource string

const (
	UnlockPayment      UnlockSource = "payment"
	UnlockSubscription UnlockSource = "subscription"
	UnlockAdmin        UnlockSource = "admin"
)

// ProfileUnlock grants an NGO access to a pro-bono volunteer's contact details.
type ProfileUnlock struct {
	ID            string
	NGOID         string
	VolunteerID   string
	Source        UnlockSource
	TransactionID string
	CreatedAt     time.Time
}
