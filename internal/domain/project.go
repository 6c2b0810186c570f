package domain

import "time"

// ProjectStatus enumerates the lifecycle of an opportunity.
type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectClosed    ProjectStatus = "closed"
	ProjectCompleted ProjectStatus = "completed"
)

var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectDraft:  {ProjectActive, ProjectClosed},
	ProjectActive: {ProjectPaused, ProjectClosed, ProjectCompleted},
	ProjectPaused: {ProjectActive, ProjectClosed},
}

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectDraft, ProjectActive, ProjectPaused, ProjectClosed, ProjectCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a project may move from s to next.
func (s ProjectStatus) CanTransition(next ProjectStatus) bool {
	for _, allowed := range projectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SkillRequirement names a taxonomy subskill a project needs.
type SkillRequirement struct {
	Category string `json:"category"`
	Subskill string `json:"subskill"`
}

// Project is an opportunity posted by an NGO.
type Project struct {
	ID                string             `json:"id"`
	NGOID             string             `json:"ngo_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Skills            []SkillRequirement `json:"skills"`
	Causes            []string           `json:"causes"`
	WorkMode          WorkMode           `json:"work_mode"`
	Location          Location           `json:"location"`
	HoursPerWeek      int                `json:"hours_per_week"`
	DurationWeeks     int                `json:"duration_weeks"`
	Deadline          *time.Time         `json:"deadline,omitempty"`
	Compensation      VolunteerType      `json:"compensation"`
	BudgetMinor       int64              `json:"budget_minor,omitempty"`
	Currency          string             `json:"currency,omitempty"`
	Status            ProjectStatus      `json:"status"`
	ViewsCount        int                `json:"views_count"`
	ApplicationsCount int                `json:"applications_count"`
	PublishedAt       *time.Time         `json:"published_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// AcceptsApplications reports whether volunteers may apply at now.
func (p *Project) AcceptsApplications(now time.Time) bool {
	if p.Status != ProjectActive {
		return false
	}
	return p.Deadline == nil || p.Deadline.After(now)
}

// TotalHours estimates the commitment of the whole engagement.
func (p *Project) TotalHours() int {
	return p.HoursPerWeek * p.DurationWeeks
}

// ProjectSort selects listing order.
type ProjectSort string

const (
	SortNewest   ProjectSort = "newest"
	SortDeadline ProjectSort = "deadline"
)

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	Query        string
	Skill        string
	Cause        string
	WorkMode     WorkMode
	Compensation VolunteerType
	NGOID        string
	Statuses     []ProjectStatus
	Sort         ProjectSort
	Limit        int
	Offset       int
}
