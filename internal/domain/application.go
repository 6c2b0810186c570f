package domain

import "time"

// ApplicationStatus enumerates the lifecycle of an application.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
	ApplicationCompleted   ApplicationStatus = "completed"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:     {ApplicationShortlisted, ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn},
	ApplicationShortlisted: {ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn},
	ApplicationAccepted:    {ApplicationCompleted},
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationShortlisted, ApplicationAccepted,
		ApplicationRejected, ApplicationWithdrawn, ApplicationCompleted:
		return true
	}
	return false
}

// CanTransition reports whether an application may move from s to next.
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Application is a volunteer's bid on a project.
type Application struct {
	ID           string
	ProjectID    string
	VolunteerID  string
	NGOID        string
	CoverLetter  string
	Availability string
	NGONote      string
	Status       ApplicationStatus
	MatchScore   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
