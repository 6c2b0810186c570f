// Package testutil builds seeded in-memory stores for service tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"justbecause/internal/adapter/memory"
	"justbecause/internal/domain"
)

// Epoch is the fixed start time of fake clocks.
var Epoch = time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)

func Clock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(Epoch)
}

func Store() *domain.Store {
	return memory.NewStore()
}

// Volunteer creates an onboarded pro-bono volunteer. mutate may adjust the
// user before it is stored.
func Volunteer(t *testing.T, store *domain.Store, email string, mutate ...func(*domain.User)) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:  email,
		Name:   "Volunteer " + email,
		Locale: "en",
		Role:   domain.RoleVolunteer,
		Plan:   domain.PlanFree,
		Volunteer: &domain.VolunteerProfile{
			Headline:      "Full-stack developer",
			Skills:        []domain.Skill{{Category: "technology", Subskill: "web-development", Level: domain.LevelExpert}},
			Causes:        []string{"education"},
			Location:      domain.Location{City: "Pune", Country: "IN"},
			WorkMode:      domain.WorkRemote,
			HoursPerWeek:  10,
			VolunteerType: domain.VolunteerFree,
			Phone:         "+91 90000 00000",
			LinkedInURL:   "https://linkedin.com/in/someone",
			OpenToWork:    true,
		},
		OnboardingCompleted: true,
		EmailVerified:       true,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, store.Users.Create(context.Background(), u))
	return u
}

// NGO creates an onboarded free-plan organisation.
func NGO(t *testing.T, store *domain.Store, email string, mutate ...func(*domain.User)) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:  email,
		Name:   "Coordinator",
		Locale: "en",
		Role:   domain.RoleNGO,
		Plan:   domain.PlanFree,
		NGO: &domain.NGOProfile{
			OrgName:     "Green Earth " + email,
			Description: "We plant trees and run environmental education camps across Maharashtra.",
			Causes:      []string{"environment", "education"},
			Location:    domain.Location{City: "Mumbai", Country: "IN"},
		},
		OnboardingCompleted: true,
		EmailVerified:       true,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, store.Users.Create(context.Background(), u))
	return u
}

// Admin creates an administrator.
func Admin(t *testing.T, store *domain.Store, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: "Admin", Locale: "en", Role: domain.RoleAdmin, Plan: domain.PlanFree, EmailVerified: true}
	require.NoError(t, store.Users.Create(context.Background(), u))
	return u
}

// Pro puts the user on an active Pro plan relative to the fake clock epoch.
func Pro(u *domain.User) {
	exp := Epoch.Add(30 * 24 * time.Hour)
	u.Plan = domain.PlanPro
	u.PlanExpiresAt = &exp
}

// Project creates an active project owned by ngo.
func Project(t *testing.T, store *domain.Store, ngo *domain.User, mutate ...func(*domain.Project)) *domain.Project {
	t.Helper()
	published := Epoch.Add(-time.Hour)
	p := &domain.Project{
		NGOID:         ngo.ID,
		Title:         "Build our donation website",
		Description:   "We need a volunteer to rebuild our donation website with a modern stack.",
		Skills:        []domain.SkillRequirement{{Category: "technology", Subskill: "web-development"}},
		Causes:        []string{"education"},
		WorkMode:      domain.WorkRemote,
		HoursPerWeek:  5,
		DurationWeeks: 4,
		Compensation:  domain.VolunteerFree,
		Status:        domain.ProjectActive,
		PublishedAt:   &published,
		CreatedAt:     Epoch.Add(-time.Hour),
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, store.Projects.Create(context.Background(), p))
	return p
}

// Reload fetches the stored copy of a user.
func Reload(t *testing.T, store *domain.Store, id string) *domain.User {
	t.Helper()
	u, err := store.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
