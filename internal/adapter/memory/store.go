// Package memory implements every repository in process. It backs the test
// suites and the STORAGE_DRIVER=memory demo mode.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"justbecause/internal/domain"
)

type db struct {
	mu            sync.RWMutex
	users         map[string]*domain.User
	tokens        map[string]*domain.AuthToken
	projects      map[string]*domain.Project
	applications  map[string]*domain.Application
	unlocks       map[string]*domain.ProfileUnlock
	conversations map[string]*domain.Conversation
	messages      map[string][]*domain.Message
	notifications map[string]*domain.Notification
	emails        map[string]*domain.EmailMessage
	transactions  map[string]*domain.Transaction
	coupons       map[string]*domain.Coupon
	settings      map[string]string
}

// NewStore returns an empty in-memory store.
func NewStore() *domain.Store {
	d := &db{
		users:         map[string]*domain.User{},
		tokens:        map[string]*domain.AuthToken{},
		projects:      map[string]*domain.Project{},
		applications:  map[string]*domain.Application{},
		unlocks:       map[string]*domain.ProfileUnlock{},
		conversations: map[string]*domain.Conversation{},
		messages:      map[string][]*domain.Message{},
		notifications: map[string]*domain.Notification{},
		emails:        map[string]*domain.EmailMessage{},
		transactions:  map[string]*domain.Transaction{},
		coupons:       map[string]*domain.Coupon{},
		settings:      map[string]string{},
	}
	return &domain.Store{
		Users:         &userRepo{d},
		Tokens:        &tokenRepo{d},
		Projects:      &projectRepo{d},
		Applications:  &applicationRepo{d},
		Unlocks:       &unlockRepo{d},
		Conversations: &conversationRepo{d},
		Notifications: &notificationRepo{d},
		Outbox:        &outbox{d},
		Transactions:  &transactionRepo{d},
		Coupons:       &couponRepo{d},
		Settings:      &settingsRepo{d},
		Stats:         &statsRepo{d},
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func hasFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.Volunteer != nil {
		v := *u.Volunteer
		v.Skills = append([]domain.Skill(nil), u.Volunteer.Skills...)
		v.Causes = append([]string(nil), u.Volunteer.Causes...)
		v.Languages = append([]string(nil), u.Volunteer.Languages...)
		c.Volunteer = &v
	}
	if u.NGO != nil {
		n := *u.NGO
		n.Causes = append([]string(nil), u.NGO.Causes...)
		c.NGO = &n
	}
	return &c
}

func cloneProject(p *domain.Project) *domain.Project {
	c := *p
	c.Skills = append([]domain.SkillRequirement(nil), p.Skills...)
	c.Causes = append([]string(nil), p.Causes...)
	return &c
}

func sortByCreatedDesc[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
}
