package memory

import (
	"context"
	"time"

	"justbecause/internal/domain"
)

type userRepo struct{ d *db }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.users {
		if existing.Email == user.Email {
			return domain.ErrConflict
		}
		if user.GoogleSub != "" && existing.GoogleSub == user.GoogleSub {
			return domain.ErrConflict
		}
	}
	user.ID = newID(user.ID)
	stamp(&user.CreatedAt)
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	r.d.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	u, ok := r.d.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, u := range r.d.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *userRepo) GetByGoogleSub(_ context.Context, sub string) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, u := range r.d.users {
		if sub != "" && u.GoogleSub == sub {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *userRepo) GetMany(_ context.Context, ids []string) (map[string]*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.d.users[id]; ok {
			out[id] = cloneUser(u)
		}
	}
	return out, nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, existing := range r.d.users {
		if id != user.ID && existing.Email == user.Email {
			return domain.ErrConflict
		}
	}
	user.UpdatedAt = time.Now().UTC()
	r.d.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) List(_ context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []domain.User
	for _, u := range r.d.users {
		if matchUser(u, f) {
			out = append(out, *cloneUser(u))
		}
	}
	sortByCreatedDesc(out, func(u domain.User) time.Time { return u.CreatedAt })
	return paginate(out, f.Limit, f.Offset), len(out), nil
}

func matchUser(u *domain.User, f domain.UserFilter) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Banned != nil && u.Banned != *f.Banned {
		return false
	}
	if f.OnboardedOnly && (!u.OnboardingCompleted || u.Banned) {
		return false
	}
	if f.Verified != nil && (u.NGO == nil || u.NGO.Verified != *f.Verified) {
		return false
	}
	if f.Query != "" {
		text := u.Name + " " + u.Email
		if u.Volunteer != nil {
			text += " " + u.Volunteer.Headline + " " + u.Volunteer.Bio
		}
		if u.NGO != nil {
			text += " " + u.NGO.OrgName + " " + u.NGO.Description
		}
		if !containsFold(text, f.Query) {
			return false
		}
	}
	var causes []string
	var country string
	if u.Volunteer != nil {
		causes = u.Volunteer.Causes
		country = u.Volunteer.Location.Country
	} else if u.NGO != nil {
		causes = u.NGO.Causes
		country = u.NGO.Location.Country
	}
	if f.Cause != "" && !hasFold(causes, f.Cause) {
		return false
	}
	if f.Country != "" && !hasFold([]string{country}, f.Country) {
		return false
	}
	if f.Skill != "" || f.WorkMode != "" || f.VolunteerType != "" || f.OpenToWork {
		v := u.Volunteer
		if v == nil {
			return false
		}
		if f.Skill != "" && !v.HasSubskill(f.Skill) {
			return false
		}
		if f.WorkMode != "" && v.WorkMode != f.WorkMode {
			return false
		}
		if f.VolunteerType != "" && v.VolunteerType != f.VolunteerType {
			return false
		}
		if f.OpenToWork && !v.OpenToWork {
			return false
		}
	}
	return true
}

func (r *userRepo) ListPlansExpiringBefore(_ context.Context, before time.Time) ([]domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []domain.User
	for _, u := range r.d.users {
		if u.Plan == domain.PlanPro && u.PlanExpiresAt != nil && u.PlanExpiresAt.Before(before) {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

type tokenRepo struct{ d *db }

func (r *tokenRepo) Create(_ context.Context, token *domain.AuthToken) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	token.ID = newID(token.ID)
	stamp(&token.CreatedAt)
	c := *token
	r.d.tokens[token.ID] = &c
	return nil
}

func (r *tokenRepo) Consume(_ context.Context, kind domain.TokenKind, hash string, now time.Time) (*domain.AuthToken, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, t := range r.d.tokens {
		if t.Kind == kind && t.TokenHash == hash && t.UsedAt == nil && t.ExpiresAt.After(now) {
			used := now
			t.UsedAt = &used
			c := *t
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}
