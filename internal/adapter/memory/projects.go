package memory

import (
	"context"
	"sort"
	"time"

	"justbecause/internal/domain"
)

type projectRepo struct{ d *db }

func (r *projectRepo) Create(_ context.Context, p *domain.Project) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	p.ID = newID(p.ID)
	stamp(&p.CreatedAt)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	r.d.projects[p.ID] = cloneProject(p)
	return nil
}

func (r *projectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	p, ok := r.d.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProject(p), nil
}

func (r *projectRepo) Update(_ context.Context, p *domain.Project) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stored, ok := r.d.projects[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	c := cloneProject(p)
	// Counters are owned by the repository.
	c.ViewsCount = stored.ViewsCount
	c.ApplicationsCount = stored.ApplicationsCount
	c.UpdatedAt = time.Now().UTC()
	r.d.projects[p.ID] = c
	return nil
}

func (r *projectRepo) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.d.projects, id)
	for appID, a := range r.d.applications {
		if a.ProjectID == id {
			delete(r.d.applications, appID)
		}
	}
	return nil
}

func (r *projectRepo) List(_ context.Context, f domain.ProjectFilter) ([]domain.Project, int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []domain.Project
	for _, p := range r.d.projects {
		if matchProject(p, f) {
			out = append(out, *cloneProject(p))
		}
	}
	if f.Sort == domain.SortDeadline {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].Deadline, out[j].Deadline
			switch {
			case a == nil && b == nil:
				return out[i].CreatedAt.After(out[j].CreatedAt)
			case a == nil:
				return false
			case b == nil:
				return true
			}
			return a.Before(*b)
		})
	} else {
		sortByCreatedDesc(out, func(p domain.Project) time.Time {
			if p.PublishedAt != nil {
				return *p.PublishedAt
			}
			return p.CreatedAt
		})
	}
	return paginate(out, f.Limit, f.Offset), len(out), nil
}

func matchProject(p *domain.Project, f domain.ProjectFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.NGOID != "" && p.NGOID != f.NGOID {
		return false
	}
	if f.Query != "" && !containsFold(p.Title+" "+p.Description, f.Query) {
		return false
	}
	if f.Skill != "" {
		found := false
		for _, s := range p.Skills {
			if s.Subskill == f.Skill || s.Category == f.Skill {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Cause != "" && !hasFold(p.Causes, f.Cause) {
		return false
	}
	if f.WorkMode != "" && p.WorkMode != f.WorkMode {
		return false
	}
	if f.Compensation != "" && p.Compensation != f.Compensation {
		return false
	}
	return true
}

func (r *projectRepo) IncrementViews(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	p, ok := r.d.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ViewsCount++
	return nil
}

func (r *projectRepo) CountCreatedSince(_ context.Context, ngoID string, since time.Time) (int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	n := 0
	for _, p := range r.d.projects {
		if p.NGOID == ngoID && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type applicationRepo struct{ d *db }

func (r *applicationRepo) Create(_ context.Context, a *domain.Application) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.applications {
		if existing.ProjectID == a.ProjectID && existing.VolunteerID == a.VolunteerID {
			return domain.ErrConflict
		}
	}
	a.ID = newID(a.ID)
	stamp(&a.CreatedAt)
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	c := *a
	r.d.applications[a.ID] = &c
	if p, ok := r.d.projects[a.ProjectID]; ok {
		p.ApplicationsCount++
	}
	return nil
}

func (r *applicationRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	a, ok := r.d.applications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r *applicationRepo) Update(_ context.Context, a *domain.Application) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.applications[a.ID]; !ok {
		return domain.ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	c := *a
	r.d.applications[a.ID] = &c
	return nil
}

func (r *applicationRepo) ListByProject(_ context.Context, projectID string, status domain.ApplicationStatus) ([]domain.Application, error) {
	return r.list(func(a *domain.Application) bool {
		return a.ProjectID == projectID && (status == "" || a.Status == status)
	}), nil
}

func (r *applicationRepo) ListByVolunteer(_ context.Context, volunteerID string) ([]domain.Application, error) {
	return r.list(func(a *domain.Application) bool { return a.VolunteerID == volunteerID }), nil
}

func (r *applicationRepo) list(keep func(*domain.Application) bool) []domain.Application {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []domain.Application
	for _, a := range r.d.applications {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sortByCreatedDesc(out, func(a domain.Application) time.Time { return a.CreatedAt })
	return out
}

func (r *applicationRepo) CountByVolunteerSince(_ context.Context, volunteerID string, since time.Time) (int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	n := 0
	for _, a := range r.d.applications {
		if a.VolunteerID == volunteerID && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *applicationRepo) ExistsBetween(_ context.Context, ngoID, volunteerID string) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, a := range r.d.applications {
		if a.NGOID == ngoID && a.VolunteerID == volunteerID {
			return true, nil
		}
	}
	return false, nil
}

type unlockRepo struct{ d *db }

func (r *unlockRepo) Create(_ context.Context, u *domain.ProfileUnlock) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.unlocks {
		if existing.NGOID == u.NGOID && existing.VolunteerID == u.VolunteerID {
			*u = *existing
			return nil
		}
	}
	u.ID = newID(u.ID)
	stamp(&u.CreatedAt)
	c := *u
	r.d.unlocks[u.ID] = &c
	return nil
}

func (r *unlockRepo) Exists(_ context.Context, ngoID, volunteerID string) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, u := range r.d.unlocks {
		if u.NGOID == ngoID && u.VolunteerID == volunteerID {
			return true, nil
		}
	}
	return false, nil
}

func (r *unlockRepo) ListByNGO(_ context.Context, ngoID string) ([]domain.ProfileUnlock, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []domain.ProfileUnlock
	for _, u := range r.d.unlocks {
		if u.NGOID == ngoID {
			out = append(out, *u)
		}
	}
	sortByCreatedDesc(out, func(u domain.ProfileUnlock) time.Time { return u.CreatedAt })
	return out, nil
}
