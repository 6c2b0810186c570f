package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"justbecause/internal/domain"
	"justbecause/internal/infra"
	"justbecause/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

func projectArgs(p *domain.Project) ([]any, error) {
	skills := p.Skills
	if skills == nil {
		skills = []domain.SkillRequirement{}
	}
	rawSkills, err := json.Marshal(skills)
	if err != nil {
		return nil, fmt.Errorf("encode skills: %w", err)
	}
	rawLocation, err := json.Marshal(p.Location)
	if err != nil {
		return nil, fmt.Errorf("encode location: %w", err)
	}
	causes := p.Causes
	if causes == nil {
		causes = []string{}
	}
	return []any{
		p.Title, p.Description, rawSkills, causes, string(p.WorkMode), rawLocation,
		p.HoursPerWeek, p.DurationWeeks, p.Deadline, string(p.Compensation), p.BudgetMinor, p.Currency,
		string(p.Status), p.PublishedAt,
	}, nil
}

func (r *ProjectRepositoryPG) Create(ctx context.Context, p *domain.Project) error {
	args, err := projectArgs(p)
	if err != nil {
		return err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertProject, append([]any{p.NGOID}, args...)...)
	return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProjectRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return scanProject(r.sql.QueryRow(ctx, sqlinline.QSelectProjectByID, id))
}

func (r *ProjectRepositoryPG) Update(ctx context.Context, p *domain.Project) error {
	args, err := projectArgs(p)
	if err != nil {
		return err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateProject, append([]any{p.ID}, args...)...)
	return notFound(row.Scan(&p.UpdatedAt))
}

func (r *ProjectRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteProject, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepositoryPG) List(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, int, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProjects,
		strs(f.Statuses), f.NGOID, f.Query, f.Skill, f.Cause, string(f.WorkMode), string(f.Compensation),
		string(f.Sort), f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		out   []domain.Project
		total int
	)
	for rows.Next() {
		p, err := scanProjectWith(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ProjectRepositoryPG) IncrementViews(ctx context.Context, id string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QIncrementProjectViews, id)
	return err
}

func (r *ProjectRepositoryPG) CountCreatedSince(ctx context.Context, ngoID string, since time.Time) (int, error) {
	var n int
	err := r.sql.QueryRow(ctx, sqlinline.QCountProjectsCreatedSince, ngoID, since).Scan(&n)
	return n, err
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	return scanProjectWith(row)
}

func scanProjectWith(row pgx.Row, extra ...any) (*domain.Project, error) {
	var (
		p                      domain.Project
		rawSkills, rawLocation []byte
	)
	dest := []any{
		&p.ID, &p.NGOID, &p.Title, &p.Description, &rawSkills, &p.Causes, &p.WorkMode, &rawLocation,
		&p.HoursPerWeek, &p.DurationWeeks, &p.Deadline, &p.Compensation, &p.BudgetMinor, &p.Currency,
		&p.Status, &p.ViewsCount, &p.ApplicationsCount, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, notFound(err)
	}
	if len(rawSkills) > 0 {
		if err := json.Unmarshal(rawSkills, &p.Skills); err != nil {
			return nil, fmt.Errorf("decode skills: %w", err)
		}
	}
	if len(rawLocation) > 0 {
		if err := json.Unmarshal(rawLocation, &p.Location); err != nil {
			return nil, fmt.Errorf("decode location: %w", err)
		}
	}
	return &p, nil
}

// ApplicationRepositoryPG implements domain.ApplicationRepository.
type ApplicationRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewApplicationRepository(sql infra.SQLExecutor) *ApplicationRepositoryPG {
	return &ApplicationRepositoryPG{sql: sql}
}

func (r *ApplicationRepositoryPG) Create(ctx context.Context, a *domain.Application) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertApplication,
		a.ProjectID, a.VolunteerID, a.NGOID, a.CoverLetter, a.Availability, a.NGONote, string(a.Status), a.MatchScore,
	)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ApplicationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	return scanApplication(r.sql.QueryRow(ctx, sqlinline.QSelectApplicationByID, id))
}

func (r *ApplicationRepositoryPG) Update(ctx context.Context, a *domain.Application) error {
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateApplication,
		a.ID, a.CoverLetter, a.Availability, a.NGONote, string(a.Status), a.MatchScore,
	)
	return notFound(row.Scan(&a.UpdatedAt))
}

func (r *ApplicationRepositoryPG) ListByProject(ctx context.Context, projectID string, status domain.ApplicationStatus) ([]domain.Application, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListApplicationsByProject, projectID, string(status))
	if err != nil {
		return nil, err
	}
	return collectApplications(rows)
}

func (r *ApplicationRepositoryPG) ListByVolunteer(ctx context.Context, volunteerID string) ([]domain.Application, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListApplicationsByVolunteer, volunteerID)
	if err != nil {
		return nil, err
	}
	return collectApplications(rows)
}

func (r *ApplicationRepositoryPG) CountByVolunteerSince(ctx context.Context, volunteerID string, since time.Time) (int, error) {
	var n int
	err := r.sql.QueryRow(ctx, sqlinline.QCountApplicationsSince, volunteerID, since).Scan(&n)
	return n, err
}

func (r *ApplicationRepositoryPG) ExistsBetween(ctx context.Context, ngoID, volunteerID string) (bool, error) {
	var ok bool
	err := r.sql.QueryRow(ctx, sqlinline.QApplicationExistsBetween, ngoID, volunteerID).Scan(&ok)
	return ok, err
}

func collectApplications(rows pgx.Rows) ([]domain.Application, error) {
	defer rows.Close()
	var out []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var a domain.Application
	if err := row.Scan(&a.ID, &a.ProjectID, &a.VolunteerID, &a.NGOID, &a.CoverLetter, &a.Availability,
		&a.NGONote, &a.Status, &a.MatchScore, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// UnlockRepositoryPG implements domain.UnlockRepository.
type UnlockRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewUnlockRepository(sql infra.SQLExecutor) *UnlockRepositoryPG {
	return &UnlockRepositoryPG{sql: sql}
}

func (r *UnlockRepositoryPG) Create(ctx context.Context, u *domain.ProfileUnlock) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertProfileUnlock, u.NGOID, u.VolunteerID, string(u.Source), u.TransactionID)
	return row.Scan(&u.ID, &u.Source, &u.TransactionID, &u.CreatedAt)
}

func (r *UnlockRepositoryPG) Exists(ctx context.Context, ngoID, volunteerID string) (bool, error) {
	var ok bool
	err := r.sql.QueryRow(ctx, sqlinline.QProfileUnlockExists, ngoID, volunteerID).Scan(&ok)
	return ok, err
}

func (r *UnlockRepositoryPG) ListByNGO(ctx context.Context, ngoID string) ([]domain.ProfileUnlock, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProfileUnlocksByNGO, ngoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ProfileUnlock
	for rows.Next() {
		var u domain.ProfileUnlock
		if err := rows.Scan(&u.ID, &u.NGOID, &u.VolunteerID, &u.Source, &u.TransactionID, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
