package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"justbecause/internal/domain"
	"justbecause/internal/infra"
	"justbecause/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) error {
	volunteer, ngo, err := encodeProfiles(user)
	if err != nil {
		return err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertUser,
		user.Email, user.Name, user.AvatarURL, user.Locale, user.PasswordHash, user.GoogleSub,
		string(user.Role), string(user.Plan), user.PlanExpiresAt, user.EmailVerified, user.Banned,
		user.OnboardingCompleted, volunteer, ngo, user.LastLoginAt,
	)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return conflict(err)
	}
	return nil
}

func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id))
}

func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByEmail, email))
}

func (r *UserRepositoryPG) GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByGoogleSub, sub))
}

func (r *UserRepositoryPG) GetMany(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectUsersByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (r *UserRepositoryPG) Update(ctx context.Context, user *domain.User) error {
	volunteer, ngo, err := encodeProfiles(user)
	if err != nil {
		return err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateUser,
		user.ID, user.Email, user.Name, user.AvatarURL, user.Locale, user.PasswordHash, user.GoogleSub,
		string(user.Role), string(user.Plan), user.PlanExpiresAt, user.EmailVerified, user.Banned,
		user.OnboardingCompleted, volunteer, ngo, user.LastLoginAt,
	)
	if err := row.Scan(&user.UpdatedAt); err != nil {
		return conflict(notFound(err))
	}
	return nil
}

func (r *UserRepositoryPG) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListUsers,
		string(f.Role), f.Query, f.Skill, f.Cause, string(f.WorkMode), string(f.VolunteerType), f.Country,
		f.Banned, f.Verified, f.OnboardedOnly, f.OpenToWork, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		users []domain.User
		total int
	)
	for rows.Next() {
		u, err := scanUserWith(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepositoryPG) ListPlansExpiringBefore(ctx context.Context, before time.Time) ([]domain.User, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListPlansExpiringBefore, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func encodeProfiles(user *domain.User) ([]byte, []byte, error) {
	volunteer, err := jsonb(user.Volunteer)
	if err != nil {
		return nil, nil, fmt.Errorf("encode volunteer profile: %w", err)
	}
	ngo, err := jsonb(user.NGO)
	if err != nil {
		return nil, nil, fmt.Errorf("encode ngo profile: %w", err)
	}
	return volunteer, ngo, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	return scanUserWith(row)
}

func scanUserWith(row pgx.Row, extra ...any) (*domain.User, error) {
	var (
		u              domain.User
		volunteer, ngo []byte
	)
	dest := []any{
		&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Locale, &u.PasswordHash, &u.GoogleSub, &u.Role, &u.Plan,
		&u.PlanExpiresAt, &u.EmailVerified, &u.Banned, &u.OnboardingCompleted,
		&volunteer, &ngo, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, notFound(err)
	}
	var err error
	if u.Volunteer, err = fromJSONB[domain.VolunteerProfile](volunteer); err != nil {
		return nil, fmt.Errorf("decode volunteer profile: %w", err)
	}
	if u.NGO, err = fromJSONB[domain.NGOProfile](ngo); err != nil {
		return nil, fmt.Errorf("decode ngo profile: %w", err)
	}
	return &u, nil
}

// TokenRepositoryPG implements domain.TokenRepository.
type TokenRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewTokenRepository(sql infra.SQLExecutor) *TokenRepositoryPG {
	return &TokenRepositoryPG{sql: sql}
}

func (r *TokenRepositoryPG) Create(ctx context.Context, token *domain.AuthToken) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertAuthToken, token.UserID, string(token.Kind), token.TokenHash, token.ExpiresAt)
	return row.Scan(&token.ID, &token.CreatedAt)
}

func (r *TokenRepositoryPG) Consume(ctx context.Context, kind domain.TokenKind, hash string, now time.Time) (*domain.AuthToken, error) {
	var t domain.AuthToken
	row := r.sql.QueryRow(ctx, sqlinline.QConsumeAuthToken, string(kind), hash, now)
	if err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}
