package repo

import (
	"context"
	"time"

	"justbecause/internal/domain"
	"justbecause/internal/infra"
	"justbecause/internal/sqlinline"
)

// StatsRepositoryPG aggregates dashboard counters.
type StatsRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewStatsRepository(sql infra.SQLExecutor) *StatsRepositoryPG {
	return &StatsRepositoryPG{sql: sql}
}

func (r *StatsRepositoryPG) PlatformStats(ctx context.Context, now time.Time) (*domain.PlatformStats, error) {
	s := &domain.PlatformStats{
		UsersByRole:       map[domain.Role]int{},
		ProjectsByStatus:  map[domain.ProjectStatus]int{},
		RevenueByCurrency: map[string]int64{},
		GeneratedAt:       now,
	}

	if err := r.groupCount(ctx, sqlinline.QStatsUsersByRole, func(key string, n int) {
		s.UsersByRole[domain.Role(key)] = n
	}); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, sqlinline.QStatsProjectsByStatus, func(key string, n int) {
		s.ProjectsByStatus[domain.ProjectStatus(key)] = n
	}); err != nil {
		return nil, err
	}

	rows, err := r.sql.Query(ctx, sqlinline.QStatsRevenueByCurrency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			currency string
			count    int
			amount   int64
		)
		if err := rows.Scan(&currency, &count, &amount); err != nil {
			return nil, err
		}
		s.PaidTransactions += count
		s.RevenueByCurrency[currency] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	row := r.sql.QueryRow(ctx, sqlinline.QStatsTotals, now.AddDate(0, 0, -30))
	if err := row.Scan(&s.OnboardedUsers, &s.BannedUsers, &s.SignupsLast30Days, &s.Applications,
		&s.CompletedProjects, &s.HoursContributed); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *StatsRepositoryPG) groupCount(ctx context.Context, query string, put func(string, int)) error {
	rows, err := r.sql.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		put(key, n)
	}
	return rows.Err()
}
