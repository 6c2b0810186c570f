package repo

import (
	"context"

	"justbecause/internal/infra"
	"justbecause/internal/sqlinline"
)

// SettingsRepositoryPG implements domain.SettingsRepository over app_settings.
type SettingsRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewSettingsRepository(sql infra.SQLExecutor) *SettingsRepositoryPG {
	return &SettingsRepositoryPG{sql: sql}
}

func (r *SettingsRepositoryPG) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectSetting, key).Scan(&value); err != nil {
		if infra.IsNoRows(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *SettingsRepositoryPG) Set(ctx context.Context, key, value string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertSetting, key, value)
	return err
}

func (r *SettingsRepositoryPG) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
