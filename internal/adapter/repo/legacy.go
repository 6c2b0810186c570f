package repo

import (
	"context"
	"fmt"

	"justbecause/internal/infra"
	"justbecause/internal/sqlinline"
)

// LegacyMergeReport counts the users whose empty profile was filled from the
// legacy tables. In a dry run the counts are what a real run would change.
type LegacyMergeReport struct {
	Volunteers    int64
	NGOs          int64
	MissingTables []string
}

type legacyTable struct {
	name   string
	count  string
	merge  string
	target *int64
}

// MergeLegacyProfiles copies volunteer_profiles and ngo_profiles rows into the
// profile columns of users. Users that already have a profile are left alone,
// so reruns only pick up what is still missing.
func MergeLegacyProfiles(ctx context.Context, sql infra.SQLExecutor, dryRun bool) (*LegacyMergeReport, error) {
	report := &LegacyMergeReport{}
	tables := []legacyTable{
		{"volunteer_profiles", sqlinline.QCountLegacyVolunteerProfiles, sqlinline.QMergeLegacyVolunteerProfiles, &report.Volunteers},
		{"ngo_profiles", sqlinline.QCountLegacyNGOProfiles, sqlinline.QMergeLegacyNGOProfiles, &report.NGOs},
	}
	for _, t := range tables {
		var exists bool
		if err := sql.QueryRow(ctx, sqlinline.QLegacyTableExists, "public."+t.name).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check %s: %w", t.name, err)
		}
		if !exists {
			report.MissingTables = append(report.MissingTables, t.name)
			continue
		}
		if dryRun {
			if err := sql.QueryRow(ctx, t.count).Scan(t.target); err != nil {
				return nil, fmt.Errorf("count %s: %w", t.name, err)
			}
			continue
		}
		tag, err := sql.Exec(ctx, t.merge)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", t.name, err)
		}
		*t.target = tag.RowsAffected()
	}
	return report, nil
}
