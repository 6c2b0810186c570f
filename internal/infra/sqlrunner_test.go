package infra

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMarker(t *testing.T) {
	query := "--sql 0f8f3c0e-1b7a-4a8e-9d2f-5b1f7a9c3e21\nselect 1;"
	marker, body, err := ExtractMarker(query)
	if err != nil {
		t.Fatalf("ExtractMarker() error: %v", err)
	}
	if marker != "0f8f3c0e-1b7a-4a8e-9d2f-5b1f7a9c3e21" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q", body)
	}
}

func TestExtractMarkerRejectsUnmarkedQuery(t *testing.T) {
	for _, q := range []string{"", "select 1;", "--sql not-a-uuid\nselect 1;"} {
		if _, _, err := ExtractMarker(q); err == nil {
			t.Fatalf("ExtractMarker(%q) expected error", q)
		}
	}
}

type fakeQuerier struct {
	gotSQL string
	err    error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.gotSQL = sql
	return pgconn.NewCommandTag("UPDATE 1"), f.err
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.gotSQL = sql
	return errorRow{err: f.err}
}

func (f *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.gotSQL = sql
	return nil, f.err
}

func newTestRunner(db querier, step time.Duration) (*SQLRunner, *bytes.Buffer) {
	var buf bytes.Buffer
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &SQLRunner{
		db:     db,
		logger: zerolog.New(&buf).Level(zerolog.DebugLevel),
		now: func() time.Time {
			clock = clock.Add(step)
			return clock
		},
	}, &buf
}

func TestSQLRunnerStripsMarker(t *testing.T) {
	db := &fakeQuerier{}
	r, buf := newTestRunner(db, time.Millisecond)
	tag, err := r.Exec(context.Background(), "--sql 0f8f3c0e-1b7a-4a8e-9d2f-5b1f7a9c3e21\nupdate t set x = 1;", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tag.RowsAffected())
	assert.Equal(t, "update t set x = 1;", db.gotSQL)
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"sql":"0f8f3c0e-1b7a-4a8e-9d2f-5b1f7a9c3e21"`)
}

func TestSQLRunnerLogsSlowAndFailedQueries(t *testing.T) {
	r, buf := newTestRunner(&fakeQuerier{}, time.Second)
	_, err := r.Exec(context.Background(), "--sql 0f8f3c0e-1b7a-4a8e-9d2f-5b1f7a9c3e21\nselect pg_sleep(1);")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"slow exec"`)

	r, buf = newTestRunner(&fakeQuerier{err: errors.New("boom")}, time.Millisecond)
	_, err = r.Query(context.Background(), "--sql 0f8f3c0e-1b7a-4a8e-9d2f-5b1f7a9c3e21\nselect 1;")
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"message":"query failed"`)
}

func TestSQLRunnerNoRowsIsNotAnError(t *testing.T) {
	r, buf := newTestRunner(&fakeQuerier{err: pgx.ErrNoRows}, time.Millisecond)
	var n int
	err := r.QueryRow(context.Background(), "--sql 0f8f3c0e-1b7a-4a8e-9d2f-5b1f7a9c3e21\nselect 1;").Scan(&n)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.NotContains(t, buf.String(), `"level":"error"`)
}

func TestSQLRunnerRejectsUnmarkedQuery(t *testing.T) {
	db := &fakeQuerier{}
	r, _ := newTestRunner(db, time.Millisecond)
	_, err := r.Exec(context.Background(), "delete from users;")
	require.Error(t, err)
	assert.Empty(t, db.gotSQL)
}
