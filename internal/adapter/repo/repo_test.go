package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"justbecause/internal/domain"
	"justbecause/internal/infra"
)

type stubCall struct {
	query string
	args  []any
}

type stubExecutor struct {
	t     *testing.T
	calls []stubCall
	tag   string
	err   error
	scan  func(dest ...any) error
}

func (s *stubExecutor) record(query string, args []any) {
	if _, _, err := infra.ExtractMarker(query); err != nil {
		s.t.Fatalf("query without marker: %v", err)
	}
	s.calls = append(s.calls, stubCall{query: query, args: args})
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.record(query, args)
	return pgconn.NewCommandTag(s.tag), s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.record(query, args)
	return stubRow{scan: s.scan, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.record(query, args)
	return nil, errors.New("not implemented")
}

type stubRow struct {
	scan func(dest ...any) error
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.scan == nil {
		return errors.New("no scan configured")
	}
	return r.scan(dest...)
}

func TestUserGetByIDNotFound(t *testing.T) {
	exec := &stubExecutor{t: t, err: pgx.ErrNoRows}
	_, err := NewUserRepository(exec).GetByID(context.Background(), "00000000-0000-0000-0000-000000000001")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserCreateEncodesProfile(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exec := &stubExecutor{t: t, scan: func(dest ...any) error {
		*dest[0].(*string) = "user-1"
		*dest[1].(*time.Time) = created
		*dest[2].(*time.Time) = created
		return nil
	}}
	user := &domain.User{
		Email: "v@example.org",
		Role:  domain.RoleVolunteer,
		Plan:  domain.PlanFree,
		Volunteer: &domain.VolunteerProfile{
			Headline: "Go developer",
			Skills:   []domain.Skill{{Category: "technology", Subskill: "backend", Level: domain.LevelExpert}},
		},
	}
	if err := NewUserRepository(exec).Create(context.Background(), user); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("expected id to be populated, got %q", user.ID)
	}
	args := exec.calls[0].args
	raw, ok := args[12].([]byte)
	if !ok {
		t.Fatalf("expected volunteer profile bytes, got %T", args[12])
	}
	var decoded domain.VolunteerProfile
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("profile json: %v", err)
	}
	if decoded.Headline != "Go developer" || len(decoded.Skills) != 1 {
		t.Fatalf("unexpected profile %+v", decoded)
	}
	if ngo, _ := args[13].([]byte); ngo != nil {
		t.Fatalf("expected nil ngo profile, got %s", ngo)
	}
}

func TestApplicationCreateDuplicateIsConflict(t *testing.T) {
	exec := &stubExecutor{t: t, err: pgx.ErrNoRows}
	err := NewApplicationRepository(exec).Create(context.Background(), &domain.Application{ProjectID: "p", VolunteerID: "v"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTransactionMarkFulfilledReportsChange(t *testing.T) {
	exec := &stubExecutor{t: t, tag: "UPDATE 1"}
	repo := NewTransactionRepository(exec)
	stamped, err := repo.MarkFulfilled(context.Background(), "tx", time.Now())
	if err != nil || !stamped {
		t.Fatalf("expected stamp, got %v %v", stamped, err)
	}
	exec.tag = "UPDATE 0"
	stamped, err = repo.MarkFulfilled(context.Background(), "tx", time.Now())
	if err != nil || stamped {
		t.Fatalf("expected no stamp, got %v %v", stamped, err)
	}
}

func TestTransactionPinGrantExpiryReturnsStoredValue(t *testing.T) {
	stored := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	exec := &stubExecutor{t: t, scan: func(dest ...any) error {
		*dest[0].(*time.Time) = stored
		return nil
	}}
	got, err := NewTransactionRepository(exec).PinGrantExpiry(context.Background(), "tx", stored.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(stored) {
		t.Fatalf("got %v, want %v", got, stored)
	}
	if !strings.Contains(exec.calls[0].query, "coalesce(grant_expires_at") {
		t.Fatalf("pin must keep an existing grant: %s", exec.calls[0].query)
	}
}

func TestTransactionMarkPaidReportsChange(t *testing.T) {
	exec := &stubExecutor{t: t, tag: "UPDATE 1"}
	changed, err := NewTransactionRepository(exec).MarkPaid(context.Background(), "tx", "pay", time.Now())
	if err != nil || !changed {
		t.Fatalf("expected change, got %v %v", changed, err)
	}

	exec.tag = "UPDATE 0"
	changed, err = NewTransactionRepository(exec).MarkPaid(context.Background(), "tx", "pay", time.Now())
	if err != nil || changed {
		t.Fatalf("expected no change, got %v %v", changed, err)
	}
}

func TestProjectDeleteMissing(t *testing.T) {
	exec := &stubExecutor{t: t, tag: "DELETE 0"}
	if err := NewProjectRepository(exec).Delete(context.Background(), "p"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsGetMissing(t *testing.T) {
	exec := &stubExecutor{t: t, err: pgx.ErrNoRows}
	_, ok, err := NewSettingsRepository(exec).Get(context.Background(), "price_ngo_pro_usd")
	if err != nil || ok {
		t.Fatalf("expected missing setting, got ok=%v err=%v", ok, err)
	}
}

func TestConversationFindOrCreateOrdersPair(t *testing.T) {
	exec := &stubExecutor{t: t, err: errors.New("stop")}
	_, _ = NewConversationRepository(exec).FindOrCreate(context.Background(), &domain.Conversation{ParticipantA: "b", ParticipantB: "a"})
	args := exec.calls[0].args
	if args[0] != "a" || args[1] != "b" {
		t.Fatalf("expected ordered pair, got %v", args[:2])
	}
}

func TestUniqueViolationIsConflict(t *testing.T) {
	exec := &stubExecutor{t: t, err: &pgconn.PgError{Code: "23505"}}
	err := NewCouponRepository(exec).Create(context.Background(), &domain.Coupon{Code: "X"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMergeLegacyProfiles(t *testing.T) {
	exec := &stubExecutor{t: t, tag: "UPDATE 2", scan: func(dest ...any) error {
		*dest[0].(*bool) = true
		return nil
	}}
	report, err := MergeLegacyProfiles(context.Background(), exec, false)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if report.Volunteers != 2 || report.NGOs != 2 || len(report.MissingTables) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(exec.calls) != 4 {
		t.Fatalf("expected existence check and update per table, got %d calls", len(exec.calls))
	}
}

func TestMergeLegacyProfilesDryRunCounts(t *testing.T) {
	exec := &stubExecutor{t: t, scan: func(dest ...any) error {
		switch d := dest[0].(type) {
		case *bool:
			*d = true
		case *int64:
			*d = 5
		}
		return nil
	}}
	report, err := MergeLegacyProfiles(context.Background(), exec, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if report.Volunteers != 5 || report.NGOs != 5 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, c := range exec.calls {
		if strings.Contains(c.query, "update users") {
			t.Fatalf("dry run issued an update: %s", c.query)
		}
	}
}

func TestMergeLegacyProfilesSkipsMissingTables(t *testing.T) {
	exec := &stubExecutor{t: t, scan: func(dest ...any) error {
		*dest[0].(*bool) = false
		return nil
	}}
	report, err := MergeLegacyProfiles(context.Background(), exec, false)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(report.MissingTables) != 2 || len(exec.calls) != 2 {
		t.Fatalf("unexpected report %+v after %d calls", report, len(exec.calls))
	}
}
