package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"timetable/internal/infra/persistence/postgres/testutil"
	"timetable/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StateConn) {
	t.Helper()
	db, conn := testutil.NewStateDB()
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Statements {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got %v", conn.Statements)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	snapshot := domain.Snapshot{
		Settings: &domain.SettingsSnapshot{Grades: domain.DefaultGrades(), Subjects: domain.DefaultSubjects()},
		Teachers: []domain.Teacher{{ID: "t1", Name: "Seo", Assignments: []domain.TeacherAssignment{}}},
		Schedule: []domain.ScheduleEntry{{ID: "e1", TeacherID: "t1", Grade: 3, ClassNumber: 1, Day: domain.DayMon, Period: 2, SubjectID: "pe"}},
	}
	if err := store.Save(ctx, snapshot, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := len(conn.Buckets); got != 3 {
		t.Fatalf("expected three bucket rows, got %d", got)
	}
	if err := store.Save(ctx, snapshot, []domain.Bucket{domain.BucketSchedule}); err != nil {
		t.Fatalf("Save schedule: %v", err)
	}
	if got := len(conn.Buckets); got != 3 {
		t.Fatalf("expected upsert to keep three rows, got %d", got)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Settings == nil || len(loaded.Settings.Grades) != 6 {
		t.Fatalf("expected settings restored, got %+v", loaded.Settings)
	}
	if len(loaded.Teachers) != 1 || len(loaded.Schedule) != 1 || loaded.Schedule[0].Period != 2 {
		t.Fatalf("unexpected loaded snapshot %+v", loaded)
	}
}

func TestLoadSkipsUnknownBuckets(t *testing.T) {
	store, conn := openStub(t)
	conn.Buckets["timetable_legacy"] = "{}"
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Settings != nil || loaded.Teachers != nil {
		t.Fatalf("expected empty snapshot, got %+v", loaded)
	}
}

func TestStoreErrorPaths(t *testing.T) {
	ctx := context.Background()

	store, conn := openStub(t)
	boom := errors.New("boom")
	conn.UpsertErr = boom
	if err := store.Save(ctx, domain.Snapshot{}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected upsert failure, got %v", err)
	}
	conn.UpsertErr = nil
	conn.QueryErr = boom
	if _, err := store.Load(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected select failure, got %v", err)
	}
	conn.QueryErr = nil
	conn.RowsErr = boom
	if _, err := store.Load(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected iteration failure, got %v", err)
	}
	conn.RowsErr = nil
	conn.BeginErr = boom
	if err := store.Save(ctx, domain.Snapshot{}, nil); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.BeginErr = nil
	conn.CommitErr = boom
	if err := store.Save(ctx, domain.Snapshot{}, nil); err == nil {
		t.Fatalf("expected commit failure")
	}
	conn.CommitErr = nil
	conn.Buckets[string(domain.BucketTeachers)] = "{"
	if _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected decode failure")
	}

	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("dial") })
	defer restore()
	if _, err := NewStore(ctx, "postgres://x"); err == nil {
		t.Fatalf("expected open failure")
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStateDB()
	conn.PingErr = errors.New("refused")
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil {
		t.Fatalf("expected ping failure")
	}
}
