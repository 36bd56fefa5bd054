package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"timetable/internal/infra/persistence/memory"
	"timetable/pkg/domain"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(context.Background(), path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSQLiteStoreEmptyLoad(t *testing.T) {
	store, path := openTemp(t)
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snapshot.Settings != nil || len(snapshot.Teachers) != 0 || len(snapshot.Schedule) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	store, path := openTemp(t)

	mem := memory.NewStore(nil)
	res, err := mem.RunInTransaction(ctx, func(tx domain.Transaction) error {
		teacher := tx.AddTeacher("Kim")
		tx.AddAssignment(teacher.ID, 3, "pe")
		tx.AddEntry(domain.ScheduleEntry{TeacherID: teacher.ID, Grade: 3, ClassNumber: 1, Day: domain.DayMon, Period: 1, SubjectID: "pe"})
		tx.SetClassCount(3, 5)
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Save(ctx, mem.ExportState(), res.Buckets()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	snapshot, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	restored := memory.NewStore(nil)
	restored.ImportState(snapshot)
	if got := len(restored.ListTeachers()); got != 1 {
		t.Fatalf("expected 1 teacher, got %d", got)
	}
	if got := len(restored.ListSchedule()); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
	if g, _ := restored.GetGrade(3); g.ClassCount != 5 {
		t.Fatalf("expected class count persisted, got %+v", g)
	}
}

func TestSQLiteStoreSavesOnlyListedBuckets(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)
	snapshot := domain.Snapshot{Schedule: []domain.ScheduleEntry{{ID: "e1", TeacherID: "t1", Grade: 4, ClassNumber: 2, Day: domain.DayTue, Period: 3}}}
	if err := store.Save(ctx, snapshot, []domain.Bucket{domain.BucketSchedule}); err != nil {
		t.Fatalf("save: %v", err)
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single bucket row, got %d", count)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Settings != nil {
		t.Fatalf("settings bucket must stay absent")
	}
	if len(loaded.Schedule) != 1 || loaded.Schedule[0].ID != "e1" {
		t.Fatalf("unexpected schedule %+v", loaded.Schedule)
	}

	if err := store.Save(ctx, domain.Snapshot{}, nil); err != nil {
		t.Fatalf("save all: %v", err)
	}
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected all buckets written, got %d", count)
	}
}

func TestSQLiteStoreIgnoresUnknownBucketsAndRejectsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)
	if _, err := store.DB().Exec(`INSERT INTO state(bucket,payload) VALUES('legacy', x'00')`); err != nil {
		t.Fatalf("seed legacy: %v", err)
	}
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("unknown buckets must be ignored: %v", err)
	}
	if _, err := store.DB().Exec(`INSERT INTO state(bucket,payload) VALUES(?, ?)`, string(domain.BucketTeachers), []byte("{")); err != nil {
		t.Fatalf("seed corrupt: %v", err)
	}
	if _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected decode error for corrupt payload")
	}
}
