package core

import (
	"context"
	"fmt"

	"timetable/internal/infra/persistence/memory"
	"timetable/internal/infra/persistence/postgres"
	"timetable/internal/infra/persistence/sqlite"
	"timetable/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and configures the snapshot sink.
type StorageConfig struct {
	Driver      StorageDriver `mapstructure:"driver"`
	SQLitePath  string        `mapstructure:"sqlite_path"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
}

// OpenSnapshotSink opens the sink named by cfg.Driver (sqlite when empty).
// The memory driver has no sink and returns nil.
func OpenSnapshotSink(ctx context.Context, cfg StorageConfig) (domain.SnapshotSink, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return nil, nil
	case StorageSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenPersistentService opens the configured sink, hydrates a fresh store from
// it, and returns a service that saves back to it after every mutation. The
// caller closes the returned sink when it is non-nil.
func OpenPersistentService(ctx context.Context, cfg StorageConfig, opts ...Option) (*Service, domain.SnapshotSink, error) {
	sink, err := OpenSnapshotSink(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := memory.NewStore(nil)
	if sink != nil {
		snapshot, err := sink.Load(ctx)
		if err != nil {
			_ = sink.Close()
			return nil, nil, fmt.Errorf("load snapshot: %w", err)
		}
		store.ImportState(snapshot)
		opts = append(opts, WithSnapshotSink(sink))
	}
	return NewService(store, opts...), sink, nil
}
