package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/AaronLay10/algoscene/internal/api"
	"github.com/AaronLay10/algoscene/internal/config"
	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/logging"
	"github.com/AaronLay10/algoscene/internal/storage/postgres"
	"github.com/AaronLay10/algoscene/internal/timinglog"
)

// storageSet is the timing log and journal persistence chosen by
// storage.driver.
type storageSet struct {
	memory *timinglog.MemorySink
	sqlite *timinglog.SQLiteSink
	pg     *postgres.Client
}

func openStorage(cfg *config.Config, logger *slog.Logger) (*storageSet, error) {
	set := &storageSet{memory: &timinglog.MemorySink{}}
	switch cfg.Storage.Driver {
	case config.DriverMemory:
	case config.DriverSQLite:
		sink, err := timinglog.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		set.sqlite = sink
		logger.Info("timing log opened", slog.String("driver", "sqlite"), slog.String("path", sink.Path()))
	case config.DriverPostgres:
		dsn, err := cfg.PostgresDSN()
		if err != nil {
			return nil, err
		}
		var client *postgres.Client
		if dsn == "" {
			client, err = postgres.New(cfg.Project.ID)
		} else {
			client, err = postgres.Open(dsn, cfg.Project.ID)
		}
		if err != nil {
			return nil, err
		}
		set.pg = client
		journal.SetStore(client)
		logger.Info("timing log opened", slog.String("driver", "postgres"))
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	return set, nil
}

// sink writes every record to memory and to the persistent store, if any.
func (s *storageSet) sink() timinglog.Sink {
	switch {
	case s.sqlite != nil:
		return timinglog.Tee(s.memory, s.sqlite)
	case s.pg != nil:
		return timinglog.Tee(s.memory, timinglog.NewPostgresSink(s.pg))
	}
	return s.memory
}

func (s *storageSet) reader() timinglog.Reader {
	switch {
	case s.sqlite != nil:
		return s.sqlite
	case s.pg != nil:
		return timinglog.NewPostgresSink(s.pg)
	}
	return s.memory
}

// eventStore is nil unless journal events are persisted.
func (s *storageSet) eventStore() api.EventQuerier {
	if s.pg == nil {
		return nil
	}
	return s.pg
}

// latestRun finds the most recent run for stores that can answer it.
func (s *storageSet) latestRun(ctx context.Context) (string, error) {
	if s.sqlite != nil {
		return s.sqlite.LatestRun(ctx)
	}
	return "", nil
}

func (s *storageSet) Close() error {
	var errs []error
	if s.pg != nil {
		journal.SetStore(nil)
		errs = append(errs, s.pg.Close())
	}
	if s.sqlite != nil {
		errs = append(errs, s.sqlite.Close())
	}
	return errors.Join(errs...)
}

// acquireRunLock prevents two runs of the same project from sharing a
// timing database.
func acquireRunLock(cfg *config.Config, logger *slog.Logger) (func(), error) {
	dir := filepath.Dir(cfg.Storage.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lockPath := filepath.Join(dir, "algoscene.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another algoscene run holds %s", lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}
