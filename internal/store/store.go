// Package store holds one user's task collection as an immutable snapshot.
//
// Refresh is the only writer: it fetches the full collection and swaps the
// snapshot in one step. Readers never see a partially applied refresh.
package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

type Loader func(ctx context.Context) ([]model.Task, error)

type Snapshot struct {
	Tasks    []model.Task
	LoadedAt time.Time
}

type Store struct {
	load    Loader
	logger  *zap.Logger
	now     func() time.Time
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes Refresh
}

func New(load Loader, logger *zap.Logger) *Store {
	return &Store{
		load:   load,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot returns the last loaded collection. The zero Snapshot is returned
// before the first successful refresh.
func (s *Store) Snapshot() Snapshot {
	if snap := s.current.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}

func (s *Store) Tasks() []model.Task {
	return s.Snapshot().Tasks
}

func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// Refresh replaces the snapshot with a fresh copy from the backend.
// On failure the previous snapshot stays in place.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	tasks, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("task refresh failed", zap.Error(err))
		return fmt.Errorf("refresh tasks: %w", err)
	}

	if tasks == nil {
		tasks = []model.Task{}
	}
	s.current.Store(&Snapshot{Tasks: tasks, LoadedAt: s.now()})

	s.logger.Debug("tasks refreshed",
		zap.Int("count", len(tasks)),
		zap.Duration("took", s.now().Sub(start)),
	)
	return nil
}
