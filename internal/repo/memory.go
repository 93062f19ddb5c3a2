package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

// MemoryRepo keeps tasks in process memory. Insertion order doubles as
// creation order, so List walks it backwards.
type MemoryRepo struct {
	mtx     sync.RWMutex
	storage map[uuid.UUID]*model.Task
	ids     []uuid.UUID
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		storage: make(map[uuid.UUID]*model.Task),
		now:     time.Now,
	}
}

func (s *MemoryRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tasks := make([]model.Task, 0)
	for i := len(s.ids) - 1; i >= 0; i-- {
		t := s.storage[s.ids[i]]
		if t.UserID != userID {
			continue
		}
		tasks = append(tasks, clone(t))
	}
	return tasks, nil
}

func (s *MemoryRepo) Get(ctx context.Context, userID, id uuid.UUID) (model.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.storage[id]
	if !ok || t.UserID != userID {
		return model.Task{}, ErrorNotFound
	}
	return clone(t), nil
}

func (s *MemoryRepo) Create(ctx context.Context, userID uuid.UUID, d model.Draft) (model.Task, error) {
	if strings.TrimSpace(d.Title) == "" || !d.Priority.Valid() || !d.Category.Valid() {
		return model.Task{}, ErrorInvalid
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	t := &model.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		Category:    d.Category,
		CreatedAt:   s.now(),
	}
	if d.DueDate != nil {
		due := *d.DueDate
		t.DueDate = &due
	}

	s.storage[t.ID] = t
	s.ids = append(s.ids, t.ID)
	return clone(t), nil
}

func (s *MemoryRepo) Update(ctx context.Context, userID, id uuid.UUID, p model.Patch) (model.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.storage[id]
	if !ok || t.UserID != userID {
		return model.Task{}, ErrorNotFound
	}

	updated := clone(t)
	p.Apply(&updated)
	if strings.TrimSpace(updated.Title) == "" || !updated.Priority.Valid() || !updated.Category.Valid() {
		return model.Task{}, ErrorInvalid
	}

	*t = updated
	return clone(t), nil
}

func (s *MemoryRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.storage[id]
	if !ok || t.UserID != userID {
		return ErrorNotFound
	}

	delete(s.storage, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return nil
}

func clone(t *model.Task) model.Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return c
}
